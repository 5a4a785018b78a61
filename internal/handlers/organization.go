package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/access"
	"github.com/yukikurage/annonest-api/internal/dto"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/services"
	"github.com/yukikurage/annonest-api/internal/utils"
)

// OrganizationHandler serves the caller's organization and its members.
type OrganizationHandler struct {
	orgService *services.OrganizationService
}

func NewOrganizationHandler(orgService *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// GetOrganization returns the caller's organization. Managers also see the
// invite code.
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	org, err := h.orgService.GetOrganization(actor)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org, actor.ManagerTier()))
}

// UpdateOrganization renames the organization
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required,max=255"`
	}
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.orgService.UpdateOrganizationName(actor, req.Name)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org, true))
}

// RegenerateInviteCode replaces the organization's invite code
func (h *OrganizationHandler) RegenerateInviteCode(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	org, err := h.orgService.RegenerateInviteCode(actor)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org, true))
}

// ListAssignableRoles returns the roles the caller may grant, each with the
// modules it unlocks
func (h *OrganizationHandler) ListAssignableRoles(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	roles, err := h.orgService.AssignableRoles(actor)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	out := make([]gin.H, 0, len(roles))
	for _, r := range roles {
		out = append(out, gin.H{"role": r, "modules": access.ModuleAccess(r)})
	}
	c.JSON(http.StatusOK, gin.H{"roles": out})
}

// ListMembers lists members, optionally filtered by approval_status and role
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListMembersInput{Page: params.Page, PageSize: params.Limit}
	if v := c.Query("approval_status"); v != "" {
		status := models.ApprovalStatus(v)
		input.ApprovalStatus = &status
	}
	if v := c.Query("role"); v != "" {
		role, known := access.ParseRole(v)
		if !known {
			apierrors.Respond(c, services.ErrInvalidRole)
			return
		}
		input.Role = &role
	}

	users, total, err := h.orgService.ListMembers(actor, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.Map(users, dto.ToUserDTO), params.Page, params.Limit, total))
}

// SetApproval approves or rejects a member
func (h *OrganizationHandler) SetApproval(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	var req struct {
		Status models.ApprovalStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.orgService.SetApproval(actor, userID, req.Status)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// ChangeRole changes a member's role
func (h *OrganizationHandler) ChangeRole(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	var req struct {
		Role access.Role `json:"role" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.orgService.ChangeRole(actor, userID, req.Role)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// SetTrialEnd moves or clears a member's trial end
func (h *OrganizationHandler) SetTrialEnd(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	var req struct {
		TrialEndsAt *time.Time `json:"trial_ends_at"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.orgService.SetTrialEnd(actor, userID, req.TrialEndsAt)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// RemoveMember removes a member from the organization
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	if err := h.orgService.RemoveMember(actor, userID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/dto"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/services"
	"github.com/yukikurage/annonest-api/internal/workflow"
)

type WorkItemHandler struct {
	itemService *services.WorkItemService
}

func NewWorkItemHandler(itemService *services.WorkItemService) *WorkItemHandler {
	return &WorkItemHandler{itemService: itemService}
}

// ListItems returns work items. Filters match ListTasks.
func (h *WorkItemHandler) ListItems(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	input, params, ok := listInput(c)
	if !ok {
		return
	}

	items, total, err := h.itemService.ListItems(actor, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.Map(items, dto.ToWorkItemDTO), params.Page, params.Limit, total))
}

// GetItem returns one work item
func (h *WorkItemHandler) GetItem(c *gin.Context) {
	h.runAction(c, h.itemService.GetItem)
}

// AddItems adds entities to a DataNest project as work items
func (h *WorkItemHandler) AddItems(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	type entityRef struct {
		EntityType string `json:"entity_type" binding:"required"`
		EntityID   uint64 `json:"entity_id" binding:"required"`
	}
	var req struct {
		ProjectID  uint64      `json:"project_id" binding:"required"`
		Entities   []entityRef `json:"entities" binding:"required,dive"`
		AssignedTo *uint64     `json:"assigned_to"`
	}
	if !bindJSON(c, &req) {
		return
	}

	refs := make([]services.EntityRef, len(req.Entities))
	for i, e := range req.Entities {
		refs[i] = services.EntityRef{EntityType: e.EntityType, EntityID: e.EntityID}
	}

	items, err := h.itemService.AddItems(actor, req.ProjectID, refs, req.AssignedTo)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"items": dto.Map(items, dto.ToWorkItemDTO)})
}

type itemAction func(actor services.Actor, id uint64) (*models.EntitiesProjectItem, error)

func (h *WorkItemHandler) runAction(c *gin.Context, action itemAction) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, err := action(actor, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkItemDTO(*item))
}

// ClaimItem claims an unassigned pending item
func (h *WorkItemHandler) ClaimItem(c *gin.Context) {
	h.runAction(c, h.itemService.Claim)
}

// TransitionItem applies {"action": "start|complete|block|unblock", "note": "..."}
func (h *WorkItemHandler) TransitionItem(c *gin.Context) {
	var req struct {
		Action workflow.Action `json:"action" binding:"required"`
		Note   string          `json:"note"`
	}
	if !bindJSON(c, &req) {
		return
	}
	h.runAction(c, func(actor services.Actor, id uint64) (*models.EntitiesProjectItem, error) {
		return h.itemService.Transition(actor, id, req.Action, req.Note)
	})
}

// AssignItem sets or clears the assignee
func (h *WorkItemHandler) AssignItem(c *gin.Context) {
	var req struct {
		UserID *uint64 `json:"user_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	h.runAction(c, func(actor services.Actor, id uint64) (*models.EntitiesProjectItem, error) {
		return h.itemService.Assign(actor, id, req.UserID)
	})
}

// UpdateNotes replaces the item's notes
func (h *WorkItemHandler) UpdateNotes(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	if !bindJSON(c, &req) {
		return
	}
	h.runAction(c, func(actor services.Actor, id uint64) (*models.EntitiesProjectItem, error) {
		return h.itemService.UpdateNotes(actor, id, req.Notes)
	})
}

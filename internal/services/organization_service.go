package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/annonest-api/internal/access"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/repository"
	"github.com/yukikurage/annonest-api/internal/utils"
)

var (
	ErrOrganizationNotFound       = apierrors.NotFound("organization not found")
	ErrMemberNotFound             = apierrors.NotFound("member not found")
	ErrInvalidOrganizationName    = apierrors.Validation("organization name cannot be empty")
	ErrInvalidRole                = apierrors.Validation("unknown role")
	ErrInvalidApprovalStatus      = apierrors.Validation("approval status must be approved or rejected")
	ErrCannotManageSelf           = apierrors.Coded(apierrors.KindAuthorization, apierrors.ErrCodeInsufficientPermissions, "cannot change your own membership")
	ErrCannotManageRole           = apierrors.Coded(apierrors.KindAuthorization, apierrors.ErrCodeInsufficientPermissions, "your role cannot manage this member")
	ErrAdminRequired              = apierrors.Coded(apierrors.KindAuthorization, apierrors.ErrCodeInsufficientPermissions, "admin role required")
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
)

// OrganizationService provides business logic for organization and member
// management.
type OrganizationService struct {
	orgRepo  repository.OrganizationRepository
	userRepo repository.UserRepository
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo repository.OrganizationRepository, userRepo repository.UserRepository) *OrganizationService {
	return &OrganizationService{
		orgRepo:  orgRepo,
		userRepo: userRepo,
	}
}

// GetOrganization returns the actor's organization.
func (s *OrganizationService) GetOrganization(actor Actor) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(actor.OrganizationID)
	if err != nil {
		return nil, notFound(err, ErrOrganizationNotFound, "find organization")
	}
	return org, nil
}

// UpdateOrganizationName renames the actor's organization.
func (s *OrganizationService) UpdateOrganizationName(actor Actor, name string) (*models.Organization, error) {
	if !access.IsAdminTier(actor.Role) {
		return nil, ErrAdminRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidOrganizationName
	}

	org, err := s.GetOrganization(actor)
	if err != nil {
		return nil, err
	}

	org.Name = name
	if err := s.orgRepo.Update(org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return org, nil
}

// RegenerateInviteCode generates a new invite code for the organization.
// The previous code stops working immediately.
func (s *OrganizationService) RegenerateInviteCode(actor Actor) (*models.Organization, error) {
	if !access.IsAdminTier(actor.Role) {
		return nil, ErrAdminRequired
	}

	org, err := s.GetOrganization(actor)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	org.InviteCode = code
	if err := s.orgRepo.Update(org); err != nil {
		return nil, fmt.Errorf("failed to update invite code: %w", err)
	}

	return org, nil
}

// ListMembersInput filters the member listing.
type ListMembersInput struct {
	ApprovalStatus *models.ApprovalStatus
	Role           *access.Role
	Page           int
	PageSize       int
}

// ListMembers lists the members of the actor's organization.
func (s *OrganizationService) ListMembers(actor Actor, input ListMembersInput) ([]models.User, int64, error) {
	if !actor.ManagerTier() {
		return nil, 0, ErrManagerRequired
	}

	users, total, err := s.userRepo.List(repository.UserFilter{
		OrganizationID: actor.OrganizationID,
		ApprovalStatus: input.ApprovalStatus,
		Role:           input.Role,
		Page:           input.Page,
		PageSize:       input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	return users, total, nil
}

// manageable loads a member the actor is allowed to manage: manager tier,
// not themselves, and strictly outranking the member's current role.
func (s *OrganizationService) manageable(actor Actor, userID uint64) (*models.User, error) {
	if !actor.ManagerTier() {
		return nil, ErrManagerRequired
	}
	if userID == actor.UserID {
		return nil, ErrCannotManageSelf
	}

	target, err := s.userRepo.FindInOrganization(actor.OrganizationID, userID)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound, "find member")
	}

	if !access.CanManageRole(actor.Role, target.Role) {
		return nil, ErrCannotManageRole
	}
	return target, nil
}

func (s *OrganizationService) update(actor Actor, target *models.User, fields map[string]interface{}) (*models.User, error) {
	if err := s.userRepo.UpdateFields(actor.OrganizationID, target.ID, fields); err != nil {
		return nil, notFound(err, ErrMemberNotFound, "update member")
	}
	updated, err := s.userRepo.FindInOrganization(actor.OrganizationID, target.ID)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound, "reload member")
	}
	return updated, nil
}

// SetApproval approves or rejects a member.
func (s *OrganizationService) SetApproval(actor Actor, userID uint64, status models.ApprovalStatus) (*models.User, error) {
	if status != models.ApprovalApproved && status != models.ApprovalRejected {
		return nil, ErrInvalidApprovalStatus
	}

	target, err := s.manageable(actor, userID)
	if err != nil {
		return nil, err
	}

	return s.update(actor, target, map[string]interface{}{"approval_status": status})
}

// ChangeRole changes a member's role. The actor must outrank both the
// member's current role and the new role.
func (s *OrganizationService) ChangeRole(actor Actor, userID uint64, role access.Role) (*models.User, error) {
	if _, ok := access.ParseRole(string(role)); !ok {
		return nil, ErrInvalidRole
	}

	target, err := s.manageable(actor, userID)
	if err != nil {
		return nil, err
	}
	if !access.CanManageRole(actor.Role, role) {
		return nil, ErrCannotManageRole
	}

	return s.update(actor, target, map[string]interface{}{"role": role})
}

// AssignableRoles lists the roles the actor may grant, highest rank first.
func (s *OrganizationService) AssignableRoles(actor Actor) ([]access.Role, error) {
	if !actor.ManagerTier() {
		return nil, ErrManagerRequired
	}

	var roles []access.Role
	for _, r := range access.Roles() {
		if access.CanManageRole(actor.Role, r) {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// SetTrialEnd moves a member's trial end. Nil removes the trial.
func (s *OrganizationService) SetTrialEnd(actor Actor, userID uint64, endsAt *time.Time) (*models.User, error) {
	target, err := s.manageable(actor, userID)
	if err != nil {
		return nil, err
	}

	return s.update(actor, target, map[string]interface{}{"trial_ends_at": endsAt})
}

// RemoveMember removes a member from the organization.
func (s *OrganizationService) RemoveMember(actor Actor, userID uint64) error {
	target, err := s.manageable(actor, userID)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(actor.OrganizationID, target.ID); err != nil {
		return notFound(err, ErrMemberNotFound, "remove member")
	}
	return nil
}

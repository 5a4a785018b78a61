package dto

import (
	"time"

	"github.com/yukikurage/annonest-api/internal/access"
	"github.com/yukikurage/annonest-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID             uint64                `json:"id"`
	OrganizationID uint64                `json:"organization_id"`
	Email          string                `json:"email"`
	Name           string                `json:"name"`
	Role           access.Role           `json:"role"`
	ApprovalStatus models.ApprovalStatus `json:"approval_status"`
	TrialEndsAt    *time.Time            `json:"trial_ends_at"`
	CreatedAt      time.Time             `json:"created_at"`
}

// UserSummaryDTO is the short form embedded in other resources.
type UserSummaryDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// MeDTO is the current user plus the modules their role grants.
type MeDTO struct {
	UserDTO
	Modules []access.Module `json:"modules"`
	Active  bool            `json:"active"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		OrganizationID: user.OrganizationID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		ApprovalStatus: user.ApprovalStatus,
		TrialEndsAt:    user.TrialEndsAt,
		CreatedAt:      user.CreatedAt,
	}
}

// ToUserSummaryDTO returns nil for a missing user.
func ToUserSummaryDTO(user *models.User) *UserSummaryDTO {
	if user == nil || user.ID == 0 {
		return nil
	}
	return &UserSummaryDTO{ID: user.ID, Name: user.Name}
}

// ToMeDTO converts the current user. active reports whether the account
// passes the approval and trial checks.
func ToMeDTO(user models.User, active bool) MeDTO {
	return MeDTO{
		UserDTO: ToUserDTO(user),
		Modules: access.ModuleAccess(user.Role),
		Active:  active,
	}
}

package dto

import (
	"time"

	"github.com/yukikurage/annonest-api/internal/models"
)

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"invite_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToOrganizationDTO converts an Organization model to OrganizationDTO. The
// invite code is only shown to members who can manage users.
func ToOrganizationDTO(org models.Organization, includeInviteCode bool) OrganizationDTO {
	dto := OrganizationDTO{
		ID:        org.ID,
		Name:      org.Name,
		CreatedAt: org.CreatedAt,
	}
	if includeInviteCode {
		dto.InviteCode = org.InviteCode
	}
	return dto
}

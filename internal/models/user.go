package models

import (
	"time"

	"github.com/yukikurage/annonest-api/internal/access"
	"gorm.io/gorm"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type User struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	OrganizationID uint64         `gorm:"not null;index" json:"organization_id"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	PasswordHash   string         `gorm:"type:varchar(255);not null" json:"-"`
	Role           access.Role    `gorm:"type:varchar(20);not null;default:'guest'" json:"role"`
	ApprovalStatus ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"approval_status"`
	TrialEndsAt    *time.Time     `json:"trial_ends_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

// IsManagerTier reports whether the user may assign work and approve reviews.
func (u *User) IsManagerTier() bool {
	return access.CanManageUsers(u.Role)
}

// TrialExpired reports whether the user's trial has ended at now.
func (u *User) TrialExpired(now time.Time) bool {
	return u.TrialEndsAt != nil && now.After(*u.TrialEndsAt)
}

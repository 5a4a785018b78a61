package models

import (
	"time"

	"github.com/yukikurage/annonest-api/internal/workflow"
	"gorm.io/datatypes"
)

// AnnotationTask is one unit of annotation work. Tasks are never deleted.
type AnnotationTask struct {
	ID             uint64          `gorm:"primarykey" json:"id"`
	OrganizationID uint64          `gorm:"not null;index" json:"organization_id"`
	ProjectID      uint64          `gorm:"not null;index" json:"project_id"`
	AssignedTo     *uint64         `gorm:"index" json:"assigned_to"`
	Status         workflow.Status `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Metadata       datatypes.JSON  `json:"metadata"`
	ReviewNote     string          `gorm:"type:text" json:"review_note,omitempty"`
	CreatedBy      uint64          `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relations
	Project  AnnotationProject `gorm:"foreignKey:ProjectID" json:"-"`
	Assignee *User             `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
}

// EntitiesProjectItem is a DataNest work item pointing at one CRM entity.
type EntitiesProjectItem struct {
	ID             uint64          `gorm:"primarykey" json:"id"`
	OrganizationID uint64          `gorm:"not null;index" json:"organization_id"`
	ProjectID      uint64          `gorm:"not null;index" json:"project_id"`
	EntityType     string          `gorm:"type:varchar(40);not null" json:"entity_type"`
	EntityID       uint64          `gorm:"not null" json:"entity_id"`
	AssignedTo     *uint64         `gorm:"index" json:"assigned_to"`
	TaskStatus     workflow.Status `gorm:"type:varchar(20);not null;default:'pending';index" json:"task_status"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relations
	Assignee *User `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
}

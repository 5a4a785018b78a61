package models

import (
	"time"

	"github.com/yukikurage/annonest-api/internal/metadata"
	"gorm.io/gorm"
)

// AnnotationProject groups annotation tasks of a single category.
type AnnotationProject struct {
	ID             uint64            `gorm:"primarykey" json:"id"`
	OrganizationID uint64            `gorm:"not null;index" json:"organization_id"`
	Name           string            `gorm:"type:varchar(255);not null" json:"name"`
	Description    string            `gorm:"type:text" json:"description"`
	Category       metadata.Category `gorm:"type:varchar(40);not null" json:"category"`
	CreatedBy      uint64            `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	DeletedAt      gorm.DeletedAt    `gorm:"index" json:"-"`
}

// EntitiesProject groups DataNest work items.
type EntitiesProject struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	OrganizationID uint64         `gorm:"not null;index" json:"organization_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	CreatedBy      uint64         `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

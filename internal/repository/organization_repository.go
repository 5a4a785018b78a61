package repository

import (
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/utils"
	"gorm.io/gorm"
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

func (r *GormOrganizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

func (r *GormOrganizationRepository) FindByID(id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// FindByInviteCode matches codes case-insensitively; stored codes are upper case.
func (r *GormOrganizationRepository) FindByInviteCode(code string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("invite_code = ?", utils.NormalizeInviteCode(code)).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Update writes only the tenant-editable columns.
func (r *GormOrganizationRepository) Update(org *models.Organization) error {
	return r.db.Model(org).
		Select("name", "invite_code").
		Updates(models.Organization{Name: org.Name, InviteCode: org.InviteCode}).Error
}

package repository

import (
	"github.com/yukikurage/annonest-api/internal/database"
	"github.com/yukikurage/annonest-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) CreateAnnotationProject(project *models.AnnotationProject) error {
	return r.db.Create(project).Error
}

func (r *GormProjectRepository) FindAnnotationProject(orgID, id uint64) (*models.AnnotationProject, error) {
	var project models.AnnotationProject
	if err := r.db.Scopes(database.ForOrganization(orgID)).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormProjectRepository) ListAnnotationProjects(orgID uint64, page, pageSize int) ([]models.AnnotationProject, int64, error) {
	query := r.db.Model(&models.AnnotationProject{}).Scopes(database.ForOrganization(orgID))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.AnnotationProject
	if err := paginate(query.Order("created_at DESC"), page, pageSize).Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *GormProjectRepository) CreateEntitiesProject(project *models.EntitiesProject) error {
	return r.db.Create(project).Error
}

func (r *GormProjectRepository) FindEntitiesProject(orgID, id uint64) (*models.EntitiesProject, error) {
	var project models.EntitiesProject
	if err := r.db.Scopes(database.ForOrganization(orgID)).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormProjectRepository) ListEntitiesProjects(orgID uint64, page, pageSize int) ([]models.EntitiesProject, int64, error) {
	query := r.db.Model(&models.EntitiesProject{}).Scopes(database.ForOrganization(orgID))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.EntitiesProject
	if err := paginate(query.Order("created_at DESC"), page, pageSize).Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

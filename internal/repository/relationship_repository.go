package repository

import (
	"github.com/yukikurage/annonest-api/internal/database"
	"github.com/yukikurage/annonest-api/internal/models"
	"gorm.io/gorm"
)

// GormRelationshipRepository is a GORM implementation of RelationshipRepository
type GormRelationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository creates a new RelationshipRepository
func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &GormRelationshipRepository{db: db}
}

func (r *GormRelationshipRepository) Create(rel *models.Relationship) error {
	return r.db.Create(rel).Error
}

// List returns edges where the filtered entity is either endpoint
func (r *GormRelationshipRepository) List(filter RelationshipFilter) ([]models.Relationship, int64, error) {
	query := r.db.Model(&models.Relationship{}).Scopes(database.ForOrganization(filter.OrganizationID))

	if filter.EntityType != "" {
		query = query.Where(
			r.db.Where("from_entity_type = ? AND from_entity_id = ?", filter.EntityType, filter.EntityID).
				Or("to_entity_type = ? AND to_entity_id = ?", filter.EntityType, filter.EntityID),
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rels []models.Relationship
	if err := paginate(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize).Find(&rels).Error; err != nil {
		return nil, 0, err
	}
	return rels, total, nil
}

func (r *GormRelationshipRepository) Delete(orgID, id uint64) (int64, error) {
	result := r.db.Scopes(database.ForOrganization(orgID)).Delete(&models.Relationship{}, id)
	return result.RowsAffected, result.Error
}

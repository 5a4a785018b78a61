package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/annonest-api/internal/database"
	"github.com/yukikurage/annonest-api/internal/models"
	"gorm.io/gorm"
)

// ErrUnknownEntityType is returned for entity types outside models.EntityTypes.
var ErrUnknownEntityType = errors.New("unknown entity type")

// GormEntityRepository is a GORM implementation of EntityRepository. The
// concrete table is picked from the entity type on every call.
type GormEntityRepository struct {
	db *gorm.DB
}

// NewEntityRepository creates a new EntityRepository
func NewEntityRepository(db *gorm.DB) EntityRepository {
	return &GormEntityRepository{db: db}
}

func newModel(entityType string) (models.Entity, error) {
	model, ok := models.NewEntity(entityType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}
	return model, nil
}

func (r *GormEntityRepository) Create(entity models.Entity) error {
	return r.db.Create(entity).Error
}

func (r *GormEntityRepository) Find(orgID uint64, entityType string, id uint64) (models.Entity, error) {
	entity, err := newModel(entityType)
	if err != nil {
		return nil, err
	}
	if err := r.db.Scopes(database.ForOrganization(orgID)).First(entity, id).Error; err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *GormEntityRepository) List(filter EntityFilter) ([]models.Entity, int64, error) {
	model, err := newModel(filter.EntityType)
	if err != nil {
		return nil, 0, err
	}

	query := r.db.Model(model).Scopes(database.ForOrganization(filter.OrganizationID))
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := paginate(query.Order("name ASC, id ASC"), filter.Page, filter.PageSize)

	var entities []models.Entity
	switch filter.EntityType {
	case models.EntityTypeGP:
		entities, err = findAll[models.GP](listQuery)
	case models.EntityTypeLP:
		entities, err = findAll[models.LP](listQuery)
	case models.EntityTypeFund:
		entities, err = findAll[models.Fund](listQuery)
	case models.EntityTypePortfolioCompany:
		entities, err = findAll[models.PortfolioCompany](listQuery)
	case models.EntityTypeServiceProvider:
		entities, err = findAll[models.ServiceProvider](listQuery)
	case models.EntityTypeContact:
		entities, err = findAll[models.Contact](listQuery)
	case models.EntityTypeDeal:
		entities, err = findAll[models.Deal](listQuery)
	}
	if err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}

// findAll loads rows into []T and returns them as entities.
func findAll[T any, PT interface {
	*T
	models.Entity
}](query *gorm.DB) ([]models.Entity, error) {
	var rows []T
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.Entity, len(rows))
	for i := range rows {
		out[i] = PT(&rows[i])
	}
	return out, nil
}

func (r *GormEntityRepository) Save(entity models.Entity) error {
	return r.db.Save(entity).Error
}

func (r *GormEntityRepository) Delete(orgID uint64, entityType string, id uint64) (int64, error) {
	model, err := newModel(entityType)
	if err != nil {
		return 0, err
	}
	result := r.db.Scopes(database.ForOrganization(orgID)).Delete(model, id)
	return result.RowsAffected, result.Error
}

func (r *GormEntityRepository) CountExisting(orgID uint64, entityType string, ids []uint64) (int64, error) {
	model, err := newModel(entityType)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var count int64
	err = r.db.Model(model).
		Scopes(database.ForOrganization(orgID)).
		Where("id IN ?", ids).
		Count(&count).Error
	return count, err
}

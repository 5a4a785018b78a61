package repository

import (
	"github.com/yukikurage/annonest-api/internal/database"
	"github.com/yukikurage/annonest-api/internal/models"
	"gorm.io/gorm"
)

// GormWorkItemRepository is a GORM implementation of WorkItemRepository
type GormWorkItemRepository struct {
	db *gorm.DB
}

// NewWorkItemRepository creates a new WorkItemRepository
func NewWorkItemRepository(db *gorm.DB) WorkItemRepository {
	return &GormWorkItemRepository{db: db}
}

func (r *GormWorkItemRepository) FindByID(orgID, id uint64, preload ...string) (*models.EntitiesProjectItem, error) {
	var item models.EntitiesProjectItem
	query := r.db.Scopes(database.ForOrganization(orgID))
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormWorkItemRepository) List(filter ItemFilter) ([]models.EntitiesProjectItem, int64, error) {
	query := r.db.Model(&models.EntitiesProjectItem{}).Scopes(database.ForOrganization(filter.OrganizationID))

	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != nil {
		query = query.Where("task_status = ?", *filter.Status)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	} else if filter.Unassigned {
		query = query.Where("assigned_to IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.EntitiesProjectItem
	listQuery := paginate(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize)
	if err := listQuery.Preload("Assignee").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *GormWorkItemRepository) CreateBatch(items []models.EntitiesProjectItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&items, createBatchSize).Error
	})
}

func (r *GormWorkItemRepository) ApplyTransition(t Transition) (int64, error) {
	return applyTransition(r.db, &models.EntitiesProjectItem{}, "task_status", t)
}

func (r *GormWorkItemRepository) Assign(orgID, id uint64, assignee *uint64) (int64, error) {
	return assign(r.db, &models.EntitiesProjectItem{}, orgID, id, assignee)
}

func (r *GormWorkItemRepository) UpdateNotes(orgID, id uint64, notes string) (int64, error) {
	result := r.db.Model(&models.EntitiesProjectItem{}).
		Scopes(database.ForOrganization(orgID)).
		Where("id = ?", id).
		Update("notes", notes)
	return result.RowsAffected, result.Error
}

package repository

import (
	"github.com/yukikurage/annonest-api/internal/database"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/workflow"
	"gorm.io/gorm"
)

const createBatchSize = 200

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.AnnotationTask) error {
	return r.db.Create(task).Error
}

// FindByID finds a task within an organization with optional preloading
func (r *GormTaskRepository) FindByID(orgID, id uint64, preload ...string) (*models.AnnotationTask, error) {
	var task models.AnnotationTask
	query := r.db.Scopes(database.ForOrganization(orgID))

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter ItemFilter) ([]models.AnnotationTask, int64, error) {
	query := r.db.Model(&models.AnnotationTask{}).Scopes(database.ForOrganization(filter.OrganizationID))

	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
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

	var tasks []models.AnnotationTask
	listQuery := paginate(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize)
	if err := listQuery.Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// CreateBatch inserts tasks in one transaction; either every row is written
// or none is.
func (r *GormTaskRepository) CreateBatch(tasks []models.AnnotationTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&tasks, createBatchSize).Error
	})
}

// ApplyTransition runs t against annotation_tasks
func (r *GormTaskRepository) ApplyTransition(t Transition) (int64, error) {
	return applyTransition(r.db, &models.AnnotationTask{}, "status", t)
}

// Assign sets or clears the assignee
func (r *GormTaskRepository) Assign(orgID, id uint64, assignee *uint64) (int64, error) {
	return assign(r.db, &models.AnnotationTask{}, orgID, id, assignee)
}

// UpdateMetadata stores metadata only while assignee holds the task in status
func (r *GormTaskRepository) UpdateMetadata(orgID, id, assignee uint64, status workflow.Status, metadata []byte) (int64, error) {
	result := r.db.Model(&models.AnnotationTask{}).
		Scopes(database.ForOrganization(orgID)).
		Where("id = ? AND assigned_to = ? AND status = ?", id, assignee, status).
		Update("metadata", metadata)
	return result.RowsAffected, result.Error
}

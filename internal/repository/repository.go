package repository

import (
	"time"

	"github.com/yukikurage/annonest-api/internal/access"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/workflow"
)

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(id uint64) (*models.Organization, error)

	// FindByInviteCode finds an organization by invite code
	FindByInviteCode(code string) (*models.Organization, error)

	// Update updates an organization
	Update(org *models.Organization) error
}

// UserFilter holds filtering options for listing members
type UserFilter struct {
	OrganizationID uint64
	ApprovalStatus *models.ApprovalStatus
	Role           *access.Role
	Page           int
	PageSize       int
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// CreateWithOrganization creates an organization and its first user in
	// a single transaction.
	CreateWithOrganization(user *models.User, org *models.Organization) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindInOrganization finds a user by ID within one organization
	FindInOrganization(orgID, id uint64) (*models.User, error)

	// List lists the members of an organization
	List(filter UserFilter) ([]models.User, int64, error)

	// UpdateFields updates the given columns of a member
	UpdateFields(orgID, id uint64, fields map[string]interface{}) error

	// Delete soft deletes a member
	Delete(orgID, id uint64) error

	// CountApproved counts how many of ids are approved members of the organization
	CountApproved(orgID uint64, ids []uint64) (int64, error)
}

// ProjectRepository defines the interface for annotation and entities projects
type ProjectRepository interface {
	CreateAnnotationProject(project *models.AnnotationProject) error
	FindAnnotationProject(orgID, id uint64) (*models.AnnotationProject, error)
	ListAnnotationProjects(orgID uint64, page, pageSize int) ([]models.AnnotationProject, int64, error)

	CreateEntitiesProject(project *models.EntitiesProject) error
	FindEntitiesProject(orgID, id uint64) (*models.EntitiesProject, error)
	ListEntitiesProjects(orgID uint64, page, pageSize int) ([]models.EntitiesProject, int64, error)
}

// Transition is a conditional status update. It only applies to a row in the
// organization whose status is one of From and whose assignee matches.
type Transition struct {
	OrganizationID uint64
	ID             uint64
	From           []workflow.Status
	To             workflow.Status

	// ExpectedAssignee pins the assignee the caller observed. Nil skips the
	// check unless RequireUnassigned is set.
	ExpectedAssignee  *uint64
	RequireUnassigned bool

	// Set holds extra columns written in the same statement.
	Set map[string]interface{}
}

// ItemFilter holds filtering options for listing tasks and work items
type ItemFilter struct {
	OrganizationID uint64
	ProjectID      *uint64
	Status         *workflow.Status
	AssignedTo     *uint64
	Unassigned     bool
	Page           int
	PageSize       int
}

// TaskRepository defines the interface for annotation task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.AnnotationTask) error

	// FindByID finds a task within an organization
	FindByID(orgID, id uint64, preload ...string) (*models.AnnotationTask, error)

	// List retrieves tasks with filtering and pagination
	List(filter ItemFilter) ([]models.AnnotationTask, int64, error)

	// CreateBatch inserts tasks in one transaction
	CreateBatch(tasks []models.AnnotationTask) error

	// ApplyTransition runs t as one conditional UPDATE and returns the
	// affected row count.
	ApplyTransition(t Transition) (int64, error)

	// Assign sets or clears the assignee
	Assign(orgID, id uint64, assignee *uint64) (int64, error)

	// UpdateMetadata stores metadata while the task is held by assignee in status
	UpdateMetadata(orgID, id, assignee uint64, status workflow.Status, metadata []byte) (int64, error)
}

// WorkItemRepository defines the interface for entities project items
type WorkItemRepository interface {
	FindByID(orgID, id uint64, preload ...string) (*models.EntitiesProjectItem, error)
	List(filter ItemFilter) ([]models.EntitiesProjectItem, int64, error)
	CreateBatch(items []models.EntitiesProjectItem) error
	ApplyTransition(t Transition) (int64, error)
	Assign(orgID, id uint64, assignee *uint64) (int64, error)
	UpdateNotes(orgID, id uint64, notes string) (int64, error)
}

// LockRepository defines the interface for entity edit locks
type LockRepository interface {
	// Acquire creates lock or refreshes the caller's own lock. Locks taken
	// at or before staleBefore are replaced. When another user holds a live lock
	// the holder's row is returned with acquired=false.
	Acquire(lock *models.EntityEditLock, staleBefore time.Time) (current *models.EntityEditLock, acquired bool, err error)

	// Find returns the lock row for an entity, expired or not
	Find(orgID uint64, entityType string, entityID uint64) (*models.EntityEditLock, error)

	// Delete removes the lock row for an entity
	Delete(orgID uint64, entityType string, entityID uint64) (int64, error)

	// DeleteStale removes every lock taken at or before staleBefore
	DeleteStale(staleBefore time.Time) (int64, error)
}

// EntityFilter holds filtering options for listing CRM entities
type EntityFilter struct {
	OrganizationID uint64
	EntityType     string
	Search         string
	Page           int
	PageSize       int
}

// EntityRepository defines the interface for DataNest records of every type
type EntityRepository interface {
	Create(entity models.Entity) error
	Find(orgID uint64, entityType string, id uint64) (models.Entity, error)
	List(filter EntityFilter) ([]models.Entity, int64, error)
	Save(entity models.Entity) error
	Delete(orgID uint64, entityType string, id uint64) (int64, error)

	// CountExisting counts how many of ids exist for entityType in the organization
	CountExisting(orgID uint64, entityType string, ids []uint64) (int64, error)
}

// RelationshipFilter narrows relationship listings to edges touching one entity
type RelationshipFilter struct {
	OrganizationID uint64
	EntityType     string
	EntityID       uint64
	Page           int
	PageSize       int
}

// RelationshipRepository defines the interface for entity relationships
type RelationshipRepository interface {
	Create(rel *models.Relationship) error
	List(filter RelationshipFilter) ([]models.Relationship, int64, error)
	Delete(orgID, id uint64) (int64, error)
}

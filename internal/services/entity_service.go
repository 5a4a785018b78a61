package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/repository"
)

var ErrEntityNameRequired = apierrors.Validation("name is required")

// EntityService provides DataNest CRUD for every entity type. Updates and
// deletes honor edit locks held by other users.
type EntityService struct {
	entityRepo repository.EntityRepository
	locks      *LockService
	now        Clock
}

// NewEntityService creates a new EntityService.
func NewEntityService(entityRepo repository.EntityRepository, locks *LockService, now Clock) *EntityService {
	if now == nil {
		now = SystemClock
	}
	return &EntityService{
		entityRepo: entityRepo,
		locks:      locks,
		now:        now,
	}
}

// ListEntitiesInput filters an entity listing.
type ListEntitiesInput struct {
	EntityType string
	Search     string
	Page       int
	PageSize   int
}

// List returns entities of one type in the actor's organization.
func (s *EntityService) List(actor Actor, input ListEntitiesInput) ([]models.Entity, int64, error) {
	if !models.ValidEntityType(input.EntityType) {
		return nil, 0, ErrInvalidEntityType
	}

	entities, total, err := s.entityRepo.List(repository.EntityFilter{
		OrganizationID: actor.OrganizationID,
		EntityType:     input.EntityType,
		Search:         input.Search,
		Page:           input.Page,
		PageSize:       input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list entities: %w", err)
	}
	return entities, total, nil
}

// Get returns one entity of the actor's organization.
func (s *EntityService) Get(actor Actor, entityType string, id uint64) (models.Entity, error) {
	if !models.ValidEntityType(entityType) {
		return nil, ErrInvalidEntityType
	}
	entity, err := s.entityRepo.Find(actor.OrganizationID, entityType, id)
	if err != nil {
		return nil, notFound(err, ErrEntityNotFound, "find entity")
	}
	return entity, nil
}

// Create stores a new entity from a JSON body. Tenant and audit columns are
// always set by the server.
func (s *EntityService) Create(actor Actor, entityType string, body []byte) (models.Entity, error) {
	entity, ok := models.NewEntity(entityType)
	if !ok {
		return nil, ErrInvalidEntityType
	}
	if err := decodeEntity(body, entity); err != nil {
		return nil, err
	}

	base := entity.Base()
	base.ID = 0
	base.OrganizationID = actor.OrganizationID
	if err := s.stamp(actor, base); err != nil {
		return nil, err
	}

	if err := s.entityRepo.Create(entity); err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}
	return entity, nil
}

// Update applies a partial JSON body to an entity. It fails with ErrLockHeld
// while another user holds the entity's edit lock.
func (s *EntityService) Update(actor Actor, entityType string, id uint64, body []byte) (models.Entity, error) {
	entity, err := s.Get(actor, entityType, id)
	if err != nil {
		return nil, err
	}
	if err := s.locks.CheckEditable(actor, entityType, id); err != nil {
		return nil, err
	}

	saved := *entity.Base()
	if err := decodeEntity(body, entity); err != nil {
		return nil, err
	}

	base := entity.Base()
	base.ID = saved.ID
	base.OrganizationID = saved.OrganizationID
	base.CreatedAt = saved.CreatedAt
	base.DeletedAt = saved.DeletedAt
	if err := s.stamp(actor, base); err != nil {
		return nil, err
	}

	if err := s.entityRepo.Save(entity); err != nil {
		return nil, fmt.Errorf("failed to update entity: %w", err)
	}
	return entity, nil
}

// Delete soft deletes an entity. Manager tier only; a live foreign lock
// blocks it like an update.
func (s *EntityService) Delete(actor Actor, entityType string, id uint64) error {
	if !actor.ManagerTier() {
		return ErrManagerRequired
	}
	if _, err := s.Get(actor, entityType, id); err != nil {
		return err
	}
	if err := s.locks.CheckEditable(actor, entityType, id); err != nil {
		return err
	}

	rows, err := s.entityRepo.Delete(actor.OrganizationID, entityType, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	if rows == 0 {
		return ErrEntityNotFound
	}
	return nil
}

func (s *EntityService) stamp(actor Actor, base *models.EntityBase) error {
	base.Name = strings.TrimSpace(base.Name)
	if base.Name == "" {
		return ErrEntityNameRequired
	}
	now := s.now()
	userID := actor.UserID
	base.LastUpdatedBy = &userID
	base.LastUpdatedOn = &now
	return nil
}

func decodeEntity(body []byte, into models.Entity) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return apierrors.Validation(fmt.Sprintf("invalid entity body: %v", err))
	}
	return nil
}

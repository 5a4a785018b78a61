package services

import (
	"fmt"
	"strings"

	"github.com/yukikurage/annonest-api/internal/constants"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/repository"
	"github.com/yukikurage/annonest-api/internal/workflow"
)

var (
	ErrWorkItemNotFound  = apierrors.NotFound("work item not found")
	ErrNoItemsProvided   = apierrors.Validation("at least one entity is required")
	ErrTooManyItems      = apierrors.Validation(fmt.Sprintf("at most %d items per request", constants.MaxBulkEntityItems))
	ErrInvalidEntityType = apierrors.Validation("unknown entity type")
	ErrUnknownEntity     = apierrors.Validation("one or more entities do not exist")
)

// WorkItemService handles the DataNest work item lifecycle. Work items have
// no review stage: the assignee or a manager completes them.
type WorkItemService struct {
	itemRepo    repository.WorkItemRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	entityRepo  repository.EntityRepository
}

// NewWorkItemService creates a new WorkItemService.
func NewWorkItemService(
	itemRepo repository.WorkItemRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	entityRepo repository.EntityRepository,
) *WorkItemService {
	return &WorkItemService{
		itemRepo:    itemRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		entityRepo:  entityRepo,
	}
}

// ListItems returns work items of the actor's organization
func (s *WorkItemService) ListItems(actor Actor, input ListTasksInput) ([]models.EntitiesProjectItem, int64, error) {
	if input.Status != nil && !workflow.ValidStatus(workflow.KindWorkItem, *input.Status) {
		return nil, 0, invalidStatus(workflow.KindWorkItem)
	}

	filter := repository.ItemFilter{
		OrganizationID: actor.OrganizationID,
		ProjectID:      input.ProjectID,
		Status:         input.Status,
		AssignedTo:     input.AssignedTo,
		Unassigned:     input.Unassigned,
		Page:           input.Page,
		PageSize:       input.PageSize,
	}
	if input.Mine {
		filter.AssignedTo = &actor.UserID
	}

	items, total, err := s.itemRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list work items: %w", err)
	}
	return items, total, nil
}

// GetItem returns a work item of the actor's organization
func (s *WorkItemService) GetItem(actor Actor, id uint64) (*models.EntitiesProjectItem, error) {
	item, err := s.itemRepo.FindByID(actor.OrganizationID, id, "Assignee")
	if err != nil {
		return nil, notFound(err, ErrWorkItemNotFound, "find work item")
	}
	return item, nil
}

// EntityRef names one CRM record.
type EntityRef struct {
	EntityType string
	EntityID   uint64
}

// AddItems adds one work item per entity to a DataNest project. Every entity
// must exist in the organization; nothing is written otherwise.
func (s *WorkItemService) AddItems(actor Actor, projectID uint64, refs []EntityRef, assignee *uint64) ([]models.EntitiesProjectItem, error) {
	if !actor.ManagerTier() {
		return nil, ErrManagerRequired
	}
	if len(refs) == 0 {
		return nil, ErrNoItemsProvided
	}
	if len(refs) > constants.MaxBulkEntityItems {
		return nil, ErrTooManyItems
	}

	project, err := s.projectRepo.FindEntitiesProject(actor.OrganizationID, projectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}

	byType := make(map[string][]uint64)
	for _, ref := range refs {
		if !models.ValidEntityType(ref.EntityType) {
			return nil, ErrInvalidEntityType
		}
		byType[ref.EntityType] = append(byType[ref.EntityType], ref.EntityID)
	}
	for entityType, ids := range byType {
		ids = uniqueUint64(ids)
		count, err := s.entityRepo.CountExisting(actor.OrganizationID, entityType, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to verify entities: %w", err)
		}
		if int(count) != len(ids) {
			return nil, ErrUnknownEntity
		}
	}

	if assignee != nil {
		count, err := s.userRepo.CountApproved(actor.OrganizationID, []uint64{*assignee})
		if err != nil {
			return nil, fmt.Errorf("failed to verify assignee: %w", err)
		}
		if count != 1 {
			return nil, ErrInvalidAssignee
		}
	}

	items := make([]models.EntitiesProjectItem, len(refs))
	for i, ref := range refs {
		items[i] = models.EntitiesProjectItem{
			OrganizationID: actor.OrganizationID,
			ProjectID:      project.ID,
			EntityType:     ref.EntityType,
			EntityID:       ref.EntityID,
			AssignedTo:     assignee,
			TaskStatus:     workflow.StatusPending,
		}
	}
	if err := s.itemRepo.CreateBatch(items); err != nil {
		return nil, fmt.Errorf("failed to add work items: %w", err)
	}
	return items, nil
}

// Claim assigns an unassigned pending item to the actor and starts it.
func (s *WorkItemService) Claim(actor Actor, id uint64) (*models.EntitiesProjectItem, error) {
	rule, err := workflow.Lookup(workflow.KindWorkItem, workflow.ActionClaim)
	if err != nil {
		return nil, transitionError(err)
	}

	rows, err := s.itemRepo.ApplyTransition(repository.Transition{
		OrganizationID:    actor.OrganizationID,
		ID:                id,
		From:              rule.From,
		To:                rule.To,
		RequireUnassigned: true,
		Set:               map[string]interface{}{"assigned_to": actor.UserID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim work item: %w", err)
	}

	item, err := s.GetItem(actor, id)
	if err != nil {
		return nil, err
	}
	if rows == 1 {
		return item, nil
	}
	if item.TaskStatus == workflow.StatusInProgress && item.AssignedTo != nil && *item.AssignedTo == actor.UserID {
		return item, nil
	}
	if item.AssignedTo != nil && *item.AssignedTo != actor.UserID {
		return nil, ErrAlreadyClaimed
	}
	if err := rule.Check(actor.caller(), item.TaskStatus, item.AssignedTo); err != nil {
		return nil, transitionError(err)
	}
	return nil, ErrAlreadyClaimed
}

// Transition applies start, complete, block or unblock. A non-empty note
// replaces the item's notes in the same write.
func (s *WorkItemService) Transition(actor Actor, id uint64, action workflow.Action, note string) (*models.EntitiesProjectItem, error) {
	if action == workflow.ActionClaim {
		return s.Claim(actor, id)
	}

	rule, err := workflow.Lookup(workflow.KindWorkItem, action)
	if err != nil {
		return nil, ErrUnknownAction.WithDetails(map[string]interface{}{
			"allowed": workflow.Actions(workflow.KindWorkItem),
		})
	}

	item, err := s.GetItem(actor, id)
	if err != nil {
		return nil, err
	}
	if err := rule.Check(actor.caller(), item.TaskStatus, item.AssignedTo); err != nil {
		return nil, transitionError(err)
	}

	set := map[string]interface{}{}
	if note = strings.TrimSpace(note); note != "" {
		set["notes"] = note
	}

	rows, err := s.itemRepo.ApplyTransition(repository.Transition{
		OrganizationID:   actor.OrganizationID,
		ID:               id,
		From:             []workflow.Status{item.TaskStatus},
		To:               rule.To,
		ExpectedAssignee: item.AssignedTo,
		Set:              set,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to %s work item: %w", action, err)
	}
	if rows == 0 {
		return nil, ErrConcurrentUpdate
	}
	return s.GetItem(actor, id)
}

// Assign sets or clears an item's assignee without touching its status.
func (s *WorkItemService) Assign(actor Actor, id uint64, assignee *uint64) (*models.EntitiesProjectItem, error) {
	if !actor.ManagerTier() {
		return nil, ErrManagerRequired
	}
	if _, err := s.GetItem(actor, id); err != nil {
		return nil, err
	}
	if assignee != nil {
		count, err := s.userRepo.CountApproved(actor.OrganizationID, []uint64{*assignee})
		if err != nil {
			return nil, fmt.Errorf("failed to verify assignee: %w", err)
		}
		if count != 1 {
			return nil, ErrInvalidAssignee
		}
	}

	if _, err := s.itemRepo.Assign(actor.OrganizationID, id, assignee); err != nil {
		return nil, fmt.Errorf("failed to assign work item: %w", err)
	}
	return s.GetItem(actor, id)
}

// UpdateNotes replaces an item's notes. Assignee or manager tier.
func (s *WorkItemService) UpdateNotes(actor Actor, id uint64, notes string) (*models.EntitiesProjectItem, error) {
	item, err := s.GetItem(actor, id)
	if err != nil {
		return nil, err
	}
	isAssignee := item.AssignedTo != nil && *item.AssignedTo == actor.UserID
	if !isAssignee && !actor.ManagerTier() {
		return nil, ErrNotAssignee
	}

	if _, err := s.itemRepo.UpdateNotes(actor.OrganizationID, id, notes); err != nil {
		return nil, fmt.Errorf("failed to update work item: %w", err)
	}
	return s.GetItem(actor, id)
}

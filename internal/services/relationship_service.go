package services

import (
	"fmt"
	"strings"

	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/repository"
)

var (
	ErrRelationshipNotFound     = apierrors.NotFound("relationship not found")
	ErrRelationshipTypeRequired = apierrors.Validation("relationship_type is required")
	ErrSelfRelationship         = apierrors.Validation("an entity cannot be related to itself")
)

// RelationshipService manages typed edges between DataNest entities.
type RelationshipService struct {
	relRepo    repository.RelationshipRepository
	entityRepo repository.EntityRepository
}

// NewRelationshipService creates a new RelationshipService.
func NewRelationshipService(relRepo repository.RelationshipRepository, entityRepo repository.EntityRepository) *RelationshipService {
	return &RelationshipService{
		relRepo:    relRepo,
		entityRepo: entityRepo,
	}
}

// CreateRelationshipInput describes one edge.
type CreateRelationshipInput struct {
	From             EntityRef
	To               EntityRef
	RelationshipType string
}

// Create links two entities of the actor's organization.
func (s *RelationshipService) Create(actor Actor, input CreateRelationshipInput) (*models.Relationship, error) {
	relType := strings.ToLower(strings.TrimSpace(input.RelationshipType))
	if relType == "" {
		return nil, ErrRelationshipTypeRequired
	}
	if input.From == input.To {
		return nil, ErrSelfRelationship
	}
	for _, ref := range []EntityRef{input.From, input.To} {
		if err := s.ensureEntity(actor, ref); err != nil {
			return nil, err
		}
	}

	rel := &models.Relationship{
		OrganizationID:   actor.OrganizationID,
		FromEntityType:   input.From.EntityType,
		FromEntityID:     input.From.EntityID,
		ToEntityType:     input.To.EntityType,
		ToEntityID:       input.To.EntityID,
		RelationshipType: relType,
		CreatedBy:        actor.UserID,
	}
	if err := s.relRepo.Create(rel); err != nil {
		return nil, fmt.Errorf("failed to create relationship: %w", err)
	}
	return rel, nil
}

// List returns edges of the organization, optionally those touching one
// entity.
func (s *RelationshipService) List(actor Actor, entity *EntityRef, page, pageSize int) ([]models.Relationship, int64, error) {
	filter := repository.RelationshipFilter{
		OrganizationID: actor.OrganizationID,
		Page:           page,
		PageSize:       pageSize,
	}
	if entity != nil {
		if !models.ValidEntityType(entity.EntityType) {
			return nil, 0, ErrInvalidEntityType
		}
		filter.EntityType = entity.EntityType
		filter.EntityID = entity.EntityID
	}

	rels, total, err := s.relRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list relationships: %w", err)
	}
	return rels, total, nil
}

// Delete removes an edge.
func (s *RelationshipService) Delete(actor Actor, id uint64) error {
	rows, err := s.relRepo.Delete(actor.OrganizationID, id)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	if rows == 0 {
		return ErrRelationshipNotFound
	}
	return nil
}

func (s *RelationshipService) ensureEntity(actor Actor, ref EntityRef) error {
	if !models.ValidEntityType(ref.EntityType) {
		return ErrInvalidEntityType
	}
	count, err := s.entityRepo.CountExisting(actor.OrganizationID, ref.EntityType, []uint64{ref.EntityID})
	if err != nil {
		return fmt.Errorf("failed to verify entity: %w", err)
	}
	if count == 0 {
		return ErrEntityNotFound
	}
	return nil
}

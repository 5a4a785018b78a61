package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/dto"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/services"
	"github.com/yukikurage/annonest-api/internal/utils"
)

type RelationshipHandler struct {
	relService *services.RelationshipService
}

func NewRelationshipHandler(relService *services.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{relService: relService}
}

// CreateRelationship links two entities
func (h *RelationshipHandler) CreateRelationship(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req struct {
		FromEntityType   string `json:"from_entity_type" binding:"required"`
		FromEntityID     uint64 `json:"from_entity_id" binding:"required"`
		ToEntityType     string `json:"to_entity_type" binding:"required"`
		ToEntityID       uint64 `json:"to_entity_id" binding:"required"`
		RelationshipType string `json:"relationship_type" binding:"required,max=80"`
	}
	if !bindJSON(c, &req) {
		return
	}

	rel, err := h.relService.Create(actor, services.CreateRelationshipInput{
		From:             services.EntityRef{EntityType: req.FromEntityType, EntityID: req.FromEntityID},
		To:               services.EntityRef{EntityType: req.ToEntityType, EntityID: req.ToEntityID},
		RelationshipType: req.RelationshipType,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, rel)
}

// ListRelationships lists edges; entity_type and entity_id together narrow
// to one entity's edges
func (h *RelationshipHandler) ListRelationships(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var entity *services.EntityRef
	entityID, ok := optionalUintQuery(c, "entity_id")
	if !ok {
		return
	}
	if entityType := c.Query("entity_type"); entityType != "" || entityID != nil {
		if entityType == "" || entityID == nil {
			apierrors.Respond(c, apierrors.Validation("entity_type and entity_id must be given together"))
			return
		}
		entity = &services.EntityRef{EntityType: entityType, EntityID: *entityID}
	}

	params := utils.GetPaginationParams(c)
	rels, total, err := h.relService.List(actor, entity, params.Page, params.Limit)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(rels, params.Page, params.Limit, total))
}

// DeleteRelationship removes an edge
func (h *RelationshipHandler) DeleteRelationship(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.relService.Delete(actor, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

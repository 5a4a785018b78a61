package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/dto"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/services"
	"github.com/yukikurage/annonest-api/internal/utils"
)

// EntityHandler serves DataNest CRUD for every entity type under
// /entities/:type.
type EntityHandler struct {
	entityService *services.EntityService
	lockService   *services.LockService
}

func NewEntityHandler(entityService *services.EntityService, lockService *services.LockService) *EntityHandler {
	return &EntityHandler{
		entityService: entityService,
		lockService:   lockService,
	}
}

// ListEntities lists entities of one type; ?search= matches the name
func (h *EntityHandler) ListEntities(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	entities, total, err := h.entityService.List(actor, services.ListEntitiesInput{
		EntityType: c.Param("type"),
		Search:     c.Query("search"),
		Page:       params.Page,
		PageSize:   params.Limit,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(entities, params.Page, params.Limit, total))
}

// GetEntity returns one entity and its live edit lock, if any
func (h *EntityHandler) GetEntity(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entity, err := h.entityService.Get(actor, c.Param("type"), id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	lock, err := h.lockService.Get(actor, c.Param("type"), id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entity": entity, "lock": lock})
}

// CreateEntity creates an entity from the JSON body
func (h *EntityHandler) CreateEntity(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		apierrors.Respond(c, apierrors.Validation("Invalid request body"))
		return
	}

	entity, err := h.entityService.Create(actor, c.Param("type"), body)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, entity)
}

// UpdateEntity applies a partial JSON body. 409 LOCK_HELD while another
// user holds the edit lock.
func (h *EntityHandler) UpdateEntity(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		apierrors.Respond(c, apierrors.Validation("Invalid request body"))
		return
	}

	entity, err := h.entityService.Update(actor, c.Param("type"), id, body)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, entity)
}

// DeleteEntity soft deletes an entity
func (h *EntityHandler) DeleteEntity(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.entityService.Delete(actor, c.Param("type"), id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AcquireLock takes or refreshes the caller's edit lock
func (h *EntityHandler) AcquireLock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	holder, err := h.lockService.Acquire(actor, c.Param("type"), id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, holder)
}

// GetLock returns the live lock or {"lock": null}, plus the lock lifetime
func (h *EntityHandler) GetLock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	holder, err := h.lockService.Get(actor, c.Param("type"), id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lock":        holder,
		"ttl_seconds": int64(h.lockService.TTL().Seconds()),
	})
}

// ReleaseLock drops the lock; managers may break someone else's
func (h *EntityHandler) ReleaseLock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.lockService.Release(actor, c.Param("type"), id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

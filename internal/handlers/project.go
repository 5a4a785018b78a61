package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/dto"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/metadata"
	"github.com/yukikurage/annonest-api/internal/services"
	"github.com/yukikurage/annonest-api/internal/utils"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

type createProjectRequest struct {
	Name        string            `json:"name" binding:"required,max=255"`
	Description string            `json:"description"`
	Category    metadata.Category `json:"category"`
}

// CreateAnnotationProject creates an annotation project
func (h *ProjectHandler) CreateAnnotationProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req createProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.CreateAnnotationProject(actor, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAnnotationProjectDTO(*project))
}

// ListAnnotationProjects lists annotation projects
func (h *ProjectHandler) ListAnnotationProjects(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	projects, total, err := h.projectService.ListAnnotationProjects(actor, params.Page, params.Limit)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.Map(projects, dto.ToAnnotationProjectDTO), params.Page, params.Limit, total))
}

// GetAnnotationProject returns one annotation project
func (h *ProjectHandler) GetAnnotationProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.GetAnnotationProject(actor, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAnnotationProjectDTO(*project))
}

// CreateEntitiesProject creates a DataNest project
func (h *ProjectHandler) CreateEntitiesProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req createProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.CreateEntitiesProject(actor, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEntitiesProjectDTO(*project))
}

// ListEntitiesProjects lists DataNest projects
func (h *ProjectHandler) ListEntitiesProjects(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	projects, total, err := h.projectService.ListEntitiesProjects(actor, params.Page, params.Limit)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.Map(projects, dto.ToEntitiesProjectDTO), params.Page, params.Limit, total))
}

// GetEntitiesProject returns one DataNest project
func (h *ProjectHandler) GetEntitiesProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.GetEntitiesProject(actor, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEntitiesProjectDTO(*project))
}

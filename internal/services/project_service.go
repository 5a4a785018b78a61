package services

import (
	"fmt"
	"strings"

	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/metadata"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/repository"
)

var (
	ErrProjectNotFound     = apierrors.NotFound("project not found")
	ErrProjectNameRequired = apierrors.Validation("project name is required")
	ErrInvalidCategory     = apierrors.Validation("unknown project category")
)

// ProjectService manages annotation and entities projects.
type ProjectService struct {
	projectRepo repository.ProjectRepository
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository) *ProjectService {
	return &ProjectService{projectRepo: projectRepo}
}

// CreateProjectInput represents input for creating either project kind.
type CreateProjectInput struct {
	Name        string
	Description string
	Category    metadata.Category
}

// CreateAnnotationProject creates an annotation project. Manager tier only.
func (s *ProjectService) CreateAnnotationProject(actor Actor, input CreateProjectInput) (*models.AnnotationProject, error) {
	if !actor.ManagerTier() {
		return nil, ErrManagerRequired
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}
	if !metadata.ValidCategory(input.Category) {
		return nil, ErrInvalidCategory
	}

	project := &models.AnnotationProject{
		OrganizationID: actor.OrganizationID,
		Name:           name,
		Description:    input.Description,
		Category:       input.Category,
		CreatedBy:      actor.UserID,
	}
	if err := s.projectRepo.CreateAnnotationProject(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// GetAnnotationProject returns a project in the actor's organization.
func (s *ProjectService) GetAnnotationProject(actor Actor, id uint64) (*models.AnnotationProject, error) {
	project, err := s.projectRepo.FindAnnotationProject(actor.OrganizationID, id)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}
	return project, nil
}

// ListAnnotationProjects lists the organization's annotation projects.
func (s *ProjectService) ListAnnotationProjects(actor Actor, page, pageSize int) ([]models.AnnotationProject, int64, error) {
	projects, total, err := s.projectRepo.ListAnnotationProjects(actor.OrganizationID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// CreateEntitiesProject creates a DataNest project. Manager tier only.
func (s *ProjectService) CreateEntitiesProject(actor Actor, input CreateProjectInput) (*models.EntitiesProject, error) {
	if !actor.ManagerTier() {
		return nil, ErrManagerRequired
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}

	project := &models.EntitiesProject{
		OrganizationID: actor.OrganizationID,
		Name:           name,
		Description:    input.Description,
		CreatedBy:      actor.UserID,
	}
	if err := s.projectRepo.CreateEntitiesProject(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// GetEntitiesProject returns a DataNest project in the actor's organization.
func (s *ProjectService) GetEntitiesProject(actor Actor, id uint64) (*models.EntitiesProject, error) {
	project, err := s.projectRepo.FindEntitiesProject(actor.OrganizationID, id)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}
	return project, nil
}

// ListEntitiesProjects lists the organization's DataNest projects.
func (s *ProjectService) ListEntitiesProjects(actor Actor, page, pageSize int) ([]models.EntitiesProject, int64, error) {
	projects, total, err := s.projectRepo.ListEntitiesProjects(actor.OrganizationID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

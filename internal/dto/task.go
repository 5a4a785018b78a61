package dto

import (
	"encoding/json"
	"time"

	"github.com/yukikurage/annonest-api/internal/metadata"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/workflow"
)

// ProjectDTO represents an annotation or DataNest project.
type ProjectDTO struct {
	ID          uint64            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    metadata.Category `json:"category,omitempty"`
	CreatedBy   uint64            `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TaskDTO represents an annotation task in API responses
type TaskDTO struct {
	ID         uint64            `json:"id"`
	ProjectID  uint64            `json:"project_id"`
	Category   metadata.Category `json:"category,omitempty"`
	Status     workflow.Status   `json:"status"`
	AssignedTo *uint64           `json:"assigned_to"`
	Assignee   *UserSummaryDTO   `json:"assignee,omitempty"`
	Metadata   json.RawMessage   `json:"metadata"`
	ReviewNote string            `json:"review_note,omitempty"`
	CreatedBy  uint64            `json:"created_by"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// WorkItemDTO represents a DataNest work item.
type WorkItemDTO struct {
	ID         uint64          `json:"id"`
	ProjectID  uint64          `json:"project_id"`
	EntityType string          `json:"entity_type"`
	EntityID   uint64          `json:"entity_id"`
	Status     workflow.Status `json:"task_status"`
	AssignedTo *uint64         `json:"assigned_to"`
	Assignee   *UserSummaryDTO `json:"assignee,omitempty"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ToAnnotationProjectDTO converts an annotation project
func ToAnnotationProjectDTO(p models.AnnotationProject) ProjectDTO {
	return ProjectDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
}

// ToEntitiesProjectDTO converts a DataNest project
func ToEntitiesProjectDTO(p models.EntitiesProject) ProjectDTO {
	return ProjectDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
}

// ToTaskDTO converts an AnnotationTask model to TaskDTO
func ToTaskDTO(task models.AnnotationTask) TaskDTO {
	dto := TaskDTO{
		ID:         task.ID,
		ProjectID:  task.ProjectID,
		Status:     task.Status,
		AssignedTo: task.AssignedTo,
		Assignee:   ToUserSummaryDTO(task.Assignee),
		Metadata:   json.RawMessage(task.Metadata),
		ReviewNote: task.ReviewNote,
		CreatedBy:  task.CreatedBy,
		CreatedAt:  task.CreatedAt,
		UpdatedAt:  task.UpdatedAt,
	}

	// Include category if the project was preloaded
	if task.Project.ID != 0 {
		dto.Category = task.Project.Category
	}
	if len(dto.Metadata) == 0 {
		dto.Metadata = json.RawMessage("null")
	}

	return dto
}

// ToWorkItemDTO converts an EntitiesProjectItem model
func ToWorkItemDTO(item models.EntitiesProjectItem) WorkItemDTO {
	return WorkItemDTO{
		ID:         item.ID,
		ProjectID:  item.ProjectID,
		EntityType: item.EntityType,
		EntityID:   item.EntityID,
		Status:     item.TaskStatus,
		AssignedTo: item.AssignedTo,
		Assignee:   ToUserSummaryDTO(item.Assignee),
		Notes:      item.Notes,
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
}

// Map converts every element of in with convert.
func Map[M any, D any](in []M, convert func(M) D) []D {
	out := make([]D, len(in))
	for i, v := range in {
		out[i] = convert(v)
	}
	return out
}

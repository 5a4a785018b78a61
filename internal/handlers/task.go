package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/constants"
	"github.com/yukikurage/annonest-api/internal/dto"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/services"
	"github.com/yukikurage/annonest-api/internal/utils"
	"github.com/yukikurage/annonest-api/internal/workflow"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// listInput reads the filters shared by task and work item listings.
func listInput(c *gin.Context) (services.ListTasksInput, utils.PaginationParams, bool) {
	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		Page:       params.Page,
		PageSize:   params.Limit,
		Mine:       c.Query("mine") == "true",
		Unassigned: c.Query("unassigned") == "true",
	}

	var ok bool
	if input.ProjectID, ok = optionalUintQuery(c, "project_id"); !ok {
		return input, params, false
	}
	if input.AssignedTo, ok = optionalUintQuery(c, "assigned_to"); !ok {
		return input, params, false
	}
	if v := c.Query("status"); v != "" {
		status := workflow.Status(v)
		input.Status = &status
	}
	return input, params, true
}

// ListTasks returns tasks of the caller's organization. Filters: project_id,
// status, assigned_to, mine, unassigned.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	input, params, ok := listInput(c)
	if !ok {
		return
	}

	tasks, total, err := h.taskService.ListTasks(actor, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.Map(tasks, dto.ToTaskDTO), params.Page, params.Limit, total))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(actor, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a single task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req struct {
		ProjectID  uint64          `json:"project_id" binding:"required"`
		Metadata   json.RawMessage `json:"metadata"`
		AssignedTo *uint64         `json:"assigned_to"`
	}
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.CreateTask(actor, services.CreateTaskInput{
		ProjectID:  req.ProjectID,
		Metadata:   req.Metadata,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UploadTasks bulk-creates news tasks from a multipart CSV upload. Form
// fields: project_id, file, and assignee_ids as repeated values or one
// comma-separated list.
func (h *TaskHandler) UploadTasks(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxUploadBytes)
	if err := c.Request.ParseMultipartForm(constants.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.RespondWithError(c, http.StatusRequestEntityTooLarge, apierrors.Validation("Upload is too large"))
			return
		}
		apierrors.Respond(c, apierrors.Validation("Invalid multipart form"))
		return
	}

	projectID, err := strconv.ParseUint(c.PostForm("project_id"), 10, 64)
	if err != nil || projectID == 0 {
		apierrors.Respond(c, apierrors.Validation("Invalid project_id"))
		return
	}

	assignees, err := parseIDList(c.PostFormArray("assignee_ids"))
	if err != nil {
		apierrors.Respond(c, apierrors.Validation("Invalid assignee_ids"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apierrors.Respond(c, apierrors.Validation("A CSV file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	defer file.Close()

	result, err := h.taskService.BulkCreateFromCSV(actor, projectID, file, assignees)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func parseIDList(values []string) ([]uint64, error) {
	var ids []uint64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type taskAction func(actor services.Actor, id uint64) (*models.AnnotationTask, error)

func (h *TaskHandler) runAction(c *gin.Context, action taskAction) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := action(actor, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// metadataBody reads an optional {"metadata": {...}} body.
func metadataBody(c *gin.Context) (json.RawMessage, bool) {
	var req struct {
		Metadata json.RawMessage `json:"metadata"`
	}
	if c.Request.ContentLength == 0 {
		return nil, true
	}
	if !bindJSON(c, &req) {
		return nil, false
	}
	return req.Metadata, true
}

// ClaimTask claims an unassigned pending task for the caller
func (h *TaskHandler) ClaimTask(c *gin.Context) {
	h.runAction(c, h.taskService.Claim)
}

// StartTask starts a task assigned to the caller
func (h *TaskHandler) StartTask(c *gin.Context) {
	h.runAction(c, h.taskService.Start)
}

// SaveTask stores in-progress metadata
func (h *TaskHandler) SaveTask(c *gin.Context) {
	update, ok := metadataBody(c)
	if !ok {
		return
	}
	h.runAction(c, func(actor services.Actor, id uint64) (*models.AnnotationTask, error) {
		return h.taskService.SaveProgress(actor, id, update)
	})
}

// SubmitTask sends a task to review
func (h *TaskHandler) SubmitTask(c *gin.Context) {
	update, ok := metadataBody(c)
	if !ok {
		return
	}
	h.runAction(c, func(actor services.Actor, id uint64) (*models.AnnotationTask, error) {
		return h.taskService.Submit(actor, id, update)
	})
}

// ApproveTask completes a task under review
func (h *TaskHandler) ApproveTask(c *gin.Context) {
	h.runAction(c, h.taskService.Approve)
}

// RejectTask returns a task under review to its assignee
func (h *TaskHandler) RejectTask(c *gin.Context) {
	var req struct {
		Note string `json:"note"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	h.runAction(c, func(actor services.Actor, id uint64) (*models.AnnotationTask, error) {
		return h.taskService.Reject(actor, id, req.Note)
	})
}

// AssignTask sets or clears the assignee; {"user_id": null} unassigns.
func (h *TaskHandler) AssignTask(c *gin.Context) {
	var req struct {
		UserID *uint64 `json:"user_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	h.runAction(c, func(actor services.Actor, id uint64) (*models.AnnotationTask, error) {
		return h.taskService.Assign(actor, id, req.UserID)
	})
}

// SuggestTags asks the AI service for action_type tags on a news task
func (h *TaskHandler) SuggestTags(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tags, err := h.taskService.SuggestTags(c.Request.Context(), actor, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"action_types": tags})
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yukikurage/annonest-api/internal/constants"
	"github.com/yukikurage/annonest-api/internal/csvimport"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/metadata"
	"github.com/yukikurage/annonest-api/internal/models"
	"github.com/yukikurage/annonest-api/internal/repository"
	"github.com/yukikurage/annonest-api/internal/workflow"
)

var (
	ErrTaskNotFound           = apierrors.NotFound("task not found")
	ErrInvalidStatus          = apierrors.Validation("unknown status")
	ErrInvalidAssignee        = apierrors.Validation("one or more users are not approved members of the organization")
	ErrTooManyAssignees       = apierrors.Validation(fmt.Sprintf("at most %d assignees per upload", constants.MaxBulkAssignees))
	ErrUploadNotNewsProject   = apierrors.Validation("article uploads require a news_intelligence project")
	ErrUnknownTaggedEntity    = apierrors.Validation("entity tags reference entities that do not exist")
	ErrAIServiceNotConfigured = apierrors.Unavailable("AI tag suggestions are not configured")
	ErrAINoSuggestions        = apierrors.Unavailable("AI did not suggest any tags")
)

// TagSuggester proposes action_type tags for a news article.
type TagSuggester interface {
	SuggestActionTypes(ctx context.Context, headline, text string) ([]string, error)
}

// TaskService handles the annotation task lifecycle
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	entityRepo  repository.EntityRepository
	suggester   TagSuggester
}

// NewTaskService creates a new TaskService. suggester may be nil.
func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	entityRepo repository.EntityRepository,
	suggester TagSuggester,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		entityRepo:  entityRepo,
		suggester:   suggester,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID  *uint64
	Status     *workflow.Status
	AssignedTo *uint64
	Mine       bool
	Unassigned bool
	Page       int
	PageSize   int
}

// ListTasks returns tasks of the actor's organization
func (s *TaskService) ListTasks(actor Actor, input ListTasksInput) ([]models.AnnotationTask, int64, error) {
	if input.Status != nil && !workflow.ValidStatus(workflow.KindAnnotation, *input.Status) {
		return nil, 0, invalidStatus(workflow.KindAnnotation)
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

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a task of the actor's organization
func (s *TaskService) GetTask(actor Actor, id uint64) (*models.AnnotationTask, error) {
	task, err := s.taskRepo.FindByID(actor.OrganizationID, id, "Project", "Assignee")
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound, "find task")
	}
	return task, nil
}

// CreateTaskInput represents input for creating a single task
type CreateTaskInput struct {
	ProjectID  uint64
	Metadata   []byte
	AssignedTo *uint64
}

// CreateTask creates one task by hand. Manager tier only.
func (s *TaskService) CreateTask(actor Actor, input CreateTaskInput) (*models.AnnotationTask, error) {
	if !actor.ManagerTier() {
		return nil, ErrManagerRequired
	}

	project, err := s.projectRepo.FindAnnotationProject(actor.OrganizationID, input.ProjectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}

	payload, err := metadata.Decode(project.Category, input.Metadata)
	if err != nil {
		return nil, metadataError(err)
	}
	raw, err := metadata.Encode(payload)
	if err != nil {
		return nil, err
	}

	if input.AssignedTo != nil {
		if err := s.ensureAssignable(actor.OrganizationID, []uint64{*input.AssignedTo}); err != nil {
			return nil, err
		}
	}

	task := &models.AnnotationTask{
		OrganizationID: actor.OrganizationID,
		ProjectID:      project.ID,
		AssignedTo:     input.AssignedTo,
		Status:         workflow.StatusPending,
		Metadata:       raw,
		CreatedBy:      actor.UserID,
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.GetTask(actor, task.ID)
}

// Claim assigns an unassigned pending task to the actor and starts it. The
// precondition lives in the UPDATE itself; when it affects no row the task is
// re-read only to pick the error.
func (s *TaskService) Claim(actor Actor, id uint64) (*models.AnnotationTask, error) {
	rule, err := workflow.Lookup(workflow.KindAnnotation, workflow.ActionClaim)
	if err != nil {
		return nil, transitionError(err)
	}

	rows, err := s.taskRepo.ApplyTransition(repository.Transition{
		OrganizationID:    actor.OrganizationID,
		ID:                id,
		From:              rule.From,
		To:                rule.To,
		RequireUnassigned: true,
		Set:               map[string]interface{}{"assigned_to": actor.UserID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	task, err := s.GetTask(actor, id)
	if err != nil {
		return nil, err
	}
	if rows == 1 {
		return task, nil
	}

	// Re-claiming a task the actor already holds is a no-op success.
	if task.Status == workflow.StatusInProgress && task.AssignedTo != nil && *task.AssignedTo == actor.UserID {
		return task, nil
	}
	if task.AssignedTo != nil && *task.AssignedTo != actor.UserID {
		return nil, ErrAlreadyClaimed
	}
	if err := rule.Check(actor.caller(), task.Status, task.AssignedTo); err != nil {
		return nil, transitionError(err)
	}
	return nil, ErrAlreadyClaimed
}

// Start moves a task assigned to the actor from pending to in_progress.
func (s *TaskService) Start(actor Actor, id uint64) (*models.AnnotationTask, error) {
	return s.advance(actor, id, workflow.ActionStart, nil)
}

// SaveProgress merges a partial metadata update into a task the actor holds.
func (s *TaskService) SaveProgress(actor Actor, id uint64, update []byte) (*models.AnnotationTask, error) {
	task, err := s.GetTask(actor, id)
	if err != nil {
		return nil, err
	}
	if task.AssignedTo == nil || *task.AssignedTo != actor.UserID {
		return nil, ErrNotAssignee
	}
	if task.Status != workflow.StatusInProgress {
		return nil, ErrInvalidTransition
	}

	raw, err := s.mergeMetadata(task, update)
	if err != nil {
		return nil, err
	}

	rows, err := s.taskRepo.UpdateMetadata(actor.OrganizationID, id, actor.UserID, workflow.StatusInProgress, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	if rows == 0 {
		return nil, ErrConcurrentUpdate
	}
	return s.GetTask(actor, id)
}

// Submit saves the final metadata and sends the task to review in one write.
func (s *TaskService) Submit(actor Actor, id uint64, update []byte) (*models.AnnotationTask, error) {
	return s.advance(actor, id, workflow.ActionSubmit, func(task *models.AnnotationTask, set map[string]interface{}) error {
		raw, err := s.mergeMetadata(task, update)
		if err != nil {
			return err
		}
		set["metadata"] = raw
		set["review_note"] = ""
		return nil
	})
}

// Approve completes a task under review. The metadata must satisfy the
// category's completion rule.
func (s *TaskService) Approve(actor Actor, id uint64) (*models.AnnotationTask, error) {
	return s.advance(actor, id, workflow.ActionApprove, func(task *models.AnnotationTask, _ map[string]interface{}) error {
		payload, err := metadata.Decode(task.Project.Category, task.Metadata)
		if err != nil {
			return metadataError(err)
		}
		if err := payload.ValidateForCompletion(); err != nil {
			return metadataError(err)
		}
		if news, ok := payload.(*metadata.News); ok {
			return s.ensureTaggedEntitiesExist(actor.OrganizationID, news.EntityTags)
		}
		return nil
	})
}

// Reject sends a task under review back to its assignee with a note.
func (s *TaskService) Reject(actor Actor, id uint64, note string) (*models.AnnotationTask, error) {
	return s.advance(actor, id, workflow.ActionReject, func(_ *models.AnnotationTask, set map[string]interface{}) error {
		set["review_note"] = strings.TrimSpace(note)
		return nil
	})
}

// Assign sets or clears a task's assignee without touching its status.
func (s *TaskService) Assign(actor Actor, id uint64, assignee *uint64) (*models.AnnotationTask, error) {
	if !actor.ManagerTier() {
		return nil, ErrManagerRequired
	}
	if _, err := s.GetTask(actor, id); err != nil {
		return nil, err
	}
	if assignee != nil {
		if err := s.ensureAssignable(actor.OrganizationID, []uint64{*assignee}); err != nil {
			return nil, err
		}
	}

	if _, err := s.taskRepo.Assign(actor.OrganizationID, id, assignee); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}
	return s.GetTask(actor, id)
}

// BulkCreateResult reports the outcome of an article upload.
type BulkCreateResult struct {
	Created      int   `json:"created"`
	Articles     int   `json:"articles"`
	Skipped      int   `json:"skipped"`
	SkippedLines []int `json:"skipped_lines"`
}

// BulkCreateFromCSV creates one task per (article, assignee) pair, or one
// unassigned task per article when no assignee is given. Header and assignee
// problems fail the whole upload before anything is written.
func (s *TaskService) BulkCreateFromCSV(actor Actor, projectID uint64, upload io.Reader, assigneeIDs []uint64) (*BulkCreateResult, error) {
	if !actor.ManagerTier() {
		return nil, ErrManagerRequired
	}

	project, err := s.projectRepo.FindAnnotationProject(actor.OrganizationID, projectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}
	if project.Category != metadata.CategoryNewsIntelligence {
		return nil, ErrUploadNotNewsProject
	}

	assignees := uniqueUint64(assigneeIDs)
	if len(assignees) > constants.MaxBulkAssignees {
		return nil, ErrTooManyAssignees
	}
	if len(assignees) > 0 {
		if err := s.ensureAssignable(actor.OrganizationID, assignees); err != nil {
			return nil, err
		}
	}

	parsed, err := csvimport.ParseArticles(upload)
	if err != nil {
		if errors.Is(err, csvimport.ErrEmptyUpload) || errors.Is(err, csvimport.ErrMissingColumns) || errors.Is(err, csvimport.ErrNoValidRows) {
			verr := apierrors.Validation(err.Error())
			if parsed != nil {
				return nil, verr.WithDetails(uploadDetails(parsed))
			}
			return nil, verr
		}
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}

	slots := []*uint64{nil}
	if len(assignees) > 0 {
		slots = make([]*uint64, len(assignees))
		for i := range assignees {
			slots[i] = &assignees[i]
		}
	}

	tasks := make([]models.AnnotationTask, 0, len(parsed.Articles)*len(slots))
	for _, article := range parsed.Articles {
		raw, err := metadata.Encode(article.Metadata())
		if err != nil {
			return nil, err
		}
		for _, assignee := range slots {
			tasks = append(tasks, models.AnnotationTask{
				OrganizationID: actor.OrganizationID,
				ProjectID:      project.ID,
				AssignedTo:     assignee,
				Status:         workflow.StatusPending,
				Metadata:       raw,
				CreatedBy:      actor.UserID,
			})
		}
	}

	if err := s.taskRepo.CreateBatch(tasks); err != nil {
		return nil, fmt.Errorf("failed to create tasks: %w", err)
	}

	return &BulkCreateResult{
		Created:      len(tasks),
		Articles:     len(parsed.Articles),
		Skipped:      parsed.Skipped(),
		SkippedLines: parsed.SkippedLines,
	}, nil
}

func uploadDetails(parsed *csvimport.Result) map[string]interface{} {
	return map[string]interface{}{
		"skipped":       parsed.Skipped(),
		"skipped_lines": parsed.SkippedLines,
	}
}

// SuggestTags asks the configured suggester for action_type tags on a news
// task. Nothing is persisted.
func (s *TaskService) SuggestTags(ctx context.Context, actor Actor, id uint64) ([]string, error) {
	if s.suggester == nil {
		return nil, ErrAIServiceNotConfigured
	}

	task, err := s.GetTask(actor, id)
	if err != nil {
		return nil, err
	}
	payload, err := metadata.Decode(task.Project.Category, task.Metadata)
	if err != nil {
		return nil, metadataError(err)
	}
	news, ok := payload.(*metadata.News)
	if !ok {
		return nil, apierrors.Validation("tag suggestions are only available for news tasks")
	}

	text := news.CleanedText
	if strings.TrimSpace(text) == "" {
		text = news.RawText
	}
	if len(text) > constants.MaxAIArticleTextSize {
		text = text[:constants.MaxAIArticleTextSize]
	}

	suggested, err := s.suggester.SuggestActionTypes(ctx, news.Headline, text)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest tags: %w", err)
	}

	seen := make(map[string]struct{}, len(suggested))
	tags := make([]string, 0, len(suggested))
	for _, tag := range suggested {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == constants.MaxAISuggestedTags {
			break
		}
	}
	if len(tags) == 0 {
		return nil, ErrAINoSuggestions
	}
	return tags, nil
}

// advance applies a non-claim transition. The task is read to authorize the
// caller, then written with a conditional UPDATE pinned to the observed
// status and assignee, so a concurrent change turns into a conflict.
func (s *TaskService) advance(actor Actor, id uint64, action workflow.Action, prepare func(*models.AnnotationTask, map[string]interface{}) error) (*models.AnnotationTask, error) {
	rule, err := workflow.Lookup(workflow.KindAnnotation, action)
	if err != nil {
		return nil, transitionError(err)
	}

	task, err := s.GetTask(actor, id)
	if err != nil {
		return nil, err
	}
	if err := rule.Check(actor.caller(), task.Status, task.AssignedTo); err != nil {
		return nil, transitionError(err)
	}

	set := map[string]interface{}{}
	if prepare != nil {
		if err := prepare(task, set); err != nil {
			return nil, err
		}
	}

	rows, err := s.taskRepo.ApplyTransition(repository.Transition{
		OrganizationID:   actor.OrganizationID,
		ID:               id,
		From:             []workflow.Status{task.Status},
		To:               rule.To,
		ExpectedAssignee: task.AssignedTo,
		Set:              set,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to %s task: %w", action, err)
	}
	if rows == 0 {
		return nil, ErrConcurrentUpdate
	}

	return s.GetTask(actor, id)
}

func (s *TaskService) mergeMetadata(task *models.AnnotationTask, update []byte) ([]byte, error) {
	current, err := metadata.Decode(task.Project.Category, task.Metadata)
	if err != nil {
		return nil, metadataError(err)
	}
	merged, err := metadata.Merge(current, update)
	if err != nil {
		return nil, metadataError(err)
	}
	return metadata.Encode(merged)
}

func (s *TaskService) ensureAssignable(orgID uint64, userIDs []uint64) error {
	count, err := s.userRepo.CountApproved(orgID, userIDs)
	if err != nil {
		return fmt.Errorf("failed to verify assignees: %w", err)
	}
	if int(count) != len(userIDs) {
		return ErrInvalidAssignee
	}
	return nil
}

func (s *TaskService) ensureTaggedEntitiesExist(orgID uint64, tags []metadata.EntityTag) error {
	byType := make(map[string][]uint64)
	for _, tag := range tags {
		if !models.ValidEntityType(tag.EntityType) {
			return ErrUnknownTaggedEntity
		}
		byType[tag.EntityType] = append(byType[tag.EntityType], tag.EntityID)
	}

	for entityType, ids := range byType {
		ids = uniqueUint64(ids)
		count, err := s.entityRepo.CountExisting(orgID, entityType, ids)
		if err != nil {
			return fmt.Errorf("failed to verify entity tags: %w", err)
		}
		if int(count) != len(ids) {
			return ErrUnknownTaggedEntity
		}
	}
	return nil
}

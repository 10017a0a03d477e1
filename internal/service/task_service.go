package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/task-api/internal/domain"
	"github.com/phrazzld/task-api/internal/events"
	"github.com/phrazzld/task-api/internal/platform/logger"
	"github.com/phrazzld/task-api/internal/query"
	"github.com/phrazzld/task-api/internal/store"
)

// TaskService provides task-related operations.
type TaskService interface {
	// CreateTask validates and stores a new task.
	CreateTask(ctx context.Context, title, description string, dueDate time.Time) (*domain.Task, error)

	// GetTask retrieves a task by its ID.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)

	// ListTasks returns one page of tasks matching the query.
	ListTasks(ctx context.Context, q query.Query) ([]*domain.Task, error)

	// UpdateTask applies a partial update and returns the updated task.
	UpdateTask(ctx context.Context, id int64, update domain.TaskUpdate) (*domain.Task, error)

	// ExecuteTask marks a task as executed now.
	ExecuteTask(ctx context.Context, id int64) (*domain.Task, error)

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id int64) error
}

// Option configures the task service.
type Option func(*taskServiceImpl)

// WithClock overrides the time source used to stamp executions.
func WithClock(now func() time.Time) Option {
	return func(s *taskServiceImpl) {
		s.now = now
	}
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	taskStore    store.TaskStore
	eventEmitter events.EventEmitter
	logger       *slog.Logger
	now          func() time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
	opts ...Option,
) (TaskService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "taskStore cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		taskStore:    taskStore,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "task_service"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateTask validates the payload, stores it and emits task.created.
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	title, description string,
	dueDate time.Time,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(title, description, dueDate)
	if err != nil {
		log.Debug("task validation failed", "error", err)
		return nil, err
	}

	created, err := s.taskStore.CreateTask(ctx, task)
	if err != nil {
		log.Error("failed to create task", "error", err)
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	log.Info("task created", "task_id", created.ID)
	s.emit(ctx, events.TypeTaskCreated, created.ID, created)
	return created, nil
}

// GetTask retrieves a task by its ID.
func (s *taskServiceImpl) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.taskStore.GetTask(ctx, id)
	if err != nil {
		s.logFailure(ctx, "get_task", id, err)
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// ListTasks returns one page of matching tasks; an empty page is not an error.
func (s *taskServiceImpl) ListTasks(ctx context.Context, q query.Query) ([]*domain.Task, error) {
	tasks, err := s.taskStore.GetTasks(ctx, q)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			"error", err,
			"page", q.Page,
			"item_count", q.ItemCount)
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// UpdateTask validates the present fields, applies them and emits task.updated.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	id int64,
	update domain.TaskUpdate,
) (*domain.Task, error) {
	if err := update.Validate(); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Debug("task update validation failed",
			"error", err,
			"task_id", id)
		return nil, err
	}

	// Nothing to write: report the current state without emitting an event.
	if update.IsEmpty() {
		return s.GetTask(ctx, id)
	}

	updated, err := s.taskStore.UpdateTask(ctx, id, update)
	if err != nil {
		s.logFailure(ctx, "update_task", id, err)
		return nil, NewTaskServiceError("update_task", "failed to update task", err)
	}

	s.emit(ctx, events.TypeTaskUpdated, updated.ID, updated)
	return updated, nil
}

// ExecuteTask sets ExecutedOn to the current time and emits task.executed.
// Executing an already executed task refreshes the timestamp.
func (s *taskServiceImpl) ExecuteTask(ctx context.Context, id int64) (*domain.Task, error) {
	now := s.now().UTC()

	executed, err := s.taskStore.UpdateTask(ctx, id, domain.TaskUpdate{ExecutedOn: &now})
	if err != nil {
		s.logFailure(ctx, "execute_task", id, err)
		return nil, NewTaskServiceError("execute_task", "failed to execute task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task executed", "task_id", id)
	s.emit(ctx, events.TypeTaskExecuted, executed.ID, executed)
	return executed, nil
}

// DeleteTask removes the task and emits task.deleted.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id int64) error {
	if err := s.taskStore.DeleteTask(ctx, id); err != nil {
		s.logFailure(ctx, "delete_task", id, err)
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task deleted", "task_id", id)
	s.emit(ctx, events.TypeTaskDeleted, id, nil)
	return nil
}

// emit publishes a lifecycle event. Failures are logged and never returned:
// the write has already succeeded.
func (s *taskServiceImpl) emit(ctx context.Context, eventType string, taskID int64, payload interface{}) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewTaskEvent(eventType, taskID, payload)
	if err != nil {
		log.Error("failed to create task event",
			"error", err,
			"event_type", eventType,
			"task_id", taskID)
		return
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		log.Warn("failed to emit task event",
			"error", err,
			"event_id", event.ID,
			"event_type", eventType,
			"task_id", taskID)
	}
}

// logFailure logs not-found at DEBUG and everything else at ERROR.
func (s *taskServiceImpl) logFailure(ctx context.Context, operation string, id int64, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if store.IsNotFoundError(err) {
		log.Debug("task not found", "operation", operation, "task_id", id)
		return
	}
	log.Error("task operation failed", "operation", operation, "task_id", id, "error", err)
}

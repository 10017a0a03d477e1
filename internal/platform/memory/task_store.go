// Package memory provides an in-process implementation of store.TaskStore.
// It keeps tasks in insertion order and scans them linearly, which suits
// development and tests rather than production volumes.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/task-api/internal/domain"
	"github.com/phrazzld/task-api/internal/platform/logger"
	"github.com/phrazzld/task-api/internal/query"
	"github.com/phrazzld/task-api/internal/store"
)

// TaskStore is a mutex-guarded, ordered collection of tasks.
// The slice and the ID counter are only touched while holding mu.
type TaskStore struct {
	mu     sync.RWMutex
	tasks  []*domain.Task
	lastID int64
	now    func() time.Time
	logger *slog.Logger
}

// Ensure TaskStore implements store.TaskStore interface
var _ store.TaskStore = (*TaskStore)(nil)

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithClock overrides the time source used for creation dates and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *TaskStore) {
		s.now = now
	}
}

// NewTaskStore creates an empty store. If logger is nil, a default logger will be used.
func NewTaskStore(logger *slog.Logger, opts ...Option) *TaskStore {
	if logger == nil {
		logger = slog.Default()
	}

	s := &TaskStore{
		tasks:  make([]*domain.Task, 0),
		now:    time.Now,
		logger: logger.With(slog.String("component", "memory_task_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTask implements store.TaskStore.CreateTask.
func (s *TaskStore) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	stored := &domain.Task{
		ID:           s.lastID,
		Title:        task.Title,
		Description:  task.Description,
		DueDate:      task.DueDate,
		CreationDate: s.now().UTC(),
	}
	s.tasks = append(s.tasks, stored)

	log.Debug("task created", slog.Int64("task_id", stored.ID))
	return stored.Clone(), nil
}

// GetTask implements store.TaskStore.GetTask.
func (s *TaskStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, store.ErrTaskNotFound
	}
	return s.tasks[i].Clone(), nil
}

// GetTasks implements store.TaskStore.GetTasks.
func (s *TaskStore) GetTasks(ctx context.Context, q query.Query) ([]*domain.Task, error) {
	criteria := q.Criteria(s.now())

	s.mu.RLock()
	page := query.Apply(s.tasks, criteria)
	result := make([]*domain.Task, 0, len(page))
	for _, t := range page {
		result = append(result, t.Clone())
	}
	s.mu.RUnlock()

	logger.FromContextOrDefault(ctx, s.logger).Debug("tasks listed",
		slog.Int("offset", criteria.Offset),
		slog.Int("limit", criteria.Limit),
		slog.Int("count", len(result)))
	return result, nil
}

// UpdateTask implements store.TaskStore.UpdateTask.
func (s *TaskStore) UpdateTask(ctx context.Context, id int64, update domain.TaskUpdate) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, store.ErrTaskNotFound
	}

	update.Apply(s.tasks[i])

	logger.FromContextOrDefault(ctx, s.logger).Debug("task updated", slog.Int64("task_id", id))
	return s.tasks[i].Clone(), nil
}

// DeleteTask implements store.TaskStore.DeleteTask.
// Only the task with the matching ID is removed.
func (s *TaskStore) DeleteTask(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return store.ErrTaskNotFound
	}

	copy(s.tasks[i:], s.tasks[i+1:])
	s.tasks[len(s.tasks)-1] = nil
	s.tasks = s.tasks[:len(s.tasks)-1]

	logger.FromContextOrDefault(ctx, s.logger).Debug("task deleted", slog.Int64("task_id", id))
	return nil
}

// Ping always succeeds.
func (s *TaskStore) Ping(ctx context.Context) error {
	return nil
}

// indexOf returns the position of the task with the given ID, or -1.
// Callers must hold mu.
func (s *TaskStore) indexOf(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

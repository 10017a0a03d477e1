package store

import (
	"context"

	"github.com/phrazzld/task-api/internal/domain"
	"github.com/phrazzld/task-api/internal/query"
)

// TaskStore is the repository contract shared by every storage backend.
type TaskStore interface {
	// CreateTask stores a new task. The store assigns the ID and the
	// creation date; any values set on the input for those fields are ignored.
	CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// GetTask retrieves a task by ID.
	// Returns ErrTaskNotFound if no live task has that ID.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)

	// GetTasks returns the page of tasks selected by q, in the backend's
	// natural order. An empty result is an empty slice, not an error.
	GetTasks(ctx context.Context, q query.Query) ([]*domain.Task, error)

	// UpdateTask merges the present fields of update into the stored task
	// and returns the result.
	// Returns ErrTaskNotFound if no live task has that ID.
	UpdateTask(ctx context.Context, id int64, update domain.TaskUpdate) (*domain.Task, error)

	// DeleteTask removes the task with the given ID so that no later read
	// returns it.
	// Returns ErrTaskNotFound if no live task has that ID.
	DeleteTask(ctx context.Context, id int64) error
}

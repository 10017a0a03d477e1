package domain

import (
	"fmt"
	"time"
)

// Validation errors for Task
var (
	ErrEmptyTaskTitle       = fmt.Errorf("%w: task title cannot be empty", ErrValidation)
	ErrEmptyTaskDescription = fmt.Errorf("%w: task description cannot be empty", ErrValidation)
	ErrEmptyTaskDueDate     = fmt.Errorf("%w: task due date cannot be empty", ErrValidation)
)

// Task is the single managed entity: a titled, described item with a due date
// and an optional execution timestamp.
//
// ID and CreationDate are owned by the repository. A nil ExecutedOn means the
// task is pending.
type Task struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueDate      time.Time  `json:"due_date"`
	ExecutedOn   *time.Time `json:"executed_on,omitempty"`
	CreationDate time.Time  `json:"creation_date"`
}

// NewTask creates the payload for a task that has not been stored yet.
// The repository assigns the ID and the creation date.
func NewTask(title, description string, dueDate time.Time) (*Task, error) {
	task := &Task{
		Title:       title,
		Description: description,
		DueDate:     dueDate,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the fields required at creation time.
func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrEmptyTaskTitle
	}

	if t.Description == "" {
		return ErrEmptyTaskDescription
	}

	if t.DueDate.IsZero() {
		return ErrEmptyTaskDueDate
	}

	return nil
}

// IsExecuted reports whether the task carries an execution timestamp.
func (t *Task) IsExecuted() bool {
	return t.ExecutedOn != nil
}

// IsExpired reports whether the due date lies strictly before now.
// Expiry is independent of execution.
func (t *Task) IsExpired(now time.Time) bool {
	return t.DueDate.Before(now)
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.ExecutedOn != nil {
		executedOn := *t.ExecutedOn
		c.ExecutedOn = &executedOn
	}
	return &c
}

// TaskUpdate is a partial update. Every non-nil field overwrites the
// corresponding field of the stored task; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	ExecutedOn  *time.Time
}

// IsEmpty reports whether the update carries no fields.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.DueDate == nil && u.ExecutedOn == nil
}

// Apply merges the present fields into t.
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.DueDate != nil {
		t.DueDate = *u.DueDate
	}
	if u.ExecutedOn != nil {
		executedOn := *u.ExecutedOn
		t.ExecutedOn = &executedOn
	}
}

// Validate rejects present fields that would leave the task without a
// title, description or due date.
func (u TaskUpdate) Validate() error {
	if u.Title != nil && *u.Title == "" {
		return ErrEmptyTaskTitle
	}
	if u.Description != nil && *u.Description == "" {
		return ErrEmptyTaskDescription
	}
	if u.DueDate != nil && u.DueDate.IsZero() {
		return ErrEmptyTaskDueDate
	}
	return nil
}

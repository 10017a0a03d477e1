package sqlite

import (
	"time"

	"github.com/phrazzld/task-api/internal/domain"
	"gorm.io/gorm"
)

// taskRecord is the persisted form of a domain.Task.
type taskRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"not null"`
	Description string    `gorm:"not null"`
	DueDate     time.Time `gorm:"not null"`
	ExecutedOn  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for taskRecord.
func (taskRecord) TableName() string {
	return "tasks"
}

func (r *taskRecord) toDomain() *domain.Task {
	task := &domain.Task{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		DueDate:      r.DueDate.UTC(),
		CreationDate: r.CreatedAt.UTC(),
	}
	if r.ExecutedOn != nil {
		executedOn := r.ExecutedOn.UTC()
		task.ExecutedOn = &executedOn
	}
	return task
}

// timestamp normalizes times so that text comparisons in SQLite follow
// chronological order.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

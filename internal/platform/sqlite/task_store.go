package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/task-api/internal/domain"
	"github.com/phrazzld/task-api/internal/platform/logger"
	"github.com/phrazzld/task-api/internal/query"
	"github.com/phrazzld/task-api/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

// columns maps automatic filter fields to table columns.
var columns = map[query.Field]string{
	query.FieldTitle:       "title",
	query.FieldDescription: "description",
}

// TaskStore implements the store.TaskStore interface on GORM.
type TaskStore struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// Ensure TaskStore implements store.TaskStore interface
var _ store.TaskStore = (*TaskStore)(nil)

// slogWriter routes GORM's logger output through slog.
type slogWriter struct {
	logger *slog.Logger
}

// Printf implements gormlogger.Writer.
func (w slogWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn(fmt.Sprintf(format, args...))
}

// Open opens (or creates) the SQLite database at path and prepares the
// tasks table. An empty path or MemoryPath opens an in-memory database.
// If logger is nil, a default logger will be used.
func Open(path string, logger *slog.Logger) (*TaskStore, error) {
	if path == "" {
		path = MemoryPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.New(slogWriter{logger: logger}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return timestamp(time.Now()) },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite connection pool: %w", err)
	}
	// Every connection to ":memory:" is a separate database, and SQLite
	// serializes writers anyway.
	sqlDB.SetMaxOpenConns(1)

	return New(db, logger)
}

// New wraps an open GORM handle and migrates the tasks table.
func New(db *gorm.DB, logger *slog.Logger) (*TaskStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}

	return &TaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlite_task_store")),
		now:    time.Now,
	}, nil
}

// Ping checks that the database is reachable.
func (s *TaskStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *TaskStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateTask implements store.TaskStore.CreateTask.
func (s *TaskStore) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := timestamp(s.now())
	rec := taskRecord{
		Title:       task.Title,
		Description: task.Description,
		DueDate:     timestamp(task.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "create", "failed to insert task", err)
	}

	log.Debug("task created", slog.Int64("task_id", rec.ID))
	return rec.toDomain(), nil
}

// GetTask implements store.TaskStore.GetTask.
func (s *TaskStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	rec, err := s.find(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, s.failure(ctx, "get", id, err)
	}
	return rec.toDomain(), nil
}

// GetTasks implements store.TaskStore.GetTasks.
func (s *TaskStore) GetTasks(ctx context.Context, q query.Query) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var records []taskRecord
	if err := applyCriteria(s.db.WithContext(ctx), q.Criteria(s.now())).Find(&records).Error; err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "failed to query tasks", err)
	}

	tasks := make([]*domain.Task, 0, len(records))
	for i := range records {
		tasks = append(tasks, records[i].toDomain())
	}
	return tasks, nil
}

// UpdateTask implements store.TaskStore.UpdateTask.
// The read, write and re-read run in one transaction.
func (s *TaskStore) UpdateTask(
	ctx context.Context,
	id int64,
	update domain.TaskUpdate,
) (*domain.Task, error) {
	var updated *taskRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.find(tx, id)
		if err != nil {
			return err
		}

		changes := updateColumns(update)
		if len(changes) == 0 {
			updated = rec
			return nil
		}
		changes["updated_at"] = timestamp(s.now())

		if err := tx.Model(&taskRecord{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}

		updated, err = s.find(tx, id)
		return err
	})
	if err != nil {
		return nil, s.failure(ctx, "update", id, err)
	}

	return updated.toDomain(), nil
}

// DeleteTask implements store.TaskStore.DeleteTask.
func (s *TaskStore) DeleteTask(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&taskRecord{}, id)
	if result.Error != nil {
		return s.failure(ctx, "delete", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return s.failure(ctx, "delete", id, gorm.ErrRecordNotFound)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task deleted", slog.Int64("task_id", id))
	return nil
}

func (s *TaskStore) find(db *gorm.DB, id int64) (*taskRecord, error) {
	var rec taskRecord
	if err := db.First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// failure converts a GORM error into store.ErrTaskNotFound or a StoreError.
func (s *TaskStore) failure(ctx context.Context, operation string, id int64, err error) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Debug("task not found", slog.String("operation", operation), slog.Int64("task_id", id))
		return store.ErrTaskNotFound
	}

	log.Error("task operation failed",
		slog.String("operation", operation),
		slog.Int64("task_id", id),
		slog.String("error", err.Error()))
	return store.NewStoreError("task", operation, "database operation failed", err)
}

// applyCriteria adds the criteria's predicates, ordering and paging to db.
func applyCriteria(db *gorm.DB, c query.Criteria) *gorm.DB {
	db = db.Model(&taskRecord{})

	for _, eq := range c.Equalities {
		col, ok := columns[eq.Field]
		if !ok {
			continue
		}
		db = db.Where(col+" = ?", eq.Value)
	}

	if c.Expired != nil {
		if *c.Expired {
			db = db.Where("due_date < ?", timestamp(c.Now))
		} else {
			db = db.Where("due_date >= ?", timestamp(c.Now))
		}
	}

	if c.Executed != nil {
		if *c.Executed {
			db = db.Where("executed_on IS NOT NULL")
		} else {
			db = db.Where("executed_on IS NULL")
		}
	}

	return db.Order("id").Offset(c.Offset).Limit(c.Limit)
}

// updateColumns lists the columns written by update.
func updateColumns(update domain.TaskUpdate) map[string]interface{} {
	changes := make(map[string]interface{}, 4)
	if update.Title != nil {
		changes["title"] = *update.Title
	}
	if update.Description != nil {
		changes["description"] = *update.Description
	}
	if update.DueDate != nil {
		changes["due_date"] = timestamp(*update.DueDate)
	}
	if update.ExecutedOn != nil {
		changes["executed_on"] = timestamp(*update.ExecutedOn)
	}
	return changes
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/task-api/internal/domain"
	"github.com/phrazzld/task-api/internal/platform/logger"
	"github.com/phrazzld/task-api/internal/query"
	"github.com/phrazzld/task-api/internal/store"
)

const taskColumns = "id, title, description, due_date, executed_on, created_at"

// columns maps automatic filter fields to table columns.
var columns = map[query.Field]string{
	query.FieldTitle:       "title",
	query.FieldDescription: "description",
}

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		// ALLOW-PANIC: constructor precondition
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
		now:    time.Now,
	}
}

// WithTx returns a store that runs its statements inside tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) *PostgresTaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
		now:    s.now,
	}
}

// Ping checks database connectivity when the underlying handle supports it.
func (s *PostgresTaskStore) Ping(ctx context.Context) error {
	if p, ok := s.db.(interface{ PingContext(context.Context) error }); ok {
		return p.PingContext(ctx)
	}
	return nil
}

// timestamp normalizes a time for storage in a TIMESTAMPTZ column.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// CreateTask implements store.TaskStore.CreateTask.
// The database assigns the ID; the creation date is stamped here.
func (s *PostgresTaskStore) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := timestamp(s.now())
	q := `
		INSERT INTO tasks (title, description, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + taskColumns

	created, err := scanTask(s.db.QueryRowContext(ctx, q,
		task.Title,
		task.Description,
		timestamp(task.DueDate),
		now,
	))
	if err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "create", "failed to insert task", MapError(err))
	}

	log.Debug("task created", slog.Int64("task_id", created.ID))
	return created, nil
}

// GetTask implements store.TaskStore.GetTask.
// Returns store.ErrTaskNotFound if no live task has the ID.
func (s *PostgresTaskStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	q := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND deleted_at IS NULL`

	task, err := scanTask(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			log.Debug("task not found", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task", slog.Int64("task_id", id), slog.String("error", err.Error()))
		return nil, wrapFailure("get", err)
	}

	return task, nil
}

// GetTasks implements store.TaskStore.GetTasks.
// Filtering, ordering and paging are all evaluated by the database.
func (s *PostgresTaskStore) GetTasks(ctx context.Context, q query.Query) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sqlQuery, args := buildListQuery(q.Criteria(s.now()))

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, wrapFailure("list", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, wrapFailure("list", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, wrapFailure("list", err)
	}

	return tasks, nil
}

// UpdateTask implements store.TaskStore.UpdateTask.
// Only the fields present in update are written, in a single statement.
func (s *PostgresTaskStore) UpdateTask(
	ctx context.Context,
	id int64,
	update domain.TaskUpdate,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sqlQuery, args := buildUpdateQuery(id, update, timestamp(s.now()))

	task, err := scanTask(s.db.QueryRowContext(ctx, sqlQuery, args...))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			log.Debug("task not found for update", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to update task", slog.Int64("task_id", id), slog.String("error", err.Error()))
		return nil, wrapFailure("update", err)
	}

	log.Debug("task updated", slog.Int64("task_id", id))
	return task, nil
}

// DeleteTask implements store.TaskStore.DeleteTask.
// The row is soft-deleted and excluded from every later read.
func (s *PostgresTaskStore) DeleteTask(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := timestamp(s.now())
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		now, id,
	)
	if err != nil {
		log.Error("failed to delete task", slog.Int64("task_id", id), slog.String("error", err.Error()))
		return wrapFailure("delete", err)
	}

	if err := CheckRowsAffected(result); err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("task not found for delete", slog.Int64("task_id", id))
			return err
		}
		return wrapFailure("delete", err)
	}

	log.Debug("task deleted", slog.Int64("task_id", id))
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task       domain.Task
		executedOn sql.NullTime
	)

	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&executedOn,
		&task.CreationDate,
	); err != nil {
		return nil, err
	}

	task.DueDate = task.DueDate.UTC()
	task.CreationDate = task.CreationDate.UTC()
	if executedOn.Valid {
		t := executedOn.Time.UTC()
		task.ExecutedOn = &t
	}

	return &task, nil
}

// argList accumulates positional parameters.
type argList []any

func (a *argList) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// buildListQuery translates criteria into a SELECT with server-side paging.
func buildListQuery(c query.Criteria) (string, []any) {
	var args argList
	where := []string{"deleted_at IS NULL"}

	for _, eq := range c.Equalities {
		col, ok := columns[eq.Field]
		if !ok {
			continue
		}
		where = append(where, col+" = "+args.add(eq.Value))
	}

	if c.Expired != nil {
		if *c.Expired {
			where = append(where, "due_date < "+args.add(timestamp(c.Now)))
		} else {
			where = append(where, "due_date >= "+args.add(timestamp(c.Now)))
		}
	}

	if c.Executed != nil {
		if *c.Executed {
			where = append(where, "executed_on IS NOT NULL")
		} else {
			where = append(where, "executed_on IS NULL")
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(taskColumns)
	b.WriteString(" FROM tasks WHERE ")
	b.WriteString(strings.Join(where, " AND "))
	b.WriteString(" ORDER BY id")
	b.WriteString(" OFFSET " + args.add(c.Offset))
	b.WriteString(" LIMIT " + args.add(c.Limit))

	return b.String(), args
}

// buildUpdateQuery writes the present fields of update plus updated_at and
// returns the resulting row.
func buildUpdateQuery(id int64, update domain.TaskUpdate, now time.Time) (string, []any) {
	var args argList
	set := make([]string, 0, 5)

	if update.Title != nil {
		set = append(set, "title = "+args.add(*update.Title))
	}
	if update.Description != nil {
		set = append(set, "description = "+args.add(*update.Description))
	}
	if update.DueDate != nil {
		set = append(set, "due_date = "+args.add(timestamp(*update.DueDate)))
	}
	if update.ExecutedOn != nil {
		set = append(set, "executed_on = "+args.add(timestamp(*update.ExecutedOn)))
	}
	set = append(set, "updated_at = "+args.add(now))

	q := "UPDATE tasks SET " + strings.Join(set, ", ") +
		" WHERE id = " + args.add(id) + " AND deleted_at IS NULL" +
		" RETURNING " + taskColumns

	return q, args
}

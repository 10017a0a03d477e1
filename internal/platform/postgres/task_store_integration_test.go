//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/phrazzld/task-api/internal/domain"
	"github.com/phrazzld/task-api/internal/platform/postgres"
	"github.com/phrazzld/task-api/internal/query"
	"github.com/phrazzld/task-api/internal/store"
	"github.com/phrazzld/task-api/internal/store/storetest"
	"github.com/phrazzld/task-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresTaskStoreContract(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	storetest.RunTaskStoreSuite(t, func(t *testing.T) store.TaskStore {
		tx := testdb.BeginTx(t, db)
		testdb.ResetTasks(t, tx)
		return postgres.NewPostgresTaskStore(tx, nil)
	})
}

func TestPostgresTaskStore_SoftDelete(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		testdb.ResetTasks(t, tx)
		s := postgres.NewPostgresTaskStore(tx, nil)
		ctx := context.Background()

		created, err := s.CreateTask(ctx, &domain.Task{
			Title:       "soft",
			Description: "delete",
			DueDate:     time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
		require.NoError(t, s.DeleteTask(ctx, created.ID))

		var deletedAt sql.NullTime
		err = tx.QueryRowContext(ctx, "SELECT deleted_at FROM tasks WHERE id = $1", created.ID).Scan(&deletedAt)
		require.NoError(t, err, "row should still exist")
		assert.True(t, deletedAt.Valid, "deleted_at should be set")

		tasks, err := s.GetTasks(ctx, query.New())
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}

func TestMigrateStatus(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	err := postgres.Migrate(context.Background(), db, postgres.MigrateStatus, nil)
	assert.NoError(t, err)
}

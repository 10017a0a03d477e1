// Package storetest provides the behavioural test suite every store.TaskStore
// implementation must pass. Backend packages call RunTaskStoreSuite from
// their own tests with a constructor that returns an empty store.
package storetest

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/phrazzld/task-api/internal/domain"
	"github.com/phrazzld/task-api/internal/query"
	"github.com/phrazzld/task-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store whose ID sequence starts at 1.
type Factory func(t *testing.T) store.TaskStore

// RunTaskStoreSuite runs the repository contract tests against stores built by newStore.
func RunTaskStoreSuite(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("empty store returns empty collection", func(t *testing.T) {
		s := newStore(t)

		tasks, err := s.GetTasks(ctx(t), query.New())

		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("ids are unique and increasing from one", func(t *testing.T) {
		s := newStore(t)

		var last int64
		for i := 0; i < 5; i++ {
			created := mustCreate(t, s, fmt.Sprintf("task %d", i), "d", tomorrow())
			if i == 0 {
				assert.Equal(t, int64(1), created.ID, "first ID should be 1")
			}
			assert.Greater(t, created.ID, last, "IDs must be strictly increasing")
			last = created.ID
		}
	})

	t.Run("ids are never reused after delete", func(t *testing.T) {
		s := newStore(t)

		first := mustCreate(t, s, "first", "d", tomorrow())
		second := mustCreate(t, s, "second", "d", tomorrow())
		require.NoError(t, s.DeleteTask(ctx(t), second.ID))

		third := mustCreate(t, s, "third", "d", tomorrow())

		assert.Greater(t, third.ID, second.ID)
		assert.NotEqual(t, first.ID, third.ID)
	})

	t.Run("create assigns id and creation date", func(t *testing.T) {
		s := newStore(t)
		before := time.Now().Add(-time.Second)

		input := &domain.Task{
			ID:           999,
			Title:        "title",
			Description:  "description",
			DueDate:      tomorrow(),
			CreationDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		created, err := s.CreateTask(ctx(t), input)

		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID, "caller-supplied ID is ignored")
		assert.True(t, created.CreationDate.After(before), "creation date is stamped by the store")
		assert.Nil(t, created.ExecutedOn)
	})

	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		due := tomorrow()

		created := mustCreate(t, s, "Write report", "Quarterly numbers", due)
		fetched, err := s.GetTask(ctx(t), created.ID)

		require.NoError(t, err)
		AssertSameTask(t, created, fetched)
		assert.True(t, due.Equal(fetched.DueDate))
	})

	t.Run("partial update preserves untouched fields", func(t *testing.T) {
		s := newStore(t)
		created := mustCreate(t, s, "title", "old description", tomorrow())

		newDescription := "new description"
		updated, err := s.UpdateTask(ctx(t), created.ID, domain.TaskUpdate{Description: &newDescription})

		require.NoError(t, err)
		assert.Equal(t, "new description", updated.Description)
		assert.Equal(t, created.Title, updated.Title)
		assert.True(t, created.DueDate.Equal(updated.DueDate))
		assert.Nil(t, updated.ExecutedOn)
		assert.True(t, created.CreationDate.Equal(updated.CreationDate), "creation date never changes")

		fetched, err := s.GetTask(ctx(t), created.ID)
		require.NoError(t, err)
		AssertSameTask(t, updated, fetched)
	})

	t.Run("update sets every present field", func(t *testing.T) {
		s := newStore(t)
		created := mustCreate(t, s, "title", "description", tomorrow())

		title := "new title"
		description := "new description"
		due := yesterday()
		executedOn := time.Now().UTC().Truncate(time.Microsecond)
		updated, err := s.UpdateTask(ctx(t), created.ID, domain.TaskUpdate{
			Title:       &title,
			Description: &description,
			DueDate:     &due,
			ExecutedOn:  &executedOn,
		})

		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
		assert.Equal(t, description, updated.Description)
		assert.True(t, due.Equal(updated.DueDate))
		require.NotNil(t, updated.ExecutedOn)
		assert.True(t, executedOn.Equal(*updated.ExecutedOn))
	})

	t.Run("empty update returns the stored task", func(t *testing.T) {
		s := newStore(t)
		created := mustCreate(t, s, "title", "description", tomorrow())

		updated, err := s.UpdateTask(ctx(t), created.ID, domain.TaskUpdate{})

		require.NoError(t, err)
		AssertSameTask(t, created, updated)
	})

	t.Run("unknown id fails with not found", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s, "title", "description", tomorrow())
		const missing int64 = 424242

		_, err := s.GetTask(ctx(t), missing)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)

		title := "x"
		_, err = s.UpdateTask(ctx(t), missing, domain.TaskUpdate{Title: &title})
		assert.ErrorIs(t, err, store.ErrTaskNotFound)

		err = s.DeleteTask(ctx(t), missing)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.True(t, store.IsNotFoundError(err))
	})

	t.Run("filter composition", func(t *testing.T) {
		s := newStore(t)
		a := mustCreate(t, s, "A", "due yesterday", yesterday())
		b := mustCreate(t, s, "B", "due tomorrow, executed", tomorrow())
		c := mustCreate(t, s, "C", "due tomorrow", tomorrow())

		executedOn := time.Now().UTC().Truncate(time.Microsecond)
		_, err := s.UpdateTask(ctx(t), b.ID, domain.TaskUpdate{ExecutedOn: &executedOn})
		require.NoError(t, err)

		expired := query.New()
		expired.Expired = boolPtr(true)
		assert.Equal(t, []int64{a.ID}, ids(t, s, expired))

		pending := query.New()
		pending.Executed = boolPtr(false)
		assert.Equal(t, []int64{a.ID, c.ID}, ids(t, s, pending))

		executedNotExpired := query.New()
		executedNotExpired.Executed = boolPtr(true)
		executedNotExpired.Expired = boolPtr(false)
		assert.Equal(t, []int64{b.ID}, ids(t, s, executedNotExpired))

		notExpired := query.New()
		notExpired.Expired = boolPtr(false)
		assert.Equal(t, []int64{b.ID, c.ID}, ids(t, s, notExpired))
	})

	t.Run("automatic filters use exact match", func(t *testing.T) {
		s := newStore(t)
		milk := mustCreate(t, s, "Buy milk", "Two litres", tomorrow())
		mustCreate(t, s, "Buy milk now", "Two litres", tomorrow())
		mustCreate(t, s, "buy milk", "One litre", tomorrow())

		byTitle := query.New()
		byTitle.Title = strPtr("Buy milk")
		assert.Equal(t, []int64{milk.ID}, ids(t, s, byTitle))

		byBoth := query.New()
		byBoth.Title = strPtr("Buy milk")
		byBoth.Description = strPtr("One litre")
		assert.Empty(t, ids(t, s, byBoth))

		byDescription := query.New()
		byDescription.Description = strPtr("Two litres")
		assert.Len(t, ids(t, s, byDescription), 2)
	})

	t.Run("pagination boundary", func(t *testing.T) {
		s := newStore(t)
		var created []int64
		for i := 0; i < 5; i++ {
			created = append(created, mustCreate(t, s, fmt.Sprintf("task %d", i), "d", tomorrow()).ID)
		}

		q := query.Query{ItemCount: 2}

		q.Page = 0
		assert.Equal(t, created[0:2], ids(t, s, q))

		q.Page = 1
		assert.Equal(t, created[2:4], ids(t, s, q))

		q.Page = 2
		assert.Equal(t, created[4:5], ids(t, s, q))

		q.Page = 3
		assert.Empty(t, ids(t, s, q))

		q = query.Query{Page: math.MaxInt/10 + 1, ItemCount: 10}
		assert.Empty(t, ids(t, s, q))
	})

	t.Run("pagination is applied after filtering", func(t *testing.T) {
		s := newStore(t)
		var expired []int64
		for i := 0; i < 6; i++ {
			due := tomorrow()
			if i%2 == 1 {
				due = yesterday()
			}
			created := mustCreate(t, s, fmt.Sprintf("task %d", i), "d", due)
			if i%2 == 1 {
				expired = append(expired, created.ID)
			}
		}

		q := query.Query{Page: 1, ItemCount: 2, Expired: boolPtr(true)}
		assert.Equal(t, expired[2:3], ids(t, s, q))
	})

	t.Run("delete removes exactly one", func(t *testing.T) {
		s := newStore(t)
		a := mustCreate(t, s, "A", "d", tomorrow())
		b := mustCreate(t, s, "B", "d", tomorrow())

		require.NoError(t, s.DeleteTask(ctx(t), a.ID))
		assert.Equal(t, []int64{b.ID}, ids(t, s, query.New()))

		err := s.DeleteTask(ctx(t), a.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound, "deleting twice fails")
		assert.Equal(t, []int64{b.ID}, ids(t, s, query.New()), "failed delete leaves collection unchanged")

		_, err = s.GetTask(ctx(t), a.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)

		title := "resurrect"
		_, err = s.UpdateTask(ctx(t), a.ID, domain.TaskUpdate{Title: &title})
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("natural order is creation order", func(t *testing.T) {
		s := newStore(t)
		var want []int64
		for _, title := range []string{"c", "a", "b"} {
			want = append(want, mustCreate(t, s, title, "d", tomorrow()).ID)
		}

		assert.Equal(t, want, ids(t, s, query.New()))
	})

	t.Run("returned tasks do not alias stored state", func(t *testing.T) {
		s := newStore(t)
		created := mustCreate(t, s, "title", "description", tomorrow())

		created.Title = "mutated by caller"

		fetched, err := s.GetTask(ctx(t), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "title", fetched.Title)
	})
}

// AssertSameTask compares two tasks field by field using instant equality for timestamps.
func AssertSameTask(t *testing.T, want, got *domain.Task) {
	t.Helper()

	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Description, got.Description)
	assert.True(t, want.DueDate.Equal(got.DueDate), "due date: want %v, got %v", want.DueDate, got.DueDate)
	assert.True(t, want.CreationDate.Equal(got.CreationDate),
		"creation date: want %v, got %v", want.CreationDate, got.CreationDate)
	if want.ExecutedOn == nil {
		assert.Nil(t, got.ExecutedOn)
	} else {
		require.NotNil(t, got.ExecutedOn)
		assert.True(t, want.ExecutedOn.Equal(*got.ExecutedOn))
	}
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func mustCreate(t *testing.T, s store.TaskStore, title, description string, due time.Time) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(title, description, due)
	require.NoError(t, err)

	created, err := s.CreateTask(ctx(t), task)
	require.NoError(t, err)
	require.NotNil(t, created)

	return created
}

func ids(t *testing.T, s store.TaskStore, q query.Query) []int64 {
	t.Helper()

	tasks, err := s.GetTasks(ctx(t), q)
	require.NoError(t, err)

	result := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, task.ID)
	}
	return result
}

func tomorrow() time.Time {
	return time.Now().UTC().Add(24 * time.Hour).Truncate(time.Microsecond)
}

func yesterday() time.Time {
	return time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Microsecond)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

package query

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/phrazzld/task-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestNew(t *testing.T) {
	t.Parallel()

	q := New()
	assert.Equal(t, 0, q.Page)
	assert.Equal(t, 10, q.ItemCount)
	assert.Nil(t, q.Title)
	assert.Nil(t, q.Description)
	assert.Nil(t, q.Executed)
	assert.Nil(t, q.Expired)
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, New(), Query{}.WithDefaults())
	assert.Equal(t, New(), Query{Page: -2, ItemCount: -1}.WithDefaults())

	q := Query{Page: 4, ItemCount: 25, Title: strPtr("x")}
	assert.Equal(t, q, q.WithDefaults())
}

func TestCriteria(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	t.Run("defaults produce no filters", func(t *testing.T) {
		c := New().Criteria(now)

		assert.Empty(t, c.Equalities)
		assert.Nil(t, c.Expired)
		assert.Nil(t, c.Executed)
		assert.Equal(t, 0, c.Offset)
		assert.Equal(t, 10, c.Limit)
		assert.Equal(t, now, c.Now)
	})

	t.Run("automatic filters only for present fields", func(t *testing.T) {
		q := New()
		q.Title = strPtr("Buy milk")

		c := q.Criteria(now)

		require.Len(t, c.Equalities, 1)
		assert.Equal(t, Equality{Field: FieldTitle, Value: "Buy milk"}, c.Equalities[0])
	})

	t.Run("derived filters are not automatic", func(t *testing.T) {
		q := New()
		q.Title = strPtr("a")
		q.Description = strPtr("b")
		q.Executed = boolPtr(true)
		q.Expired = boolPtr(false)

		c := q.Criteria(now)

		assert.ElementsMatch(t, []Equality{
			{Field: FieldTitle, Value: "a"},
			{Field: FieldDescription, Value: "b"},
		}, c.Equalities)
		require.NotNil(t, c.Executed)
		assert.True(t, *c.Executed)
		require.NotNil(t, c.Expired)
		assert.False(t, *c.Expired)
	})

	t.Run("page window", func(t *testing.T) {
		q := Query{Page: 3, ItemCount: 7}
		c := q.Criteria(now)
		assert.Equal(t, 21, c.Offset)
		assert.Equal(t, 7, c.Limit)
	})

	t.Run("negative paging clamps to zero", func(t *testing.T) {
		q := Query{Page: -1, ItemCount: -5}
		c := q.Criteria(now)
		assert.Equal(t, 0, c.Offset)
		assert.Equal(t, 0, c.Limit)
	})

	t.Run("overflowing page window saturates", func(t *testing.T) {
		q := Query{Page: math.MaxInt/10 + 1, ItemCount: 10}
		c := q.Criteria(now)
		assert.Equal(t, math.MaxInt, c.Offset)
		assert.Equal(t, 10, c.Limit)

		q = Query{Page: math.MaxInt, ItemCount: math.MaxInt}
		assert.Equal(t, math.MaxInt, q.Criteria(now).Offset)
	})

	t.Run("largest exact window is not saturated", func(t *testing.T) {
		q := Query{Page: math.MaxInt / 10, ItemCount: 10}
		assert.Equal(t, (math.MaxInt/10)*10, q.Criteria(now).Offset)
	})
}

func TestCriteriaMatches(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	executedOn := now.Add(-time.Hour)

	task := &domain.Task{
		ID:          1,
		Title:       "Buy milk",
		Description: "Two litres",
		DueDate:     now.Add(-time.Minute),
		ExecutedOn:  &executedOn,
	}

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{name: "no filters", query: New(), want: true},
		{name: "title equal", query: Query{Title: strPtr("Buy milk")}, want: true},
		{name: "title differs by case", query: Query{Title: strPtr("buy milk")}, want: false},
		{name: "title substring", query: Query{Title: strPtr("Buy")}, want: false},
		{name: "description equal", query: Query{Description: strPtr("Two litres")}, want: true},
		{name: "expired true", query: Query{Expired: boolPtr(true)}, want: true},
		{name: "expired false", query: Query{Expired: boolPtr(false)}, want: false},
		{name: "executed true", query: Query{Executed: boolPtr(true)}, want: true},
		{name: "executed false", query: Query{Executed: boolPtr(false)}, want: false},
		{
			name:  "all conjunctive",
			query: Query{Title: strPtr("Buy milk"), Executed: boolPtr(true), Expired: boolPtr(true)},
			want:  true,
		},
		{
			name:  "one failing predicate",
			query: Query{Title: strPtr("Buy milk"), Executed: boolPtr(true), Expired: boolPtr(false)},
			want:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.query.Criteria(now).Matches(task))
		})
	}
}

func TestCriteriaMatchesDueExactlyNow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	task := &domain.Task{DueDate: now}

	assert.False(t, Query{Expired: boolPtr(true)}.Criteria(now).Matches(task))
	assert.True(t, Query{Expired: boolPtr(false)}.Criteria(now).Matches(task))
}

func TestApplyFilterComposition(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	executedOn := now.Add(-time.Hour)

	a := &domain.Task{ID: 1, Title: "A", DueDate: now.Add(-24 * time.Hour)}
	b := &domain.Task{ID: 2, Title: "B", DueDate: now.Add(24 * time.Hour), ExecutedOn: &executedOn}
	c := &domain.Task{ID: 3, Title: "C", DueDate: now.Add(24 * time.Hour)}
	all := []*domain.Task{a, b, c}

	tests := []struct {
		name  string
		query Query
		want  []*domain.Task
	}{
		{name: "expired", query: Query{ItemCount: 10, Expired: boolPtr(true)}, want: []*domain.Task{a}},
		{name: "not executed", query: Query{ItemCount: 10, Executed: boolPtr(false)}, want: []*domain.Task{a, c}},
		{
			name:  "executed and not expired",
			query: Query{ItemCount: 10, Executed: boolPtr(true), Expired: boolPtr(false)},
			want:  []*domain.Task{b},
		},
		{name: "everything", query: New(), want: all},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Apply(all, tc.query.Criteria(now)))
		})
	}
}

func TestApplyPaginatesAfterFiltering(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	tasks := make([]*domain.Task, 0, 10)
	for i := 1; i <= 10; i++ {
		due := now.Add(time.Hour)
		if i%2 == 0 {
			due = now.Add(-time.Hour)
		}
		tasks = append(tasks, &domain.Task{ID: int64(i), Title: fmt.Sprintf("task %d", i), DueDate: due})
	}

	// Expired tasks are 2,4,6,8,10; the second page of two is 6,8.
	got := Apply(tasks, Query{Page: 1, ItemCount: 2, Expired: boolPtr(true)}.Criteria(now))

	require.Len(t, got, 2)
	assert.Equal(t, int64(6), got[0].ID)
	assert.Equal(t, int64(8), got[1].ID)
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name      string
		page      int
		itemCount int
		want      []int
	}{
		{name: "first page", page: 0, itemCount: 2, want: []int{1, 2}},
		{name: "middle page", page: 1, itemCount: 2, want: []int{3, 4}},
		{name: "partial last page", page: 2, itemCount: 2, want: []int{5}},
		{name: "past the end", page: 3, itemCount: 2, want: []int{}},
		{name: "far past the end", page: 100, itemCount: 10, want: []int{}},
		{name: "zero item count", page: 0, itemCount: 0, want: []int{}},
		{name: "page larger than set", page: 0, itemCount: 50, want: []int{1, 2, 3, 4, 5}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Paginate(items, tc.page*tc.itemCount, tc.itemCount)
			assert.NotNil(t, got)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApplyEmptyInput(t *testing.T) {
	t.Parallel()

	got := Apply(nil, New().Criteria(time.Now()))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

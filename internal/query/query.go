// Package query turns a task query into a storage-neutral set of filter
// constraints and applies them to in-memory task sequences.
//
// Backends call Query.Criteria once per evaluation and translate the result
// into their own execution mechanism: predicate matching for the memory
// store, SQL predicates for the relational stores.
package query

import (
	"math"
	"time"

	"github.com/phrazzld/task-api/internal/domain"
)

// Paging defaults.
const (
	DefaultPage      = 0
	DefaultItemCount = 10
)

// Field names a task attribute that can be matched exactly.
type Field string

// Fields eligible for automatic exact-match filtering.
const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// Query describes a filtered, paginated listing of tasks.
// Nil filter fields are absent and do not constrain the result.
type Query struct {
	Page        int
	ItemCount   int
	Title       *string
	Description *string
	Executed    *bool
	Expired     *bool
}

// New returns a query with the default paging and no filters.
func New() Query {
	return Query{
		Page:      DefaultPage,
		ItemCount: DefaultItemCount,
	}
}

// WithDefaults returns a copy of q with unset paging values replaced by the
// defaults. A zero ItemCount is treated as unset.
func (q Query) WithDefaults() Query {
	if q.Page < 0 {
		q.Page = DefaultPage
	}
	if q.ItemCount <= 0 {
		q.ItemCount = DefaultItemCount
	}
	return q
}

// automaticFields lists every query field that is matched by equality against
// the task attribute of the same name.
var automaticFields = []struct {
	field Field
	value func(Query) *string
}{
	{field: FieldTitle, value: func(q Query) *string { return q.Title }},
	{field: FieldDescription, value: func(q Query) *string { return q.Description }},
}

// Equality is an exact-match constraint on one task attribute.
type Equality struct {
	Field Field
	Value string
}

// Criteria is the backend-agnostic description of a query.
type Criteria struct {
	Equalities []Equality

	// Expired, when set, keeps tasks with DueDate < Now (true)
	// or DueDate >= Now (false).
	Expired *bool

	// Executed, when set, keeps tasks whose ExecutedOn is set (true)
	// or unset (false).
	Executed *bool

	// Now is the single reference instant for the expiry comparison.
	Now time.Time

	Offset int
	Limit  int
}

// Criteria splits the query into automatic and derived filters and computes
// the page window. now is captured by the caller once per evaluation.
func (q Query) Criteria(now time.Time) Criteria {
	c := Criteria{
		Expired:  q.Expired,
		Executed: q.Executed,
		Now:      now,
		Offset:   pageOffset(q.Page, q.ItemCount),
		Limit:    q.ItemCount,
	}

	for _, af := range automaticFields {
		if v := af.value(q); v != nil {
			c.Equalities = append(c.Equalities, Equality{Field: af.field, Value: *v})
		}
	}

	if c.Limit < 0 {
		c.Limit = 0
	}

	return c
}

// pageOffset returns page*itemCount. Negative inputs give 0 and a product
// that would overflow saturates at math.MaxInt, which is past any result set.
func pageOffset(page, itemCount int) int {
	if page <= 0 || itemCount <= 0 {
		return 0
	}
	if page > math.MaxInt/itemCount {
		return math.MaxInt
	}
	return page * itemCount
}

// Matches reports whether the task satisfies every constraint.
// Pagination is not considered.
func (c Criteria) Matches(t *domain.Task) bool {
	for _, eq := range c.Equalities {
		if attribute(t, eq.Field) != eq.Value {
			return false
		}
	}

	if c.Expired != nil && t.IsExpired(c.Now) != *c.Expired {
		return false
	}

	if c.Executed != nil && t.IsExecuted() != *c.Executed {
		return false
	}

	return true
}

// attribute returns the string value of an automatic-filter field.
func attribute(t *domain.Task, f Field) string {
	switch f {
	case FieldTitle:
		return t.Title
	case FieldDescription:
		return t.Description
	default:
		return ""
	}
}

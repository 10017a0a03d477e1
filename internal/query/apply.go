package query

import "github.com/phrazzld/task-api/internal/domain"

// Apply filters tasks by the criteria, preserving their order, and then
// returns the requested page. The result is never nil.
func Apply(tasks []*domain.Task, c Criteria) []*domain.Task {
	matched := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if c.Matches(t) {
			matched = append(matched, t)
		}
	}

	return Paginate(matched, c.Offset, c.Limit)
}

// Paginate returns items[offset:offset+limit], clamped to the slice bounds.
// A window past the end yields an empty slice.
func Paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(items) {
		return []T{}
	}

	end := offset + limit
	if end > len(items) {
		end = len(items)
	}

	return items[offset:end]
}

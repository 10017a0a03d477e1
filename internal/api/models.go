package api

import (
	"time"

	"github.com/phrazzld/task-api/internal/domain"
	"github.com/phrazzld/task-api/internal/query"
)

// CreateTaskRequest defines the payload for POST /task.
type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required"`
	Description string     `json:"description" validate:"required"`
	DueDate     *time.Time `json:"due_date"    validate:"required"`
}

// UpdateTaskRequest defines the payload for PUT /task/{id}.
// Absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"       validate:"omitempty,min=1"`
	Description *string    `json:"description" validate:"omitempty,min=1"`
	DueDate     *time.Time `json:"due_date"`
	ExecutedOn  *time.Time `json:"executed_on"`
}

// ToUpdate converts the request into a domain partial update.
func (r UpdateTaskRequest) ToUpdate() domain.TaskUpdate {
	return domain.TaskUpdate{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		ExecutedOn:  r.ExecutedOn,
	}
}

// ListTasksRequest holds the parsed query string of GET /task.
type ListTasksRequest struct {
	Page        int `json:"page"      validate:"gte=0"`
	ItemCount   int `json:"itemCount" validate:"gte=1"`
	Title       *string
	Description *string
	Executed    *bool
	Expired     *bool
}

// ToQuery converts the request into a task query with paging defaults applied.
func (r ListTasksRequest) ToQuery() query.Query {
	return query.Query{
		Page:        r.Page,
		ItemCount:   r.ItemCount,
		Title:       r.Title,
		Description: r.Description,
		Executed:    r.Executed,
		Expired:     r.Expired,
	}.WithDefaults()
}

// TaskResponse represents the response data for a task.
// ExecutedOn is null for pending tasks.
type TaskResponse struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueDate      time.Time  `json:"due_date"`
	ExecutedOn   *time.Time `json:"executed_on"`
	CreationDate time.Time  `json:"creation_date"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports service health.
type HealthResponse struct {
	Status string `json:"status"`
}

func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		DueDate:      task.DueDate,
		ExecutedOn:   task.ExecutedOn,
		CreationDate: task.CreationDate,
	}
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	response := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		response = append(response, taskToResponse(task))
	}
	return response
}

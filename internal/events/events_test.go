package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskEvent(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	before := time.Now().UTC()
	event, err := NewTaskEvent(TypeTaskCreated, 42, payload{Title: "write tests"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeTaskCreated, event.Type)
	assert.Equal(t, int64(42), event.TaskID)
	assert.False(t, event.OccurredAt.Before(before))

	var decoded payload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, "write tests", decoded.Title)
}

func TestNewTaskEventWithoutPayload(t *testing.T) {
	event, err := NewTaskEvent(TypeTaskDeleted, 7, nil)
	require.NoError(t, err)
	assert.Empty(t, event.Payload)
}

func TestNewTaskEventUnmarshalablePayload(t *testing.T) {
	_, err := NewTaskEvent(TypeTaskUpdated, 1, make(chan int))
	assert.Error(t, err)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *TaskEvent
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestHandlerFunc(t *testing.T) {
	var got *TaskEvent
	handler := HandlerFunc(func(ctx context.Context, event *TaskEvent) error {
		got = event
		return errors.New("boom")
	})

	event, err := NewTaskEvent(TypeTaskExecuted, 3, nil)
	require.NoError(t, err)

	assert.EqualError(t, handler.HandleEvent(context.Background(), event), "boom")
	assert.Equal(t, event, got)
}

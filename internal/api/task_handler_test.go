package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/task-api/internal/api/middleware"
	"github.com/phrazzld/task-api/internal/api/shared"
	"github.com/phrazzld/task-api/internal/events"
	"github.com/phrazzld/task-api/internal/platform/logger"
	"github.com/phrazzld/task-api/internal/platform/memory"
	"github.com/phrazzld/task-api/internal/service"
	"github.com/phrazzld/task-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type failingPinger struct{ err error }

func (p failingPinger) Ping(context.Context) error { return p.err }

// newTestRouter wires a handler over an in-memory store with a fixed clock.
func newTestRouter(t *testing.T, pinger ...store.Pinger) http.Handler {
	t.Helper()

	log, _ := logger.GetTestLogger(t)
	taskStore := memory.NewTaskStore(log, memory.WithClock(func() time.Time { return fixedNow }))
	svc, err := service.NewTaskService(
		taskStore,
		events.NewInMemoryEventEmitter(log),
		log,
		service.WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)

	var p store.Pinger = taskStore
	if len(pinger) > 0 {
		p = pinger[0]
	}

	r := chi.NewRouter()
	r.Use(middleware.NewTraceMiddleware(log))
	NewTaskHandler(svc, p, log).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeTask(t *testing.T, rr *httptest.ResponseRecorder) TaskResponse {
	t.Helper()
	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func createTask(t *testing.T, h http.Handler, title string, due time.Time) TaskResponse {
	t.Helper()

	body := `{"title":"` + title + `","description":"desc","due_date":"` + due.Format(time.RFC3339) + `"}`
	rr := doRequest(t, h, http.MethodPost, "/task", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decodeTask(t, rr)
}

func TestNewTaskHandler_NilService(t *testing.T) {
	assert.Panics(t, func() { NewTaskHandler(nil, nil, nil) })
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	due := fixedNow.Add(48 * time.Hour)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid",
			body:       `{"title":"Buy milk","description":"Two litres","due_date":"` + due.Format(time.RFC3339) + `"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing title",
			body:       `{"description":"Two litres","due_date":"` + due.Format(time.RFC3339) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid title: required field",
		},
		{
			name:       "missing due date",
			body:       `{"title":"Buy milk","description":"Two litres"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid due_date: required field",
		},
		{
			name:       "unknown field",
			body:       `{"title":"Buy milk","description":"d","due_date":"` + due.Format(time.RFC3339) + `","owner":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "malformed json",
			body:       `{"title":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "empty body",
			body:       "",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(t)
			rr := doRequest(t, h, http.MethodPost, "/task", tc.body)

			assert.Equal(t, tc.wantStatus, rr.Code, rr.Body.String())
			if tc.wantError != "" {
				resp := decodeError(t, rr)
				assert.Equal(t, tc.wantError, resp.Error)
				assert.NotEmpty(t, resp.TraceID)
				assert.Equal(t, resp.TraceID, rr.Header().Get(middleware.TraceIDHeader))
				return
			}

			task := decodeTask(t, rr)
			assert.Equal(t, int64(1), task.ID)
			assert.Equal(t, "Buy milk", task.Title)
			assert.True(t, due.Equal(task.DueDate))
			assert.True(t, fixedNow.Equal(task.CreationDate))
			assert.Nil(t, task.ExecutedOn)
		})
	}
}

func TestCreateTask_ExecutedOnSerializedAsNull(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	rr := doRequest(t, h, http.MethodPost, "/task",
		`{"title":"a","description":"b","due_date":"2026-11-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	v, ok := raw["executed_on"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	created := createTask(t, h, "Buy milk", fixedNow.Add(time.Hour))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{name: "existing", path: "/task/1", wantStatus: http.StatusOK},
		{name: "missing", path: "/task/99", wantStatus: http.StatusNotFound, wantError: "Task not found"},
		{name: "non numeric", path: "/task/abc", wantStatus: http.StatusBadRequest, wantError: "id has invalid format"},
		{name: "zero", path: "/task/0", wantStatus: http.StatusBadRequest, wantError: "id has invalid format"},
		{name: "negative", path: "/task/-3", wantStatus: http.StatusBadRequest, wantError: "id has invalid format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, h, http.MethodGet, tc.path, "")
			assert.Equal(t, tc.wantStatus, rr.Code)

			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, decodeError(t, rr).Error)
				return
			}
			assert.Equal(t, created, decodeTask(t, rr))
		})
	}
}

func TestListTasks(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	createTask(t, h, "past", fixedNow.Add(-time.Hour))
	createTask(t, h, "future", fixedNow.Add(time.Hour))
	createTask(t, h, "later", fixedNow.Add(2*time.Hour))

	rr := doRequest(t, h, http.MethodPost, "/task/2/execute", "")
	require.Equal(t, http.StatusOK, rr.Code)

	tests := []struct {
		name      string
		query     string
		wantIDs   []int64
		wantCode  int
		wantError string
	}{
		{name: "defaults", query: "", wantIDs: []int64{1, 2, 3}, wantCode: http.StatusOK},
		{name: "title", query: "?title=future", wantIDs: []int64{2}, wantCode: http.StatusOK},
		{name: "empty title matches nothing", query: "?title=", wantIDs: []int64{}, wantCode: http.StatusOK},
		{name: "expired", query: "?expired=true", wantIDs: []int64{1}, wantCode: http.StatusOK},
		{name: "not expired", query: "?expired=false", wantIDs: []int64{2, 3}, wantCode: http.StatusOK},
		{name: "executed", query: "?executed=true", wantIDs: []int64{2}, wantCode: http.StatusOK},
		{name: "pending and not expired", query: "?executed=false&expired=false", wantIDs: []int64{3}, wantCode: http.StatusOK},
		{name: "second page", query: "?page=1&itemCount=2", wantIDs: []int64{3}, wantCode: http.StatusOK},
		{name: "past the end", query: "?page=5&itemCount=2", wantIDs: []int64{}, wantCode: http.StatusOK},
		{name: "huge page", query: "?page=922337203685477581&itemCount=10", wantIDs: []int64{}, wantCode: http.StatusOK},
		{
			name: "bad page", query: "?page=x",
			wantCode: http.StatusBadRequest, wantError: "page must be an integer",
		},
		{
			name: "negative page", query: "?page=-1",
			wantCode: http.StatusBadRequest, wantError: "Invalid page: too small",
		},
		{
			name: "zero item count", query: "?itemCount=0",
			wantCode: http.StatusBadRequest, wantError: "Invalid itemCount: too small",
		},
		{
			name: "bad bool", query: "?executed=maybe",
			wantCode: http.StatusBadRequest, wantError: "executed must be true or false",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, h, http.MethodGet, "/task"+tc.query, "")
			require.Equal(t, tc.wantCode, rr.Code, rr.Body.String())

			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, decodeError(t, rr).Error)
				return
			}

			var tasks []TaskResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tasks))
			ids := make([]int64, 0, len(tasks))
			for _, task := range tasks {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()

	t.Run("partial update keeps other fields", func(t *testing.T) {
		h := newTestRouter(t)
		created := createTask(t, h, "Buy milk", fixedNow.Add(time.Hour))

		rr := doRequest(t, h, http.MethodPut, "/task/1", `{"title":"Buy oat milk"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		updated := decodeTask(t, rr)
		assert.Equal(t, "Buy oat milk", updated.Title)
		assert.Equal(t, created.Description, updated.Description)
		assert.True(t, created.DueDate.Equal(updated.DueDate))
		assert.True(t, created.CreationDate.Equal(updated.CreationDate))
	})

	t.Run("executed_on can be set", func(t *testing.T) {
		h := newTestRouter(t)
		createTask(t, h, "Buy milk", fixedNow.Add(time.Hour))

		rr := doRequest(t, h, http.MethodPut, "/task/1", `{"executed_on":"2026-10-15T08:00:00Z"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		updated := decodeTask(t, rr)
		require.NotNil(t, updated.ExecutedOn)
		assert.True(t, time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC).Equal(*updated.ExecutedOn))
	})

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "missing task", path: "/task/42", body: `{"title":"x"}`, wantStatus: http.StatusNotFound, wantError: "Task not found"},
		{name: "bad id", path: "/task/abc", body: `{"title":"x"}`, wantStatus: http.StatusBadRequest, wantError: "id has invalid format"},
		{name: "empty title", path: "/task/1", body: `{"title":""}`, wantStatus: http.StatusBadRequest, wantError: "Invalid title: too small"},
		{name: "unknown field", path: "/task/1", body: `{"id":7}`, wantStatus: http.StatusBadRequest, wantError: "Invalid request format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(t)
			createTask(t, h, "Buy milk", fixedNow.Add(time.Hour))

			rr := doRequest(t, h, http.MethodPut, tc.path, tc.body)
			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Equal(t, tc.wantError, decodeError(t, rr).Error)
		})
	}
}

func TestExecuteTask(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	createTask(t, h, "Buy milk", fixedNow.Add(time.Hour))

	rr := doRequest(t, h, http.MethodPost, "/task/1/execute", "")
	require.Equal(t, http.StatusOK, rr.Code)

	task := decodeTask(t, rr)
	require.NotNil(t, task.ExecutedOn)
	assert.True(t, fixedNow.Equal(*task.ExecutedOn))

	rr = doRequest(t, h, http.MethodPost, "/task/9/execute", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Task not found", decodeError(t, rr).Error)
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	createTask(t, h, "Buy milk", fixedNow.Add(time.Hour))

	rr := doRequest(t, h, http.MethodDelete, "/task/1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var msg MessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msg))
	assert.Equal(t, "Task deleted successfully", msg.Message)

	rr = doRequest(t, h, http.MethodGet, "/task/1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, h, http.MethodDelete, "/task/1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		rr := doRequest(t, newTestRouter(t), http.MethodGet, "/healthz", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
	})

	t.Run("storage down", func(t *testing.T) {
		h := newTestRouter(t, failingPinger{err: errors.New("dial tcp 10.0.0.1:5432: connection refused")})
		rr := doRequest(t, h, http.MethodGet, "/healthz", "")

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "Storage unavailable", decodeError(t, rr).Error)
	})
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	rr := doRequest(t, newTestRouter(t), http.MethodPatch, "/task/1", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

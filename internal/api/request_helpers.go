package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/task-api/internal/domain"
	"github.com/phrazzld/task-api/internal/query"
)

// getPathID extracts a positive integer ID from the URL path parameters.
func getPathID(r *http.Request, paramName string) (int64, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return 0, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := strconv.ParseInt(pathParam, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// parseListTasksRequest reads the GET /task query string. Absent paging
// parameters take the query defaults; absent filters stay nil.
func parseListTasksRequest(r *http.Request) (ListTasksRequest, error) {
	values := r.URL.Query()
	req := ListTasksRequest{
		Page:      query.DefaultPage,
		ItemCount: query.DefaultItemCount,
	}

	var err error
	if req.Page, err = intParam(values.Get("page"), "page", req.Page); err != nil {
		return req, err
	}
	if req.ItemCount, err = intParam(values.Get("itemCount"), "itemCount", req.ItemCount); err != nil {
		return req, err
	}
	if req.Executed, err = boolParam(values.Get("executed"), "executed"); err != nil {
		return req, err
	}
	if req.Expired, err = boolParam(values.Get("expired"), "expired"); err != nil {
		return req, err
	}

	if values.Has("title") {
		title := values.Get("title")
		req.Title = &title
	}
	if values.Has("description") {
		description := values.Get("description")
		req.Description = &description
	}

	return req, nil
}

func intParam(raw, name string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer", domain.ErrInvalidFormat)
	}
	return v, nil
}

func boolParam(raw, name string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be true or false", domain.ErrInvalidFormat)
	}
	return &v, nil
}

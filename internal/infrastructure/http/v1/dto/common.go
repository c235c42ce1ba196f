// Package dto provides request and response shapes for the HTTP API.
package dto

import (
	"time"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

// ErrorResponse is the body of every non-2xx response. RequestID matches
// the X-Request-ID header and the request's log lines.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse never returns a null items array.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// ParseID parses a required id field.
func ParseID(field, value string) (id.ID, error) {
	v, err := id.Parse(value)
	if err != nil {
		return id.ID{}, apperror.NewValidation("invalid " + field).WithDetail(field, value)
	}
	return v, nil
}

// ParseOptionalID parses an id field that may be empty.
func ParseOptionalID(field, value string) (*id.ID, error) {
	if value == "" {
		return nil, nil
	}
	v, err := ParseID(field, value)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseOptionalDate parses a YYYY-MM-DD field that may be empty.
func ParseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, apperror.NewValidation("invalid " + field + ", expected YYYY-MM-DD").WithDetail(field, value)
	}
	return &d, nil
}

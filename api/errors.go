package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrInvalidConfig indicates invalid client configuration
var ErrInvalidConfig = errors.New("invalid api client configuration")

// APIError is returned when the server answers with a non-2xx status
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsValidation checks if the server rejected the submitted payload
func (e *APIError) IsValidation() bool {
	return e.StatusCode == http.StatusBadRequest
}

// NetworkError means no response was received at all
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err (or anything it wraps) is a NetworkError
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a server response
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// newAPIError builds an APIError, pulling a readable message out of the
// REST framework's error bodies: {"detail": "..."} or {"field": ["..."]}.
func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Message:    errorMessage(status, body),
		Body:       string(body),
	}
}

func errorMessage(status int, body []byte) string {
	fallback := http.StatusText(status)
	if fallback == "" {
		fallback = "unexpected response"
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		return fallback
	}

	if detail, ok := payload["detail"].(string); ok && detail != "" {
		return detail
	}

	fields := make([]string, 0, len(payload))
	for field := range payload {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		var msgs []string
		switch v := payload[field].(type) {
		case string:
			msgs = append(msgs, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					msgs = append(msgs, s)
				}
			}
		}
		if len(msgs) == 0 {
			continue
		}
		if field == "non_field_errors" {
			parts = append(parts, strings.Join(msgs, " "))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, " ")))
	}

	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, "; ")
}

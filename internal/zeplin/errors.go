// Package zeplin provides the client for fetching design screens and
// reference images from the Zeplin API.
package zeplin

import (
	"fmt"
	"time"
)

// AuthError indicates an invalid or expired access token (401/403).
// Never retried: it is a configuration problem, not a transient failure.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("zeplin auth error (HTTP %d): %s", e.StatusCode, e.Message)
}

// NotFoundError indicates a bad project or screen identifier (404).
type NotFoundError struct {
	ProjectID string
	ScreenID  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("zeplin screen not found: project=%s screen=%s", e.ProjectID, e.ScreenID)
}

// RateLimitError indicates the API rejected the request with 429. The
// Retry-After hint is surfaced so callers can schedule a later attempt;
// the client itself does not wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("zeplin rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "zeplin rate limit exceeded"
}

// APIError represents any other non-success response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("zeplin API error (HTTP %d): %s: %v", e.StatusCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("zeplin API error (HTTP %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Package apierr classifies errors from external HTTP providers so
// callers can apply the right policy: retry transient failures, surface
// auth failures without retrying, and flag data errors for review.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is an HTTP error response from an external provider.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Service, e.StatusCode)
}

// New returns a StatusError for the given provider response.
func New(service string, statusCode int, body string) *StatusError {
	return &StatusError{Service: service, StatusCode: statusCode, Body: body}
}

// IsAuth reports whether err is an authentication or authorization
// failure. These are never retried; the provider's operations pause
// until the next cycle.
func IsAuth(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
}

// IsTransient reports whether err is worth retrying: rate limits,
// server errors, or transport failures that never produced a response.
func IsTransient(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		// Transport-level failures have no status code.
		return true
	}
	return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
}

package scorecard

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey indicates no College Scorecard API key was configured
var ErrMissingAPIKey = errors.New("college scorecard API key is not set")

// ErrInvalidAPIKey indicates the API rejected the key (HTTP 401/403)
var ErrInvalidAPIKey = errors.New("invalid or unauthorized College Scorecard API key")

// ErrRetriesExhausted wraps the last transient failure once all attempts are used
var ErrRetriesExhausted = errors.New("college scorecard API: max retries exceeded")

// ErrNotAnObject is returned by MapSchool for result items that are not JSON objects
var ErrNotAnObject = errors.New("result item is not a JSON object")

// ServerError represents a 5xx error from the Scorecard API
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("college scorecard server error: HTTP %d", e.StatusCode)
}

// ClientError represents a 4xx error from the Scorecard API. It is never retried.
type ClientError struct {
	StatusCode int
	Body       string
}

func (e *ClientError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("college scorecard client error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("college scorecard client error: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *ClientError) Is(target error) bool {
	return target == ErrInvalidAPIKey && (e.StatusCode == 401 || e.StatusCode == 403)
}

// TransportError wraps a network-level failure (no HTTP response)
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("college scorecard request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Package gdrive provides an HTTP client for the Google Drive v3 API
// with bounded exponential-backoff retry and error classification.
package gdrive

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, gdrive.ErrNotFound) to check.
var (
	ErrBadRequest      = errors.New("gdrive: bad request")
	ErrUnauthorized    = errors.New("gdrive: unauthorized")
	ErrForbidden       = errors.New("gdrive: forbidden")
	ErrNotFound        = errors.New("gdrive: not found")
	ErrTooManyRequests = errors.New("gdrive: rate limited")
	ErrServerError     = errors.New("gdrive: server error")
	ErrUnavailable     = errors.New("gdrive: service unavailable")
)

// ErrRetriesExhausted wraps the last transient error once the bounded
// retry budget is spent. Callers treat it as a failed-but-non-fatal
// outcome for the single operation it guarded.
var ErrRetriesExhausted = errors.New("gdrive: retries exhausted")

// DriveError wraps a sentinel error with the HTTP status code and the
// API error message body for debugging.
type DriveError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *DriveError) Error() string {
	return fmt.Sprintf("gdrive: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *DriveError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrTooManyRequests
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isTransient reports whether the given HTTP status code is a
// rate-limit/unavailable class failure worth retrying. The Drive API
// signals quota exhaustion with 403 in addition to the usual 429.
func isTransient(code int) bool {
	switch code {
	case http.StatusForbidden,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/slatesync/slatesync/pkg/retry"
)

// ErrNotFound is returned when a blob, document, or path does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned when the remote rejects the auth token.
// It is surfaced distinctly so callers can refresh credentials and
// retry once.
var ErrUnauthorized = errors.New("unauthorized")

// ConflictError is returned when a root commit presents a stale
// generation: a concurrent writer advanced the root since it was read.
// The whole read-modify-write cycle must be repeated from a fresh root.
type ConflictError struct {
	Hash       string // hash the commit tried to install
	Generation uint64 // generation the commit was conditioned on
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("root commit conflict: generation %d is stale", e.Generation)
}

// AsConflict checks if an error is a ConflictError and returns it.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// statusError classifies a non-success response. Server errors are
// marked retryable; auth and missing-blob statuses map onto their
// sentinels; everything else carries the status and body for the
// caller.
func statusError(what string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", what, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("%s: server error %d", what, resp.StatusCode))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: status %d: %s", what, resp.StatusCode, body)
	}
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNotFound maps HTTP 404. Endpoints may legitimately have nothing
	// to report; callers suppress this instead of surfacing an error.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized maps HTTP 401 (token expired or revoked).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoToken is returned before any I/O when no session token is set.
	ErrNoToken = errors.New("no session token")
)

// StatusError carries a non-2xx response the client has no mapping for.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// IsTransient reports whether err looks like a try-again-next-tick
// failure: network errors, timeouts, or a 5xx status.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

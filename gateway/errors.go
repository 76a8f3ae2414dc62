package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a single-row read matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidSession is returned for unknown, expired or revoked access tokens.
	ErrInvalidSession = errors.New("invalid session")
	// ErrUnsupportedFilter is returned when a backend cannot express a filter.
	ErrUnsupportedFilter = errors.New("unsupported filter")
)

// Error is a failure reported by the remote service itself.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error %d: %s", e.Status, e.Message)
}

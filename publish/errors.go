package publish

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a request rejected before any I/O.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotConfigured marks a store missing the credentials it needs.
	ErrNotConfigured = errors.New("storage not configured")
)

// CommitError carries a non-success response from the remote commit API.
type CommitError struct {
	Status int
	Body   string
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("github commit failed: %d %s", e.Status, e.Body)
}

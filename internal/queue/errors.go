package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned when an enqueue would repeat a source path or
	// a target filename already in the queue.
	ErrDuplicate = errors.New("duplicate queue entry")
	// ErrFrozen is returned by mutating calls while a batch holds the queue.
	ErrFrozen = errors.New("queue is frozen while a batch is running")
	// ErrNotFound is returned when an entry ID does not exist.
	ErrNotFound = errors.New("queue entry not found")
)

// DuplicateError describes which field collided with an existing entry.
type DuplicateError struct {
	Field      string
	Value      string
	ExistingID string
}

func (e *DuplicateError) Error() string {
	if e.ExistingID == "" {
		return fmt.Sprintf("%s %q already queued", e.Field, e.Value)
	}
	return fmt.Sprintf("%s %q already queued as %s", e.Field, e.Value, e.ExistingID)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

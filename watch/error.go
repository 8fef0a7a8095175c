package watch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Unwatch for an unknown or already removed watcher.
	ErrNotFound = errors.New("watcher not found")
	// ErrUnknownKey is returned when a secondary key name is not defined for the table.
	ErrUnknownKey = errors.New("unknown secondary key")
	// ErrNilTable is returned when a registration is made without a table.
	ErrNilTable = errors.New("table is nil")
	// ErrInvalidCapacity is returned when the channel capacity is not positive.
	ErrInvalidCapacity = errors.New("channel capacity must be positive")
)

// NotFoundError is returned by Unwatch when no watcher with ID is registered.
type NotFoundError struct {
	ID WatcherID
}

// Error returns a string representation of the error.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("watcher %d not found", e.ID)
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func errNotFound(id WatcherID) error {
	return &NotFoundError{ID: id}
}

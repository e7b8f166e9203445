package hitl

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for operations on unknown request IDs.
var ErrNotFound = errors.New("hitl: approval request not found")

// ErrNotPending is returned when a transition that requires PENDING is
// attempted on a terminal request (cancel on an approved request, for
// example). Approve and reject do not return it: they are idempotent
// on terminal requests.
var ErrNotPending = errors.New("hitl: approval request is not pending")

// StorageError represents an error from the approval queue backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory", ...)
	Operation string // Operation that failed ("create", "get", "update", "list")
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("approval storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

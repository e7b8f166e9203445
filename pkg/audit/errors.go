package audit

import (
	"errors"
	"fmt"
)

// ErrEmptyTenant is returned when an operation is attempted without a
// tenant ID.
var ErrEmptyTenant = errors.New("audit: tenant id must not be empty")

// PayloadError reports an event payload rejected at append time,
// before any hash was computed.
type PayloadError struct {
	TenantID string
	Cause    error
}

// Error implements the error interface.
func (e *PayloadError) Error() string {
	return fmt.Sprintf("audit payload rejected [tenant=%s]: %v", e.TenantID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PayloadError) Unwrap() error {
	return e.Cause
}

// StorageError represents an error from the audit storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory", ...)
	Operation string // Operation that failed ("append", "latest", "list")
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
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

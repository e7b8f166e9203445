package rules

import "fmt"

// ValidationError reports a rule that failed load-time validation.
// Snapshots containing invalid rules are rejected wholesale; the store
// never renormalizes or silently drops the offending rule.
type ValidationError struct {
	RuleID string // Rule that failed validation ("" for document-level errors)
	Reason string // Why validation failed
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("rule validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("rule %q validation failed: %s", e.RuleID, e.Reason)
}

// SourceError represents an error from a snapshot source backend.
type SourceError struct {
	Backend   string // Source backend ("file", "memory", etc.)
	Operation string // Operation that failed ("load", "save")
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("rule source error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *SourceError) Unwrap() error {
	return e.Cause
}

// NewSourceError creates a new SourceError.
func NewSourceError(backend, operation string, cause error) *SourceError {
	return &SourceError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/pillbox-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrPillNotFound indicates the requested pill does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrPillNotFound = errors.New("pill not found")

	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	// This is typically returned when a user attempts to read or modify a resource they don't own.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrSchedulingFailed indicates a pill was saved but its reminder could not
	// be enqueued. The saved pill is returned alongside this error.
	ErrSchedulingFailed = errors.New("reminder scheduling failed")
)

// PillServiceError wraps errors from the pill service with context.
type PillServiceError struct {
	// Operation is the operation that failed (e.g., "create_pill", "delete_pill")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for PillServiceError.
func (e *PillServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pill service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("pill service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PillServiceError) Unwrap() error {
	return e.Err
}

// NewPillServiceError creates a new PillServiceError.
// It returns known sentinel errors directly without wrapping.
func NewPillServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrPillNotFound) || errors.Is(err, store.ErrPillNotFound) {
		return ErrPillNotFound
	}
	if errors.Is(err, ErrNotOwned) {
		return ErrNotOwned
	}

	return &PillServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

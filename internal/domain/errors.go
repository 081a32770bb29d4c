package domain

import (
	"errors"
	"strings"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")
)

// ValidationFailedError carries every user-facing message produced while
// validating input, in evaluation order.
type ValidationFailedError struct {
	Messages []string
}

// NewValidationFailedError creates a ValidationFailedError from messages.
func NewValidationFailedError(messages ...string) *ValidationFailedError {
	return &ValidationFailedError{Messages: messages}
}

// Error implements the error interface.
func (e *ValidationFailedError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, " ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationFailedError) Is(target error) bool {
	return target == ErrValidation
}

// ValidationMessages returns the messages of a ValidationFailedError in err's
// chain, or nil when there is none.
func ValidationMessages(err error) []string {
	var vErr *ValidationFailedError
	if errors.As(err, &vErr) {
		return vErr.Messages
	}
	return nil
}

package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when the embedding backend fails.
	ErrExternalService = errors.New("external service error")
	// ErrConflict is returned when an operation collides with a running ingest.
	ErrConflict = errors.New("conflict")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
	// Details carries offending values, e.g. the paths that did not exist.
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap makes every ValidationError match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

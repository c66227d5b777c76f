package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrPrecondition = errors.New("precondition failed")
)

// Remote collaborator failures. Callers distinguish them for user messaging.
var (
	ErrTimeout      = errors.New("request timed out")
	ErrServer       = errors.New("server error")
	ErrConnectivity = errors.New("connectivity lost")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// UserMessage turns an error into text suitable for a banner.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "The request timed out. Please try again."
	case errors.Is(err, ErrServer):
		return "The server reported an error. Please try again later."
	case errors.Is(err, ErrConnectivity):
		return "No response from the server. Check your connection."
	case errors.Is(err, ErrNotFound):
		return "The item no longer exists."
	case errors.Is(err, ErrForbidden):
		return "This item cannot be changed."
	case errors.Is(err, ErrValidation):
		return "Some fields are invalid."
	default:
		return "Something went wrong."
	}
}

// Package apperror defines the domain error vocabulary shared by the
// service and handler layers.
//
// Services return these; the HTTP layer maps them to status codes with
// errors.Is. Keeping the sentinel values here (and not HTTP codes in the
// services) is what lets the same business logic serve HTTP today and
// anything else tomorrow.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors. Check with errors.Is — they survive wrapping.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// AppError carries a sentinel plus a human-readable message (and
// optionally the field that caused a validation failure).
type AppError struct {
	Err     error  // one of the sentinels above
	Message string // safe to show to the user
	Field   string // optional: offending field for validation errors
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel so errors.Is can find it.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that a resource doesn't exist.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports a rejected input value.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports that the request collides with current state (e.g. a
// duplicate email, or triggering a run while one is in flight).
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden reports that the caller is authenticated but not allowed to
// touch this resource.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized reports a missing or failed authentication.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

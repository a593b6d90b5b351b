// Package apperror defines the domain errors shared by the service, storage
// and HTTP layers.
//
// Every failure a request can hit belongs to one of three classes:
//
//	No Session        → ErrUnauthorized (401 JSON, or a redirect for pages)
//	Validation Failure → ErrValidation  (redirect back to the form, 400 for bad JSON)
//	Forbidden Action   → ErrForbidden   (400 JSON, nothing changes)
//
// ErrNotFound is used internally by the session stores to mean "no record for
// this session id"; the service turns it into ErrUnauthorized before it ever
// reaches a handler.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// AppError carries a sentinel (for errors.Is) and a message that is safe to
// show the user.
type AppError struct {
	Err     error  // sentinel
	Message string // human-readable, sent to clients
	Field   string // optional: form/JSON field at fault
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Forbidden means the action is understood but not allowed in the current
// state, e.g. picking an avatar that has not been unlocked yet.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means the request has no user record behind its session.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

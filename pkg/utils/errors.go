package utils

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers translate them to HTTP status codes with errors.Is.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", ErrBadRequest)
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUpstream      = errors.New("upstream failure")
)

// AppError carries a message that is safe to show to the caller next to the
// kind used for status mapping. Err holds the underlying cause, if any.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newAppError(kind error, format string, args ...any) error {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) error {
	return newAppError(ErrBadRequest, format, args...)
}

func InvalidStatus(format string, args ...any) error {
	return newAppError(ErrInvalidStatus, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newAppError(ErrUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newAppError(ErrForbidden, format, args...)
}

func NotFound(format string, args ...any) error {
	return newAppError(ErrNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return newAppError(ErrConflict, format, args...)
}

// Upstream wraps a store or dependency failure. The message is logged, never
// returned to the caller.
func Upstream(err error, format string, args ...any) error {
	return &AppError{Kind: ErrUpstream, Message: fmt.Sprintf(format, args...), Err: err}
}

// PublicMessage returns the caller facing text for err.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && !errors.Is(err, ErrUpstream) {
		return appErr.Message
	}
	return "Internal server error"
}

// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return *AppError values that wrap one of the sentinels below.
// The HTTP layer inspects the sentinel with errors.Is and picks a status code;
// the message is safe to show to the client.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoData             = errors.New("no data")
	ErrUpstream           = errors.New("upstream unavailable")
)

type AppError struct {
	Err     error  // sentinel, see above
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a record that is absent OR owned by someone else.
// The two cases are indistinguishable on purpose.
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

func Conflict(resource, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s %s", resource, message),
	}
}

// DuplicateUser is returned when registering (or changing to) an email
// that another account already uses.
func DuplicateUser() *AppError {
	return Conflict("user", "already exists")
}

// InvalidCredentials is the single login failure. Unknown email and wrong
// password must both produce exactly this value.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid credentials",
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func NoData(message string) *AppError {
	return &AppError{
		Err:     ErrNoData,
		Message: message,
	}
}

// Upstream wraps a failure of an external dependency (AI provider, GitHub).
// The cause is kept in the chain for logging but never shown to clients.
func Upstream(service string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUpstream, cause),
		Message: fmt.Sprintf("%s is currently unavailable", service),
	}
}

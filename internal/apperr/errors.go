// Package apperr defines the application error taxonomy shared by the
// service layer and mapped to HTTP responses by the handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError marks malformed or missing input. Surfaced to the caller
// with a specific message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation creates a ValidationError with a formatted message.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a referenced entity id that does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// NotFound creates a NotFoundError for the given resource.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// StateConflictError marks an operation that is invalid for the entity's
// current state.
type StateConflictError struct {
	Msg string
}

func (e *StateConflictError) Error() string { return e.Msg }

// StateConflict creates a StateConflictError with a formatted message.
func StateConflict(format string, args ...interface{}) error {
	return &StateConflictError{Msg: fmt.Sprintf(format, args...)}
}

// UnauthorizedError marks failed credential checks.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string { return e.Msg }

// Unauthorized creates an UnauthorizedError.
func Unauthorized(msg string) error {
	return &UnauthorizedError{Msg: msg}
}

// ForbiddenError marks an authenticated caller lacking the required role
// or account state.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

// Forbidden creates a ForbiddenError.
func Forbidden(msg string) error {
	return &ForbiddenError{Msg: msg}
}

// HTTPStatus maps an application error to its HTTP status code. Unknown
// errors map to 500; their detail must stay server-side.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		sc *StateConflictError
		ue *UnauthorizedError
		fe *ForbiddenError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &sc):
		return http.StatusBadRequest
	case errors.As(err, &ue):
		return http.StatusUnauthorized
	case errors.As(err, &fe):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether the error should be surfaced verbatim to
// the caller rather than elided as an internal failure.
func IsClientError(err error) bool {
	return HTTPStatus(err) != http.StatusInternalServerError
}

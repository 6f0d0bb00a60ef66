package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrDemonNotFound     = errors.New("demon not found")
	ErrRecordNotFound    = errors.New("record not found")
	ErrPackNotFound      = errors.New("pack not found")
	ErrPackLevelNotFound = errors.New("level is not part of this pack")
	ErrUserNotFound      = errors.New("user not found")

	ErrUsernameTaken     = errors.New("username already taken")
	ErrPositionTaken     = errors.New("position already taken in this list")
	ErrInvalidTransition = errors.New("record has already been reviewed")

	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrSubmissionClosed = errors.New("submissions are not accepted for challenge list positions beyond 100")

	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalError  = errors.New("internal server error")
)

// ValidationError describes a rejected input field. It matches ErrInvalidRequest.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports ErrInvalidRequest as a match so callers can test the category.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// Invalid builds a ValidationError for the given field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrDemonNotFound) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrPackNotFound) ||
		errors.Is(err, ErrPackLevelNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflictError checks if an error is caused by conflicting state
func IsConflictError(err error) bool {
	return errors.Is(err, ErrUsernameTaken) ||
		errors.Is(err, ErrPositionTaken) ||
		errors.Is(err, ErrInvalidTransition)
}

package services

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidAPIKey is returned for unknown keys and keys of inactive clients alike
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrNotFound is returned when a resource does not exist within the caller's client
	ErrNotFound = errors.New("resource not found")

	// ErrShareTokenInvalid is returned for malformed, unknown, revoked and expired share tokens
	ErrShareTokenInvalid = errors.New("share token is invalid or expired")
)

// ValidationError reports rejected input
type ValidationError struct {
	Message string
	Errors  []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Errors, "; ")
}

func newValidationError(message string, errs ...string) error {
	return &ValidationError{Message: message, Errors: errs}
}

// Package apperr holds the error taxonomy shared by the store, the access
// gate and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both missing records and records outside the caller's scope.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is an authenticated caller with the wrong role.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated is a request without a valid identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError is a rejected input; Message is safe to show to the client.
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

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

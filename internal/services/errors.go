// Package services defines the business logic of the shipment tracker.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

// Lookup errors.
var (
	// ErrClientNotFound indicates that the requested client does not exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrOrderNotFound indicates that the requested order does not exist or
	// does not belong to the given client.
	ErrOrderNotFound = errors.New("order not found")
)

// Validation errors. They are wrapped in a *ValidationError naming the field.
var (
	ErrInvalidName     = errors.New("name is required and must be at most 120 characters")
	ErrInvalidEmail    = errors.New("email is not valid")
	ErrInvalidPhone    = errors.New("phone must contain at least 5 digits and only + - ( ) or spaces as separators")
	ErrInvalidOrder    = errors.New("order fields are invalid")
	ErrInvalidStatus   = errors.New("unknown shipping status")
	ErrInvalidSettings = errors.New("settings document is invalid")
)

var (
	// ErrTransitionRejected is returned when the transition policy refuses a
	// status change.
	ErrTransitionRejected = errors.New("status transition rejected")

	// ErrBackendUnavailable wraps persistence failures and timeouts. Callers
	// may retry.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// ValidationError reports which input field failed and why. Unwrap yields
// the field's sentinel error.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

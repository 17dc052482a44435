package domain

import "errors"

var (
	// ErrUnknownStatus is returned when a value is not a ShippingStatus.
	ErrUnknownStatus = errors.New("unknown shipping status")

	// ErrTransitionNotAllowed is returned by a restrictive TransitionPolicy.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
)

package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity or submission fails
	// validation. It is often wrapped with a more specific message.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when an operation is not permitted for
	// the calling user.
	ErrUnauthorized = errors.New("unauthorized operation")
)

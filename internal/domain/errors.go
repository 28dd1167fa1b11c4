// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is returned when a domain entity fails validation. The
// specific validation errors below wrap it, so errors.Is against
// ErrValidation matches any of them.
var ErrValidation = errors.New("validation failed")

var (
	// ErrInvalidEnumValue is returned when a status or priority value is
	// outside the enumerated set. Unknown values are a validation failure,
	// never a silent default.
	ErrInvalidEnumValue = fmt.Errorf("%w: invalid enum value", ErrValidation)

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = fmt.Errorf("%w: invalid email format", ErrValidation)

	// ErrEmptyTitle is returned when a task is created without a title.
	ErrEmptyTitle = fmt.Errorf("%w: title cannot be empty", ErrValidation)

	// ErrNegativeHours is returned when a time entry records negative hours.
	ErrNegativeHours = fmt.Errorf("%w: hours cannot be negative", ErrValidation)
)

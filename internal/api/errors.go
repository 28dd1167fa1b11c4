package api

import (
	"errors"
	"net/http"

	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/service"
	"github.com/taskstream/taskstream/internal/service/auth"
	"github.com/taskstream/taskstream/internal/service/userdir"
	"github.com/taskstream/taskstream/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes. Keeping
// the mapping in one place prevents handlers from leaking internal error
// types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrTaskAccessDenied):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, userdir.ErrUserNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// A dependent service could not be reached
	case errors.Is(err, userdir.ErrUnavailable):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for err.
// Internal details stay in the logs.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid email or password"

	case errors.Is(err, service.ErrTaskAccessDenied):
		return "You do not have access to this task"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, userdir.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrTimeEntryNotFound):
		return "Time entry not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, domain.ErrInvalidEnumValue):
		return "Invalid status or priority value"

	case errors.Is(err, domain.ErrValidation):
		return "Invalid request data"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, userdir.ErrUnavailable):
		return "A dependent service is unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// Package service implements the task authority's business operations.
package service

import "errors"

// Service-level errors surfaced to the API layer. Not-found and
// access-denied outcomes stay distinct so callers can tell "retry with a
// different id" from "retry after acquiring permission".
var (
	// ErrTaskAccessDenied is returned when the requesting identity is
	// neither the task's author nor holder of an elevated role.
	ErrTaskAccessDenied = errors.New("task access denied")
)

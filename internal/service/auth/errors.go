package auth

import "errors"

// Common authentication service errors.
var (
	// ErrInvalidToken indicates the token is malformed or its signature
	// does not verify.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token's expiry has passed.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrMissingToken indicates a token was expected but not provided.
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrInvalidCredentials indicates a login attempt with a wrong email
	// or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

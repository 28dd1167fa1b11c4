// Package auth implements token issuing and validation for the token
// service, plus credential hashing.
package auth

import (
	"context"
	"time"
)

// JWTService defines operations for issuing and verifying identity tokens.
type JWTService interface {
	// GenerateToken creates a signed, time-bound token whose subject is
	// the principal's email handle.
	GenerateToken(ctx context.Context, email string) (string, error)

	// ValidateToken verifies the token's signature and expiry and returns
	// its claims. Fails with ErrInvalidToken on signature or structure
	// problems and ErrExpiredToken when the token has lapsed.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims carries the verified content of an identity token.
type Claims struct {
	// Subject is the email handle of the principal the token was issued for.
	Subject string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

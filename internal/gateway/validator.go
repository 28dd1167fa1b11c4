package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Validator errors. Anything that is not ErrTokenRejected means the
// check itself could not run; callers must fail closed either way.
var (
	// ErrTokenRejected indicates the token service examined the token
	// and turned it down.
	ErrTokenRejected = errors.New("token rejected")

	// ErrValidatorUnavailable indicates the token service could not be
	// reached or answered abnormally.
	ErrValidatorUnavailable = errors.New("token validation service unavailable")
)

// Identity is the principal a validated token belongs to.
type Identity struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

// TokenValidator checks a bearer token and resolves the identity behind
// it.
type TokenValidator interface {
	// Validate returns the token's identity, ErrTokenRejected when the
	// token does not verify, or ErrValidatorUnavailable when the check
	// could not be performed.
	Validate(ctx context.Context, token string) (*Identity, error)
}

// HTTPTokenValidator validates tokens by calling the token service's
// validation endpoint.
type HTTPTokenValidator struct {
	baseURL string
	client  *http.Client
}

var _ TokenValidator = (*HTTPTokenValidator)(nil)

// NewHTTPTokenValidator creates a validator that calls the token service
// at baseURL.
func NewHTTPTokenValidator(baseURL string) *HTTPTokenValidator {
	return &HTTPTokenValidator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Validate implements TokenValidator.
func (v *HTTPTokenValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	endpoint := v.baseURL + "/auth/validateToken?token=" + url.QueryEscape(token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidatorUnavailable, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidatorUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		var identity Identity
		if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
			return nil, fmt.Errorf("%w: decoding response: %v", ErrValidatorUnavailable, err)
		}
		if identity.Email == "" {
			return nil, fmt.Errorf("%w: empty identity", ErrTokenRejected)
		}
		return &identity, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrTokenRejected

	default:
		return nil, fmt.Errorf(
			"%w: unexpected status %d", ErrValidatorUnavailable, resp.StatusCode)
	}
}

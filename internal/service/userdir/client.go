// Package userdir resolves identity handles against the token service's
// user directory over HTTP.
package userdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Lookup failures, distinguished so callers can tell "no such principal"
// from "directory unreachable".
var (
	// ErrUserNotFound indicates the handle or ID resolves to no stored
	// identity.
	ErrUserNotFound = errors.New("user not found in directory")

	// ErrUnavailable indicates the directory could not be reached or
	// answered with an unexpected status.
	ErrUnavailable = errors.New("user directory unavailable")
)

// Identity is a resolved principal: the stable integer ID plus the email
// handle it was resolved from.
type Identity struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

// Directory resolves identity handles to stable IDs and fetches role
// sets. The task authority consults it synchronously per request; roles
// are never cached, so a revocation takes effect immediately.
type Directory interface {
	// GetByEmail resolves an email handle to an identity.
	GetByEmail(ctx context.Context, email string) (*Identity, error)

	// GetByID resolves a stable ID to an identity.
	GetByID(ctx context.Context, id int) (*Identity, error)

	// Roles fetches the role tags assigned to the principal.
	Roles(ctx context.Context, email string) ([]string, error)
}

// Client is the HTTP implementation of Directory, speaking to the token
// service's /user endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// Ensure Client implements Directory interface
var _ Directory = (*Client)(nil)

// NewClient creates a directory client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// GetByEmail implements Directory.GetByEmail.
func (c *Client) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	var identity Identity
	if err := c.getJSON(ctx, "/user/"+url.PathEscape(email), &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// GetByID implements Directory.GetByID.
func (c *Client) GetByID(ctx context.Context, id int) (*Identity, error) {
	var identity Identity
	if err := c.getJSON(ctx, "/user/id/"+strconv.Itoa(id), &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Roles implements Directory.Roles.
func (c *Client) Roles(ctx context.Context, email string) ([]string, error) {
	var roles []string
	if err := c.getJSON(ctx, "/user/"+url.PathEscape(email)+"/roles", &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build directory request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: malformed directory response: %v", ErrUnavailable, err)
		}
		return nil
	case http.StatusNotFound:
		return ErrUserNotFound
	default:
		return fmt.Errorf("%w: directory answered %d", ErrUnavailable, resp.StatusCode)
	}
}

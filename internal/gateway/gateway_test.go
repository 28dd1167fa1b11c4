package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskstream/taskstream/internal/api/middleware"
	"github.com/taskstream/taskstream/internal/config"
)

// stubValidator accepts a single known token.
type stubValidator struct {
	token    string
	identity Identity
	err      error
}

func (v *stubValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if v.err != nil {
		return nil, v.err
	}
	if token != v.token {
		return nil, ErrTokenRejected
	}
	id := v.identity
	return &id, nil
}

// echoBackend records the headers it received and answers 200.
type echoBackend struct {
	lastEmail  string
	lastAuth   string
	lastPath   string
	hitCounter int
}

func (b *echoBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hitCounter++
		b.lastEmail = r.Header.Get(middleware.UserEmailHeader)
		b.lastAuth = r.Header.Get("Authorization")
		b.lastPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

type fixture struct {
	gateway *httptest.Server
	auth    *echoBackend
	task    *echoBackend
	stat    *echoBackend
}

func newFixture(t *testing.T, validator TokenValidator) *fixture {
	t.Helper()

	f := &fixture{auth: &echoBackend{}, task: &echoBackend{}, stat: &echoBackend{}}

	authSrv := httptest.NewServer(f.auth.handler())
	t.Cleanup(authSrv.Close)
	taskSrv := httptest.NewServer(f.task.handler())
	t.Cleanup(taskSrv.Close)
	statSrv := httptest.NewServer(f.stat.handler())
	t.Cleanup(statSrv.Close)

	gw, err := New(config.GatewayConfig{
		AuthServiceURL: authSrv.URL,
		TaskServiceURL: taskSrv.URL,
		StatServiceURL: statSrv.URL,
		OpenRoutes:     []string{"/auth/register", "/auth/token", "/health"},
	}, validator, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	f.gateway = httptest.NewServer(gw.Handler())
	t.Cleanup(f.gateway.Close)
	return f
}

func get(t *testing.T, url string, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestOpenRoutesBypassAuthentication(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubValidator{token: "good"})

	resp, err := http.Post(f.gateway.URL+"/auth/register", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, f.auth.hitCounter)
	assert.Equal(t, "/auth/register", f.auth.lastPath)
}

func TestHealthServedLocally(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubValidator{token: "good"})

	resp := get(t, f.gateway.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, f.auth.hitCounter)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubValidator{token: "good"})

	t.Run("missing header", func(t *testing.T) {
		resp := get(t, f.gateway.URL+"/api/v1/tasks", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, body(t, resp), "Authorization header required")
	})

	t.Run("malformed header", func(t *testing.T) {
		resp := get(t, f.gateway.URL+"/api/v1/tasks",
			map[string]string{"Authorization": "Basic dXNlcjpwYXNz"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, body(t, resp), "Invalid authorization format")
	})

	t.Run("rejected token", func(t *testing.T) {
		resp := get(t, f.gateway.URL+"/api/v1/tasks",
			map[string]string{"Authorization": "Bearer bad"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, body(t, resp), "Invalid token")
	})

	assert.Zero(t, f.task.hitCounter, "no rejected request may reach the backend")
}

func TestValidTokenForwardsIdentity(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubValidator{
		token:    "good",
		identity: Identity{ID: 42, Email: "alice@example.com"},
	})

	resp := get(t, f.gateway.URL+"/api/v1/tasks/7",
		map[string]string{"Authorization": "Bearer good"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", f.task.lastEmail)
	assert.Equal(t, "Bearer good", f.task.lastAuth, "token travels on to the backend")
	assert.Equal(t, "/api/v1/tasks/7", f.task.lastPath)
}

func TestSpoofedIdentityHeaderIsStripped(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubValidator{
		token:    "good",
		identity: Identity{ID: 42, Email: "alice@example.com"},
	})

	t.Run("on protected routes the validated identity wins", func(t *testing.T) {
		resp := get(t, f.gateway.URL+"/api/v1/tasks",
			map[string]string{
				"Authorization":            "Bearer good",
				middleware.UserEmailHeader: "admin@example.com",
			})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "alice@example.com", f.task.lastEmail)
	})

	t.Run("on open routes the header is dropped entirely", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, f.gateway.URL+"/auth/register", nil)
		require.NoError(t, err)
		req.Header.Set(middleware.UserEmailHeader, "admin@example.com")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, f.auth.lastEmail)
	})
}

func TestValidatorOutageFailsClosed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubValidator{err: ErrValidatorUnavailable})

	resp := get(t, f.gateway.URL+"/api/v1/tasks",
		map[string]string{"Authorization": "Bearer good"})

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Zero(t, f.task.hitCounter)
}

func TestStatisticsRouting(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubValidator{
		token:    "good",
		identity: Identity{ID: 42, Email: "alice@example.com"},
	})

	resp := get(t, f.gateway.URL+"/api/v1/statistics/tasks/status",
		map[string]string{"Authorization": "Bearer good"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, f.stat.hitCounter)
	assert.Zero(t, f.task.hitCounter)
}

func TestOpenRouteMatchingIsAnchored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubValidator{token: "good"})

	// A protected path that merely shares a prefix with an open route
	// must still require a token.
	resp := get(t, f.gateway.URL+"/auth/validateToken", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, f.auth.hitCounter)
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestHTTPTokenValidator(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/validateToken", r.URL.Path)
			require.Equal(t, "tok-1", r.URL.Query().Get("token"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(Identity{ID: 7, Email: "bob@example.com"})
		}))
		defer srv.Close()

		identity, err := NewHTTPTokenValidator(srv.URL).Validate(context.Background(), "tok-1")
		require.NoError(t, err)
		assert.Equal(t, 7, identity.ID)
		assert.Equal(t, "bob@example.com", identity.Email)
	})

	t.Run("maps 401 to rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := NewHTTPTokenValidator(srv.URL).Validate(context.Background(), "tok-1")
		assert.ErrorIs(t, err, ErrTokenRejected)
	})

	t.Run("maps server errors to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewHTTPTokenValidator(srv.URL).Validate(context.Background(), "tok-1")
		assert.ErrorIs(t, err, ErrValidatorUnavailable)
	})

	t.Run("maps transport failure to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		_, err := NewHTTPTokenValidator(srv.URL).Validate(context.Background(), "tok-1")
		assert.ErrorIs(t, err, ErrValidatorUnavailable)
	})
}

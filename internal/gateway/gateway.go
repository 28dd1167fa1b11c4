// Package gateway implements the authorization gateway: the single entry
// point that validates bearer tokens, stamps the trusted identity header
// and forwards requests to the backend services.
package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskstream/taskstream/internal/api/middleware"
	"github.com/taskstream/taskstream/internal/api/shared"
	"github.com/taskstream/taskstream/internal/config"
)

// Gateway routes authenticated traffic to the backend services. Routes
// on the open list pass through without a token; everything else needs
// a bearer token the token service accepts.
type Gateway struct {
	validator  TokenValidator
	openRoutes []string
	logger     *slog.Logger

	authProxy *httputil.ReverseProxy
	taskProxy *httputil.ReverseProxy
	statProxy *httputil.ReverseProxy
}

// New creates a Gateway from configuration. All three backend URLs must
// parse.
func New(cfg config.GatewayConfig, validator TokenValidator, logger *slog.Logger) (*Gateway, error) {
	authProxy, err := newProxy(cfg.AuthServiceURL, logger)
	if err != nil {
		return nil, fmt.Errorf("auth service URL: %w", err)
	}
	taskProxy, err := newProxy(cfg.TaskServiceURL, logger)
	if err != nil {
		return nil, fmt.Errorf("task service URL: %w", err)
	}
	statProxy, err := newProxy(cfg.StatServiceURL, logger)
	if err != nil {
		return nil, fmt.Errorf("stat service URL: %w", err)
	}

	return &Gateway{
		validator:  validator,
		openRoutes: cfg.OpenRoutes,
		logger:     logger,
		authProxy:  authProxy,
		taskProxy:  taskProxy,
		statProxy:  statProxy,
	}, nil
}

func newProxy(rawURL string, logger *slog.Logger) (*httputil.ReverseProxy, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("backend unreachable",
			slog.String("backend", target.String()),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadGateway, "Backend service unavailable")
	}
	return proxy, nil
}

// Handler builds the gateway's router.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Trace)
	r.Use(g.authenticate)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		shared.RespondWithJSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/auth/*", g.authProxy)
	r.Handle("/user/*", g.authProxy)
	r.Handle("/api/v1/tasks", g.taskProxy)
	r.Handle("/api/v1/tasks/*", g.taskProxy)
	r.Handle("/api/v1/statistics/*", g.statProxy)

	return r
}

// isOpenRoute reports whether the path is on the allow-list. Matching is
// by path prefix so routes like /auth/token cover trailing slashes.
func (g *Gateway) isOpenRoute(path string) bool {
	for _, route := range g.openRoutes {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

// authenticate is the interception chain applied to every request. The
// client-supplied identity header is dropped unconditionally; only the
// gateway may assert identity to the backends.
func (g *Gateway) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(middleware.UserEmailHeader)

		if g.isOpenRoute(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(
				w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(
				w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		identity, err := g.validator.Validate(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, ErrTokenRejected) {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}
			g.logger.Error("token validation unavailable",
				slog.String("trace_id", shared.GetTraceID(r.Context())),
				slog.String("error", err.Error()))
			shared.RespondWithError(
				w, r, http.StatusServiceUnavailable, "Authorization unavailable")
			return
		}

		r.Header.Set(middleware.UserEmailHeader, identity.Email)
		next.ServeHTTP(w, r)
	})
}

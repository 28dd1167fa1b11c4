// Package middleware contains HTTP middleware shared by the backend
// services: trace ID injection and trusted identity extraction.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/taskstream/taskstream/internal/api/shared"
)

// Trace adds a trace ID to the request context. Apply it early so every
// downstream handler and error response carries the same ID.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())

		slog.Debug("request started",
			slog.String("trace_id", shared.GetTraceID(ctx)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package shared

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for values stored in request contexts by this
// package and the middleware built on it.
type ContextKey string

const (
	// UserEmailContextKey holds the authenticated caller's email, as
	// asserted by the gateway's trusted identity header.
	UserEmailContextKey ContextKey = "userEmail"

	// TraceIDKey holds the per-request trace ID.
	TraceIDKey ContextKey = "traceID"
)

// SetTraceID stores a freshly generated trace ID in the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, uuid.NewString())
}

// GetTraceID returns the trace ID from the context, or "" when absent.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// WithUserEmail stores the authenticated caller's email in the context.
func WithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, UserEmailContextKey, email)
}

// UserEmail returns the authenticated caller's email from the context and
// whether one was set.
func UserEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailContextKey).(string)
	return email, ok && email != ""
}

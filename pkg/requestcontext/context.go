// Package requestcontext provides transport-independent context accessors for
// request-scoped values.
//
// The façade reads "now" from the context when one is set, so that one event,
// HTTP request or CLI command sees a single consistent timestamp, and tests can
// pin time:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	now, ok := requestcontext.TimeFrom(ctx)
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// TimeFrom returns the request-scoped time if one was injected.
func TimeFrom(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(ContextKeyRequestTime).(time.Time)
	return t, ok
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Unit tests that need deterministic TTL and expiration checks
//   - Event handlers that must use the event's own timestamp
//   - CLI commands
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// Package requestcontext carries request-scoped values (correlation id,
// authenticated caller) through context.Context.
package requestcontext

import (
	"context"
	"net/http"
	"time"
)

type (
	requestIDKey struct{}
	callerKey    struct{}
)

// WithRequestID stores the request correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request correlation id, or "".
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithCaller stores the authenticated caller identity (JWT subject).
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Caller returns the authenticated caller identity, or "".
func Caller(ctx context.Context) string {
	if v, ok := ctx.Value(callerKey{}).(string); ok {
		return v
	}
	return ""
}

type requestTimeKey struct{}

// WithTime pins the request-scoped "now". Workers and tests use it to get
// consistent timestamps outside the HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the request-scoped time, falling back to time.Now.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// TimeMiddleware captures the request start time once so every timestamp
// written while serving the request agrees.
func TimeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithTime(r.Context(), time.Now())))
	})
}

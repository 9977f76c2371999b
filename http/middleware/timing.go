package middleware

import (
	"context"
	"net/http"
	"time"
)

type timingContextKey struct{}

// TimingMiddleware records request start time for calculating processing duration
func TimingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithStartTime(r.Context(), time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithStartTime stores the request start time in ctx.
func WithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timingContextKey{}, t)
}

// GetRequestDuration returns milliseconds since the request started, or 0
// outside TimingMiddleware.
func GetRequestDuration(ctx context.Context) int64 {
	if startTime, ok := ctx.Value(timingContextKey{}).(time.Time); ok {
		return time.Since(startTime).Milliseconds()
	}
	return 0
}

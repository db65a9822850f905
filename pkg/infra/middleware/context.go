// Package middleware provides the gin middleware chain of the casegen HTTP server.
package middleware

import (
	"context"

	"github.com/kart-io/casegen/pkg/utils/id"
)

// HeaderXRequestID is the header carrying the request ID.
const HeaderXRequestID = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID returns the request ID from the context, or "" if none.
func GetRequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// GenerateRequestID returns a new ULID request ID.
func GenerateRequestID() string {
	return id.NewULID()
}

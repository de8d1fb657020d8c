// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by transport middleware and consumed by services. Keeping
// this package free of net/http lets workers and tests inject the same
// values without an HTTP request in play.
//
// Usage in services (read values):
//
//	firmID := requestcontext.FirmID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithFirmID(ctx, firmID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "lexgate/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	firmIDKey       struct{}
	userIDKey       struct{}
	sessionIDKey    struct{}
	clientIPKey     struct{}
	accessMethodKey struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
)

// FirmID retrieves the authenticated firm (tenant) ID from the context.
// Returns the zero value if not set.
func FirmID(ctx context.Context) id.FirmID {
	if firmID, ok := ctx.Value(firmIDKey{}).(id.FirmID); ok {
		return firmID
	}
	return id.FirmID{}
}

// WithFirmID injects a firm ID into the context.
func WithFirmID(ctx context.Context, firmID id.FirmID) context.Context {
	return context.WithValue(ctx, firmIDKey{}, firmID)
}

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// SessionID retrieves the session ID from the context.
func SessionID(ctx context.Context) id.SessionID {
	if sessionID, ok := ctx.Value(sessionIDKey{}).(id.SessionID); ok {
		return sessionID
	}
	return id.SessionID{}
}

// WithSessionID injects a session ID into the context.
func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects a client IP into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// AccessMethod retrieves how the caller reached the platform
// (web, mobile, api). Defaults to "api" when unset.
func AccessMethod(ctx context.Context) string {
	if m, ok := ctx.Value(accessMethodKey{}).(string); ok && m != "" {
		return m
	}
	return "api"
}

// WithAccessMethod injects the derived access method into the context.
func WithAccessMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, accessMethodKey{}, method)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, tests, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for workers that need a consistent time within a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

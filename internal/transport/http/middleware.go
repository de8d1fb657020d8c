package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"lexgate/internal/audit"
	"lexgate/internal/jwttoken"
	dErrors "lexgate/pkg/domain-errors"
	"lexgate/pkg/platform/httputil"
	"lexgate/pkg/requestcontext"
)

// RequestID attaches a correlation ID to every request, honoring one the
// caller already set so IDs survive proxy hops.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime pins one "now" for the whole request so domain timestamps
// and audit entries within a request agree.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientMetadata derives the client IP and access method from the request
// and stores both in the context for the audit trail.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithClientIP(ctx, clientIPFromRequest(r))
		ctx = requestcontext.WithAccessMethod(ctx, accessMethodFrom(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessMethodFrom buckets a User-Agent into the coarse access channels
// the audit log records.
func accessMethodFrom(ua string) string {
	if ua == "" {
		return "api"
	}
	parsed := useragent.New(ua)
	if parsed.Mobile() {
		return "mobile"
	}
	// The parser reports a browser "name" even for curl and SDK agents,
	// so require a rendering engine before calling it a browser.
	if engine, _ := parsed.Engine(); engine != "" && !parsed.Bot() {
		return "web"
	}
	return "api"
}

// clientIPFromRequest extracts the real client IP, handling proxies and
// load balancers in front of the service.
func clientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry is the original client; the rest are proxies.
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		// RemoteAddr is "ip:port" ("[::1]:port" for IPv6).
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}

// authAuditor is the slice of the audit ledger the auth middleware needs.
type authAuditor interface {
	Append(ctx context.Context, rec audit.Record) (audit.Entry, error)
}

// RequireAuth validates the bearer token and populates the request context
// with the asserted identity.
//
// A failed validation is itself a security event: when the bad token still
// carries a parseable identity, the failure is attributed to that firm and
// user in the audit chain so repeated failures can trip the
// failed-authentication alert. Unattributable garbage is only logged.
func RequireAuth(tokens *jwttoken.Service, auditor authAuditor, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "missing bearer token",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			ident, err := tokens.Verify(token)
			if err != nil {
				logger.WarnContext(ctx, "token rejected",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				auditAuthFailure(ctx, tokens, auditor, token, err, logger)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithFirmID(ctx, ident.FirmID)
			ctx = requestcontext.WithUserID(ctx, ident.UserID)
			ctx = requestcontext.WithSessionID(ctx, ident.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// auditAuthFailure records a failed authentication attempt against the
// identity the rejected token claimed. The claims are unverified; they are
// used for attribution only, never authorization.
func auditAuthFailure(ctx context.Context, tokens *jwttoken.Service, auditor authAuditor, token string, cause error, logger *slog.Logger) {
	ident, err := tokens.UnverifiedIdentity(token)
	if err != nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	ctx = requestcontext.WithFirmID(ctx, ident.FirmID)
	ctx = requestcontext.WithUserID(ctx, ident.UserID)
	ctx = requestcontext.WithSessionID(ctx, ident.SessionID)

	reason := "invalid token"
	var domainErr *dErrors.Error
	if errors.As(cause, &domainErr) {
		reason = domainErr.Message
	}

	_, err = auditor.Append(ctx, audit.Record{
		Action:       audit.ActionUserAuthenticated,
		ResourceType: "session",
		ResourceID:   ident.UserID.String(),
		Success:      false,
		Metadata:     audit.AuthMetadata{Method: "jwt", Reason: reason},
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to audit authentication failure",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

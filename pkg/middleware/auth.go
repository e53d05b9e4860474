package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

type contextKeyType string

const (
	claimsKey  contextKeyType = "claims"
	sessionKey contextKeyType = "session_id"
)

// Claims are the authenticated caller's identity.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// Auth rejects requests without a valid bearer token and stores the claims
// in the request context. The request-scoped logger gains the user ID.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing or malformed bearer token"), nil)
				return
			}

			claims, err := validate(strings.TrimSpace(token))
			if err != nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), nil)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = logger.WithUserID(ctx, claims.UserID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", claims.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not listed.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), nil)
				return
			}
			if !slices.Contains(roles, claims.Role) {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient permissions"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects requests without an X-Session-ID header and stores
// the session ID for SessionIDFromContext.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := strings.TrimSpace(r.Header.Get(HeaderSessionID))
		if sid == "" {
			httputil.WriteError(w, r, apperrors.Validation("SESSION_REQUIRED", HeaderSessionID+" header is required"), nil)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sid)
		ctx = logger.WithSessionID(ctx, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the claims stored by Auth, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// UserIDFromContext returns the authenticated user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}

// SessionIDFromContext returns the session ID stored by RequireSession, or "".
func SessionIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey).(string)
	return s
}

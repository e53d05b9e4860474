package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/logger"
)

// RequestLogger stores a request-scoped logger, enriched with the
// correlation, session and trace identifiers present in the context, for
// logger.FromContext. Mount it after RequestLogging and Tracing; Auth adds
// the user ID on authenticated groups.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.NewContext(r.Context(), logger.WithContext(r.Context(), base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/GwangCheonLee/authcore/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, user_id, trace_id, and span_id where available. Handlers
// retrieve it with logger.FromContext.
//
// Mount after RequestLogging and Tracing so the correlation ID and span
// context exist by the time the logger is built. The user ID comes from the
// access guard via WithUserID, with the X-User-ID header as a fallback for
// internal calls that bypass the guard.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID == "" {
				userID = r.Header.Get("X-User-ID")
			}
			if userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			enriched := logger.WithContext(ctx, base)
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, enriched)))
		})
	}
}

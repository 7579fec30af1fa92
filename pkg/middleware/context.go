package middleware

import "context"

type contextKey string

const userIDKey contextKey = "user_id"

// WithUserID returns a new context carrying the authenticated user's ID.
// The access guard sets this after verifying the bearer token so the
// RequestLogger middleware can enrich log lines with user_id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the authenticated user's ID from the context,
// returning an empty string if none is set.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// Package userctx carries the authenticated owner's user id through a
// request context. Every meal, profile, session and report is scoped by this
// id; handlers read it instead of trusting anything in the request body.
package userctx

import "context"

type contextKey string

const userIDContextKey contextKey = "user_id"

// WithUserID returns a context carrying the owner's user id. The auth
// middleware calls this after verifying the Bearer token.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// GetUserID extracts the owner's user id. ok is false on unauthenticated
// requests; handlers answer those with 401.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

package httpx

import "context"

type ctxKey string

const (
	// CtxKeyUserID holds the authenticated subject's ID (string).
	CtxKeyUserID ctxKey = "user_id"
	// CtxKeyRole holds the authenticated subject's role (string).
	CtxKeyRole ctxKey = "role"
)

// UserIDFromCtx returns the authenticated user ID, or "" when unauthenticated.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// RoleFromCtx returns the authenticated role, or "" when unauthenticated.
func RoleFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyRole).(string); ok {
		return v
	}
	return ""
}

// ContextWithIdentity attaches the resolved identity for downstream handlers.
func ContextWithIdentity(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	return context.WithValue(ctx, CtxKeyRole, role)
}

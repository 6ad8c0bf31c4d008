package userctx

import "context"

type contextKey string

const (
	userIDContextKey contextKey = "user_id"
	roleContextKey   contextKey = "role"
)

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok && userID != ""
}

// WithRole stores the caller's role (member, coach, admin).
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleContextKey, role)
}

// GetRole returns the caller's role or "" when none was attached.
func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(roleContextKey).(string)
	return role
}

// IsAdmin reports whether the caller acts with the admin role.
func IsAdmin(ctx context.Context) bool {
	return GetRole(ctx) == "admin"
}

// CanAuthor reports whether the caller may publish system content (coach or admin).
func CanAuthor(ctx context.Context) bool {
	role := GetRole(ctx)
	return role == "coach" || role == "admin"
}

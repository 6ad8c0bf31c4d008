package auth

import (
	"context"

	"github.com/fdg312/fitclub/internal/userctx"
)

// WithIdentity кладёт в контекст subject и роль из проверенного токена.
func WithIdentity(ctx context.Context, claims *Claims) context.Context {
	ctx = userctx.WithUserID(ctx, claims.Subject)
	return userctx.WithRole(ctx, claims.Role)
}

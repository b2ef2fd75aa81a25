package auth

import (
	"context"

	"github.com/dukerupert/magiclink/internal/model"
)

type contextKey struct{}

type AuthContext struct {
	User      *model.User
	SessionID string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok && ac.User != nil
}

func User(ctx context.Context) *model.User {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return ac.User
}

func UserID(ctx context.Context) string {
	if u := User(ctx); u != nil {
		return u.ID
	}
	return ""
}

func SessionID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.SessionID
}

func IsAdmin(ctx context.Context) bool {
	u := User(ctx)
	return u != nil && u.Role == model.RoleAdmin
}

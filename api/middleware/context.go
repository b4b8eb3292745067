package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/types"
)

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxRole        contextKey = "actor_role"
	ctxEmail       contextKey = "actor_email"
	ctxCartSession contextKey = "cart_session"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext rebuilds the authenticated actor. ok is false for anonymous requests.
func ActorFromContext(ctx context.Context) (types.Actor, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil || id == uuid.Nil {
		return types.Actor{}, false
	}
	email, _ := ctx.Value(ctxEmail).(string)
	return types.Actor{
		UserID: id,
		Email:  email,
		Role:   enums.UserRole(RoleFromContext(ctx)),
	}, true
}

func CartSessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCartSession).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the actor into the context.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, actor.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(actor.Role))
	return context.WithValue(ctx, ctxEmail, actor.Email)
}

// WithCartSession injects the anonymous cart token into the context.
func WithCartSession(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCartSession, token)
}

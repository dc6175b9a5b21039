package authctx

import (
	"context"

	"lokasi-umkm-backend/internal/domain"
)

type contextKey string

const actorContextKey contextKey = "actor"

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// Actor returns the authenticated caller, or the anonymous zero value.
func Actor(ctx context.Context) domain.Actor {
	val, _ := ctx.Value(actorContextKey).(domain.Actor)
	return val
}

package middleware

import (
	"context"

	"github.com/gosuda/taskhub/internal/domain"
)

type contextKey string

const ContextKeyActor contextKey = "actor"

// WithActor returns a copy of ctx carrying the authenticated actor.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	v, ok := ctx.Value(ContextKeyActor).(domain.Actor)
	return v, ok
}

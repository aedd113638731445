package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/surplusx-backend/pkg/auth"
)

type actorKey struct{}

// ActorFromContext returns the authenticated actor, or the zero Actor when
// the request did not pass through Auth.
func ActorFromContext(ctx context.Context) auth.Actor {
	if ctx == nil {
		return auth.Actor{}
	}
	actor, _ := ctx.Value(actorKey{}).(auth.Actor)
	return actor
}

func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// RequestIDFromContext returns the id assigned by RequestID, or "". The id
// lives under chi's key so chi helpers and the error envelope see it too.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return chimw.GetReqID(ctx)
}

package httpapi

import (
	"context"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
)

type playerKey struct{}

func WithPlayer(ctx context.Context, p domain.Player) context.Context {
	return context.WithValue(ctx, playerKey{}, p)
}

func PlayerFromContext(ctx context.Context) (domain.Player, bool) {
	p, ok := ctx.Value(playerKey{}).(domain.Player)
	return p, ok && p.ID != ""
}

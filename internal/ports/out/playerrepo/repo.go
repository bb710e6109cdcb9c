package playerrepo

import (
	"context"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
)

// Player is the persistence shape used by the player repository. It is an
// internal record, not an HTTP DTO.
type Player struct {
	ID domain.PlayerID

	Provider        domain.Provider
	ProviderAccount domain.ProviderAccountID

	Name       string
	CustomName *string
	AvatarURL  *string

	IsBanned bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Domain converts the record to the domain player shape.
func (p Player) Domain() domain.Player {
	return domain.Player{
		ID:              p.ID,
		Provider:        p.Provider,
		ProviderAccount: p.ProviderAccount,
		Name:            p.Name,
		CustomName:      p.CustomName,
		AvatarURL:       p.AvatarURL,
		IsBanned:        p.IsBanned,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// Repository provides access to persisted players.
//
// Result ordering expectations: List returns players ordered by effective
// display name (case-insensitive), then id, to keep behavior deterministic.
type Repository interface {
	Create(ctx context.Context, p Player) error
	Update(ctx context.Context, p Player) error

	GetByID(ctx context.Context, id domain.PlayerID) (Player, error)

	// GetByProviderAccount resolves the player bound to an identity-provider
	// account (e.g. a Discord user pressing an RSVP button).
	GetByProviderAccount(ctx context.Context, provider domain.Provider, account domain.ProviderAccountID) (Player, error)

	List(ctx context.Context) ([]Player, error)
}

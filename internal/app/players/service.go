package players

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/clock"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
)

// UpdatePlayerInput is an admin patch. CustomName is tri-state: unspecified
// leaves the name alone, explicit null clears it, a value replaces it.
type UpdatePlayerInput struct {
	CustomName nullable.Nullable[string]
	Banned     *bool
}

// Service owns player provisioning and admin maintenance. Identity itself is
// handled upstream; this service only sees already-verified provider
// accounts.
type Service struct {
	players playerrepo.Repository
	clk     clock.Clock
	isAdmin func(domain.PlayerID) bool

	newID func() domain.PlayerID
}

func NewService(players playerrepo.Repository, clk clock.Clock, isAdmin func(domain.PlayerID) bool) *Service {
	return &Service{
		players: players,
		clk:     clk,
		isAdmin: isAdmin,
		newID:   func() domain.PlayerID { return domain.PlayerID(uuid.NewString()) },
	}
}

// Provision resolves the player bound to a verified provider account,
// creating one on first sight and refreshing the provider-supplied profile
// fields on every later call.
func (s *Service) Provision(ctx context.Context, provider domain.Provider, account domain.ProviderAccountID, name string, avatarURL *string) (playerrepo.Player, error) {
	if provider == "" || account == "" {
		return playerrepo.Player{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "missing provider identity"}
	}
	name = domain.NormalizeHumanName(name)

	p, err := s.players.GetByProviderAccount(ctx, provider, account)
	if err == nil {
		if p.Name != name || !equalPtr(p.AvatarURL, avatarURL) {
			p.Name = name
			p.AvatarURL = avatarURL
			p.UpdatedAt = s.clk.Now()
			if err := s.players.Update(ctx, p); err != nil {
				return playerrepo.Player{}, err
			}
		}
		return p, nil
	}
	if !errors.Is(err, playerrepo.ErrNotFound) {
		return playerrepo.Player{}, err
	}

	now := s.clk.Now()
	p = playerrepo.Player{
		ID:              s.newID(),
		Provider:        provider,
		ProviderAccount: account,
		Name:            name,
		AvatarURL:       avatarURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.players.Create(ctx, p); err != nil {
		// A concurrent first login for the same account can win the create;
		// fall back to the row it made.
		if errors.Is(err, playerrepo.ErrProviderAccountBound) {
			return s.players.GetByProviderAccount(ctx, provider, account)
		}
		return playerrepo.Player{}, err
	}
	return p, nil
}

// Get returns one player by id.
func (s *Service) Get(ctx context.Context, id domain.PlayerID) (playerrepo.Player, error) {
	p, err := s.players.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, playerrepo.ErrNotFound) {
			return playerrepo.Player{}, &Error{Status: 404, Code: "PLAYER_NOT_FOUND", Message: "player not found"}
		}
		return playerrepo.Player{}, err
	}
	return p, nil
}

// List returns all players ordered by display name.
func (s *Service) List(ctx context.Context) ([]playerrepo.Player, error) {
	return s.players.List(ctx)
}

// AdminUpdate renames or (un)bans a player. Only admins may call it.
func (s *Service) AdminUpdate(ctx context.Context, adminID, targetID domain.PlayerID, in UpdatePlayerInput) (playerrepo.Player, error) {
	if !s.isAdmin(adminID) {
		return playerrepo.Player{}, &Error{Status: 403, Code: "FORBIDDEN", Message: "admin privileges required"}
	}
	p, err := s.Get(ctx, targetID)
	if err != nil {
		return playerrepo.Player{}, err
	}

	changed := false
	if in.CustomName.IsSpecified() {
		if in.CustomName.IsNull() {
			p.CustomName = nil
		} else {
			name := domain.NormalizeHumanName(in.CustomName.MustGet())
			if name == "" {
				return playerrepo.Player{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "custom name cannot be blank"}
			}
			p.CustomName = &name
		}
		changed = true
	}
	if in.Banned != nil {
		p.IsBanned = *in.Banned
		changed = true
	}
	if !changed {
		return p, nil
	}

	p.UpdatedAt = s.clk.Now()
	if err := s.players.Update(ctx, p); err != nil {
		return playerrepo.Player{}, err
	}
	return p, nil
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

package callrepo

import (
	"context"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
)

// Call is the persistence shape of a scheduled match invitation.
type Call struct {
	ID        domain.CallID
	CreatorID domain.PlayerID

	Day       domain.Day
	StartHour int
	Location  string
	// DurationMinutes is 60 or 90; the occupied hour span is derived from it
	// (domain.OccupiedSlots).
	DurationMinutes int

	Price   *string
	Comment *string

	CreatedAt time.Time
}

// Repository provides access to persisted calls.
type Repository interface {
	Create(ctx context.Context, c Call) error

	GetByID(ctx context.Context, id domain.CallID) (Call, error)

	Delete(ctx context.Context, id domain.CallID) error

	// ListFrom returns calls with day >= from, ordered by day, startHour,
	// createdAt, then id for determinism.
	ListFrom(ctx context.Context, from domain.Day) ([]Call, error)
}

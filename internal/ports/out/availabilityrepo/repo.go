package availabilityrepo

import (
	"context"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
)

// Slot is the persistence shape of one availability record. It is not an
// HTTP DTO.
type Slot struct {
	PlayerID domain.PlayerID
	Day      domain.Day
	Hour     int

	// SourceCallID tags rows written by call auto-fill or accept-sync with
	// the originating call, so decline-sync and call deletion can reverse
	// exactly their own writes. nil means the player set the slot manually.
	SourceCallID *domain.CallID

	CreatedAt time.Time
}

// Domain converts the record to the engine's slot shape.
func (s Slot) Domain() domain.AvailabilitySlot {
	return domain.AvailabilitySlot{PlayerID: s.PlayerID, Day: s.Day, Hour: s.Hour}
}

// Repository provides access to persisted availability.
//
// Uniqueness invariant: at most one row per (player, day, hour). Upsert and
// Delete report whether they changed anything so callers can run detection
// only against real state transitions.
type Repository interface {
	// Upsert inserts the slot if absent. An existing row is left untouched
	// (including its SourceCallID). Returns true when a row was inserted.
	Upsert(ctx context.Context, s Slot) (bool, error)

	// Delete removes the (player, day, hour) row regardless of provenance.
	// Returns true when a row was removed.
	Delete(ctx context.Context, playerID domain.PlayerID, day domain.Day, hour int) (bool, error)

	// DeletePlayerSourced removes the player's rows tagged with the call and
	// returns the removed rows. Manually-set availability is never touched.
	DeletePlayerSourced(ctx context.Context, playerID domain.PlayerID, callID domain.CallID) ([]Slot, error)

	// DeleteSourced removes every player's rows tagged with the call and
	// returns the removed rows. Used when a call is deleted.
	DeleteSourced(ctx context.Context, callID domain.CallID) ([]Slot, error)

	// Exists reports whether the (player, day, hour) row is present.
	Exists(ctx context.Context, playerID domain.PlayerID, day domain.Day, hour int) (bool, error)

	// Count returns the number of distinct players available at (day, hour).
	Count(ctx context.Context, day domain.Day, hour int) (int, error)

	// ListRange returns all rows with from <= day <= to.
	ListRange(ctx context.Context, from, to domain.Day) ([]Slot, error)

	// ListDay returns all rows for one day.
	ListDay(ctx context.Context, day domain.Day) ([]Slot, error)
}

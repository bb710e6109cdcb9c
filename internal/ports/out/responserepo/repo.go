package responserepo

import (
	"context"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
)

type Status string

const (
	StatusAccepted Status = "ACCEPTED"
	StatusDeclined Status = "DECLINED"
)

// Response is one player's explicit RSVP to a call. At most one row exists
// per (call, player); upserts are last-write-wins with no history.
type Response struct {
	CallID   domain.CallID
	PlayerID domain.PlayerID

	Status    Status
	UpdatedAt time.Time
}

// Repository provides access to persisted call responses.
type Repository interface {
	// Get returns the response for (call, player). ErrNotFound if absent.
	Get(ctx context.Context, callID domain.CallID, playerID domain.PlayerID) (Response, error)

	// Upsert writes the response using last-write-wins semantics.
	Upsert(ctx context.Context, r Response) error

	// ListByCall returns all responses for a call, ordered by player id.
	ListByCall(ctx context.Context, callID domain.CallID) ([]Response, error)

	// DeleteByCall removes all responses for a call (call deletion cleanup).
	DeleteByCall(ctx context.Context, callID domain.CallID) error
}

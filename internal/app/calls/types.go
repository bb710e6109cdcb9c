package calls

import (
	"context"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
)

// Config carries the operating-hour bounds calls are validated against and
// the public app URL embedded in notifications.
type Config struct {
	FirstHour int
	LastHour  int
	AppURL    string
}

// AvailabilitySync is the slice of the availability service calls needs for
// RSVP side effects. Accepting fills the call's hour span; declining and call
// deletion remove only rows attributed to the call.
type AvailabilitySync interface {
	FillSpan(ctx context.Context, playerID domain.PlayerID, day domain.Day, hours []int, source domain.CallID) error
	ClearPlayerSourced(ctx context.Context, playerID domain.PlayerID, callID domain.CallID) error
	ClearAllSourced(ctx context.Context, callID domain.CallID) error
}

// CreateCallInput is the caller-supplied part of a new call.
type CreateCallInput struct {
	Day             domain.Day
	StartHour       int
	Location        string
	DurationMinutes int
	Price           *string
	Comment         *string
}

// Roster is the resolved attendee/absentee split for one call.
type Roster struct {
	Accepted []domain.PlayerSummary
	Declined []domain.PlayerSummary
}

// CallDetails is the read model for a call: the stored fields plus the
// resolved roster and the hour span the call occupies.
type CallDetails struct {
	ID        domain.CallID
	CreatorID domain.PlayerID
	Creator   domain.PlayerSummary

	Day             domain.Day
	StartHour       int
	Location        string
	DurationMinutes int
	SpanHours       []int

	Price   *string
	Comment *string

	Roster Roster
}

// RespondResult reports whether an RSVP actually changed stored state.
// Re-sending the same status is an idempotent no-op, not an error.
type RespondResult struct {
	Changed bool
	Status  string
}

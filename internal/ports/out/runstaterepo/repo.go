package runstaterepo

import (
	"context"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
)

// State records whether a confirmed-run notification has fired for the run
// starting at (day, startHour). Rows are never deleted; a broken run flips
// Notified back to false.
type State struct {
	Day       domain.Day
	StartHour int

	Notified  bool
	UpdatedAt time.Time
}

// Repository persists run notification state.
//
// MarkNotified and ClearNotified are atomic conditional updates: they report
// whether the stored value actually flipped, and only the caller that
// observed the flip sends the corresponding notification. This is what makes
// confirm and revoke at-most-once even under concurrent writers.
type Repository interface {
	// Get returns the state for (day, startHour). ErrNotFound if no row
	// exists yet (equivalent to Notified=false).
	Get(ctx context.Context, day domain.Day, startHour int) (State, error)

	// MarkNotified flips Notified false->true, creating the row if needed.
	// Returns true only when the value changed.
	MarkNotified(ctx context.Context, day domain.Day, startHour int, at time.Time) (bool, error)

	// ClearNotified flips Notified true->false. A missing row is already
	// unnotified, so nothing is created. Returns true only when the value
	// changed.
	ClearNotified(ctx context.Context, day domain.Day, startHour int, at time.Time) (bool, error)
}

package schedule

import "github.com/fivesquad/pickup-planner-api/internal/domain"

// Config holds the match-detection constants. They are deployment
// configuration, not domain truth: one installation confirms 3-hour runs,
// another 4-hour runs.
type Config struct {
	// Quorum is the minimum number of distinct players per hourly slot.
	Quorum int
	// RunLength is the number of consecutive full hours required to confirm
	// a match.
	RunLength int
	// FirstHour and LastHour bound the operating day (inclusive).
	FirstHour int
	LastHour  int
	// AppURL is linked from notifications.
	AppURL string
}

// SlotChange is one entry of a batch availability save.
type SlotChange struct {
	Day       domain.Day
	Hour      int
	Available bool
}

// ToggleResult reports what a toggle did.
type ToggleResult struct {
	Removed bool
}

// BatchResult reports how many batch entries changed stored state.
type BatchResult struct {
	Applied int
}

// SlotDetail is the per-slot aggregate exposed by the grid read model.
type SlotDetail struct {
	Players []domain.PlayerSummary
	Count   int
}

// Grid is the availability read model backing the planning view: the
// caller's own slots plus the aggregate for every populated slot in range.
type Grid struct {
	MySlots []domain.SlotKey
	Slots   map[domain.SlotKey]SlotDetail
}

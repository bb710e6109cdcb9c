package domain

import "sort"

// AvailabilitySlot is one (player, day, hour) availability record. The
// existence of a record means the player is available for that hour; at most
// one record exists per triple.
type AvailabilitySlot struct {
	PlayerID PlayerID
	Day      Day
	Hour     int
}

// SlotKey addresses one hourly slot on one calendar day.
type SlotKey struct {
	Day  Day
	Hour int
}

// SlotIndex maps (day, hour) pairs to the set of players available there.
// It is a pure snapshot transform: build it from a fresh read of the records
// it should reflect, never mutate it in place across writes.
type SlotIndex struct {
	users map[SlotKey]map[PlayerID]struct{}
}

// BuildSlotIndex groups availability records by (day, hour). Malformed hours
// are grouped opaquely; range validation is the caller's concern.
func BuildSlotIndex(records []AvailabilitySlot) *SlotIndex {
	idx := &SlotIndex{users: make(map[SlotKey]map[PlayerID]struct{}, len(records))}
	for _, rec := range records {
		k := SlotKey{Day: rec.Day, Hour: rec.Hour}
		set, ok := idx.users[k]
		if !ok {
			set = make(map[PlayerID]struct{})
			idx.users[k] = set
		}
		set[rec.PlayerID] = struct{}{}
	}
	return idx
}

// Count returns the number of distinct players available at (day, hour).
func (idx *SlotIndex) Count(day Day, hour int) int {
	return len(idx.users[SlotKey{Day: day, Hour: hour}])
}

// Users returns the players available at (day, hour), sorted for determinism.
func (idx *SlotIndex) Users(day Day, hour int) []PlayerID {
	set := idx.users[SlotKey{Day: day, Hour: hour}]
	out := make([]PlayerID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether the player is available at (day, hour).
func (idx *SlotIndex) Has(day Day, hour int, player PlayerID) bool {
	_, ok := idx.users[SlotKey{Day: day, Hour: hour}][player]
	return ok
}

// Days returns the distinct days present in the index, sorted ascending.
func (idx *SlotIndex) Days() []Day {
	seen := make(map[Day]struct{})
	for k := range idx.users {
		seen[k.Day] = struct{}{}
	}
	out := make([]Day, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Empty reports whether the index holds no records at all.
func (idx *SlotIndex) Empty() bool {
	return len(idx.users) == 0
}

package calls

import (
	"sort"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/responserepo"
)

// ResolveRoster merges explicit RSVP responses with implicit presence
// inferred from availability inside the call's hour span.
//
// A player is implicitly present only when available at every occupied hour,
// not just one. An explicit DECLINED response overrides implicit presence.
// The creator is always counted as present. Both result slices are sorted by
// player id.
func ResolveRoster(
	creatorID domain.PlayerID,
	spanHours []int,
	spanSlots []domain.AvailabilitySlot,
	responses []responserepo.Response,
) (accepted, declined []domain.PlayerID) {
	hoursByPlayer := make(map[domain.PlayerID]map[int]struct{})
	for _, s := range spanSlots {
		hs, ok := hoursByPlayer[s.PlayerID]
		if !ok {
			hs = make(map[int]struct{})
			hoursByPlayer[s.PlayerID] = hs
		}
		hs[s.Hour] = struct{}{}
	}

	in := make(map[domain.PlayerID]struct{})
	out := make(map[domain.PlayerID]struct{})

	for id, hs := range hoursByPlayer {
		if len(hs) == len(spanHours) {
			in[id] = struct{}{}
		}
	}
	in[creatorID] = struct{}{}

	for _, r := range responses {
		switch r.Status {
		case responserepo.StatusAccepted:
			in[r.PlayerID] = struct{}{}
		case responserepo.StatusDeclined:
			delete(in, r.PlayerID)
			out[r.PlayerID] = struct{}{}
		}
	}

	accepted = make([]domain.PlayerID, 0, len(in))
	for id := range in {
		accepted = append(accepted, id)
	}
	declined = make([]domain.PlayerID, 0, len(out))
	for id := range out {
		declined = append(declined, id)
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i] < accepted[j] })
	sort.Slice(declined, func(i, j int) bool { return declined[i] < declined[j] })
	return accepted, declined
}

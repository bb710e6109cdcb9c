package availabilityrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
)

type key struct {
	playerID domain.PlayerID
	day      domain.Day
	hour     int
}

// Repo is an in-memory implementation of availabilityrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex
	m  map[key]availabilityrepo.Slot
}

func NewRepo() *Repo {
	return &Repo{m: make(map[key]availabilityrepo.Slot)}
}

func (r *Repo) Upsert(ctx context.Context, s availabilityrepo.Slot) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{playerID: s.PlayerID, day: s.Day, hour: s.Hour}
	if _, ok := r.m[k]; ok {
		return false, nil
	}
	r.m[k] = cloneSlot(s)
	return true, nil
}

func (r *Repo) Delete(ctx context.Context, playerID domain.PlayerID, day domain.Day, hour int) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{playerID: playerID, day: day, hour: hour}
	if _, ok := r.m[k]; !ok {
		return false, nil
	}
	delete(r.m, k)
	return true, nil
}

func (r *Repo) DeletePlayerSourced(ctx context.Context, playerID domain.PlayerID, callID domain.CallID) ([]availabilityrepo.Slot, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []availabilityrepo.Slot
	for k, s := range r.m {
		if k.playerID != playerID || s.SourceCallID == nil || *s.SourceCallID != callID {
			continue
		}
		removed = append(removed, cloneSlot(s))
		delete(r.m, k)
	}
	sortSlots(removed)
	return removed, nil
}

func (r *Repo) DeleteSourced(ctx context.Context, callID domain.CallID) ([]availabilityrepo.Slot, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []availabilityrepo.Slot
	for k, s := range r.m {
		if s.SourceCallID == nil || *s.SourceCallID != callID {
			continue
		}
		removed = append(removed, cloneSlot(s))
		delete(r.m, k)
	}
	sortSlots(removed)
	return removed, nil
}

func (r *Repo) Exists(ctx context.Context, playerID domain.PlayerID, day domain.Day, hour int) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.m[key{playerID: playerID, day: day, hour: hour}]
	return ok, nil
}

func (r *Repo) Count(ctx context.Context, day domain.Day, hour int) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for k := range r.m {
		if k.day == day && k.hour == hour {
			n++
		}
	}
	return n, nil
}

func (r *Repo) ListRange(ctx context.Context, from, to domain.Day) ([]availabilityrepo.Slot, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]availabilityrepo.Slot, 0)
	for k, s := range r.m {
		if k.day.Before(from) || to.Before(k.day) {
			continue
		}
		out = append(out, cloneSlot(s))
	}
	sortSlots(out)
	return out, nil
}

func (r *Repo) ListDay(ctx context.Context, day domain.Day) ([]availabilityrepo.Slot, error) {
	return r.ListRange(ctx, day, day)
}

func cloneSlot(s availabilityrepo.Slot) availabilityrepo.Slot {
	cp := s
	if s.SourceCallID != nil {
		v := *s.SourceCallID
		cp.SourceCallID = &v
	}
	return cp
}

func sortSlots(slots []availabilityrepo.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Day != b.Day {
			return a.Day.Before(b.Day)
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.PlayerID < b.PlayerID
	})
}

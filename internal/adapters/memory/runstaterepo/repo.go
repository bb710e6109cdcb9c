package runstaterepo

import (
	"context"
	"sync"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/runstaterepo"
)

type key struct {
	day       domain.Day
	startHour int
}

// Repo is an in-memory implementation of runstaterepo.Repository.
// It is safe for concurrent use; the conditional updates hold the write lock
// for the whole read-modify-write, so Mark/Clear are atomic.
type Repo struct {
	mu sync.RWMutex
	m  map[key]runstaterepo.State
}

func NewRepo() *Repo {
	return &Repo{m: make(map[key]runstaterepo.State)}
}

func (r *Repo) Get(ctx context.Context, day domain.Day, startHour int) (runstaterepo.State, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.m[key{day: day, startHour: startHour}]
	if !ok {
		return runstaterepo.State{}, runstaterepo.ErrNotFound
	}
	return st, nil
}

func (r *Repo) MarkNotified(ctx context.Context, day domain.Day, startHour int, at time.Time) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{day: day, startHour: startHour}
	st, ok := r.m[k]
	if ok && st.Notified {
		return false, nil
	}
	r.m[k] = runstaterepo.State{Day: day, StartHour: startHour, Notified: true, UpdatedAt: at}
	return true, nil
}

func (r *Repo) ClearNotified(ctx context.Context, day domain.Day, startHour int, at time.Time) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{day: day, startHour: startHour}
	st, ok := r.m[k]
	if !ok || !st.Notified {
		return false, nil
	}
	st.Notified = false
	st.UpdatedAt = at
	r.m[k] = st
	return true, nil
}

package responserepo

import (
	"context"
	"sort"
	"sync"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/responserepo"
)

type key struct {
	callID   domain.CallID
	playerID domain.PlayerID
}

// Repo is an in-memory implementation of responserepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex
	m  map[key]responserepo.Response
}

func NewRepo() *Repo {
	return &Repo{m: make(map[key]responserepo.Response)}
}

func (r *Repo) Get(ctx context.Context, callID domain.CallID, playerID domain.PlayerID) (responserepo.Response, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[key{callID: callID, playerID: playerID}]
	if !ok {
		return responserepo.Response{}, responserepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) Upsert(ctx context.Context, rec responserepo.Response) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[key{callID: rec.CallID, playerID: rec.PlayerID}] = rec
	return nil
}

func (r *Repo) ListByCall(ctx context.Context, callID domain.CallID) ([]responserepo.Response, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]responserepo.Response, 0)
	for k, v := range r.m {
		if k.callID == callID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (r *Repo) DeleteByCall(ctx context.Context, callID domain.CallID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.m {
		if k.callID == callID {
			delete(r.m, k)
		}
	}
	return nil
}

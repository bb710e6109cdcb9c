package callrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/callrepo"
)

// Repo is an in-memory implementation of callrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.CallID]callrepo.Call
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.CallID]callrepo.Call)}
}

func (r *Repo) Create(ctx context.Context, c callrepo.Call) error {
	_ = ctx
	if c.ID == "" {
		return callrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; ok {
		return callrepo.ErrAlreadyExists
	}
	r.byID[c.ID] = cloneCall(c)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.CallID) (callrepo.Call, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return callrepo.Call{}, callrepo.ErrNotFound
	}
	return cloneCall(c), nil
}

func (r *Repo) Delete(ctx context.Context, id domain.CallID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return callrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) ListFrom(ctx context.Context, from domain.Day) ([]callrepo.Call, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]callrepo.Call, 0)
	for _, c := range r.byID {
		if c.Day.Before(from) {
			continue
		}
		out = append(out, cloneCall(c))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Day != b.Day {
			return a.Day.Before(b.Day)
		}
		if a.StartHour != b.StartHour {
			return a.StartHour < b.StartHour
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func cloneCall(c callrepo.Call) callrepo.Call {
	cp := c
	cp.Price = cloneStringPtr(c.Price)
	cp.Comment = cloneStringPtr(c.Comment)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package playerrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
)

type accountKey struct {
	provider domain.Provider
	account  domain.ProviderAccountID
}

// Repo is an in-memory implementation of playerrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu        sync.RWMutex
	byID      map[domain.PlayerID]playerrepo.Player
	byAccount map[accountKey]domain.PlayerID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.PlayerID]playerrepo.Player),
		byAccount: make(map[accountKey]domain.PlayerID),
	}
}

func (r *Repo) Create(ctx context.Context, p playerrepo.Player) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; ok {
		return playerrepo.ErrAlreadyExists
	}
	ak := accountKey{provider: p.Provider, account: p.ProviderAccount}
	if _, ok := r.byAccount[ak]; ok {
		return playerrepo.ErrProviderAccountBound
	}
	r.byID[p.ID] = clonePlayer(p)
	r.byAccount[ak] = p.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, p playerrepo.Player) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[p.ID]
	if !ok {
		return playerrepo.ErrNotFound
	}
	// The provider binding is immutable once created.
	p.Provider = cur.Provider
	p.ProviderAccount = cur.ProviderAccount
	r.byID[p.ID] = clonePlayer(p)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PlayerID) (playerrepo.Player, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return playerrepo.Player{}, playerrepo.ErrNotFound
	}
	return clonePlayer(p), nil
}

func (r *Repo) GetByProviderAccount(ctx context.Context, provider domain.Provider, account domain.ProviderAccountID) (playerrepo.Player, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byAccount[accountKey{provider: provider, account: account}]
	if !ok {
		return playerrepo.Player{}, playerrepo.ErrNotFound
	}
	return clonePlayer(r.byID[id]), nil
}

func (r *Repo) List(ctx context.Context) ([]playerrepo.Player, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]playerrepo.Player, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, clonePlayer(p))
	}
	sort.Slice(out, func(i, j int) bool {
		a := strings.ToLower(out[i].Domain().DisplayName())
		b := strings.ToLower(out[j].Domain().DisplayName())
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func clonePlayer(p playerrepo.Player) playerrepo.Player {
	cp := p
	cp.CustomName = cloneStringPtr(p.CustomName)
	cp.AvatarURL = cloneStringPtr(p.AvatarURL)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Package contracttest holds behavior suites every repository adapter must
// pass. The memory and postgres adapters run the same suites so their
// observable semantics cannot drift apart.
package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	availabilityport "github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
	callport "github.com/fivesquad/pickup-planner-api/internal/ports/out/callrepo"
	idempotencyport "github.com/fivesquad/pickup-planner-api/internal/ports/out/idempotency"
	playerport "github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
	responseport "github.com/fivesquad/pickup-planner-api/internal/ports/out/responserepo"
	runstateport "github.com/fivesquad/pickup-planner-api/internal/ports/out/runstaterepo"
)

type CleanupFunc = func()

type AvailabilityRepoFactory func(t *testing.T) (availabilityport.Repository, CleanupFunc)
type RunStateRepoFactory func(t *testing.T) (runstateport.Repository, CleanupFunc)
type CallRepoFactory func(t *testing.T) (callport.Repository, CleanupFunc)
type ResponseRepoFactory func(t *testing.T) (responseport.Repository, CleanupFunc)
type PlayerRepoFactory func(t *testing.T) (playerport.Repository, CleanupFunc)
type IdempotencyStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func day(date int) domain.Day {
	return domain.Day{Year: 2024, Month: time.June, Date: date}
}

func RunIdempotencyStore(t *testing.T, newStore IdempotencyStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Player:   domain.PlayerID(uuid.NewString()),
		Method:   "POST",
		Route:    "/calls",
		BodyHash: "hash-abc",
	}

	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"c-1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got.StatusCode != 201 || got.ContentType != "application/json" || string(got.Body) != `{"id":"c-1"}` {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("CreatedAt=%v, want %v", got.CreatedAt, rec.CreatedAt)
	}

	// A different body hash under the same key is a different fingerprint.
	other := fp
	other.BodyHash = "hash-def"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other hash: ok=%v err=%v", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"id":"c-2"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"id":"c-2"}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}
}

func RunAvailabilityRepo(t *testing.T, newRepo AvailabilityRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	p1 := domain.PlayerID(uuid.NewString())
	p2 := domain.PlayerID(uuid.NewString())

	inserted, err := repo.Upsert(ctx, availabilityport.Slot{PlayerID: p1, Day: day(10), Hour: 20, CreatedAt: now})
	if err != nil || !inserted {
		t.Fatalf("Upsert: inserted=%v err=%v", inserted, err)
	}
	// Upsert is insert-if-absent: replaying the same row changes nothing.
	inserted, err = repo.Upsert(ctx, availabilityport.Slot{PlayerID: p1, Day: day(10), Hour: 20, CreatedAt: now})
	if err != nil || inserted {
		t.Fatalf("Upsert replay: inserted=%v err=%v", inserted, err)
	}

	if ok, err := repo.Exists(ctx, p1, day(10), 20); err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.Exists(ctx, p2, day(10), 20); err != nil || ok {
		t.Fatalf("Exists other player: ok=%v err=%v", ok, err)
	}

	if _, err := repo.Upsert(ctx, availabilityport.Slot{PlayerID: p2, Day: day(10), Hour: 20, CreatedAt: now}); err != nil {
		t.Fatalf("Upsert p2: %v", err)
	}
	if n, err := repo.Count(ctx, day(10), 20); err != nil || n != 2 {
		t.Fatalf("Count: n=%d err=%v", n, err)
	}

	// Range listing is ordered by day, hour, player.
	if _, err := repo.Upsert(ctx, availabilityport.Slot{PlayerID: p1, Day: day(11), Hour: 9, CreatedAt: now}); err != nil {
		t.Fatalf("Upsert day 11: %v", err)
	}
	listed, err := repo.ListRange(ctx, day(10), day(11))
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	if len(listed) != 3 || listed[0].Day != day(10) || listed[2].Day != day(11) {
		t.Fatalf("unexpected range: %#v", listed)
	}
	if got, err := repo.ListRange(ctx, day(12), day(20)); err != nil || len(got) != 0 {
		t.Fatalf("empty range: got=%v err=%v", got, err)
	}

	dayListed, err := repo.ListDay(ctx, day(10))
	if err != nil || len(dayListed) != 2 {
		t.Fatalf("ListDay: got=%v err=%v", dayListed, err)
	}

	removed, err := repo.Delete(ctx, p1, day(10), 20)
	if err != nil || !removed {
		t.Fatalf("Delete: removed=%v err=%v", removed, err)
	}
	removed, err = repo.Delete(ctx, p1, day(10), 20)
	if err != nil || removed {
		t.Fatalf("Delete replay: removed=%v err=%v", removed, err)
	}
}

func RunAvailabilityRepoSourcedRows(t *testing.T, newRepo AvailabilityRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	p1 := domain.PlayerID(uuid.NewString())
	p2 := domain.PlayerID(uuid.NewString())
	callID := domain.CallID(uuid.NewString())

	seed := []availabilityport.Slot{
		{PlayerID: p1, Day: day(10), Hour: 20, CreatedAt: now},
		{PlayerID: p1, Day: day(10), Hour: 21, SourceCallID: &callID, CreatedAt: now},
		{PlayerID: p1, Day: day(10), Hour: 22, SourceCallID: &callID, CreatedAt: now},
		{PlayerID: p2, Day: day(10), Hour: 21, SourceCallID: &callID, CreatedAt: now},
	}
	for _, s := range seed {
		if _, err := repo.Upsert(ctx, s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	// Per-player sourced delete returns the removed rows and leaves the
	// manual row and other players untouched.
	gone, err := repo.DeletePlayerSourced(ctx, p1, callID)
	if err != nil {
		t.Fatalf("DeletePlayerSourced: %v", err)
	}
	if len(gone) != 2 {
		t.Fatalf("removed=%#v, want the two sourced rows", gone)
	}
	if ok, _ := repo.Exists(ctx, p1, day(10), 20); !ok {
		t.Fatalf("manual row must survive")
	}
	if ok, _ := repo.Exists(ctx, p2, day(10), 21); !ok {
		t.Fatalf("other player's row must survive")
	}

	gone, err = repo.DeleteSourced(ctx, callID)
	if err != nil || len(gone) != 1 || gone[0].PlayerID != p2 {
		t.Fatalf("DeleteSourced: gone=%#v err=%v", gone, err)
	}
}

func RunRunStateRepo(t *testing.T, newRepo RunStateRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()

	if _, err := repo.Get(ctx, day(10), 20); !errors.Is(err, runstateport.ErrNotFound) {
		t.Fatalf("Get absent: err=%v, want ErrNotFound", err)
	}

	// Confirm is a conditional flip: only the first mark reports a change.
	changed, err := repo.MarkNotified(ctx, day(10), 20, now)
	if err != nil || !changed {
		t.Fatalf("MarkNotified: changed=%v err=%v", changed, err)
	}
	changed, err = repo.MarkNotified(ctx, day(10), 20, now)
	if err != nil || changed {
		t.Fatalf("MarkNotified replay: changed=%v err=%v", changed, err)
	}
	st, err := repo.Get(ctx, day(10), 20)
	if err != nil || !st.Notified {
		t.Fatalf("Get: st=%+v err=%v", st, err)
	}

	changed, err = repo.ClearNotified(ctx, day(10), 20, now)
	if err != nil || !changed {
		t.Fatalf("ClearNotified: changed=%v err=%v", changed, err)
	}
	changed, err = repo.ClearNotified(ctx, day(10), 20, now)
	if err != nil || changed {
		t.Fatalf("ClearNotified replay: changed=%v err=%v", changed, err)
	}

	// Clearing a never-confirmed run creates nothing.
	changed, err = repo.ClearNotified(ctx, day(11), 9, now)
	if err != nil || changed {
		t.Fatalf("ClearNotified absent: changed=%v err=%v", changed, err)
	}
	if _, err := repo.Get(ctx, day(11), 9); !errors.Is(err, runstateport.ErrNotFound) {
		t.Fatalf("Get after clear-absent: err=%v, want ErrNotFound", err)
	}
}

func RunCallRepo(t *testing.T, newRepo CallRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	creator := domain.PlayerID(uuid.NewString())
	id := domain.CallID(uuid.NewString())

	c := callport.Call{
		ID:              id,
		CreatorID:       creator,
		Day:             day(12),
		StartHour:       20,
		Location:        "Riverside court",
		DurationMinutes: 90,
		CreatedAt:       now,
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, c); !errors.Is(err, callport.ErrAlreadyExists) {
		t.Fatalf("duplicate Create: err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil || got.Location != "Riverside court" || got.DurationMinutes != 90 {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}

	earlier := callport.Call{
		ID:              domain.CallID(uuid.NewString()),
		CreatorID:       creator,
		Day:             day(11),
		StartHour:       18,
		Location:        "Gym",
		DurationMinutes: 60,
		CreatedAt:       now,
	}
	if err := repo.Create(ctx, earlier); err != nil {
		t.Fatalf("Create earlier: %v", err)
	}

	listed, err := repo.ListFrom(ctx, day(11))
	if err != nil || len(listed) != 2 || listed[0].ID != earlier.ID {
		t.Fatalf("ListFrom: listed=%#v err=%v", listed, err)
	}
	listed, err = repo.ListFrom(ctx, day(12))
	if err != nil || len(listed) != 1 || listed[0].ID != id {
		t.Fatalf("ListFrom cutoff: listed=%#v err=%v", listed, err)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, callport.ErrNotFound) {
		t.Fatalf("Delete replay: err=%v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID(ctx, id); !errors.Is(err, callport.ErrNotFound) {
		t.Fatalf("GetByID after delete: err=%v, want ErrNotFound", err)
	}
}

func RunResponseRepo(t *testing.T, newRepo ResponseRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	callID := domain.CallID(uuid.NewString())
	p1 := domain.PlayerID("aaa-" + uuid.NewString())
	p2 := domain.PlayerID("zzz-" + uuid.NewString())

	if _, err := repo.Get(ctx, callID, p1); !errors.Is(err, responseport.ErrNotFound) {
		t.Fatalf("Get absent: err=%v, want ErrNotFound", err)
	}

	if err := repo.Upsert(ctx, responseport.Response{CallID: callID, PlayerID: p1, Status: responseport.StatusAccepted, UpdatedAt: now}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	// Last write wins.
	if err := repo.Upsert(ctx, responseport.Response{CallID: callID, PlayerID: p1, Status: responseport.StatusDeclined, UpdatedAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	got, err := repo.Get(ctx, callID, p1)
	if err != nil || got.Status != responseport.StatusDeclined {
		t.Fatalf("Get: got=%+v err=%v", got, err)
	}

	if err := repo.Upsert(ctx, responseport.Response{CallID: callID, PlayerID: p2, Status: responseport.StatusAccepted, UpdatedAt: now}); err != nil {
		t.Fatalf("Upsert p2: %v", err)
	}
	listed, err := repo.ListByCall(ctx, callID)
	if err != nil || len(listed) != 2 || listed[0].PlayerID != p1 {
		t.Fatalf("ListByCall: listed=%#v err=%v", listed, err)
	}

	if err := repo.DeleteByCall(ctx, callID); err != nil {
		t.Fatalf("DeleteByCall: %v", err)
	}
	if listed, _ := repo.ListByCall(ctx, callID); len(listed) != 0 {
		t.Fatalf("responses must be gone: %#v", listed)
	}
}

func RunPlayerRepo(t *testing.T, newRepo PlayerRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	aID := domain.PlayerID(uuid.NewString())
	acct := domain.ProviderAccountID(uuid.NewString())
	if err := repo.Create(ctx, playerport.Player{
		ID:              aID,
		Provider:        "discord",
		ProviderAccount: acct,
		Name:            "Ana",
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.GetByID(ctx, aID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got, err := repo.GetByProviderAccount(ctx, "discord", acct); err != nil || got.ID != aID {
		t.Fatalf("GetByProviderAccount: got=%+v err=%v", got, err)
	}

	// Provider-account uniqueness.
	if err := repo.Create(ctx, playerport.Player{
		ID:              domain.PlayerID(uuid.NewString()),
		Provider:        "discord",
		ProviderAccount: acct,
		Name:            "Imposter",
		CreatedAt:       now,
		UpdatedAt:       now,
	}); !errors.Is(err, playerport.ErrProviderAccountBound) {
		t.Fatalf("duplicate account: err=%v, want ErrProviderAccountBound", err)
	}
	// Id uniqueness.
	if err := repo.Create(ctx, playerport.Player{
		ID:              aID,
		Provider:        "discord",
		ProviderAccount: domain.ProviderAccountID(uuid.NewString()),
		Name:            "Clone",
		CreatedAt:       now,
		UpdatedAt:       now,
	}); !errors.Is(err, playerport.ErrAlreadyExists) {
		t.Fatalf("duplicate id: err=%v, want ErrAlreadyExists", err)
	}

	// Custom names take part in List ordering (case-insensitive).
	bID := domain.PlayerID(uuid.NewString())
	custom := "aardvark"
	if err := repo.Create(ctx, playerport.Player{
		ID:              bID,
		Provider:        "discord",
		ProviderAccount: domain.ProviderAccountID(uuid.NewString()),
		Name:            "Zoe",
		CustomName:      &custom,
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	listed, err := repo.List(ctx)
	if err != nil || len(listed) != 2 || listed[0].ID != bID {
		t.Fatalf("List ordering: listed=%#v err=%v", listed, err)
	}

	// Update round-trip.
	p, _ := repo.GetByID(ctx, aID)
	p.IsBanned = true
	p.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, _ := repo.GetByID(ctx, aID); !got.IsBanned {
		t.Fatalf("update must persist: %+v", got)
	}
	if err := repo.Update(ctx, playerport.Player{ID: domain.PlayerID(uuid.NewString())}); !errors.Is(err, playerport.ErrNotFound) {
		t.Fatalf("Update missing: err=%v, want ErrNotFound", err)
	}
}

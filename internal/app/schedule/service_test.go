package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	memavailabilityrepo "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/availabilityrepo"
	memclock "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/clock"
	memplayerrepo "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/playerrepo"
	memrunstaterepo "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/runstaterepo"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/notifier"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
)

type captureSink struct {
	mu       sync.Mutex
	messages []notifier.Message
	mentions []bool
}

func (c *captureSink) Dispatch(msg notifier.Message, mentionEveryone bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.mentions = append(c.mentions, mentionEveryone)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *captureSink) last() notifier.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[len(c.messages)-1]
}

type fixture struct {
	svc     *Service
	slots   *memavailabilityrepo.Repo
	players *memplayerrepo.Repo
	runs    *memrunstaterepo.Repo
	sink    *captureSink
	clk     *memclock.ManualClock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		slots:   memavailabilityrepo.NewRepo(),
		players: memplayerrepo.NewRepo(),
		runs:    memrunstaterepo.NewRepo(),
		sink:    &captureSink{},
		clk:     memclock.NewManualClock(time.Unix(1700000000, 0)),
	}
	f.svc = NewService(f.slots, f.players, f.runs, f.sink, f.clk, cfg)
	return f
}

func defaultConfig() Config {
	return Config{Quorum: 10, RunLength: 3, FirstHour: 8, LastHour: 23, AppURL: "https://planner.example"}
}

func (f *fixture) addPlayers(t *testing.T, n int) []domain.PlayerID {
	t.Helper()
	out := make([]domain.PlayerID, 0, n)
	for i := 0; i < n; i++ {
		id := domain.PlayerID(fmt.Sprintf("p%02d", i))
		err := f.players.Create(context.Background(), playerrepo.Player{
			ID:              id,
			Provider:        "discord",
			ProviderAccount: domain.ProviderAccountID(fmt.Sprintf("acct-%02d", i)),
			Name:            fmt.Sprintf("Player %02d", i),
		})
		if err != nil {
			t.Fatalf("Create player: %v", err)
		}
		out = append(out, id)
	}
	return out
}

func (f *fixture) fillHour(t *testing.T, ids []domain.PlayerID, d domain.Day, hour int) {
	t.Helper()
	for _, id := range ids {
		if _, err := f.slots.Upsert(context.Background(), availabilityrepo.Slot{PlayerID: id, Day: d, Hour: hour}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
}

func testDay() domain.Day {
	return domain.Day{Year: 2024, Month: time.June, Date: 10}
}

func TestService_Toggle_AddAndRemoveChangeCountByOne(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	ids := f.addPlayers(t, 1)
	d := testDay()

	res, err := f.svc.Toggle(context.Background(), ids[0], d, 20)
	if err != nil {
		t.Fatalf("Toggle err=%v", err)
	}
	if res.Removed {
		t.Fatalf("first toggle should add")
	}
	if n, _ := f.slots.Count(context.Background(), d, 20); n != 1 {
		t.Fatalf("count=%d, want 1", n)
	}

	res, err = f.svc.Toggle(context.Background(), ids[0], d, 20)
	if err != nil {
		t.Fatalf("Toggle err=%v", err)
	}
	if !res.Removed {
		t.Fatalf("second toggle should remove")
	}
	if n, _ := f.slots.Count(context.Background(), d, 20); n != 0 {
		t.Fatalf("count=%d, want 0", n)
	}
}

func TestService_Toggle_RejectsOutOfRangeHour(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	ids := f.addPlayers(t, 1)

	for _, hour := range []int{-1, 7, 24, 99} {
		_, err := f.svc.Toggle(context.Background(), ids[0], testDay(), hour)
		ae := (*Error)(nil)
		if !errors.As(err, &ae) || ae.Status != 422 || ae.Code != "VALIDATION_ERROR" {
			t.Fatalf("hour=%d err=%v, want VALIDATION_ERROR 422", hour, err)
		}
	}
	if n, _ := f.slots.Count(context.Background(), testDay(), 7); n != 0 {
		t.Fatalf("rejected toggle must not write state")
	}
}

func TestService_Toggle_BannedPlayer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	ids := f.addPlayers(t, 1)
	p, _ := f.players.GetByID(context.Background(), ids[0])
	p.IsBanned = true
	if err := f.players.Update(context.Background(), p); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := f.svc.Toggle(context.Background(), ids[0], testDay(), 20)
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != 403 || ae.Code != "PLAYER_BANNED" {
		t.Fatalf("err=%v, want PLAYER_BANNED 403", err)
	}
}

func TestService_Toggle_ConfirmsGoldenRunOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	ids := f.addPlayers(t, 11)
	d := testDay()

	// Hours 20 and 21 are full; hour 22 is one short.
	f.fillHour(t, ids[:10], d, 20)
	f.fillHour(t, ids[:10], d, 21)
	f.fillHour(t, ids[:9], d, 22)

	// The 10th player completes hour 22 and with it the 20h-23h run.
	if _, err := f.svc.Toggle(context.Background(), ids[9], d, 22); err != nil {
		t.Fatalf("Toggle err=%v", err)
	}
	if f.sink.count() != 1 {
		t.Fatalf("notifications=%d, want exactly 1 confirm", f.sink.count())
	}
	msg := f.sink.last()
	if msg.Title != "3h match confirmed!" {
		t.Fatalf("title=%q", msg.Title)
	}

	st, err := f.runs.Get(context.Background(), d, 20)
	if err != nil || !st.Notified {
		t.Fatalf("run state=%+v err=%v, want notified", st, err)
	}

	// A further addition to a still-full run must not re-notify.
	if _, err := f.svc.Toggle(context.Background(), ids[10], d, 22); err != nil {
		t.Fatalf("Toggle err=%v", err)
	}
	if f.sink.count() != 1 {
		t.Fatalf("notifications=%d after replay, want still 1", f.sink.count())
	}
	st, _ = f.runs.Get(context.Background(), d, 20)
	if !st.Notified {
		t.Fatalf("notified flag must remain true")
	}
}

func TestService_Toggle_RevokesBrokenRun(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.RunLength = 4
	f := newFixture(t, cfg)
	ids := f.addPlayers(t, 10)
	d := testDay()

	for h := 20; h <= 23; h++ {
		f.fillHour(t, ids, d, h)
	}
	if _, err := f.runs.MarkNotified(context.Background(), d, 20, f.clk.Now()); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	// One withdrawal at hour 21 drops it below quorum and breaks the run.
	if _, err := f.svc.Toggle(context.Background(), ids[0], d, 21); err != nil {
		t.Fatalf("Toggle err=%v", err)
	}

	if f.sink.count() != 1 {
		t.Fatalf("notifications=%d, want exactly 1 revoke", f.sink.count())
	}
	msg := f.sink.last()
	if msg.Title != "Withdrawal broke the 4h match!" {
		t.Fatalf("title=%q", msg.Title)
	}
	wantSession := "20h - 24h"
	found := false
	for _, fld := range msg.Fields {
		if fld.Name == "Affected session" && fld.Value == wantSession {
			found = true
		}
	}
	if !found {
		t.Fatalf("revoke must identify the broken run (fields=%+v)", msg.Fields)
	}

	st, _ := f.runs.Get(context.Background(), d, 20)
	if st.Notified {
		t.Fatalf("notified must flip back to false")
	}

	// Breaking an already-unconfirmed run must not send a second revoke.
	if _, err := f.svc.Toggle(context.Background(), ids[1], d, 21); err != nil {
		t.Fatalf("Toggle err=%v", err)
	}
	if f.sink.count() != 1 {
		t.Fatalf("notifications=%d, want still 1", f.sink.count())
	}
}

func TestService_Toggle_RemovalAboveQuorumKeepsConfirmation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	ids := f.addPlayers(t, 11)
	d := testDay()

	for h := 20; h <= 22; h++ {
		f.fillHour(t, ids, d, h) // 11 players, one above quorum
	}
	if _, err := f.runs.MarkNotified(context.Background(), d, 20, f.clk.Now()); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	if _, err := f.svc.Toggle(context.Background(), ids[0], d, 21); err != nil {
		t.Fatalf("Toggle err=%v", err)
	}
	if f.sink.count() != 0 {
		t.Fatalf("notifications=%d, want none (still at quorum)", f.sink.count())
	}
	st, _ := f.runs.Get(context.Background(), d, 20)
	if !st.Notified {
		t.Fatalf("confirmation must survive a removal that stays at quorum")
	}
}

func TestService_SaveBatch_ValidatesBeforeWriting(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	ids := f.addPlayers(t, 1)
	d := testDay()

	_, err := f.svc.SaveBatch(context.Background(), ids[0], []SlotChange{
		{Day: d, Hour: 20, Available: true},
		{Day: d, Hour: 3, Available: true}, // out of operating range
	})
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Code != "VALIDATION_ERROR" {
		t.Fatalf("err=%v, want VALIDATION_ERROR", err)
	}
	if n, _ := f.slots.Count(context.Background(), d, 20); n != 0 {
		t.Fatalf("no partial state may be written when validation fails")
	}
}

func TestService_SaveBatch_AppliesChangesAndConfirmsOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	ids := f.addPlayers(t, 10)
	d := testDay()

	// Nine players cover 20h-22h; the tenth saves all three hours in one batch.
	for h := 20; h <= 22; h++ {
		f.fillHour(t, ids[:9], d, h)
	}
	res, err := f.svc.SaveBatch(context.Background(), ids[9], []SlotChange{
		{Day: d, Hour: 20, Available: true},
		{Day: d, Hour: 21, Available: true},
		{Day: d, Hour: 22, Available: true},
		{Day: d, Hour: 22, Available: true}, // duplicate entry is a no-op
	})
	if err != nil {
		t.Fatalf("SaveBatch err=%v", err)
	}
	if res.Applied != 3 {
		t.Fatalf("applied=%d, want 3", res.Applied)
	}
	if f.sink.count() != 1 {
		t.Fatalf("notifications=%d, want exactly 1 confirm from the batch", f.sink.count())
	}
}

func TestService_Grid_MySlotsAndDetails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	ids := f.addPlayers(t, 3)
	d := testDay()

	f.fillHour(t, ids[:2], d, 20)
	f.fillHour(t, ids[2:], d.AddDays(1), 9)

	g, err := f.svc.Grid(context.Background(), ids[0], d, d.AddDays(6))
	if err != nil {
		t.Fatalf("Grid err=%v", err)
	}
	if len(g.MySlots) != 1 || g.MySlots[0].Hour != 20 {
		t.Fatalf("MySlots=%v, want the caller's single slot at 20h", g.MySlots)
	}
	detail := g.Slots[domain.SlotKey{Day: d, Hour: 20}]
	if detail.Count != 2 || len(detail.Players) != 2 {
		t.Fatalf("detail=%+v, want count 2", detail)
	}
	if detail.Players[0].DisplayName != "Player 00" {
		t.Fatalf("players=%+v, want resolved display names", detail.Players)
	}
}

func TestService_FillSpan_IdempotentAccept(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	ids := f.addPlayers(t, 1)
	d := testDay()
	callID := domain.CallID("call-1")

	hours := []int{20, 21, 22, 23}
	if err := f.svc.FillSpan(context.Background(), ids[0], d, hours, callID); err != nil {
		t.Fatalf("FillSpan err=%v", err)
	}
	if err := f.svc.FillSpan(context.Background(), ids[0], d, hours, callID); err != nil {
		t.Fatalf("second FillSpan err=%v", err)
	}

	for _, h := range hours {
		if n, _ := f.slots.Count(context.Background(), d, h); n != 1 {
			t.Fatalf("hour %d count=%d, want 1 (no duplicates)", h, n)
		}
	}
}

func TestService_ClearPlayerSourced_LeavesManualRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	ids := f.addPlayers(t, 1)
	d := testDay()
	callID := domain.CallID("call-1")

	// Hour 20 was set manually before the call; 21-23 come from accept-sync.
	if _, err := f.svc.Toggle(context.Background(), ids[0], d, 20); err != nil {
		t.Fatalf("Toggle err=%v", err)
	}
	if err := f.svc.FillSpan(context.Background(), ids[0], d, []int{20, 21, 22, 23}, callID); err != nil {
		t.Fatalf("FillSpan err=%v", err)
	}

	if err := f.svc.ClearPlayerSourced(context.Background(), ids[0], callID); err != nil {
		t.Fatalf("ClearPlayerSourced err=%v", err)
	}

	if ok, _ := f.slots.Exists(context.Background(), ids[0], d, 20); !ok {
		t.Fatalf("manually-set hour 20 must survive decline-sync")
	}
	for _, h := range []int{21, 22, 23} {
		if ok, _ := f.slots.Exists(context.Background(), ids[0], d, h); ok {
			t.Fatalf("auto-filled hour %d must be removed", h)
		}
	}
}

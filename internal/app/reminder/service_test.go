package reminder

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	memavailabilityrepo "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/availabilityrepo"
	memclock "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/clock"
	memplayerrepo "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/playerrepo"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/notifier"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
)

type captureSink struct {
	mu       sync.Mutex
	messages []notifier.Message
}

func (c *captureSink) Dispatch(msg notifier.Message, mentionEveryone bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

type fixture struct {
	svc   *Service
	slots *memavailabilityrepo.Repo
	sink  *captureSink
	clk   *memclock.ManualClock
	today domain.Day
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	start := time.Date(2024, time.June, 10, 7, 0, 0, 0, time.UTC)
	f := &fixture{
		slots: memavailabilityrepo.NewRepo(),
		sink:  &captureSink{},
		clk:   memclock.NewManualClock(start),
		today: domain.DayOf(start),
	}
	players := memplayerrepo.NewRepo()
	for i := 0; i < 12; i++ {
		id := domain.PlayerID(fmt.Sprintf("p%02d", i))
		err := players.Create(context.Background(), playerrepo.Player{
			ID:              id,
			Provider:        "discord",
			ProviderAccount: domain.ProviderAccountID(fmt.Sprintf("acct-%02d", i)),
			Name:            fmt.Sprintf("Player %02d", i),
		})
		if err != nil {
			t.Fatalf("Create player: %v", err)
		}
	}
	f.svc = NewService(f.slots, players, f.sink, f.clk, cfg)
	return f
}

func defaultConfig() Config {
	return Config{Quorum: 10, RunLength: 4, FirstHour: 8, LastHour: 23, HorizonDays: 21, AppURL: "https://planner.example"}
}

func (f *fixture) fill(t *testing.T, n int, d domain.Day, hours ...int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := domain.PlayerID(fmt.Sprintf("p%02d", i))
		for _, h := range hours {
			if _, err := f.slots.Upsert(context.Background(), availabilityrepo.Slot{PlayerID: id, Day: d, Hour: h}); err != nil {
				t.Fatalf("Upsert: %v", err)
			}
		}
	}
}

func TestService_Sweep_EmptyHorizon(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	res, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep err=%v", err)
	}
	if res.Outcome != OutcomeNoSlots {
		t.Fatalf("outcome=%s, want NO_SLOTS", res.Outcome)
	}
	if f.sink.count() != 0 {
		t.Fatalf("no reminder may be sent when the horizon is empty")
	}
}

func TestService_Sweep_PicksHighestOverlap(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())

	// Day+1 has 5 players over a full 4-hour window; day+3 only 3.
	f.fill(t, 5, f.today.AddDays(1), 20, 21, 22, 23)
	f.fill(t, 3, f.today.AddDays(3), 18, 19, 20, 21)

	res, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep err=%v", err)
	}
	if res.Outcome != OutcomeReminded {
		t.Fatalf("outcome=%s, want REMINDED", res.Outcome)
	}
	if res.Day != f.today.AddDays(1) || res.StartHour != 20 {
		t.Fatalf("best=(%s, %dh), want (%s, 20h)", res.Day, res.StartHour, f.today.AddDays(1))
	}
	if res.Count != 5 || res.Missing != 5 {
		t.Fatalf("count=%d missing=%d, want 5 and 5", res.Count, res.Missing)
	}
	if len(res.Players) != 5 {
		t.Fatalf("players=%v, want the common 5", res.Players)
	}
	if f.sink.count() != 1 {
		t.Fatalf("reminders=%d, want 1", f.sink.count())
	}
}

func TestService_Sweep_TieBreaksTowardEarlierRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())

	// Same overlap on two days and twice within the later day; the earliest
	// day and start hour must win.
	f.fill(t, 4, f.today.AddDays(2), 18, 19, 20, 21, 22)
	f.fill(t, 4, f.today.AddDays(1), 20, 21, 22, 23)

	res, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep err=%v", err)
	}
	if res.Day != f.today.AddDays(1) || res.StartHour != 20 {
		t.Fatalf("best=(%s, %dh), want the earlier day", res.Day, res.StartHour)
	}
}

func TestService_Sweep_QuorumMetMeansNoReminder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	f.fill(t, 10, f.today.AddDays(1), 20, 21, 22, 23)

	res, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep err=%v", err)
	}
	if res.Outcome != OutcomeAlreadyFull {
		t.Fatalf("outcome=%s, want ALREADY_FULL", res.Outcome)
	}
	if f.sink.count() != 0 {
		t.Fatalf("a full run must not trigger a reminder")
	}
}

func TestService_Sweep_ZeroOverlapDoesNotRemind(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultConfig())
	// A single scattered record: no 4-hour window has a common player, but
	// the horizon is not empty.
	f.fill(t, 1, f.today.AddDays(1), 20)

	res, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep err=%v", err)
	}
	if res.Outcome != OutcomeNoCommon {
		t.Fatalf("outcome=%s, want NO_COMMON (distinguishable from NO_SLOTS)", res.Outcome)
	}
	if f.sink.count() != 0 {
		t.Fatalf("an empty best run must not trigger a reminder")
	}
}

func TestService_Sweep_OversizedRunLengthDoesNotRemind(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.RunLength = 20 // wider than the 8h-23h operating day
	f := newFixture(t, cfg)
	f.fill(t, 5, f.today.AddDays(1), 20, 21, 22, 23)

	res, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep err=%v", err)
	}
	if res.Outcome != OutcomeNoCommon {
		t.Fatalf("outcome=%s, want NO_COMMON", res.Outcome)
	}
	if f.sink.count() != 0 {
		t.Fatalf("a run that cannot fit the day must not trigger a reminder")
	}
}

package reminder

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivesquad/pickup-planner-api/internal/app/notify"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/clock"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/notifier"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
)

const colorYellow = 0xEAB308

// Outcome says what a sweep concluded.
type Outcome string

const (
	// OutcomeNoSlots means the horizon holds no availability at all.
	OutcomeNoSlots Outcome = "NO_SLOTS"
	// OutcomeNoCommon means slots exist but no run has even one player on
	// every hour, so there is nothing concrete to point at.
	OutcomeNoCommon Outcome = "NO_COMMON"
	// OutcomeAlreadyFull means the best run already meets quorum, so there is
	// nobody to chase.
	OutcomeAlreadyFull Outcome = "ALREADY_FULL"
	// OutcomeReminded means a reminder was sent for the best run found.
	OutcomeReminded Outcome = "REMINDED"
)

// Config carries the detection parameters for the sweep.
type Config struct {
	Quorum      int
	RunLength   int
	FirstHour   int
	LastHour    int
	HorizonDays int
	AppURL      string
}

// SweepResult reports the best run over the horizon, when one exists.
type SweepResult struct {
	Outcome   Outcome
	Day       domain.Day
	StartHour int
	Count     int
	Missing   int
	Players   []string
}

// Service scans the rolling horizon for the most promising run of
// consecutive hours and nudges the channel to fill the gap. It is invoked by
// a time-based trigger, not a resident loop.
type Service struct {
	slots   availabilityrepo.Repository
	players playerrepo.Repository
	sink    notify.Sink
	clk     clock.Clock
	cfg     Config
}

func NewService(slots availabilityrepo.Repository, players playerrepo.Repository, sink notify.Sink, clk clock.Clock, cfg Config) *Service {
	return &Service{slots: slots, players: players, sink: sink, clk: clk, cfg: cfg}
}

// Sweep finds the single best run in [today, today+horizon) and sends a
// reminder for it. Runs that already meet quorum, and sweeps where no run
// has anyone on every hour, report without dispatching. Ties break toward
// the earlier day, then the earlier start hour.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	from := domain.DayOf(s.clk.Now())
	to := from.AddDays(s.cfg.HorizonDays - 1)

	records, err := s.slots.ListRange(ctx, from, to)
	if err != nil {
		return SweepResult{}, err
	}
	if len(records) == 0 {
		return SweepResult{Outcome: OutcomeNoSlots}, nil
	}

	slots := make([]domain.AvailabilitySlot, 0, len(records))
	for _, rec := range records {
		slots = append(slots, rec.Domain())
	}
	idx := domain.BuildSlotIndex(slots)

	best := SweepResult{Count: -1}
	lastStart := s.cfg.LastHour - s.cfg.RunLength + 1
	for _, day := range idx.Days() {
		for start := s.cfg.FirstHour; start <= lastStart; start++ {
			users := domain.CommonUsers(idx, day, start, s.cfg.RunLength)
			// Strict improvement only: with days and hours scanned in
			// ascending order this keeps the earliest run among equals.
			if len(users) > best.Count {
				best = SweepResult{
					Day:       day,
					StartHour: start,
					Count:     len(users),
					Players:   s.displayNames(ctx, users),
				}
			}
		}
	}

	if best.Count <= 0 {
		return SweepResult{Outcome: OutcomeNoCommon}, nil
	}
	if best.Count >= s.cfg.Quorum {
		best.Outcome = OutcomeAlreadyFull
		return best, nil
	}

	best.Outcome = OutcomeReminded
	best.Missing = s.cfg.Quorum - best.Count
	s.sink.Dispatch(s.reminderMessage(best), true)
	return best, nil
}

func (s *Service) displayNames(ctx context.Context, ids []domain.PlayerID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		p, err := s.players.GetByID(ctx, id)
		if err != nil {
			out = append(out, string(id))
			continue
		}
		out = append(out, p.Domain().DisplayName())
	}
	return out
}

func (s *Service) reminderMessage(r SweepResult) notifier.Message {
	list := "Nobody yet"
	if len(r.Players) > 0 {
		b := strings.Builder{}
		for i, name := range r.Players {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("• ")
			b.WriteString(name)
		}
		list = b.String()
	}

	return notifier.Message{
		Title: fmt.Sprintf("%d more for a %dh match!", r.Missing, s.cfg.RunLength),
		Description: fmt.Sprintf("The closest session is %s, %dh - %dh with %d in. Add your hours!",
			formatDay(r.Day), r.StartHour, r.StartHour+s.cfg.RunLength, r.Count),
		Color: colorYellow,
		URL:   s.cfg.AppURL,
		Fields: []notifier.Field{
			{Name: "Date", Value: formatDay(r.Day), Inline: true},
			{Name: "Hours", Value: fmt.Sprintf("%dh - %dh", r.StartHour, r.StartHour+s.cfg.RunLength), Inline: true},
			{Name: "Missing", Value: fmt.Sprintf("%d", r.Missing), Inline: true},
			{Name: "Players in", Value: list},
			{Name: "Fill the gap", Value: s.cfg.AppURL},
		},
		Footer:    "Pickup Planner • Reminder",
		Timestamp: s.clk.Now(),
	}
}

func formatDay(d domain.Day) string {
	return d.Time().Format("Monday, January 2")
}

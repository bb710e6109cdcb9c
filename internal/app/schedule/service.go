package schedule

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/fivesquad/pickup-planner-api/internal/app/notify"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/clock"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/runstaterepo"
)

// Service owns availability writes and the golden-slot state machine layered
// on top of them: every write that actually changes stored state is followed
// by run detection over the runs that write could have affected.
type Service struct {
	slots   availabilityrepo.Repository
	players playerrepo.Repository
	runs    runstaterepo.Repository
	sink    notify.Sink
	clk     clock.Clock
	cfg     Config
}

func NewService(
	slots availabilityrepo.Repository,
	players playerrepo.Repository,
	runs runstaterepo.Repository,
	sink notify.Sink,
	clk clock.Clock,
	cfg Config,
) *Service {
	return &Service{
		slots:   slots,
		players: players,
		runs:    runs,
		sink:    sink,
		clk:     clk,
		cfg:     cfg,
	}
}

// Toggle flips the caller's availability at (day, hour): present rows are
// removed, absent rows are created. Detection and notification run after the
// write is durable and never fail the toggle itself.
func (s *Service) Toggle(ctx context.Context, playerID domain.PlayerID, day domain.Day, hour int) (ToggleResult, error) {
	if err := s.validateSlot(day, hour); err != nil {
		return ToggleResult{}, err
	}
	if _, err := s.activePlayer(ctx, playerID); err != nil {
		return ToggleResult{}, err
	}

	exists, err := s.slots.Exists(ctx, playerID, day, hour)
	if err != nil {
		return ToggleResult{}, err
	}

	if exists {
		removed, err := s.slots.Delete(ctx, playerID, day, hour)
		if err != nil {
			return ToggleResult{}, err
		}
		if removed {
			s.evaluateAfterRemoval(ctx, playerID, day, hour)
		}
		return ToggleResult{Removed: true}, nil
	}

	inserted, err := s.slots.Upsert(ctx, availabilityrepo.Slot{
		PlayerID:  playerID,
		Day:       day,
		Hour:      hour,
		CreatedAt: s.clk.Now(),
	})
	if err != nil {
		return ToggleResult{}, err
	}
	if inserted {
		s.evaluateAfterAddition(ctx, day, hour)
	}
	return ToggleResult{Removed: false}, nil
}

// SaveBatch applies a multi-slot edit as a bounded sequence of independent
// writes. Validation is all-or-nothing up front; after that each slot
// mutation stands alone, entries are not transactional with their siblings.
// Detection runs per effective change, and the conditional
// updates in runstaterepo keep confirm/revoke at-most-once even when several
// entries touch the same run.
func (s *Service) SaveBatch(ctx context.Context, playerID domain.PlayerID, changes []SlotChange) (BatchResult, error) {
	for i, c := range changes {
		if err := s.validateSlot(c.Day, c.Hour); err != nil {
			ae := &Error{}
			if errors.As(err, &ae) {
				ae.Details = map[string]any{"index": i}
			}
			return BatchResult{}, err
		}
	}
	if _, err := s.activePlayer(ctx, playerID); err != nil {
		return BatchResult{}, err
	}

	applied := 0
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return BatchResult{Applied: applied}, err
		}
		if c.Available {
			inserted, err := s.slots.Upsert(ctx, availabilityrepo.Slot{
				PlayerID:  playerID,
				Day:       c.Day,
				Hour:      c.Hour,
				CreatedAt: s.clk.Now(),
			})
			if err != nil {
				return BatchResult{Applied: applied}, err
			}
			if inserted {
				applied++
				s.evaluateAfterAddition(ctx, c.Day, c.Hour)
			}
			continue
		}
		removed, err := s.slots.Delete(ctx, playerID, c.Day, c.Hour)
		if err != nil {
			return BatchResult{Applied: applied}, err
		}
		if removed {
			applied++
			s.evaluateAfterRemoval(ctx, playerID, c.Day, c.Hour)
		}
	}
	return BatchResult{Applied: applied}, nil
}

// Grid returns the availability read model for [from, to].
func (s *Service) Grid(ctx context.Context, playerID domain.PlayerID, from, to domain.Day) (Grid, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return Grid{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid date range"}
	}

	records, err := s.slots.ListRange(ctx, from, to)
	if err != nil {
		return Grid{}, err
	}

	summaries, err := s.playerSummaries(ctx)
	if err != nil {
		return Grid{}, err
	}

	g := Grid{MySlots: []domain.SlotKey{}, Slots: make(map[domain.SlotKey]SlotDetail)}
	for _, rec := range records {
		k := domain.SlotKey{Day: rec.Day, Hour: rec.Hour}
		detail := g.Slots[k]
		detail.Count++
		detail.Players = append(detail.Players, summaries[rec.PlayerID])
		g.Slots[k] = detail
		if rec.PlayerID == playerID {
			g.MySlots = append(g.MySlots, k)
		}
	}
	for k, detail := range g.Slots {
		sort.Slice(detail.Players, func(i, j int) bool {
			return detail.Players[i].ID < detail.Players[j].ID
		})
		g.Slots[k] = detail
	}
	sort.Slice(g.MySlots, func(i, j int) bool {
		a, b := g.MySlots[i], g.MySlots[j]
		if a.Day != b.Day {
			return a.Day.Before(b.Day)
		}
		return a.Hour < b.Hour
	})
	return g, nil
}

// FillSpan upserts availability for every span hour on behalf of an RSVP or
// call creation, tagging the rows with the originating call. Idempotent:
// hours already covered are left untouched and trigger no detection.
func (s *Service) FillSpan(ctx context.Context, playerID domain.PlayerID, day domain.Day, hours []int, source domain.CallID) error {
	src := source
	for _, hour := range hours {
		inserted, err := s.slots.Upsert(ctx, availabilityrepo.Slot{
			PlayerID:     playerID,
			Day:          day,
			Hour:         hour,
			SourceCallID: &src,
			CreatedAt:    s.clk.Now(),
		})
		if err != nil {
			return err
		}
		if inserted {
			s.evaluateAfterAddition(ctx, day, hour)
		}
	}
	return nil
}

// ClearPlayerSourced removes the player's availability attributable to the
// call (decline-sync). Manually-set rows in the same hours survive.
func (s *Service) ClearPlayerSourced(ctx context.Context, playerID domain.PlayerID, callID domain.CallID) error {
	removed, err := s.slots.DeletePlayerSourced(ctx, playerID, callID)
	if err != nil {
		return err
	}
	for _, rec := range removed {
		s.evaluateAfterRemoval(ctx, rec.PlayerID, rec.Day, rec.Hour)
	}
	return nil
}

// ClearAllSourced removes every player's availability attributable to the
// call (call deletion).
func (s *Service) ClearAllSourced(ctx context.Context, callID domain.CallID) error {
	removed, err := s.slots.DeleteSourced(ctx, callID)
	if err != nil {
		return err
	}
	for _, rec := range removed {
		s.evaluateAfterRemoval(ctx, rec.PlayerID, rec.Day, rec.Hour)
	}
	return nil
}

// evaluateAfterAddition confirms any run the new row completed. Detection
// reads post-write state from the source of truth; failures are logged, not
// surfaced, so the primary write stays committed.
func (s *Service) evaluateAfterAddition(ctx context.Context, day domain.Day, hour int) {
	count, err := s.slots.Count(ctx, day, hour)
	if err != nil {
		log.Printf("schedule: count %s %dh: %v", day, hour, err)
		return
	}
	if count < s.cfg.Quorum {
		return
	}

	idx, err := s.dayIndex(ctx, day)
	if err != nil {
		log.Printf("schedule: index %s: %v", day, err)
		return
	}
	for _, start := range domain.CandidateStarts(hour, s.cfg.RunLength, s.cfg.FirstHour, s.cfg.LastHour) {
		if !domain.RunFull(idx, day, start, s.cfg.RunLength, s.cfg.Quorum) {
			continue
		}
		changed, err := s.runs.MarkNotified(ctx, day, start, s.clk.Now())
		if err != nil {
			log.Printf("schedule: mark notified %s %dh: %v", day, start, err)
			continue
		}
		if !changed {
			continue
		}
		roster := s.displayNames(ctx, domain.CommonUsers(idx, day, start, s.cfg.RunLength))
		s.sink.Dispatch(confirmedMessage(day, start, s.cfg.RunLength, roster, s.cfg.AppURL, s.clk.Now()), false)
	}
}

// evaluateAfterRemoval revokes any confirmed run the removed row broke. Runs
// once per broken candidate start, not just the exact hour.
func (s *Service) evaluateAfterRemoval(ctx context.Context, playerID domain.PlayerID, day domain.Day, hour int) {
	count, err := s.slots.Count(ctx, day, hour)
	if err != nil {
		log.Printf("schedule: count %s %dh: %v", day, hour, err)
		return
	}
	if count >= s.cfg.Quorum {
		return
	}

	name := s.displayName(ctx, playerID)
	for _, start := range domain.CandidateStarts(hour, s.cfg.RunLength, s.cfg.FirstHour, s.cfg.LastHour) {
		changed, err := s.runs.ClearNotified(ctx, day, start, s.clk.Now())
		if err != nil {
			log.Printf("schedule: clear notified %s %dh: %v", day, start, err)
			continue
		}
		if !changed {
			continue
		}
		s.sink.Dispatch(revokedMessage(day, start, s.cfg.RunLength, hour, name, s.cfg.AppURL, s.clk.Now()), false)
	}
}

func (s *Service) dayIndex(ctx context.Context, day domain.Day) (*domain.SlotIndex, error) {
	records, err := s.slots.ListDay(ctx, day)
	if err != nil {
		return nil, err
	}
	slots := make([]domain.AvailabilitySlot, 0, len(records))
	for _, rec := range records {
		slots = append(slots, rec.Domain())
	}
	return domain.BuildSlotIndex(slots), nil
}

func (s *Service) validateSlot(day domain.Day, hour int) error {
	if day.IsZero() {
		return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "missing date"}
	}
	if hour < s.cfg.FirstHour || hour > s.cfg.LastHour {
		return &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "hour out of range",
			Details: map[string]any{"hour": hour, "firstHour": s.cfg.FirstHour, "lastHour": s.cfg.LastHour},
		}
	}
	return nil
}

func (s *Service) activePlayer(ctx context.Context, playerID domain.PlayerID) (playerrepo.Player, error) {
	p, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, playerrepo.ErrNotFound) {
			return playerrepo.Player{}, &Error{Status: 404, Code: "PLAYER_NOT_FOUND", Message: "player not found"}
		}
		return playerrepo.Player{}, err
	}
	if p.IsBanned {
		return playerrepo.Player{}, &Error{Status: 403, Code: "PLAYER_BANNED", Message: "player is banned"}
	}
	return p, nil
}

func (s *Service) displayName(ctx context.Context, playerID domain.PlayerID) string {
	p, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return "a player"
	}
	return p.Domain().DisplayName()
}

func (s *Service) displayNames(ctx context.Context, ids []domain.PlayerID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.displayName(ctx, id))
	}
	return out
}

func (s *Service) playerSummaries(ctx context.Context) (map[domain.PlayerID]domain.PlayerSummary, error) {
	ps, err := s.players.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.PlayerID]domain.PlayerSummary, len(ps))
	for _, p := range ps {
		d := p.Domain()
		out[p.ID] = domain.PlayerSummary{ID: p.ID, DisplayName: d.DisplayName(), AvatarURL: d.AvatarURL}
	}
	return out, nil
}

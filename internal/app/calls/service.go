package calls

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/fivesquad/pickup-planner-api/internal/app/notify"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/callrepo"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/clock"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/responserepo"
)

// Service owns call lifecycle and RSVP handling. Availability side effects
// (accept-sync, decline-sync, deletion cleanup) run through AvailabilitySync
// so the golden-slot detection in the schedule service sees every change.
type Service struct {
	calls     callrepo.Repository
	responses responserepo.Repository
	slots     availabilityrepo.Repository
	players   playerrepo.Repository
	avail     AvailabilitySync
	sink      notify.Sink
	clk       clock.Clock
	cfg       Config
	isAdmin   func(domain.PlayerID) bool

	// newID is swapped out in tests for deterministic call ids.
	newID func() domain.CallID
}

func NewService(
	calls callrepo.Repository,
	responses responserepo.Repository,
	slots availabilityrepo.Repository,
	players playerrepo.Repository,
	avail AvailabilitySync,
	sink notify.Sink,
	clk clock.Clock,
	cfg Config,
	isAdmin func(domain.PlayerID) bool,
) *Service {
	return &Service{
		calls:     calls,
		responses: responses,
		slots:     slots,
		players:   players,
		avail:     avail,
		sink:      sink,
		clk:       clk,
		cfg:       cfg,
		isAdmin:   isAdmin,
		newID:     func() domain.CallID { return domain.CallID(uuid.NewString()) },
	}
}

// Create stores a new call, records the creator's implicit acceptance, fills
// the creator's availability over the call span and announces the call.
func (s *Service) Create(ctx context.Context, creatorID domain.PlayerID, in CreateCallInput) (CallDetails, error) {
	if err := s.validateInput(in); err != nil {
		return CallDetails{}, err
	}
	creator, err := s.activePlayer(ctx, creatorID)
	if err != nil {
		return CallDetails{}, err
	}

	now := s.clk.Now()
	c := callrepo.Call{
		ID:              s.newID(),
		CreatorID:       creatorID,
		Day:             in.Day,
		StartHour:       in.StartHour,
		Location:        strings.TrimSpace(in.Location),
		DurationMinutes: in.DurationMinutes,
		Price:           in.Price,
		Comment:         in.Comment,
		CreatedAt:       now,
	}

	if err := s.calls.Create(ctx, c); err != nil {
		// An id collision is a race on the generator; retry once with a
		// fresh id before surfacing.
		if !errors.Is(err, callrepo.ErrAlreadyExists) {
			return CallDetails{}, err
		}
		c.ID = s.newID()
		if err := s.calls.Create(ctx, c); err != nil {
			if errors.Is(err, callrepo.ErrAlreadyExists) {
				return CallDetails{}, &Error{Status: 409, Code: "CONFLICT", Message: "call id collision"}
			}
			return CallDetails{}, err
		}
	}

	if err := s.responses.Upsert(ctx, responserepo.Response{
		CallID:    c.ID,
		PlayerID:  creatorID,
		Status:    responserepo.StatusAccepted,
		UpdatedAt: now,
	}); err != nil {
		log.Printf("calls: record creator response %s: %v", c.ID, err)
	}

	span := s.span(c)
	if err := s.avail.FillSpan(ctx, creatorID, c.Day, span, c.ID); err != nil {
		log.Printf("calls: creator accept-sync %s: %v", c.ID, err)
	}

	s.sink.Dispatch(createdMessage(c, creator.Domain().DisplayName(), span, s.cfg.AppURL, now), true)

	return s.details(ctx, c)
}

// Get returns one call with its resolved roster.
func (s *Service) Get(ctx context.Context, id domain.CallID) (CallDetails, error) {
	c, err := s.getCall(ctx, id)
	if err != nil {
		return CallDetails{}, err
	}
	return s.details(ctx, c)
}

// List returns all calls on or after from, each with its resolved roster.
func (s *Service) List(ctx context.Context, from domain.Day) ([]CallDetails, error) {
	cs, err := s.calls.ListFrom(ctx, from)
	if err != nil {
		return nil, err
	}
	out := make([]CallDetails, 0, len(cs))
	for _, c := range cs {
		d, err := s.details(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Delete cancels a call. Only the creator or an admin may cancel. All
// availability attributed to the call is removed before the call row goes.
func (s *Service) Delete(ctx context.Context, callerID domain.PlayerID, id domain.CallID) error {
	c, err := s.getCall(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.activePlayer(ctx, callerID); err != nil {
		return err
	}
	if callerID != c.CreatorID && !s.isAdmin(callerID) {
		return &Error{Status: 403, Code: "FORBIDDEN", Message: "only the creator or an admin can cancel a call"}
	}

	if err := s.avail.ClearAllSourced(ctx, id); err != nil {
		return err
	}
	if err := s.responses.DeleteByCall(ctx, id); err != nil {
		return err
	}
	if err := s.calls.Delete(ctx, id); err != nil {
		if errors.Is(err, callrepo.ErrNotFound) {
			return nil
		}
		return err
	}

	s.sink.Dispatch(cancelledMessage(c, s.span(c), s.cfg.AppURL, s.clk.Now()), false)
	return nil
}

// Respond records an RSVP. Accepting fills the player's availability over the
// call span; declining removes only the rows attributed to this call.
// Re-sending the current status is a no-op, reported as Changed=false.
func (s *Service) Respond(ctx context.Context, playerID domain.PlayerID, callID domain.CallID, status responserepo.Status) (RespondResult, error) {
	if status != responserepo.StatusAccepted && status != responserepo.StatusDeclined {
		return RespondResult{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid response status"}
	}
	c, err := s.getCall(ctx, callID)
	if err != nil {
		return RespondResult{}, err
	}
	if _, err := s.activePlayer(ctx, playerID); err != nil {
		return RespondResult{}, err
	}
	if playerID == c.CreatorID && status == responserepo.StatusDeclined {
		return RespondResult{}, &Error{
			Status:  409,
			Code:    "CREATOR_MUST_CANCEL",
			Message: "the creator cannot decline their own call; cancel it instead",
		}
	}

	existing, err := s.responses.Get(ctx, callID, playerID)
	if err == nil && existing.Status == status {
		return RespondResult{Changed: false, Status: string(status)}, nil
	}
	if err != nil && !errors.Is(err, responserepo.ErrNotFound) {
		return RespondResult{}, err
	}

	if err := s.responses.Upsert(ctx, responserepo.Response{
		CallID:    callID,
		PlayerID:  playerID,
		Status:    status,
		UpdatedAt: s.clk.Now(),
	}); err != nil {
		return RespondResult{}, err
	}

	// Availability sync is secondary to the recorded response: a failure here
	// is logged and the RSVP stands.
	switch status {
	case responserepo.StatusAccepted:
		if err := s.avail.FillSpan(ctx, playerID, c.Day, s.span(c), callID); err != nil {
			log.Printf("calls: accept-sync %s %s: %v", callID, playerID, err)
		}
	case responserepo.StatusDeclined:
		if err := s.avail.ClearPlayerSourced(ctx, playerID, callID); err != nil {
			log.Printf("calls: decline-sync %s %s: %v", callID, playerID, err)
		}
	}

	return RespondResult{Changed: true, Status: string(status)}, nil
}

// RespondByProviderAccount maps an identity-provider account (a chat button
// press) to a player and records the RSVP on their behalf.
func (s *Service) RespondByProviderAccount(ctx context.Context, provider domain.Provider, account domain.ProviderAccountID, callID domain.CallID, status responserepo.Status) (RespondResult, error) {
	p, err := s.players.GetByProviderAccount(ctx, provider, account)
	if err != nil {
		if errors.Is(err, playerrepo.ErrNotFound) {
			return RespondResult{}, &Error{Status: 404, Code: "PLAYER_NOT_PROVISIONED", Message: "no player bound to this account"}
		}
		return RespondResult{}, err
	}
	return s.Respond(ctx, p.ID, callID, status)
}

func (s *Service) span(c callrepo.Call) []int {
	return domain.SpanHours(c.StartHour, domain.OccupiedSlots(c.DurationMinutes), s.cfg.LastHour)
}

func (s *Service) details(ctx context.Context, c callrepo.Call) (CallDetails, error) {
	span := s.span(c)

	records, err := s.slots.ListDay(ctx, c.Day)
	if err != nil {
		return CallDetails{}, err
	}
	inSpan := make(map[int]struct{}, len(span))
	for _, h := range span {
		inSpan[h] = struct{}{}
	}
	spanSlots := make([]domain.AvailabilitySlot, 0, len(records))
	for _, rec := range records {
		if _, ok := inSpan[rec.Hour]; ok {
			spanSlots = append(spanSlots, rec.Domain())
		}
	}

	responses, err := s.responses.ListByCall(ctx, c.ID)
	if err != nil {
		return CallDetails{}, err
	}

	accepted, declined := ResolveRoster(c.CreatorID, span, spanSlots, responses)

	summaries, err := s.playerSummaries(ctx)
	if err != nil {
		return CallDetails{}, err
	}

	return CallDetails{
		ID:              c.ID,
		CreatorID:       c.CreatorID,
		Creator:         summaries[c.CreatorID],
		Day:             c.Day,
		StartHour:       c.StartHour,
		Location:        c.Location,
		DurationMinutes: c.DurationMinutes,
		SpanHours:       span,
		Price:           c.Price,
		Comment:         c.Comment,
		Roster: Roster{
			Accepted: resolveSummaries(accepted, summaries),
			Declined: resolveSummaries(declined, summaries),
		},
	}, nil
}

func resolveSummaries(ids []domain.PlayerID, summaries map[domain.PlayerID]domain.PlayerSummary) []domain.PlayerSummary {
	out := make([]domain.PlayerSummary, 0, len(ids))
	for _, id := range ids {
		sum, ok := summaries[id]
		if !ok {
			sum = domain.PlayerSummary{ID: id, DisplayName: string(id)}
		}
		out = append(out, sum)
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

func (s *Service) validateInput(in CreateCallInput) error {
	if in.Day.IsZero() {
		return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "missing date"}
	}
	if in.StartHour < s.cfg.FirstHour || in.StartHour > s.cfg.LastHour {
		return &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "start hour out of range",
			Details: map[string]any{"startHour": in.StartHour, "firstHour": s.cfg.FirstHour, "lastHour": s.cfg.LastHour},
		}
	}
	if in.DurationMinutes != 60 && in.DurationMinutes != 90 {
		return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "duration must be 60 or 90 minutes"}
	}
	if strings.TrimSpace(in.Location) == "" {
		return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "missing location"}
	}
	return nil
}

func (s *Service) getCall(ctx context.Context, id domain.CallID) (callrepo.Call, error) {
	if id == "" {
		return callrepo.Call{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "missing call id"}
	}
	c, err := s.calls.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, callrepo.ErrNotFound) {
			return callrepo.Call{}, &Error{Status: 404, Code: "CALL_NOT_FOUND", Message: "call not found"}
		}
		return callrepo.Call{}, err
	}
	return c, nil
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

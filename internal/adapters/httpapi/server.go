package httpapi

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fivesquad/pickup-planner-api/internal/app/calls"
	"github.com/fivesquad/pickup-planner-api/internal/app/players"
	"github.com/fivesquad/pickup-planner-api/internal/app/reminder"
	"github.com/fivesquad/pickup-planner-api/internal/app/schedule"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/idempotency"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/responserepo"
)

// batchSaveTimeout bounds a multi-slot save so a stuck store cannot hang the
// request indefinitely.
const batchSaveTimeout = 15 * time.Second

// Server implements the HTTP handlers over the application services.
type Server struct {
	schedule *schedule.Service
	calls    *calls.Service
	players  *players.Service
	reminder *reminder.Service

	isAdmin func(domain.Player) bool

	// idem replays stored responses for retried non-idempotent writes.
	idem idempotency.Store

	// internalSecret guards the time-trigger endpoints.
	internalSecret string
}

func NewServer(
	scheduleSvc *schedule.Service,
	callsSvc *calls.Service,
	playersSvc *players.Service,
	reminderSvc *reminder.Service,
	isAdmin func(domain.Player) bool,
	idem idempotency.Store,
	internalSecret string,
) *Server {
	return &Server{
		schedule:       scheduleSvc,
		calls:          callsSvc,
		players:        playersSvc,
		reminder:       reminderSvc,
		isAdmin:        isAdmin,
		idem:           idem,
		internalSecret: internalSecret,
	}
}

func (s *Server) player(w http.ResponseWriter, r *http.Request) (domain.Player, bool) {
	p, ok := PlayerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "no authenticated player", nil)
		return domain.Player{}, false
	}
	return p, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid JSON body", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func parseDateParam(r *http.Request, name string) (domain.Day, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return domain.Day{}, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return domain.Day{}, false
	}
	return domain.DayOf(t), true
}

// --- availability ---

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	p, ok := s.player(w, r)
	if !ok {
		return
	}
	from, okFrom := parseDateParam(r, "from")
	to, okTo := parseDateParam(r, "to")
	if !okFrom || !okTo {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "from and to must be YYYY-MM-DD dates", nil)
		return
	}

	g, err := s.schedule.Grid(r.Context(), p.ID, from, to)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGridResponse(g))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	p, ok := s.player(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.schedule.Toggle(r.Context(), p.ID, toDay(req.Date), req.Hour)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Removed: res.Removed})
}

func (s *Server) handleBatchSave(w http.ResponseWriter, r *http.Request) {
	p, ok := s.player(w, r)
	if !ok {
		return
	}
	var req batchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	changes := make([]schedule.SlotChange, 0, len(req.Changes))
	for _, c := range req.Changes {
		changes = append(changes, schedule.SlotChange{Day: toDay(c.Date), Hour: c.Hour, Available: c.Available})
	}

	ctx, cancel := context.WithTimeout(r.Context(), batchSaveTimeout)
	defer cancel()

	res, err := s.schedule.SaveBatch(ctx, p.ID, changes)
	if err != nil {
		if ctx.Err() != nil {
			writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "batch save timed out; retry", map[string]any{"applied": res.Applied})
			return
		}
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Applied: res.Applied})
}

// --- calls ---

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.player(w, r); !ok {
		return
	}
	from, okFrom := parseDateParam(r, "from")
	if !okFrom {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "from must be a YYYY-MM-DD date", nil)
		return
	}

	ds, err := s.calls.List(r.Context(), from)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]callDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, toCallDTO(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateCall is the one non-idempotent write: a blind retry would mint
// a second call and re-announce it. With an Idempotency-Key header the stored
// 201 is replayed instead; reusing a key with a different payload is a 409.
func (s *Server) handleCreateCall(w http.ResponseWriter, r *http.Request) {
	p, ok := s.player(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unreadable body", nil)
		return
	}
	var req createCallRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	useIdem := s.idem != nil && idemKey != ""
	var respFP idempotency.Fingerprint
	if useIdem {
		sum := sha256.Sum256(raw)
		bodyHash := hex.EncodeToString(sum[:])

		// The hash-less fingerprint records which payload first claimed the
		// key, so reuse with a different payload is detectable.
		metaFP := idempotency.Fingerprint{
			Key:    idempotency.Key(idemKey),
			Player: p.ID,
			Method: http.MethodPost,
			Route:  "/calls",
		}
		if meta, found, err := s.idem.Get(r.Context(), metaFP); err != nil {
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
			return
		} else if found {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else {
			_ = s.idem.Put(r.Context(), metaFP, idempotency.Record{
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   time.Now().UTC(),
			})
		}

		respFP = metaFP
		respFP.BodyHash = bodyHash
		if rec, found, err := s.idem.Get(r.Context(), respFP); err == nil && found && rec.StatusCode == http.StatusCreated {
			w.Header().Set("Content-Type", rec.ContentType)
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	d, err := s.calls.Create(r.Context(), p.ID, calls.CreateCallInput{
		Day:             toDay(req.Date),
		StartHour:       req.StartHour,
		Location:        req.Location,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		Comment:         req.Comment,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	resp := toCallDTO(d)
	if useIdem {
		if b, err := json.Marshal(resp); err == nil {
			_ = s.idem.Put(r.Context(), respFP, idempotency.Record{
				StatusCode:  http.StatusCreated,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   time.Now().UTC(),
			})
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.player(w, r); !ok {
		return
	}
	d, err := s.calls.Get(r.Context(), domain.CallID(chi.URLParam(r, "callID")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCallDTO(d))
}

func (s *Server) handleDeleteCall(w http.ResponseWriter, r *http.Request) {
	p, ok := s.player(w, r)
	if !ok {
		return
	}
	if err := s.calls.Delete(r.Context(), p.ID, domain.CallID(chi.URLParam(r, "callID"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	p, ok := s.player(w, r)
	if !ok {
		return
	}
	var req respondRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.calls.Respond(r.Context(), p.ID, domain.CallID(chi.URLParam(r, "callID")), responserepo.Status(strings.ToUpper(req.Status)))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, callResponseDTO{Changed: res.Changed, Status: res.Status})
}

// --- players ---

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := s.player(w, r)
	if !ok {
		return
	}
	rec, err := s.players.Get(r.Context(), p.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlayerDTO(rec, s.isAdmin(p)))
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.player(w, r); !ok {
		return
	}
	recs, err := s.players.List(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]playerSummaryDTO, 0, len(recs))
	for _, rec := range recs {
		d := rec.Domain()
		out = append(out, playerSummaryDTO{ID: string(rec.ID), DisplayName: d.DisplayName(), AvatarURL: rec.AvatarURL})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdminUpdatePlayer(w http.ResponseWriter, r *http.Request) {
	p, ok := s.player(w, r)
	if !ok {
		return
	}
	var patch adminPlayerPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	rec, err := s.players.AdminUpdate(r.Context(), p.ID, domain.PlayerID(chi.URLParam(r, "playerID")), players.UpdatePlayerInput{
		CustomName: patch.CustomName,
		Banned:     patch.Banned,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlayerDTO(rec, s.isAdmin(rec.Domain())))
}

// --- internal triggers ---

func (s *Server) handleReminderSweep(w http.ResponseWriter, r *http.Request) {
	if !s.checkInternalSecret(w, r) {
		return
	}
	res, err := s.reminder.Sweep(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	out := reminderResponse{Outcome: string(res.Outcome)}
	if res.Outcome == reminder.OutcomeReminded || res.Outcome == reminder.OutcomeAlreadyFull {
		date := fromDay(res.Day)
		out.Date = &date
		out.StartHour = &res.StartHour
		out.Count = &res.Count
		out.Missing = &res.Missing
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) checkInternalSecret(w http.ResponseWriter, r *http.Request) bool {
	if s.internalSecret == "" {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "not found", nil)
		return false
	}
	authz := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if subtle.ConstantTimeCompare([]byte(authz), []byte(s.internalSecret)) != 1 {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid internal secret", nil)
		return false
	}
	return true
}

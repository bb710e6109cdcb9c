package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/adapters/memory/availabilityrepo"
	"github.com/fivesquad/pickup-planner-api/internal/adapters/memory/callrepo"
	"github.com/fivesquad/pickup-planner-api/internal/adapters/memory/clock"
	memidempotency "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/idempotency"
	"github.com/fivesquad/pickup-planner-api/internal/adapters/memory/playerrepo"
	"github.com/fivesquad/pickup-planner-api/internal/adapters/memory/responserepo"
	"github.com/fivesquad/pickup-planner-api/internal/adapters/memory/runstaterepo"
	"github.com/fivesquad/pickup-planner-api/internal/app/calls"
	"github.com/fivesquad/pickup-planner-api/internal/app/players"
	"github.com/fivesquad/pickup-planner-api/internal/app/reminder"
	"github.com/fivesquad/pickup-planner-api/internal/app/schedule"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/platform/auth/tokenverifier"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/notifier"
)

const (
	testProvider     = domain.Provider("discord")
	testAdminAccount = "acct-admin"
)

type countingSink struct {
	mu    sync.Mutex
	count int
}

func (s *countingSink) Dispatch(_ notifier.Message, _ bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

func (s *countingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

type apiFixture struct {
	handler http.Handler
	srv     *Server
	auth    func(http.Handler) http.Handler
	calls   *calls.Service
	players *players.Service
	sched   *schedule.Service
	sink    *countingSink
}

func newAPIFixture(t *testing.T, internalSecret string) *apiFixture {
	t.Helper()

	slots := availabilityrepo.NewRepo()
	playerRepo := playerrepo.NewRepo()
	runs := runstaterepo.NewRepo()
	callRepo := callrepo.NewRepo()
	responses := responserepo.NewRepo()

	clk := clock.NewManualClock(time.Date(2024, time.June, 3, 12, 0, 0, 0, time.UTC))
	sink := &countingSink{}

	isAdminAccount := func(acct domain.ProviderAccountID) bool {
		return string(acct) == testAdminAccount
	}
	isAdminID := func(id domain.PlayerID) bool {
		rec, err := playerRepo.GetByID(context.Background(), id)
		if err != nil {
			return false
		}
		return isAdminAccount(rec.ProviderAccount)
	}

	schedCfg := schedule.Config{Quorum: 10, RunLength: 3, FirstHour: 8, LastHour: 23, AppURL: "https://planner.example"}
	schedSvc := schedule.NewService(slots, playerRepo, runs, sink, clk, schedCfg)
	callsSvc := calls.NewService(callRepo, responses, slots, playerRepo, schedSvc, sink, clk,
		calls.Config{FirstHour: 8, LastHour: 23, AppURL: "https://planner.example"}, isAdminID)
	playersSvc := players.NewService(playerRepo, clk, isAdminID)
	reminderSvc := reminder.NewService(slots, playerRepo, sink, clk,
		reminder.Config{Quorum: 10, RunLength: 3, FirstHour: 8, LastHour: 23, HorizonDays: 14, AppURL: "https://planner.example"})

	srv := NewServer(schedSvc, callsSvc, playersSvc, reminderSvc,
		func(p domain.Player) bool { return isAdminAccount(p.ProviderAccount) },
		memidempotency.NewStore(), internalSecret)

	resolve := func(ctx context.Context, id tokenverifier.Identity) (domain.Player, error) {
		rec, err := playersSvc.Provision(ctx, testProvider, domain.ProviderAccountID(id.Subject), id.Name, id.AvatarURL)
		if err != nil {
			return domain.Player{}, err
		}
		return rec.Domain(), nil
	}

	auth := NewDevAuthMiddleware("", resolve)
	handler := NewRouter(srv, RouterOptions{Auth: auth})

	return &apiFixture{
		handler: handler,
		srv:     srv,
		auth:    auth,
		calls:   callsSvc,
		players: playersSvc,
		sched:   schedSvc,
		sink:    sink,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, account string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return f.doHeaders(t, method, path, account, nil, body)
}

func (f *apiFixture) doHeaders(t *testing.T, method, path, account string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if account != "" {
		req.Header.Set("X-Debug-Account", account)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d, want 204", rec.Code)
	}
}

func TestRouter_RequiresAccount(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	rec := f.do(t, http.MethodGet, "/players/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
	body := decodeBody[errorBody](t, rec)
	if body.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("code=%q, want UNAUTHORIZED", body.Error.Code)
	}
}

func TestToggle_RoundTrip(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	body := map[string]any{"date": "2024-06-10", "hour": 20}

	rec := f.do(t, http.MethodPost, "/availability/toggle", "acct-1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if res := decodeBody[toggleResponse](t, rec); res.Removed {
		t.Fatal("first toggle reported a removal")
	}

	rec = f.do(t, http.MethodPost, "/availability/toggle", "acct-1", body)
	if res := decodeBody[toggleResponse](t, rec); !res.Removed {
		t.Fatal("second toggle did not report a removal")
	}
}

func TestToggle_ValidationError(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	rec := f.do(t, http.MethodPost, "/availability/toggle", "acct-1",
		map[string]any{"date": "2024-06-10", "hour": 99})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rec.Code)
	}
	body := decodeBody[errorBody](t, rec)
	if body.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("code=%q, want VALIDATION_ERROR", body.Error.Code)
	}
	if body.Error.RequestID == "" {
		t.Fatal("error body is missing the request id")
	}
}

func TestGrid_ReturnsOwnAndAggregateSlots(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	toggle := func(account string, hour int) {
		rec := f.do(t, http.MethodPost, "/availability/toggle", account,
			map[string]any{"date": "2024-06-10", "hour": hour})
		if rec.Code != http.StatusOK {
			t.Fatalf("toggle %s@%d: status=%d body=%s", account, hour, rec.Code, rec.Body.String())
		}
	}
	toggle("acct-1", 20)
	toggle("acct-1", 21)
	toggle("acct-2", 20)

	rec := f.do(t, http.MethodGet, "/availability?from=2024-06-10&to=2024-06-16", "acct-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	grid := decodeBody[gridResponse](t, rec)

	if len(grid.MySlots) != 2 {
		t.Fatalf("mySlots=%d, want 2", len(grid.MySlots))
	}
	if len(grid.Slots) != 2 {
		t.Fatalf("slots=%d, want 2", len(grid.Slots))
	}
	if grid.Slots[0].Hour != 20 || grid.Slots[0].Count != 2 {
		t.Fatalf("slot[0]=%+v, want hour 20 count 2", grid.Slots[0])
	}
	if grid.Slots[1].Hour != 21 || grid.Slots[1].Count != 1 {
		t.Fatalf("slot[1]=%+v, want hour 21 count 1", grid.Slots[1])
	}
}

func TestGrid_RejectsBadRange(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	rec := f.do(t, http.MethodGet, "/availability?from=2024-06-10", "acct-1", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rec.Code)
	}
}

func TestBatchSave_Applies(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	rec := f.do(t, http.MethodPut, "/availability", "acct-1", map[string]any{
		"changes": []map[string]any{
			{"date": "2024-06-10", "hour": 20, "available": true},
			{"date": "2024-06-10", "hour": 21, "available": true},
			{"date": "2024-06-11", "hour": 9, "available": true},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if res := decodeBody[batchResponse](t, rec); res.Applied != 3 {
		t.Fatalf("applied=%d, want 3", res.Applied)
	}
}

func TestCalls_CreateGetRespondDelete(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	rec := f.do(t, http.MethodPost, "/calls", "acct-creator", map[string]any{
		"date":            "2024-06-10",
		"startHour":       20,
		"location":        "Riverside court",
		"durationMinutes": 90,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status=%d body=%s", rec.Code, rec.Body.String())
	}
	created := decodeBody[callDTO](t, rec)
	if created.ID == "" {
		t.Fatal("created call has no id")
	}
	if want := []int{20, 21, 22, 23}; len(created.SpanHours) != len(want) {
		t.Fatalf("spanHours=%v, want %v", created.SpanHours, want)
	}
	if len(created.Accepted) != 1 {
		t.Fatalf("accepted=%d, want just the creator", len(created.Accepted))
	}

	rec = f.do(t, http.MethodGet, "/calls/"+created.ID, "acct-2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status=%d body=%s", rec.Code, rec.Body.String())
	}

	// The creator cannot step out of their own call.
	rec = f.do(t, http.MethodPost, "/calls/"+created.ID+"/response", "acct-creator",
		map[string]any{"status": "DECLINED"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("creator decline: status=%d, want 409", rec.Code)
	}
	if body := decodeBody[errorBody](t, rec); body.Error.Code != "CREATOR_MUST_CANCEL" {
		t.Fatalf("code=%q, want CREATOR_MUST_CANCEL", body.Error.Code)
	}

	rec = f.do(t, http.MethodPost, "/calls/"+created.ID+"/response", "acct-2",
		map[string]any{"status": "accepted"})
	if rec.Code != http.StatusOK {
		t.Fatalf("respond: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if res := decodeBody[callResponseDTO](t, rec); !res.Changed || res.Status != "ACCEPTED" {
		t.Fatalf("respond result=%+v", res)
	}

	rec = f.do(t, http.MethodDelete, "/calls/"+created.ID, "acct-2", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("delete by non-creator: status=%d, want 403", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/calls/"+created.ID, "acct-creator", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete by creator: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/calls/"+created.ID, "acct-2", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status=%d, want 404", rec.Code)
	}
}

func TestCalls_ListFromDate(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	for i, date := range []string{"2024-06-10", "2024-06-12"} {
		rec := f.do(t, http.MethodPost, "/calls", "acct-creator", map[string]any{
			"date":            date,
			"startHour":       20,
			"location":        fmt.Sprintf("Court %d", i),
			"durationMinutes": 60,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %s: status=%d body=%s", date, rec.Code, rec.Body.String())
		}
	}

	rec := f.do(t, http.MethodGet, "/calls?from=2024-06-11", "acct-2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status=%d body=%s", rec.Code, rec.Body.String())
	}
	listed := decodeBody[[]callDTO](t, rec)
	if len(listed) != 1 {
		t.Fatalf("listed=%d calls, want 1", len(listed))
	}
	if listed[0].Location != "Court 1" {
		t.Fatalf("location=%q, want the later call", listed[0].Location)
	}
}

func TestCalls_CreateReplaysOnIdempotencyKey(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	body := map[string]any{
		"date":            "2024-06-10",
		"startHour":       20,
		"location":        "Riverside court",
		"durationMinutes": 90,
	}
	headers := map[string]string{"Idempotency-Key": "retry-abc"}

	rec := f.doHeaders(t, http.MethodPost, "/calls", "acct-creator", headers, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status=%d body=%s", rec.Code, rec.Body.String())
	}
	first := decodeBody[callDTO](t, rec)
	announced := f.sink.total()

	rec = f.doHeaders(t, http.MethodPost, "/calls", "acct-creator", headers, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("retry: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if second := decodeBody[callDTO](t, rec); second.ID != first.ID {
		t.Fatalf("retry minted a new call: %s vs %s", second.ID, first.ID)
	}
	if got := f.sink.total(); got != announced {
		t.Fatalf("retry re-announced: %d messages, want %d", got, announced)
	}

	rec = f.do(t, http.MethodGet, "/calls?from=2024-06-01", "acct-2", nil)
	if listed := decodeBody[[]callDTO](t, rec); len(listed) != 1 {
		t.Fatalf("listed=%d calls, want 1", len(listed))
	}
}

func TestCalls_CreateRejectsIdempotencyKeyReuse(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	headers := map[string]string{"Idempotency-Key": "reuse-1"}
	rec := f.doHeaders(t, http.MethodPost, "/calls", "acct-creator", headers, map[string]any{
		"date":            "2024-06-10",
		"startHour":       20,
		"location":        "Riverside court",
		"durationMinutes": 90,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = f.doHeaders(t, http.MethodPost, "/calls", "acct-creator", headers, map[string]any{
		"date":            "2024-06-11",
		"startHour":       19,
		"location":        "Other court",
		"durationMinutes": 60,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("reused key: status=%d, want 409", rec.Code)
	}
	if body := decodeBody[errorBody](t, rec); body.Error.Code != "IDEMPOTENCY_KEY_REUSE" {
		t.Fatalf("code=%q, want IDEMPOTENCY_KEY_REUSE", body.Error.Code)
	}
}

func TestPlayersMe_ReportsAdminFlag(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	rec := f.do(t, http.MethodGet, "/players/me", testAdminAccount, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	me := decodeBody[playerDTO](t, rec)
	if !me.IsAdmin {
		t.Fatal("admin account not flagged as admin")
	}

	rec = f.do(t, http.MethodGet, "/players/me", "acct-1", nil)
	if me := decodeBody[playerDTO](t, rec); me.IsAdmin {
		t.Fatal("regular account flagged as admin")
	}
}

func TestAdminPatch_BanAndUnban(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	rec := f.do(t, http.MethodGet, "/players/me", "acct-target", nil)
	target := decodeBody[playerDTO](t, rec)

	rec = f.do(t, http.MethodPatch, "/players/"+target.ID, "acct-1",
		map[string]any{"banned": true})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("patch by non-admin: status=%d, want 403", rec.Code)
	}

	rec = f.do(t, http.MethodPatch, "/players/"+target.ID, testAdminAccount,
		map[string]any{"banned": true, "customName": "The Wall"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch by admin: status=%d body=%s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[playerDTO](t, rec)
	if !updated.IsBanned {
		t.Fatal("target not banned")
	}
	if updated.DisplayName != "The Wall" {
		t.Fatalf("displayName=%q, want custom name", updated.DisplayName)
	}

	// A banned player is turned away from availability changes.
	rec = f.do(t, http.MethodPost, "/availability/toggle", "acct-target",
		map[string]any{"date": "2024-06-10", "hour": 20})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("banned toggle: status=%d, want 403", rec.Code)
	}

	// null customName clears it again.
	rec = f.do(t, http.MethodPatch, "/players/"+target.ID, testAdminAccount,
		map[string]any{"banned": false, "customName": nil})
	updated = decodeBody[playerDTO](t, rec)
	if updated.IsBanned || updated.CustomName != nil {
		t.Fatalf("after unban: %+v", updated)
	}
}

func TestReminderTrigger_Secret(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "hunter2")

	rec := f.do(t, http.MethodPost, "/internal/reminder", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no secret: status=%d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/internal/reminder", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("with secret: status=%d body=%s", rr.Code, rr.Body.String())
	}
	if res := decodeBody[reminderResponse](t, rr); res.Outcome != "NO_SLOTS" {
		t.Fatalf("outcome=%q, want NO_SLOTS on an empty horizon", res.Outcome)
	}
}

func TestReminderTrigger_DisabledWithoutSecret(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	req := httptest.NewRequest(http.MethodPost, "/internal/reminder", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404 when no secret is configured", rr.Code)
	}
}

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/platform/auth/tokenverifier"
)

type stubVerifier struct {
	identity tokenverifier.Identity
	err      error
	gotToken string
}

func (v *stubVerifier) Verify(_ context.Context, token string) (tokenverifier.Identity, error) {
	v.gotToken = token
	return v.identity, v.err
}

func echoPlayerHandler(t *testing.T, want domain.PlayerID) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PlayerFromContext(r.Context())
		if !ok {
			t.Fatal("no player in context")
		}
		if p.ID != want {
			t.Fatalf("player=%q, want %q", p.ID, want)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func staticResolver(p domain.Player) PlayerResolver {
	return func(context.Context, tokenverifier.Identity) (domain.Player, error) {
		return p, nil
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	t.Parallel()

	v := &stubVerifier{identity: tokenverifier.Identity{Subject: "12345", Name: "Sam"}}
	mw := NewAuthMiddleware(v, staticResolver(domain.Player{ID: "p1"}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-abc")
	rec := httptest.NewRecorder()
	mw(echoPlayerHandler(t, "p1")).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if v.gotToken != "tok-abc" {
		t.Fatalf("verifier saw %q", v.gotToken)
	}
}

func TestAuthMiddleware_RejectsBadHeaders(t *testing.T) {
	t.Parallel()

	v := &stubVerifier{identity: tokenverifier.Identity{Subject: "12345"}}
	mw := NewAuthMiddleware(v, staticResolver(domain.Player{ID: "p1"}))

	for name, header := range map[string]string{
		"missing":   "",
		"no scheme": "tok-abc",
		"empty":     "Bearer ",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatalf("%s: handler reached", name)
		})).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status=%d, want 401", name, rec.Code)
		}
	}
}

func TestAuthMiddleware_RejectsFailedVerification(t *testing.T) {
	t.Parallel()

	v := &stubVerifier{err: tokenverifier.ErrUnauthorized}
	mw := NewAuthMiddleware(v, staticResolver(domain.Player{ID: "p1"}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler reached with an invalid token")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_ResolverFailure(t *testing.T) {
	t.Parallel()

	v := &stubVerifier{identity: tokenverifier.Identity{Subject: "12345"}}
	mw := NewAuthMiddleware(v, func(context.Context, tokenverifier.Identity) (domain.Player, error) {
		return domain.Player{}, errors.New("store down")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-abc")
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler reached")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rec.Code)
	}
}

func TestDevAuthMiddleware_HeaderAndFallback(t *testing.T) {
	t.Parallel()

	var seen tokenverifier.Identity
	resolve := func(_ context.Context, id tokenverifier.Identity) (domain.Player, error) {
		seen = id
		return domain.Player{ID: "p1"}, nil
	}
	mw := NewDevAuthMiddleware("default-acct", resolve)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Debug-Account", "explicit-acct")
	rec := httptest.NewRecorder()
	mw(echoPlayerHandler(t, "p1")).ServeHTTP(rec, req)
	if seen.Subject != "explicit-acct" {
		t.Fatalf("subject=%q, want header value", seen.Subject)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	mw(echoPlayerHandler(t, "p1")).ServeHTTP(rec, req)
	if seen.Subject != "default-acct" {
		t.Fatalf("subject=%q, want fallback account", seen.Subject)
	}
}

func TestDevAuthMiddleware_NoAccount(t *testing.T) {
	t.Parallel()

	mw := NewDevAuthMiddleware("", staticResolver(domain.Player{ID: "p1"}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler reached without an account")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
}

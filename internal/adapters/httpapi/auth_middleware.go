package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/platform/auth/tokenverifier"
)

// TokenVerifier validates a bearer token and returns the caller's provider
// identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (tokenverifier.Identity, error)
}

// PlayerResolver maps a verified identity to a player, provisioning one on
// first login.
type PlayerResolver func(ctx context.Context, id tokenverifier.Identity) (domain.Player, error)

// NewAuthMiddleware enforces Authorization: Bearer <JWT> and stores the
// resolved player in request context.
func NewAuthMiddleware(v TokenVerifier, resolve PlayerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header", nil)
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "malformed Authorization header", nil)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}

			identity, err := v.Verify(r.Context(), raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}

			p, err := resolve(r.Context(), identity)
			if err != nil {
				writeAppError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPlayer(r.Context(), p)))
		})
	}
}

// NewDevAuthMiddleware is a local-only auth shim. It accepts an explicit
// provider account via X-Debug-Account (falling back to defaultAccount) and
// provisions a player for it with no token check. Do not use outside local
// workflows.
func NewDevAuthMiddleware(defaultAccount string, resolve PlayerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := strings.TrimSpace(r.Header.Get("X-Debug-Account"))
			if account == "" {
				account = strings.TrimSpace(defaultAccount)
			}
			if account == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing account (set X-Debug-Account)", nil)
				return
			}

			p, err := resolve(r.Context(), tokenverifier.Identity{Subject: account, Name: account})
			if err != nil {
				writeAppError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPlayer(r.Context(), p)))
		})
	}
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterOptions carries the pieces the router wires around the Server's
// handlers. Interactions is optional; when nil the endpoint is not mounted.
type RouterOptions struct {
	Auth         func(http.Handler) http.Handler
	Interactions *InteractionsHandler
}

// NewRouter assembles the HTTP surface. Health and the Discord callback stay
// outside player auth; the reminder trigger authenticates with the internal
// secret inside the handler itself.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if opts.Interactions != nil {
		r.Post("/interactions", opts.Interactions.ServeHTTP)
	}

	r.Post("/internal/reminder", s.handleReminderSweep)

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}

		r.Get("/availability", s.handleGetGrid)
		r.Post("/availability/toggle", s.handleToggle)
		r.Put("/availability", s.handleBatchSave)

		r.Get("/calls", s.handleListCalls)
		r.Post("/calls", s.handleCreateCall)
		r.Get("/calls/{callID}", s.handleGetCall)
		r.Delete("/calls/{callID}", s.handleDeleteCall)
		r.Post("/calls/{callID}/response", s.handleRespond)

		r.Get("/players/me", s.handleMe)
		r.Get("/players", s.handleListPlayers)
		r.Patch("/players/{playerID}", s.handleAdminUpdatePlayer)
	})

	return r
}

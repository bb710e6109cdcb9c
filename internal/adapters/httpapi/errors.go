package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fivesquad/pickup-planner-api/internal/app/calls"
	"github.com/fivesquad/pickup-planner-api/internal/app/players"
	"github.com/fivesquad/pickup-planner-api/internal/app/schedule"
)

type errorBody struct {
	Error struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		Details   map[string]any `json:"details,omitempty"`
		RequestID string         `json:"requestId,omitempty"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	var eb errorBody
	eb.Error.Code = code
	eb.Error.Message = message
	eb.Error.Details = details
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		eb.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(eb)
}

// writeAppError maps application-layer errors onto the wire format. Anything
// unrecognized becomes an opaque 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var se *schedule.Error
	if errors.As(err, &se) {
		writeError(w, r, se.Status, se.Code, se.Message, se.Details)
		return
	}
	var ce *calls.Error
	if errors.As(err, &ce) {
		writeError(w, r, ce.Status, ce.Code, ce.Message, ce.Details)
		return
	}
	var pe *players.Error
	if errors.As(err, &pe) {
		writeError(w, r, pe.Status, pe.Code, pe.Message, pe.Details)
		return
	}
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

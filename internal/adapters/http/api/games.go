// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/halloway/vigil/internal/adapters/storage"
	service "github.com/halloway/vigil/internal/app"
	"github.com/halloway/vigil/internal/domain/model"
)

// GameDependencies defines the interface for game ingestion.
type GameDependencies interface {
	Submit(ctx context.Context, g model.Game) error
}

// GamesHandler handles game submissions.
type GamesHandler struct {
	deps GameDependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps GameDependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// HandlePostGame handles POST /games requests. Acceptance is an
// acknowledgement that the game entered the pipeline, not that it has
// been committed.
func (h *GamesHandler) HandlePostGame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_game"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req gameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.deps.Submit(r.Context(), req.toModel())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
	case errors.Is(err, storage.ErrDuplicateGame):
		// Same id, same outcome: idempotent acknowledgement.
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	case errors.Is(err, model.ErrInvalidGame):
		writeError(w, http.StatusBadRequest, "invalid_game", wrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", newKind(op, ErrBackpressure))
	case errors.Is(err, service.ErrNotRunning):
		writeError(w, http.StatusServiceUnavailable, "not_running", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/halloway/vigil/internal/adapters/repository"
	"github.com/halloway/vigil/internal/domain/model"
)

// PlayerDependencies defines the interface for per-player operations.
type PlayerDependencies interface {
	Rank(ctx context.Context, player int64) (Entry, error)
	History(ctx context.Context, player int64) ([]model.Appearance, error)
	Hide(ctx context.Context, player int64) error
	Show(ctx context.Context, player int64) error
	RebuildPlayer(ctx context.Context, player int64) error
}

// PlayersHandler handles per-player requests.
type PlayersHandler struct {
	deps PlayerDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandlePlayers dispatches /players/{player}/{action} requests:
//
//	GET  /players/{player}/rank
//	GET  /players/{player}/appearances
//	POST /players/{player}/hide
//	POST /players/{player}/show
//	POST /players/{player}/rebuild
func (h *PlayersHandler) HandlePlayers(w http.ResponseWriter, r *http.Request) {
	const op = "api.players"
	path := strings.TrimPrefix(r.URL.Path, "/players/")
	segment, action, ok := strings.Cut(path, "/")
	if !ok || segment == "" || strings.Contains(action, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}
	player, err := parsePlayerID(segment)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}

	switch {
	case action == "rank" && r.Method == http.MethodGet:
		h.handleRank(w, r, player)
	case action == "appearances" && r.Method == http.MethodGet:
		h.handleAppearances(w, r, player)
	case action == "hide" && r.Method == http.MethodPost:
		h.handleModeration(w, r, player, h.deps.Hide)
	case action == "show" && r.Method == http.MethodPost:
		h.handleModeration(w, r, player, h.deps.Show)
	case action == "rebuild" && r.Method == http.MethodPost:
		h.handleRebuild(w, r, player)
	default:
		http.NotFound(w, r)
	}
}

func (h *PlayersHandler) handleRank(w http.ResponseWriter, r *http.Request, player int64) {
	entry, err := h.deps.Rank(r.Context(), player)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrHidden):
			writeError(w, http.StatusNotFound, "hidden", err)
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *PlayersHandler) handleAppearances(w http.ResponseWriter, r *http.Request, player int64) {
	history, err := h.deps.History(r.Context(), player)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	// A player with no history gets an empty list, not an error.
	if history == nil {
		history = []model.Appearance{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *PlayersHandler) handleModeration(w http.ResponseWriter, r *http.Request, player int64, apply func(context.Context, int64) error) {
	if err := apply(r.Context(), player); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}

func (h *PlayersHandler) handleRebuild(w http.ResponseWriter, r *http.Request, player int64) {
	if err := h.deps.RebuildPlayer(r.Context(), player); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "rebuilt"})
}

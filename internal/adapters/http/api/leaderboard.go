// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/halloway/vigil/internal/adapters/repository"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, offset, limit int) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps         LeaderboardDependencies
	maxLimit     int
	defaultLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit, defaultLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:         deps,
		maxLimit:     maxLimit,
		defaultLimit: defaultLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?offset=N&limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
			return
		}
		offset = n
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", newKind(op, ErrBadRequest))
		return
	}

	entries, err := h.deps.Leaderboard(r.Context(), offset, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidWindow) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	// A window past the end is an empty page, not an error.
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/halloway/vigil/internal/domain/types"
)

// RatingDependencies defines the interface for rating reads.
type RatingDependencies interface {
	Rating(ctx context.Context, player int64) (types.RatingInfo, error)
}

// RatingHandler handles rating requests.
type RatingHandler struct {
	deps RatingDependencies
}

// NewRatingHandler creates a new rating handler.
func NewRatingHandler(deps RatingDependencies) *RatingHandler {
	return &RatingHandler{deps: deps}
}

// HandleGetRating handles GET /rating/{player} requests. Unknown players
// report the documented prior rather than 404.
func (h *RatingHandler) HandleGetRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rating"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	segment := strings.TrimPrefix(r.URL.Path, "/rating/")
	if segment == "" || strings.Contains(segment, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}
	player, err := parsePlayerID(segment)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}

	info, err := h.deps.Rating(r.Context(), player)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

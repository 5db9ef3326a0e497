// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/halloway/vigil/internal/domain/resolve"
	"github.com/halloway/vigil/internal/domain/types"
)

// ResolveDependencies defines the interface for identity resolution.
type ResolveDependencies interface {
	Resolve(ctx context.Context, input string) resolve.Resolution
}

// ResolveHandler handles identity resolution requests.
type ResolveHandler struct {
	deps ResolveDependencies
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(deps ResolveDependencies) *ResolveHandler {
	return &ResolveHandler{deps: deps}
}

// resolveResponse is the wire shape for GET /resolve. Player is present
// only when Status is "resolved"; Candidates only when "ambiguous".
type resolveResponse struct {
	Status     string            `json:"status"`
	Player     int64             `json:"player,omitempty"`
	Candidates []types.Candidate `json:"candidates,omitempty"`
}

// HandleResolve handles GET /resolve?input= requests.
func (h *ResolveHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	const op = "api.resolve"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	input := strings.TrimSpace(r.URL.Query().Get("input"))
	if input == "" {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}

	res := h.deps.Resolve(r.Context(), input)
	switch res.Status {
	case resolve.Resolved:
		writeJSON(w, http.StatusOK, resolveResponse{Status: "resolved", Player: res.Player})
	case resolve.Ambiguous:
		candidates := make([]types.Candidate, len(res.Candidates))
		for i, c := range res.Candidates {
			candidates[i] = types.Candidate{
				Alias:    c.Alias,
				Player:   c.Owner,
				Distance: c.Distance,
				Weight:   c.Weight,
			}
		}
		writeJSON(w, http.StatusOK, resolveResponse{Status: "ambiguous", Candidates: candidates})
	default:
		writeJSON(w, http.StatusNotFound, resolveResponse{Status: "not_found"})
	}
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/halloway/vigil/internal/domain/types"
)

// SearchDependencies defines the interface for approximate name search.
type SearchDependencies interface {
	Search(ctx context.Context, query string, k int) []types.Candidate
}

// SearchHandler handles approximate name search requests.
type SearchHandler struct {
	deps       SearchDependencies
	maxResults int
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies, maxResults int) *SearchHandler {
	return &SearchHandler{deps: deps, maxResults: maxResults}
}

// HandleSearch handles GET /search?q=&k= requests.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}

	k := h.maxResults
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
			return
		}
		if n < k {
			k = n
		}
	}

	candidates := h.deps.Search(r.Context(), query, k)
	if candidates == nil {
		candidates = []types.Candidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

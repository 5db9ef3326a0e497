// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/halloway/vigil/internal/domain/nameindex"
	"github.com/halloway/vigil/internal/domain/resolve"
)

// IdentityDependencies defines the interface for alias and link writes.
type IdentityDependencies interface {
	RegisterAlias(ctx context.Context, alias string, player int64) error
	LinkExternal(ctx context.Context, externalID string, player int64) error
}

// IdentityHandler handles alias and external-link registration.
type IdentityHandler struct {
	deps IdentityDependencies
}

// NewIdentityHandler creates a new identity handler.
func NewIdentityHandler(deps IdentityDependencies) *IdentityHandler {
	return &IdentityHandler{deps: deps}
}

// aliasRequest mirrors the schema for POST /aliases.
type aliasRequest struct {
	Alias  string `json:"alias"`
	Player int64  `json:"player"`
}

// linkRequest mirrors the schema for POST /links.
type linkRequest struct {
	ExternalID string `json:"external_id"`
	Player     int64  `json:"player"`
}

// HandlePostAlias handles POST /aliases requests. Registering the same
// alias for the same player is idempotent; claiming another player's
// alias conflicts.
func (h *IdentityHandler) HandlePostAlias(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_alias"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req aliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Alias) == "" || req.Player <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}

	err := h.deps.RegisterAlias(r.Context(), req.Alias, req.Player)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
	case errors.Is(err, nameindex.ErrAliasTaken):
		writeError(w, http.StatusConflict, "alias_taken", err)
	case errors.Is(err, nameindex.ErrEmptyAlias):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// HandlePostLink handles POST /links requests. Re-linking an external
// id moves it to the new player.
func (h *IdentityHandler) HandlePostLink(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_link"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.ExternalID) == "" || req.Player <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}

	err := h.deps.LinkExternal(r.Context(), req.ExternalID, req.Player)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
	case errors.Is(err, resolve.ErrEmptyExternalID):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

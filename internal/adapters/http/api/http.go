// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/halloway/vigil/internal/domain/model"
	"github.com/halloway/vigil/internal/domain/resolve"
	"github.com/halloway/vigil/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit pushes a validated game for async commit.
	Submit(ctx context.Context, g model.Game) error

	// Read operations expose the ranked view and rating state.
	Leaderboard(ctx context.Context, offset, limit int) ([]Entry, error)
	Rank(ctx context.Context, player int64) (Entry, error)
	Rating(ctx context.Context, player int64) (types.RatingInfo, error)
	History(ctx context.Context, player int64) ([]model.Appearance, error)

	// Identity operations expose the alias index and resolver.
	Search(ctx context.Context, query string, k int) []types.Candidate
	Resolve(ctx context.Context, input string) resolve.Resolution
	RegisterAlias(ctx context.Context, alias string, player int64) error
	LinkExternal(ctx context.Context, externalID string, player int64) error

	// Moderation operations.
	Hide(ctx context.Context, player int64) error
	Show(ctx context.Context, player int64) error
	RebuildPlayer(ctx context.Context, player int64) error
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Default pagination and search bounds; overridable per server.
const (
	defaultMaxLeaderboardLimit     = 100
	defaultDefaultLeaderboardLimit = 25
	defaultMaxSearchResults        = 20
)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	gamesHandler       *GamesHandler
	leaderboardHandler *LeaderboardHandler
	ratingHandler      *RatingHandler
	playersHandler     *PlayersHandler
	searchHandler      *SearchHandler
	resolveHandler     *ResolveHandler
	identityHandler    *IdentityHandler

	maxLimit     int
	defaultLimit int
	maxResults   int
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps the leaderboard page size.
func WithMaxLeaderboardLimit(limit int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithDefaultLeaderboardLimit sets the page size used when the request
// omits one.
func WithDefaultLeaderboardLimit(limit int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

// WithMaxSearchResults caps the candidate count returned by search.
func WithMaxSearchResults(k int) Option {
	return func(s *Server) {
		if k > 0 {
			s.maxResults = k
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		maxLimit:     defaultMaxLeaderboardLimit,
		defaultLimit: defaultDefaultLeaderboardLimit,
		maxResults:   defaultMaxSearchResults,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.gamesHandler = NewGamesHandler(deps)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxLimit, s.defaultLimit)
	s.ratingHandler = NewRatingHandler(deps)
	s.playersHandler = NewPlayersHandler(deps)
	s.searchHandler = NewSearchHandler(deps, s.maxResults)
	s.resolveHandler = NewResolveHandler(deps)
	s.identityHandler = NewIdentityHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/games", MetricsMiddleware(s.gamesHandler.HandlePostGame, "games"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rating/", MetricsMiddleware(s.ratingHandler.HandleGetRating, "rating"))
	mux.HandleFunc("/players/", MetricsMiddleware(s.playersHandler.HandlePlayers, "players"))
	mux.HandleFunc("/search", MetricsMiddleware(s.searchHandler.HandleSearch, "search"))
	mux.HandleFunc("/resolve", MetricsMiddleware(s.resolveHandler.HandleResolve, "resolve"))
	mux.HandleFunc("/aliases", MetricsMiddleware(s.identityHandler.HandlePostAlias, "aliases"))
	mux.HandleFunc("/links", MetricsMiddleware(s.identityHandler.HandlePostLink, "links"))
}

// gameRequest mirrors the analyzer's output schema for POST /games.
type gameRequest struct {
	GameID          string               `json:"game_id"`
	Timecode        int64                `json:"timecode"`
	AnalysisVersion int                  `json:"analysis_version"`
	Participants    []participantRequest `json:"participants"`
}

type participantRequest struct {
	AccountName  string `json:"account_name"`
	StartingRole string `json:"starting_role"`
	EndingRole   string `json:"ending_role"`
	Faction      string `json:"faction"`
	Won          bool   `json:"won"`
	SawHunt      bool   `json:"saw_hunt"`
}

// toModel converts the wire shape into the domain record. Structural
// validation stays in the domain; the handler only shapes data.
func (g gameRequest) toModel() model.Game {
	participants := make([]model.Participant, len(g.Participants))
	for i, p := range g.Participants {
		participants[i] = model.Participant{
			AccountName:  p.AccountName,
			StartingRole: p.StartingRole,
			EndingRole:   p.EndingRole,
			Faction:      p.Faction,
			Won:          p.Won,
			SawHunt:      p.SawHunt,
		}
	}
	return model.Game{
		GameID:          g.GameID,
		Timecode:        g.Timecode,
		AnalysisVersion: g.AnalysisVersion,
		Participants:    participants,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// parsePlayerID parses a numeric player id path segment.
func parsePlayerID(segment string) (int64, error) {
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadRequest
	}
	return id, nil
}

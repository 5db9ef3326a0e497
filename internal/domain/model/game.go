// Package model contains domain records passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Participant is one player's slot in a submitted game. Fields mirror
// the analyzer's output schema for POST /games.
type Participant struct {
	AccountName  string
	StartingRole string
	EndingRole   string
	Faction      string
	Won          bool
	SawHunt      bool
}

// Game is a validated, structured game record as handed over by the
// analyzer. GameID doubles as the idempotency key.
type Game struct {
	GameID          string
	Timecode        int64
	AnalysisVersion int
	Participants    []Participant
}

// Validate checks the structural requirements for ingestion. A game that
// fails validation is rejected before any mutation happens.
func (g *Game) Validate() error {
	if strings.TrimSpace(g.GameID) == "" {
		return fmt.Errorf("%w: missing game_id", ErrInvalidGame)
	}
	if g.Timecode <= 0 {
		return fmt.Errorf("%w: missing timecode", ErrInvalidGame)
	}
	if len(g.Participants) < 2 {
		return fmt.Errorf("%w: need at least two participants", ErrInvalidGame)
	}

	seen := make(map[string]struct{}, len(g.Participants))
	winners, losers := 0, 0
	for i := range g.Participants {
		p := &g.Participants[i]
		switch {
		case strings.TrimSpace(p.AccountName) == "":
			return fmt.Errorf("%w: participant %d missing account_name", ErrInvalidGame, i)
		case strings.TrimSpace(p.StartingRole) == "":
			return fmt.Errorf("%w: participant %d missing starting_role", ErrInvalidGame, i)
		case strings.TrimSpace(p.EndingRole) == "":
			return fmt.Errorf("%w: participant %d missing ending_role", ErrInvalidGame, i)
		case strings.TrimSpace(p.Faction) == "":
			return fmt.Errorf("%w: participant %d missing faction", ErrInvalidGame, i)
		}
		key := strings.ToLower(p.AccountName)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate account_name %q", ErrInvalidGame, p.AccountName)
		}
		seen[key] = struct{}{}
		if p.Won {
			winners++
		} else {
			losers++
		}
	}
	if winners == 0 || losers == 0 {
		return fmt.Errorf("%w: game must have both winners and losers", ErrInvalidGame)
	}
	return nil
}

// Appearance is one player's immutable participation record in one game.
// (game_id, player) is the primary key; the appearance log is the sole
// source of truth for rating history.
type Appearance struct {
	GameID          string  `json:"game_id"`
	Player          int64   `json:"player"`
	StartingRole    string  `json:"starting_role"`
	EndingRole      string  `json:"ending_role"`
	Faction         string  `json:"faction"`
	AccountName     string  `json:"account_name"`
	Won             bool    `json:"won"`
	SawHunt         bool    `json:"saw_hunt"`
	MuAfter         float64 `json:"mu_after"`
	SigmaAfter      float64 `json:"sigma_after"`
	Timecode        int64   `json:"timecode"`
	AnalysisVersion int     `json:"analysis_version"`
}

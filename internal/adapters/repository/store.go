// Package repository holds the materialized rating cache and the
// leaderboard view derived from it.
package repository

import (
	"context"

	"github.com/halloway/vigil/internal/domain/stats"
	"github.com/halloway/vigil/internal/domain/types"
)

// Snapshot is a player's cached rating state. It is a derived
// projection of the appearance log, never independently authoritative:
// any snapshot can be rebuilt by replaying the player's appearances.
type Snapshot struct {
	Player   int64
	Name     string
	Mu       float64
	Sigma    float64
	Ordinal  float64
	Games    int
	Winrates map[stats.Key]stats.Winrate
}

// Update is one player's share of a committed game. A game's updates
// are applied as a unit so readers never observe a partially applied
// game.
type Update struct {
	Player int64
	Name   string
	Mu     float64
	Sigma  float64
	Won    bool
	Class  stats.Key
}

// Store provides read/write access to the rating cache and the ranked
// view over it.
type Store interface {
	// ApplyGame overwrites each touched player's snapshot with the new
	// posterior, recomputes ordinals, and updates ranks, atomically with
	// respect to readers.
	ApplyGame(ctx context.Context, updates []Update) error

	// ReplacePlayer installs a rebuilt snapshot wholesale, used by
	// consistency repair and startup replay.
	ReplacePlayer(ctx context.Context, snap Snapshot) error

	// Snapshot returns the cached rating state for a player.
	// Returns ErrNotFound if the player has no appearance yet.
	Snapshot(ctx context.Context, player int64) (Snapshot, error)

	// Rank returns the player's leaderboard entry with its dense rank.
	// Returns ErrHidden for hidden players and ErrNotFound for unknown ones.
	Rank(ctx context.Context, player int64) (types.Entry, error)

	// Leaderboard returns the ranked window [offset, offset+limit) of
	// visible players, ordinal descending, ties sharing a dense rank.
	Leaderboard(ctx context.Context, offset, limit int) ([]types.Entry, error)

	// Hide removes a player from the view without touching the snapshot.
	Hide(ctx context.Context, player int64) error
	// Show restores a hidden player to the view.
	Show(ctx context.Context, player int64) error
	// Hidden reports view membership.
	Hidden(ctx context.Context, player int64) bool

	// Count returns the number of cached players, hidden included.
	Count(ctx context.Context) int
	// VisibleCount returns the number of ranked players.
	VisibleCount(ctx context.Context) int
}

package repository

import (
	"context"
	"math/rand"
	"testing"

	"github.com/halloway/vigil/internal/domain/stats"
)

func newTestStore() *TreapStore {
	return NewTreapStore(context.Background(), WithRandSource(rand.NewSource(42)))
}

func mustApply(t *testing.T, s *TreapStore, updates ...Update) {
	t.Helper()
	if err := s.ApplyGame(context.Background(), updates); err != nil {
		t.Fatalf("ApplyGame: %v", err)
	}
}

func upd(player int64, name string, mu, sigma float64) Update {
	return Update{
		Player: player,
		Name:   name,
		Mu:     mu,
		Sigma:  sigma,
		Won:    true,
		Class:  stats.Key{Faction: "town"},
	}
}

func TestTreapStoreOrdering(t *testing.T) {
	s := newTestStore()
	mustApply(t, s,
		upd(1, "alpha", 30, 1), // ordinal 27
		upd(2, "bravo", 28, 1), // ordinal 25
		upd(3, "carol", 32, 1), // ordinal 29
	)

	entries, err := s.Leaderboard(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantOrder := []int64{3, 1, 2}
	for i, want := range wantOrder {
		if entries[i].Player != want {
			t.Errorf("position %d: expected player %d, got %d", i, want, entries[i].Player)
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Ordinal > entries[i-1].Ordinal {
			t.Errorf("ordinals not descending at %d", i)
		}
	}
}

func TestTreapStoreDenseRank(t *testing.T) {
	s := newTestStore()
	// Two tied ordinals at the top, one below.
	mustApply(t, s,
		upd(1, "alpha", 30, 1), // 27
		upd(2, "bravo", 30, 1), // 27, tied with player 1
		upd(3, "carol", 28, 1), // 25
	)

	for _, player := range []int64{1, 2} {
		e, err := s.Rank(context.Background(), player)
		if err != nil {
			t.Fatalf("Rank(%d): %v", player, err)
		}
		if e.Rank != 1 {
			t.Errorf("player %d: expected shared rank 1, got %d", player, e.Rank)
		}
	}

	e, err := s.Rank(context.Background(), 3)
	if err != nil {
		t.Fatalf("Rank(3): %v", err)
	}
	if e.Rank != 2 {
		t.Errorf("expected dense rank 2 after a two-way tie, got %d", e.Rank)
	}

	entries, err := s.Leaderboard(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	// Rank law: rank(e) = 1 + number of distinct strictly greater ordinals.
	for _, e := range entries {
		distinct := make(map[float64]struct{})
		for _, other := range entries {
			if other.Ordinal > e.Ordinal {
				distinct[other.Ordinal] = struct{}{}
			}
		}
		if want := 1 + len(distinct); e.Rank != want {
			t.Errorf("player %d: rank %d violates dense rank law (want %d)", e.Player, e.Rank, want)
		}
	}
}

func TestTreapStoreOverwrite(t *testing.T) {
	s := newTestStore()
	mustApply(t, s, upd(1, "alpha", 30, 1))
	mustApply(t, s, upd(2, "bravo", 40, 1))

	// Player 1 improves past player 2.
	mustApply(t, s, upd(1, "alpha", 50, 1))

	e, err := s.Rank(context.Background(), 1)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if e.Rank != 1 {
		t.Errorf("expected rank 1 after overwrite, got %d", e.Rank)
	}
	snap, err := s.Snapshot(context.Background(), 1)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Games != 2 {
		t.Errorf("expected 2 games, got %d", snap.Games)
	}
	if s.VisibleCount(context.Background()) != 2 {
		t.Errorf("overwrite must not duplicate view entries")
	}
	wr := snap.Winrates[stats.Key{Faction: "town"}]
	if wr.Games != 2 || wr.Wins != 2 {
		t.Errorf("expected winrate 2/2, got %d/%d", wr.Wins, wr.Games)
	}
}

func TestTreapStoreHidden(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	mustApply(t, s,
		upd(1, "alpha", 30, 1),
		upd(2, "bravo", 28, 1),
		upd(3, "carol", 26, 1),
	)

	if err := s.Hide(ctx, 1); err != nil {
		t.Fatalf("Hide: %v", err)
	}

	if _, err := s.Rank(ctx, 1); err != ErrHidden {
		t.Errorf("expected ErrHidden, got %v", err)
	}
	// Snapshot stays readable while hidden.
	if _, err := s.Snapshot(ctx, 1); err != nil {
		t.Errorf("hidden snapshot should remain readable: %v", err)
	}

	entries, err := s.Leaderboard(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 visible entries, got %d", len(entries))
	}
	if entries[0].Player != 2 || entries[0].Rank != 1 {
		t.Errorf("ranks must close over the hidden player: got player %d rank %d", entries[0].Player, entries[0].Rank)
	}

	// Updates while hidden must not leak into the view.
	mustApply(t, s, upd(1, "alpha", 60, 1))
	if s.VisibleCount(ctx) != 2 {
		t.Errorf("hidden player leaked into the view")
	}

	if err := s.Show(ctx, 1); err != nil {
		t.Fatalf("Show: %v", err)
	}
	e, err := s.Rank(ctx, 1)
	if err != nil {
		t.Fatalf("Rank after Show: %v", err)
	}
	if e.Rank != 1 {
		t.Errorf("expected rank 1 after Show with updated rating, got %d", e.Rank)
	}

	// Hide and Show are idempotent.
	if err := s.Show(ctx, 1); err != nil {
		t.Fatalf("repeated Show: %v", err)
	}
	if s.VisibleCount(ctx) != 3 {
		t.Errorf("repeated Show duplicated a view entry")
	}
}

func TestTreapStorePagination(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for i := int64(1); i <= 50; i++ {
		mustApply(t, s, upd(i, "", float64(100+i), 1))
	}

	page, err := s.Leaderboard(ctx, 10, 5)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(page) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(page))
	}
	// Highest mu is player 50; offset 10 lands on player 40.
	for i, want := range []int64{40, 39, 38, 37, 36} {
		if page[i].Player != want {
			t.Errorf("position %d: expected player %d, got %d", i, want, page[i].Player)
		}
	}

	tail, err := s.Leaderboard(ctx, 48, 10)
	if err != nil {
		t.Fatalf("Leaderboard tail: %v", err)
	}
	if len(tail) != 2 {
		t.Errorf("expected truncated tail of 2, got %d", len(tail))
	}

	empty, err := s.Leaderboard(ctx, 100, 10)
	if err != nil {
		t.Fatalf("Leaderboard past end: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty window past the end, got %d", len(empty))
	}

	if _, err := s.Leaderboard(ctx, -1, 10); err != ErrInvalidWindow {
		t.Errorf("expected ErrInvalidWindow for negative offset, got %v", err)
	}
	if _, err := s.Leaderboard(ctx, 0, 0); err != ErrInvalidWindow {
		t.Errorf("expected ErrInvalidWindow for zero limit, got %v", err)
	}
}

func TestTreapStoreReplacePlayer(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	mustApply(t, s, upd(1, "alpha", 30, 1), upd(2, "bravo", 28, 1))

	rebuilt := Snapshot{
		Player:  1,
		Name:    "alpha",
		Mu:      20,
		Sigma:   1,
		Ordinal: 17,
		Games:   7,
		Winrates: map[stats.Key]stats.Winrate{
			{Faction: "coven"}: {Wins: 3, Games: 7},
		},
	}
	if err := s.ReplacePlayer(ctx, rebuilt); err != nil {
		t.Fatalf("ReplacePlayer: %v", err)
	}

	snap, err := s.Snapshot(ctx, 1)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Games != 7 || snap.Mu != 20 {
		t.Errorf("snapshot not replaced: games=%d mu=%v", snap.Games, snap.Mu)
	}

	e, err := s.Rank(ctx, 1)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if e.Rank != 2 {
		t.Errorf("expected demoted rank 2 after replace, got %d", e.Rank)
	}
	if s.VisibleCount(ctx) != 2 {
		t.Errorf("replace must not duplicate view entries")
	}
}

func TestTreapStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	if _, err := s.Snapshot(ctx, 99); err != ErrNotFound {
		t.Errorf("expected ErrNotFound from Snapshot, got %v", err)
	}
	if _, err := s.Rank(ctx, 99); err != ErrNotFound {
		t.Errorf("expected ErrNotFound from Rank, got %v", err)
	}
}

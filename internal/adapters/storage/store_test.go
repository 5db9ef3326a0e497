package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/halloway/vigil/internal/domain/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "vigil.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func appearance(gameID string, player int64, name string, won bool, timecode int64) model.Appearance {
	return model.Appearance{
		GameID:          gameID,
		Player:          player,
		AccountName:     name,
		StartingRole:    "villager",
		EndingRole:      "villager",
		Faction:         "town",
		Won:             won,
		SawHunt:         false,
		MuAfter:         25,
		SigmaAfter:      8,
		Timecode:        timecode,
		AnalysisVersion: 1,
	}
}

func TestEnsurePlayers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ids, err := s.EnsurePlayers(ctx, []string{"Wolfie", "Badger"})
	if err != nil {
		t.Fatalf("EnsurePlayers: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if ids["Wolfie"] == ids["Badger"] {
		t.Errorf("distinct names must get distinct ids")
	}

	// Names are canonical case-insensitively.
	again, err := s.EnsurePlayers(ctx, []string{"wolfie"})
	if err != nil {
		t.Fatalf("EnsurePlayers again: %v", err)
	}
	if again["wolfie"] != ids["Wolfie"] {
		t.Errorf("case-insensitive lookup returned a new id")
	}

	name, err := s.PlayerName(ctx, ids["Wolfie"])
	if err != nil {
		t.Fatalf("PlayerName: %v", err)
	}
	if name != "Wolfie" {
		t.Errorf("expected stored name Wolfie, got %q", name)
	}

	if _, err := s.PlayerName(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendAndReplay(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ids, err := s.EnsurePlayers(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("EnsurePlayers: %v", err)
	}

	g1 := []model.Appearance{
		appearance("g1", ids["a"], "a", true, 100),
		appearance("g1", ids["b"], "b", false, 100),
	}
	if err := s.AppendAppearances(ctx, g1); err != nil {
		t.Fatalf("AppendAppearances: %v", err)
	}

	found, err := s.HasGame(ctx, "g1")
	if err != nil {
		t.Fatalf("HasGame: %v", err)
	}
	if !found {
		t.Errorf("expected HasGame true after append")
	}

	// Second game committed later but carrying an earlier timecode.
	// Replay must follow commit order, not timecode order, so a replay
	// lands on the same state the incremental path produced.
	g0 := []model.Appearance{
		appearance("g0", ids["a"], "a", false, 50),
		appearance("g0", ids["b"], "b", true, 50),
	}
	if err := s.AppendAppearances(ctx, g0); err != nil {
		t.Fatalf("AppendAppearances g0: %v", err)
	}

	var order []string
	err = s.ReplayAppearances(ctx, func(a model.Appearance) error {
		order = append(order, a.GameID)
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayAppearances: %v", err)
	}
	want := []string{"g1", "g1", "g0", "g0"}
	if len(order) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("replay position %d: expected %s, got %s", i, want[i], order[i])
		}
	}

	history, err := s.PlayerAppearances(ctx, ids["a"])
	if err != nil {
		t.Fatalf("PlayerAppearances: %v", err)
	}
	if len(history) != 2 || history[0].GameID != "g1" || history[1].GameID != "g0" {
		t.Errorf("expected history in commit order, got: %+v", history)
	}
}

func TestAppendDuplicateGameAtomic(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ids, err := s.EnsurePlayers(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EnsurePlayers: %v", err)
	}

	g1 := []model.Appearance{
		appearance("g1", ids["a"], "a", true, 100),
		appearance("g1", ids["b"], "b", false, 100),
	}
	if err := s.AppendAppearances(ctx, g1); err != nil {
		t.Fatalf("AppendAppearances: %v", err)
	}

	// Same game id again, this time with an extra participant. The whole
	// batch must roll back, including player c's fresh row.
	dup := []model.Appearance{
		appearance("g1", ids["c"], "c", true, 100),
		appearance("g1", ids["a"], "a", true, 100),
	}
	if err := s.AppendAppearances(ctx, dup); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}

	history, err := s.PlayerAppearances(ctx, ids["c"])
	if err != nil {
		t.Fatalf("PlayerAppearances: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("partial game leaked into the log: %+v", history)
	}
}

func TestAliasPersistence(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertAlias(ctx, AliasRecord{Alias: "Wolfie", Owner: 1}); err != nil {
		t.Fatalf("UpsertAlias: %v", err)
	}
	// A registered alias is never displaced by a later claim.
	if err := s.ClaimAlias(ctx, "Wolfie", 2); err != nil {
		t.Fatalf("ClaimAlias Wolfie: %v", err)
	}
	// First claim of an unknown alias creates an owned row.
	if err := s.ClaimAlias(ctx, "ghost", 3); err != nil {
		t.Fatalf("ClaimAlias ghost: %v", err)
	}
	if err := s.ClaimAlias(ctx, "ghost", 4); err != nil {
		t.Fatalf("ClaimAlias ghost again: %v", err)
	}

	aliases, err := s.Aliases(ctx)
	if err != nil {
		t.Fatalf("Aliases: %v", err)
	}
	byAlias := make(map[string]AliasRecord, len(aliases))
	for _, rec := range aliases {
		byAlias[rec.Alias] = rec
	}
	if rec := byAlias["Wolfie"]; rec.Owner != 1 {
		t.Errorf("expected Wolfie owner=1, got %+v", rec)
	}
	if rec := byAlias["ghost"]; rec.Owner != 3 {
		t.Errorf("expected ghost owner=3, got %+v", rec)
	}
}

func TestLinksAndHidden(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ids, err := s.EnsurePlayers(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("EnsurePlayers: %v", err)
	}

	if err := s.PutLink(ctx, "chat:1001", ids["a"]); err != nil {
		t.Fatalf("PutLink: %v", err)
	}
	// Re-linking moves the id.
	if err := s.PutLink(ctx, "chat:1001", ids["b"]); err != nil {
		t.Fatalf("PutLink relink: %v", err)
	}
	links, err := s.Links(ctx)
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if links["chat:1001"] != ids["b"] {
		t.Errorf("expected relinked player %d, got %d", ids["b"], links["chat:1001"])
	}

	if err := s.SetHidden(ctx, ids["a"], true); err != nil {
		t.Fatalf("SetHidden: %v", err)
	}
	if err := s.SetHidden(ctx, ids["a"], true); err != nil {
		t.Fatalf("SetHidden repeat: %v", err)
	}
	hidden, err := s.HiddenSet(ctx)
	if err != nil {
		t.Fatalf("HiddenSet: %v", err)
	}
	if _, ok := hidden[ids["a"]]; !ok {
		t.Errorf("expected player hidden")
	}
	if len(hidden) != 1 {
		t.Errorf("expected 1 hidden player, got %d", len(hidden))
	}

	if err := s.SetHidden(ctx, ids["a"], false); err != nil {
		t.Fatalf("SetHidden false: %v", err)
	}
	hidden, err = s.HiddenSet(ctx)
	if err != nil {
		t.Fatalf("HiddenSet: %v", err)
	}
	if len(hidden) != 0 {
		t.Errorf("expected empty hidden set, got %d", len(hidden))
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vigil.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ids, err := s.EnsurePlayers(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("EnsurePlayers: %v", err)
	}
	rows := []model.Appearance{
		appearance("g1", ids["a"], "a", true, 100),
		appearance("g1", ids["b"], "b", false, 100),
	}
	if err := s.AppendAppearances(ctx, rows); err != nil {
		t.Fatalf("AppendAppearances: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	found, err := reopened.HasGame(ctx, "g1")
	if err != nil {
		t.Fatalf("HasGame: %v", err)
	}
	if !found {
		t.Errorf("expected data to survive reopen")
	}
}

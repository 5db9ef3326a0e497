// Package storage persists the append-only appearance log plus the
// durable identity tables (players, aliases, external links, hidden
// set) in SQLite. The appearance log is the sole source of truth:
// every in-memory projection can be rebuilt by replaying it.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/halloway/vigil/internal/adapters/storage/migrations"
	"github.com/halloway/vigil/internal/domain/model"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store owns the SQLite handle for the appearance log database.
type Store struct {
	sqlDB *sql.DB
}

// AliasRecord is one persisted alias row. Alias weights are not
// persisted; they are a pure fold of the appearance log and are rebuilt
// from it on startup.
type AliasRecord struct {
	Alias string
	Owner int64
}

// Open opens the database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Writes are serialized by the committer; a single connection keeps
	// SQLITE_BUSY out of the picture.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// EnsurePlayers resolves canonical account names to player ids,
// creating missing players, all in one transaction. The returned map is
// keyed by the names as given.
func (s *Store) EnsurePlayers(ctx context.Context, names []string) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ensure players: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := make(map[string]int64, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, fmt.Errorf("player name is required")
		}
		id, err := ensurePlayerTx(ctx, tx, trimmed)
		if err != nil {
			return nil, err
		}
		out[name] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ensure players: %w", err)
	}
	return out, nil
}

func ensurePlayerTx(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM players WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup player %q: %w", name, err)
	}
	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO players (name, created_at) VALUES (?, ?)`,
		name,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("create player %q: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("player id for %q: %w", name, err)
	}
	return id, nil
}

// PlayerName returns the canonical name for a player id.
func (s *Store) PlayerName(ctx context.Context, player int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var name string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT name FROM players WHERE id = ?`, player).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("player name: %w", err)
	}
	return name, nil
}

// HasGame reports whether any appearance for gameID is already logged.
func (s *Store) HasGame(ctx context.Context, gameID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT 1 FROM appearances WHERE game_id = ? LIMIT 1`,
		gameID,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has game: %w", err)
	}
	return true, nil
}

// AppendAppearances writes one game's appearance rows in a single
// transaction. All rows land or none do. A game that is already logged
// returns ErrDuplicateGame without mutating anything.
func (s *Store) AppendAppearances(ctx context.Context, rows []model.Appearance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no appearances to append")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append appearances: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range rows {
		a := &rows[i]
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO appearances (
			   game_id, player, account_name,
			   starting_role, ending_role, faction,
			   won, saw_hunt,
			   mu_after, sigma_after,
			   timecode, analysis_version
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.GameID,
			a.Player,
			a.AccountName,
			a.StartingRole,
			a.EndingRole,
			a.Faction,
			boolToInt(a.Won),
			boolToInt(a.SawHunt),
			a.MuAfter,
			a.SigmaAfter,
			a.Timecode,
			a.AnalysisVersion,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateGame
			}
			return fmt.Errorf("append appearance %s/%d: %w", a.GameID, a.Player, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append appearances: %w", err)
	}
	return nil
}

const appearanceColumns = `game_id, player, account_name,
       starting_role, ending_role, faction,
       won, saw_hunt, mu_after, sigma_after,
       timecode, analysis_version`

// ReplayAppearances streams the whole log in commit order into fn.
// The log is append-only and never deleted from, so rowid is the commit
// sequence; every projection folds the log in this order. Replay stops
// on the first error fn returns.
func (s *Store) ReplayAppearances(ctx context.Context, fn func(model.Appearance) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+appearanceColumns+`
		   FROM appearances
		  ORDER BY rowid ASC`,
	)
	if err != nil {
		return fmt.Errorf("replay appearances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAppearance(rows)
		if err != nil {
			return fmt.Errorf("replay appearances: %w", err)
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("replay appearances: %w", err)
	}
	return nil
}

// PlayerAppearances returns one player's appearance history in commit
// order, so a per-player fold lands on the same state as a full replay.
func (s *Store) PlayerAppearances(ctx context.Context, player int64) ([]model.Appearance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+appearanceColumns+`
		   FROM appearances
		  WHERE player = ?
		  ORDER BY rowid ASC`,
		player,
	)
	if err != nil {
		return nil, fmt.Errorf("player appearances: %w", err)
	}
	defer rows.Close()

	var out []model.Appearance
	for rows.Next() {
		a, err := scanAppearance(rows)
		if err != nil {
			return nil, fmt.Errorf("player appearances: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("player appearances: %w", err)
	}
	return out, nil
}

func scanAppearance(rows *sql.Rows) (model.Appearance, error) {
	var a model.Appearance
	var won, sawHunt int
	if err := rows.Scan(
		&a.GameID,
		&a.Player,
		&a.AccountName,
		&a.StartingRole,
		&a.EndingRole,
		&a.Faction,
		&won,
		&sawHunt,
		&a.MuAfter,
		&a.SigmaAfter,
		&a.Timecode,
		&a.AnalysisVersion,
	); err != nil {
		return model.Appearance{}, err
	}
	a.Won = won != 0
	a.SawHunt = sawHunt != 0
	return a, nil
}

// UpsertAlias persists an alias row, overwriting the owner.
func (s *Store) UpsertAlias(ctx context.Context, rec AliasRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	alias := strings.TrimSpace(rec.Alias)
	if alias == "" {
		return fmt.Errorf("alias is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO aliases (alias, owner) VALUES (?, ?)
		 ON CONFLICT (alias) DO UPDATE SET owner = excluded.owner`,
		alias,
		rec.Owner,
	)
	if err != nil {
		return fmt.Errorf("upsert alias: %w", err)
	}
	return nil
}

// ClaimAlias records owner for an alias unless it is already owned.
// The first claim wins; a registered alias is never displaced by later
// ingestion under the same name.
func (s *Store) ClaimAlias(ctx context.Context, alias string, owner int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return fmt.Errorf("alias is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO aliases (alias, owner) VALUES (?, ?)
		 ON CONFLICT (alias) DO UPDATE SET owner = excluded.owner
		 WHERE aliases.owner = 0`,
		alias,
		owner,
	)
	if err != nil {
		return fmt.Errorf("claim alias: %w", err)
	}
	return nil
}

// Aliases returns every persisted alias row.
func (s *Store) Aliases(ctx context.Context) ([]AliasRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT alias, owner FROM aliases`)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var out []AliasRecord
	for rows.Next() {
		var rec AliasRecord
		if err := rows.Scan(&rec.Alias, &rec.Owner); err != nil {
			return nil, fmt.Errorf("list aliases: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	return out, nil
}

// PutLink persists an external identity link. Re-linking an external
// id moves it to the new player.
func (s *Store) PutLink(ctx context.Context, externalID string, player int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return fmt.Errorf("external id is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO links (external_id, player) VALUES (?, ?)
		 ON CONFLICT (external_id) DO UPDATE SET player = excluded.player`,
		externalID,
		player,
	)
	if err != nil {
		return fmt.Errorf("put link: %w", err)
	}
	return nil
}

// Links returns every external identity link.
func (s *Store) Links(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT external_id, player FROM links`)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var player int64
		if err := rows.Scan(&id, &player); err != nil {
			return nil, fmt.Errorf("list links: %w", err)
		}
		out[id] = player
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return out, nil
}

// SetHidden persists a player's hidden flag.
func (s *Store) SetHidden(ctx context.Context, player int64, hidden bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if hidden {
		_, err = s.sqlDB.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO hidden (player) VALUES (?)`,
			player,
		)
	} else {
		_, err = s.sqlDB.ExecContext(ctx, `DELETE FROM hidden WHERE player = ?`, player)
	}
	if err != nil {
		return fmt.Errorf("set hidden: %w", err)
	}
	return nil
}

// HiddenSet returns all hidden player ids.
func (s *Store) HiddenSet(ctx context.Context) (map[int64]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT player FROM hidden`)
	if err != nil {
		return nil, fmt.Errorf("hidden set: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var player int64
		if err := rows.Scan(&player); err != nil {
			return nil, fmt.Errorf("hidden set: %w", err)
		}
		out[player] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hidden set: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

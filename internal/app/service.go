// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	gamequeue "github.com/halloway/vigil/internal/adapters/mq/queue"
	workerpool "github.com/halloway/vigil/internal/adapters/mq/worker"
	repository "github.com/halloway/vigil/internal/adapters/repository"
	"github.com/halloway/vigil/internal/adapters/storage"
	"github.com/halloway/vigil/internal/domain/dedupe"
	"github.com/halloway/vigil/internal/domain/model"
	"github.com/halloway/vigil/internal/domain/nameindex"
	"github.com/halloway/vigil/internal/domain/rating"
	"github.com/halloway/vigil/internal/domain/resolve"
	"github.com/halloway/vigil/internal/domain/stats"
	"github.com/halloway/vigil/internal/domain/types"
	"github.com/halloway/vigil/pkg/logger"
	"github.com/halloway/vigil/pkg/metrics"
)

// Service implements the API dependencies for the rating system.
//
// Writes flow: Submit validates and enqueues; workers call Commit,
// which is serialized by commitMu so games land in the appearance log
// one at a time; after the log transaction commits, the in-memory
// projections (rating cache, name index) are updated. Reads come from
// the projections only.
type Service struct {
	mu sync.RWMutex

	// commitMu serializes game commits; a game's appearance rows, cache
	// updates, and index increments land as one unit.
	commitMu sync.Mutex

	// Core components
	store      *storage.Store
	cache      repository.Store
	index      *nameindex.Index
	resolver   *resolve.Resolver
	engine     *rating.Engine
	deduper    dedupe.Deduper
	gameQueue  gamequeue.Queue
	workerPool *workerpool.Pool

	// Configuration
	path           string
	workerCount    int
	queueSize      int
	dedupeSize     int
	searchDistance int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of commit workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the game queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSearchDistance caps the name index edit distance.
func WithSearchDistance(d int) Option {
	return func(s *Service) {
		if d > 0 {
			s.searchDistance = d
		}
	}
}

// WithDBPath sets the SQLite appearance log location.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.path = path
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100000,
		dedupeSize:  50000,
		path:        "vigil.db",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens storage, rebuilds the in-memory projections from the
// appearance log, and starts the commit workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting rating service...")

	store, err := storage.Open(s.path)
	if err != nil {
		return fmt.Errorf("open appearance log: %w", err)
	}
	s.store = store

	s.cache = repository.NewTreapStore(ctx)
	var indexOpts []nameindex.Option
	if s.searchDistance > 0 {
		indexOpts = append(indexOpts, nameindex.WithMaxDistance(s.searchDistance))
	}
	s.index = nameindex.New(indexOpts...)
	s.resolver = resolve.New(s.index)
	s.engine = rating.New()
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.gameQueue = gamequeue.NewInMemoryQueue(
		gamequeue.WithCapacity(s.queueSize),
		gamequeue.WithBufferSize(s.queueSize),
	)

	replayStart := time.Now()
	replayed, err := s.rebuildProjections(ctx)
	if err != nil {
		_ = s.store.Close()
		return fmt.Errorf("rebuild projections: %w", err)
	}

	s.workerPool = workerpool.NewPool(s.workerCount, s.gameQueue, s)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("replayedAppearances", replayed),
		logger.Any("replayDuration", time.Since(replayStart)),
	)

	return nil
}

// Stop drains the queue and shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping rating service...")

	// Shutdown closes the queue first, so queued games are committed
	// before the workers exit.
	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}

	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

// rebuildProjections replays the appearance log into the rating cache
// and name index, then layers on the durable identity tables. The log
// is the sole source of truth; everything here is derived.
func (s *Service) rebuildProjections(ctx context.Context) (int, error) {
	// Hidden membership first, so hidden players never enter the view.
	hidden, err := s.store.HiddenSet(ctx)
	if err != nil {
		return 0, err
	}
	for player := range hidden {
		if err := s.cache.Hide(ctx, player); err != nil {
			return 0, err
		}
	}

	replayed := 0
	err = s.store.ReplayAppearances(ctx, func(a model.Appearance) error {
		update := repository.Update{
			Player: a.Player,
			Name:   a.AccountName,
			Mu:     a.MuAfter,
			Sigma:  a.SigmaAfter,
			Won:    a.Won,
			Class:  appearanceClass(a.Faction, a.SawHunt),
		}
		if err := s.cache.ApplyGame(ctx, []repository.Update{update}); err != nil {
			return err
		}
		// Alias weight is defined as the appearance count, so the index
		// is rebuilt from the same log.
		s.index.IncrementUsage(a.AccountName)
		s.deduper.SeenAndRecord(ctx, a.GameID)
		replayed++
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Durable owners (registered and ingest-claimed) over the replayed
	// weights.
	aliases, err := s.store.Aliases(ctx)
	if err != nil {
		return 0, err
	}
	for _, rec := range aliases {
		if rec.Owner == 0 {
			continue
		}
		if err := s.index.InsertAlias(rec.Alias, rec.Owner); err != nil {
			s.logger.Warn(ctx, "skipping conflicting persisted alias",
				logger.String("alias", rec.Alias),
				logger.Error(err),
			)
		}
	}

	links, err := s.store.Links(ctx)
	if err != nil {
		return 0, err
	}
	for id, player := range links {
		if err := s.resolver.Link(id, player); err != nil {
			return 0, err
		}
	}

	metrics.UpdateIndexSize(s.index.Size())
	return replayed, nil
}

// Submit validates a game and enqueues it for asynchronous commit.
// Acceptance is not commitment: the caller learns the game passed
// validation and entered the pipeline, nothing more.
func (s *Service) Submit(ctx context.Context, g model.Game) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotRunning
	}

	if err := g.Validate(); err != nil {
		metrics.RecordGameRejected()
		return err
	}

	if s.deduper.SeenAndRecord(ctx, g.GameID) {
		metrics.RecordGameDuplicate()
		return storage.ErrDuplicateGame
	}

	if !s.gameQueue.Enqueue(ctx, g) {
		// Never committed; let the analyzer retry the same id.
		s.deduper.Unrecord(ctx, g.GameID)
		return ErrQueueFull
	}
	return nil
}

// Commit rates one game and appends it to the appearance log, then
// folds the result into the projections. Called by the worker pool;
// commits are fully serialized.
func (s *Service) Commit(ctx context.Context, g model.Game) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordCommitLatency(float64(time.Since(start).Milliseconds()))
	}()

	// A game that never reached the log may be resubmitted under the
	// same id; release the fast-path reservation so the retry is not
	// falsely acknowledged as a duplicate.
	defer func() {
		if err != nil && !errors.Is(err, storage.ErrDuplicateGame) {
			s.deduper.Unrecord(ctx, g.GameID)
		}
	}()

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	// Durable idempotence check; the dedupe cache is only a fast path.
	seen, err := s.store.HasGame(ctx, g.GameID)
	if err != nil {
		return err
	}
	if seen {
		return storage.ErrDuplicateGame
	}

	names := make([]string, len(g.Participants))
	for i := range g.Participants {
		names[i] = g.Participants[i].AccountName
	}
	ids, err := s.store.EnsurePlayers(ctx, names)
	if err != nil {
		return err
	}

	participants := make([]rating.Participant, len(g.Participants))
	for i := range g.Participants {
		p := &g.Participants[i]
		prior := rating.Default()
		if snap, err := s.cache.Snapshot(ctx, ids[p.AccountName]); err == nil {
			prior = rating.Rating{Mu: snap.Mu, Sigma: snap.Sigma}
		}
		participants[i] = rating.Participant{Prior: prior, Won: p.Won}
	}

	ratingStart := time.Now()
	posteriors, err := s.engine.Rate(participants)
	metrics.RecordRatingLatency(float64(time.Since(ratingStart).Milliseconds()))
	if err != nil {
		return fmt.Errorf("rate game %s: %w", g.GameID, err)
	}

	rows := make([]model.Appearance, len(g.Participants))
	updates := make([]repository.Update, len(g.Participants))
	for i := range g.Participants {
		p := &g.Participants[i]
		rows[i] = model.Appearance{
			GameID:          g.GameID,
			Player:          ids[p.AccountName],
			AccountName:     p.AccountName,
			StartingRole:    p.StartingRole,
			EndingRole:      p.EndingRole,
			Faction:         p.Faction,
			Won:             p.Won,
			SawHunt:         p.SawHunt,
			MuAfter:         posteriors[i].Mu,
			SigmaAfter:      posteriors[i].Sigma,
			Timecode:        g.Timecode,
			AnalysisVersion: s.engine.Version(),
		}
		updates[i] = repository.Update{
			Player: ids[p.AccountName],
			Name:   p.AccountName,
			Mu:     posteriors[i].Mu,
			Sigma:  posteriors[i].Sigma,
			Won:    p.Won,
			Class:  appearanceClass(p.Faction, p.SawHunt),
		}
	}

	// All rows land in one transaction, or none do.
	if err := s.store.AppendAppearances(ctx, rows); err != nil {
		return err
	}

	// The game is durable; fold it into the projections.
	if err := s.cache.ApplyGame(ctx, updates); err != nil {
		return err
	}
	for i := range g.Participants {
		name := g.Participants[i].AccountName
		s.index.IncrementUsage(name)
		// The first appearance under a name claims the alias for its
		// player, so exact-name resolution works without registration.
		// A registered owner is never displaced.
		if err := s.index.InsertAlias(name, ids[name]); err != nil && !errors.Is(err, nameindex.ErrAliasTaken) {
			s.logger.Warn(ctx, "alias claim failed",
				logger.String("alias", name),
				logger.Error(err),
			)
		}
		if err := s.store.ClaimAlias(ctx, name, ids[name]); err != nil {
			s.logger.Warn(ctx, "alias claim persist failed",
				logger.String("alias", name),
				logger.Error(err),
			)
		}
	}
	metrics.UpdateIndexSize(s.index.Size())

	return nil
}

// RebuildPlayer recomputes one player's snapshot from the appearance
// log and installs it wholesale, repairing any cache drift.
func (s *Service) RebuildPlayer(ctx context.Context, player int64) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	history, err := s.store.PlayerAppearances(ctx, player)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return repository.ErrNotFound
	}

	snap := repository.Snapshot{
		Player:   player,
		Winrates: make(map[stats.Key]stats.Winrate),
	}
	for i := range history {
		a := &history[i]
		snap.Name = a.AccountName
		snap.Mu = a.MuAfter
		snap.Sigma = a.SigmaAfter
		snap.Games++
		key := appearanceClass(a.Faction, a.SawHunt)
		snap.Winrates[key] = snap.Winrates[key].Record(a.Won)
	}
	snap.Ordinal = snap.Mu - 3*snap.Sigma

	metrics.RecordSnapshotRebuild()
	return s.cache.ReplacePlayer(ctx, snap)
}

// Leaderboard returns the ranked window of visible players.
func (s *Service) Leaderboard(ctx context.Context, offset, limit int) ([]types.Entry, error) {
	return s.cache.Leaderboard(ctx, offset, limit)
}

// Rank returns one player's leaderboard entry.
func (s *Service) Rank(ctx context.Context, player int64) (types.Entry, error) {
	return s.cache.Rank(ctx, player)
}

// Rating returns the full rating state for a player. A player with no
// appearance yet reports the documented prior with Default set.
func (s *Service) Rating(ctx context.Context, player int64) (types.RatingInfo, error) {
	snap, err := s.cache.Snapshot(ctx, player)
	if err != nil {
		prior := rating.Default()
		return types.RatingInfo{
			Player:  player,
			Mu:      prior.Mu,
			Sigma:   prior.Sigma,
			Ordinal: prior.Ordinal(),
			Default: true,
		}, nil
	}

	return types.RatingInfo{
		Player:   player,
		Mu:       snap.Mu,
		Sigma:    snap.Sigma,
		Ordinal:  snap.Ordinal,
		Games:    snap.Games,
		Hidden:   s.cache.Hidden(ctx, player),
		Winrates: winrateList(snap.Winrates),
	}, nil
}

// History returns one player's appearance records in commit order.
func (s *Service) History(ctx context.Context, player int64) ([]model.Appearance, error) {
	return s.store.PlayerAppearances(ctx, player)
}

// Search returns approximate alias matches for a query.
func (s *Service) Search(ctx context.Context, query string, k int) []types.Candidate {
	start := time.Now()
	defer func() {
		metrics.RecordSearchLatency(float64(time.Since(start).Milliseconds()))
	}()

	matches := s.index.Search(query, k)
	out := make([]types.Candidate, len(matches))
	for i, m := range matches {
		out[i] = types.Candidate{
			Alias:    m.Alias,
			Player:   m.Owner,
			Distance: m.Distance,
			Weight:   m.Weight,
		}
	}
	return out
}

// Resolve maps free-text input to a player.
func (s *Service) Resolve(ctx context.Context, input string) resolve.Resolution {
	return s.resolver.Resolve(input)
}

// RegisterAlias attaches an alias to a player, in the index and
// durably.
func (s *Service) RegisterAlias(ctx context.Context, alias string, player int64) error {
	if err := s.index.InsertAlias(alias, player); err != nil {
		return err
	}
	if err := s.store.UpsertAlias(ctx, storage.AliasRecord{
		Alias: alias,
		Owner: player,
	}); err != nil {
		return err
	}
	metrics.UpdateIndexSize(s.index.Size())
	return nil
}

// LinkExternal attaches an external identity to a player, in the
// resolver and durably.
func (s *Service) LinkExternal(ctx context.Context, externalID string, player int64) error {
	if err := s.resolver.Link(externalID, player); err != nil {
		return err
	}
	return s.store.PutLink(ctx, externalID, player)
}

// Hide removes a player from ranked views. The snapshot and history
// stay intact.
func (s *Service) Hide(ctx context.Context, player int64) error {
	if err := s.cache.Hide(ctx, player); err != nil {
		return err
	}
	return s.store.SetHidden(ctx, player, true)
}

// Show restores a hidden player to ranked views.
func (s *Service) Show(ctx context.Context, player int64) error {
	if err := s.cache.Show(ctx, player); err != nil {
		return err
	}
	return s.store.SetHidden(ctx, player, false)
}

// QueueLen reports the current backlog.
func (s *Service) QueueLen(ctx context.Context) int {
	return s.gameQueue.Len(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.gameQueue.Len(ctx)
		totalPlayers := s.cache.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalPlayers"] = totalPlayers
		stats["visiblePlayers"] = s.cache.VisibleCount(ctx)
		stats["indexedAliases"] = s.index.Size()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalPlayers(totalPlayers)
	}

	return stats
}

// appearanceClass buckets an appearance for winrate tallies.
func appearanceClass(faction string, sawHunt bool) stats.Key {
	return stats.Key{
		Faction: strings.ToLower(strings.TrimSpace(faction)),
		SawHunt: sawHunt,
	}
}

// winrateList flattens a winrate map into a deterministic list.
func winrateList(m map[stats.Key]stats.Winrate) []types.Winrate {
	out := make([]types.Winrate, 0, len(m))
	for k, w := range m {
		out = append(out, types.Winrate{
			Faction: k.Faction,
			SawHunt: k.SawHunt,
			Wins:    w.Wins,
			Games:   w.Games,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Faction != out[j].Faction {
			return out[i].Faction < out[j].Faction
		}
		return !out[i].SawHunt && out[j].SawHunt
	})
	return out
}

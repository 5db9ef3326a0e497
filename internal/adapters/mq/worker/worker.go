// Package worker drains the game queue and hands each game to the
// committer for rating and persistence.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/halloway/vigil/internal/adapters/storage"
	"github.com/halloway/vigil/internal/domain/model"
	"github.com/halloway/vigil/pkg/logger"
	"github.com/halloway/vigil/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Game abstracts what workers read off the queue.
type Game = model.Game

// Committer rates and persists one queued game. Implementations must
// be safe for concurrent callers; commit ordering across workers is the
// committer's responsibility.
type Committer interface {
	Commit(ctx context.Context, g Game) error
}

// Queue defines how workers receive games.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Game
}

// Worker processes games until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing queued games.
type InMemoryWorker struct {
	queue     Queue
	committer Committer
	name      string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, committer Committer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		committer: committer,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	gameChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case game, ok := <-gameChan:
			if !ok {
				// Channel closed, worker should stop.
				return
			}
			if err := w.processGame(ctx, game); err != nil {
				w.logger.Error(ctx, "error processing game", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker. Safe to call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processGame commits a single game.
func (w *InMemoryWorker) processGame(ctx context.Context, game Game) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	err := w.committer.Commit(ctx, game)
	if err == nil {
		metrics.RecordGameProcessed()
		return nil
	}

	// A replayed game id is a normal outcome of at-least-once delivery,
	// not a failure.
	if errors.Is(err, storage.ErrDuplicateGame) {
		metrics.RecordGameDuplicate()
		w.logger.Debug(ctx, "skipping already recorded game",
			logger.String("game_id", game.GameID),
		)
		return nil
	}

	metrics.RecordWorkerError()
	w.logger.Error(ctx, "commit failed for game",
		logger.String("game_id", game.GameID),
		logger.Error(err),
	)
	return fmt.Errorf("commit game %s: %w", game.GameID, err)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, committer Committer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			committer,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown closes the queue and drains the pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue so workers stop when the backlog drains.
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}

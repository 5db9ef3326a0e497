// Package queue buffers accepted games between the ingest endpoint and
// the commit workers.
//
// Acceptance is decoupled from commitment: POST /games answers as soon
// as the game is validated and queued, and the rating pipeline drains
// the queue asynchronously. Enqueue never blocks; a full queue sheds
// load instead of stalling the analyzer.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/halloway/vigil/internal/domain/model"
	"github.com/halloway/vigil/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 100000
	defaultBufferSize    = 100000
)

// Game is the payload type flowing through the queue.
type Game = model.Game

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a game to the queue.
	// Returns false if the queue is full and the game was not enqueued.
	Enqueue(ctx context.Context, g Game) bool

	// Dequeue returns a channel that will receive games as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Game

	// Len returns the current number of queued games.
	Len(ctx context.Context) int

	// Close shuts down the queue. After closing, no new games can be
	// enqueued and the dequeue channel drains then closes.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	games      chan Game
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}

	// Channel buffer can never be smaller than the advertised capacity,
	// or Enqueue would block before the capacity check fires.
	if q.bufferSize < q.capacity {
		q.bufferSize = q.capacity
	}
	q.games = make(chan Game, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a game to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, g Game) bool {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}

	if len(q.games) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		return false
	}

	select {
	case q.games <- g:
		metrics.RecordQueueEnqueue()
		currentSize := len(q.games)
		metrics.UpdateQueueSize(currentSize)
		metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		metrics.RecordQueueEnqueueError()
		return false
	}
}

// Dequeue returns a channel that will receive games as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Game {
	dequeueChan := make(chan Game)
	go func() {
		defer close(dequeueChan)
		for game := range q.games {
			select {
			case dequeueChan <- game:
				metrics.RecordQueueDequeue()
				currentSize := len(q.games)
				metrics.UpdateQueueSize(currentSize)
				metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return dequeueChan
}

// Len returns the current number of queued games.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.games)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.games)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

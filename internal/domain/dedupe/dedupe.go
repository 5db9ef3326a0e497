// Package dedupe provides the fast-path idempotency check for game ids.
//
// The appearance log's (game_id, player) primary key is the durable
// authority; this cache only short-circuits repeat submissions without
// touching storage.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen game IDs to ensure at-most-once enqueueing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen list, allowing it to be retried.
	// Used when a game was marked seen but never committed (backpressure,
	// validation failure downstream of the queue).
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map plus a FIFO ring of
// insertion order. When maxSize is exceeded the oldest id is evicted;
// with maxSize <= 0 the set is unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	head    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.order = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[id] = struct{}{}
	if d.maxSize > 0 {
		d.order = append(d.order, id)
	}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; !exists {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
	// The stale order slot is skipped at eviction time.
}

// evictOldest drops the oldest still-recorded id. Must hold d.mu.
func (d *inMemoryDeduper) evictOldest() {
	for d.head < len(d.order) {
		id := d.order[d.head]
		d.head++
		if _, exists := d.seen[id]; exists {
			delete(d.seen, id)
			d.size.Add(-1)
			break
		}
	}
	// Compact once the consumed prefix dominates the slice.
	if d.head > len(d.order)/2 && d.head > 1024 {
		d.order = append(d.order[:0], d.order[d.head:]...)
		d.head = 0
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

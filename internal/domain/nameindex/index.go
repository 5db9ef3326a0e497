// Package nameindex maintains the approximate-match index over all
// known aliases, weighted by how often each alias appears in the
// appearance log.
//
// The index is an explicit in-process structure (BK-tree plus a weight
// map) rather than a storage-engine feature, so update ordering and
// failure modes stay visible to the write path and to tests.
package nameindex

import (
	"sort"
	"strings"
	"sync"
)

// Entry is one indexed alias.
type Entry struct {
	Alias  string // display form, as first observed
	Owner  int64  // owning player; 0 until the alias is registered
	Weight int64  // count of appearances with this account_name
}

// Candidate is one approximate match.
type Candidate struct {
	Alias    string
	Owner    int64
	Distance int
	Weight   int64
}

// Index is safe for concurrent use. Lookups never block behind more
// than the duration of a single insert or increment.
type Index struct {
	mu          sync.RWMutex
	entries     map[string]*Entry // key: casefolded alias
	root        *bkNode
	maxDistance int
}

// New constructs an empty index with configuration options.
func New(opts ...Option) *Index {
	idx := &Index{
		entries:     make(map[string]*Entry),
		maxDistance: defaultMaxDistance,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// defaultMaxDistance caps the search threshold regardless of query length.
const defaultMaxDistance = 3

// InsertAlias registers an alias for a player with initial weight 0.
// The alias is visible to lookups as soon as this returns. If the alias
// was created lazily by IncrementUsage its accumulated weight is kept.
// Aliases are never reassigned: registering an alias owned by a
// different player fails with ErrAliasTaken.
func (idx *Index) InsertAlias(name string, owner int64) error {
	key := fold(name)
	if key == "" {
		return ErrEmptyAlias
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if e, ok := idx.entries[key]; ok {
		if e.Owner != 0 && e.Owner != owner {
			return ErrAliasTaken
		}
		e.Owner = owner
		return nil
	}
	idx.addLocked(key, &Entry{Alias: name, Owner: owner})
	return nil
}

// IncrementUsage adds one appearance to an alias's weight. If the alias
// is not indexed yet (ingestion ran ahead of registration) the entry is
// created lazily with an unset owner so the increment is never dropped.
func (idx *Index) IncrementUsage(name string) {
	key := fold(name)
	if key == "" {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if e, ok := idx.entries[key]; ok {
		e.Weight++
		return
	}
	idx.addLocked(key, &Entry{Alias: name, Weight: 1})
}

// addLocked inserts a fresh entry into the map and tree. Must hold idx.mu.
func (idx *Index) addLocked(key string, e *Entry) {
	idx.entries[key] = e
	if idx.root == nil {
		idx.root = &bkNode{term: key}
		return
	}
	idx.root.insert(key)
}

// Lookup returns the exact (case-insensitive) entry for an alias.
func (idx *Index) Lookup(name string) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	e, ok := idx.entries[fold(name)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Weight reports the current usage weight of an alias, 0 if unknown.
func (idx *Index) Weight(name string) int64 {
	e, ok := idx.Lookup(name)
	if !ok {
		return 0
	}
	return e.Weight
}

// Size returns the number of indexed aliases.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Threshold is the edit-distance bound applied to a query: one edit per
// four runes plus one, capped so long queries cannot force wide scans.
func (idx *Index) Threshold(query string) int {
	t := 1 + len([]rune(query))/4
	if t > idx.maxDistance {
		t = idx.maxDistance
	}
	return t
}

// Search returns up to k candidates within the distance threshold,
// ordered by (edit distance asc, weight desc, alias asc).
func (idx *Index) Search(query string, k int) []Candidate {
	key := fold(query)
	if key == "" || k <= 0 {
		return nil
	}
	maxDist := idx.Threshold(key)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.root == nil {
		return nil
	}

	var out []Candidate
	idx.root.walk(key, maxDist, func(term string, dist int) {
		e := idx.entries[term]
		out = append(out, Candidate{
			Alias:    e.Alias,
			Owner:    e.Owner,
			Distance: dist,
			Weight:   e.Weight,
		})
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Alias < out[j].Alias
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func fold(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

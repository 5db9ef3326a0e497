// Package resolve maps free-text, alias, or external-id input to a
// canonical player.
//
// Precedence, highest first: exact match on a linked external identity,
// exact case-insensitive alias match, then a fuzzy NameIndex match that
// is confident enough to act on. Anything less confident comes back as
// a candidate set for the caller to disambiguate instead of a guess.
package resolve

import (
	"strings"
	"sync"

	"github.com/halloway/vigil/internal/domain/nameindex"
)

// Status reports how (or whether) an input resolved.
type Status int

const (
	// Resolved means exactly one player matched with confidence.
	Resolved Status = iota
	// Ambiguous means several plausible aliases matched; Candidates
	// carries them for disambiguation.
	Ambiguous
	// NotFound means nothing matched within the distance threshold.
	NotFound
)

// Resolution is the outcome of a resolve call.
type Resolution struct {
	Status     Status
	Player     int64
	Candidates []nameindex.Candidate
}

// Default confidence parameters.
const (
	// confidentDistance is the largest edit distance a fuzzy match may
	// have and still resolve without disambiguation.
	confidentDistance = 1
	// candidateLimit bounds the candidate set returned on ambiguity.
	candidateLimit = 5
)

// Resolver resolves inputs against external links and the alias index.
// Link registration is concurrent-safe; lookups never block behind
// writers beyond a single map access.
type Resolver struct {
	mu    sync.RWMutex
	links map[string]int64 // external id -> player

	index *nameindex.Index
}

// New constructs a Resolver over the shared alias index.
func New(index *nameindex.Index) *Resolver {
	return &Resolver{
		links: make(map[string]int64),
		index: index,
	}
}

// Link attaches an external identity (chat account id, etc.) to a player.
// Re-linking an id moves it; external systems own that lifecycle.
func (r *Resolver) Link(externalID string, player int64) error {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return ErrEmptyExternalID
	}
	r.mu.Lock()
	r.links[id] = player
	r.mu.Unlock()
	return nil
}

// LinkedPlayer returns the player behind an external id, if any.
func (r *Resolver) LinkedPlayer(externalID string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.links[strings.TrimSpace(externalID)]
	return p, ok
}

// Links returns a copy of all external links, for stats and persistence.
func (r *Resolver) Links() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.links))
	for k, v := range r.links {
		out[k] = v
	}
	return out
}

// Resolve maps input to a player per the documented precedence.
func (r *Resolver) Resolve(input string) Resolution {
	input = strings.TrimSpace(input)
	if input == "" {
		return Resolution{Status: NotFound}
	}

	// 1. Exact external identity link.
	if player, ok := r.LinkedPlayer(input); ok {
		return Resolution{Status: Resolved, Player: player}
	}

	// 2. Exact case-insensitive alias.
	if e, ok := r.index.Lookup(input); ok && e.Owner != 0 {
		return Resolution{Status: Resolved, Player: e.Owner}
	}

	// 3. Fuzzy match, only when the top candidate is confidently ahead.
	candidates := r.index.Search(input, candidateLimit)
	owned := ownedOnly(candidates)
	if len(owned) == 0 {
		return Resolution{Status: NotFound}
	}
	if top := owned[0]; top.Distance <= confidentDistance && dominates(top, owned[1:]) {
		return Resolution{Status: Resolved, Player: top.Owner}
	}
	return Resolution{Status: Ambiguous, Candidates: owned}
}

// ownedOnly drops aliases that have usage but no registered owner; they
// cannot resolve to a player yet.
func ownedOnly(candidates []nameindex.Candidate) []nameindex.Candidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		if c.Owner != 0 {
			out = append(out, c)
		}
	}
	return out
}

// dominates reports whether top strictly beats every rival owned by a
// different player: a smaller distance, or equal distance with strictly
// greater weight. Rivals owned by the same player don't count against
// confidence.
func dominates(top nameindex.Candidate, rest []nameindex.Candidate) bool {
	for _, c := range rest {
		if c.Owner == top.Owner {
			continue
		}
		if c.Distance < top.Distance {
			return false
		}
		if c.Distance == top.Distance && c.Weight >= top.Weight {
			return false
		}
	}
	return true
}

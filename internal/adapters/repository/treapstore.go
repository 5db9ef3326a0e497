package repository

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/halloway/vigil/internal/domain/stats"
	"github.com/halloway/vigil/internal/domain/types"
	"github.com/halloway/vigil/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Two treaps back the view. The entry treap orders visible players by
// (ordinal DESC, player ASC), which is the presentation order; in-order
// traversal walks the leaderboard best to worst. The distinct treap
// holds one refcounted node per distinct visible ordinal with subtree
// sizes, so the dense rank of any ordinal — one plus the number of
// strictly greater distinct ordinals — is an O(log n) order statistic.

// scoreScale controls fixed-point scaling of ordinals. Equal ordinals
// must compare equal for dense ranking, so comparisons happen on the
// scaled integers, never on floats.
const scoreScale = 1_000_000_000 // 9 decimal places

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := math.Round(x * scoreScale)
	if scaled >= float64(math.MaxInt64) {
		return scoreFP(math.MaxInt64)
	}
	if scaled <= float64(math.MinInt64) {
		return scoreFP(math.MinInt64)
	}
	return scoreFP(scaled)
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// entry treap node
type node struct {
	player int64
	score  scoreFP
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aPlayer) ranks earlier than
// (bScore, bPlayer): higher ordinal first, then player id ascending.
func less(aScore scoreFP, aPlayer int64, bScore scoreFP, bPlayer int64) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aPlayer < bPlayer
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, player int64, score scoreFP, prio uint64) *node {
	if n == nil {
		return &node{player: player, score: score, prio: prio, size: 1}
	}
	if less(score, player, n.score, n.player) {
		n.left = insert(n.left, player, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, player, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, player int64, score scoreFP) *node {
	if n == nil {
		return nil
	}
	if score == n.score && player == n.player {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, player, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, player, score)
		}
	} else if less(score, player, n.score, n.player) {
		n.left = deleteNode(n.left, player, score)
	} else {
		n.right = deleteNode(n.right, player, score)
	}
	fix(n)
	return n
}

// collectRange appends up to limit entries starting at in-order index
// skip, using subtree sizes to jump over the prefix.
func collectRange(n *node, skip, limit int, out *[]entryRef) {
	if n == nil || limit <= 0 || len(*out) >= limit {
		return
	}
	leftSize := nsize(n.left)
	if skip < leftSize {
		collectRange(n.left, skip, limit, out)
	}
	if len(*out) >= limit {
		return
	}
	if skip <= leftSize {
		*out = append(*out, entryRef{player: n.player, score: n.score})
		collectRange(n.right, 0, limit, out)
		return
	}
	collectRange(n.right, skip-leftSize-1, limit, out)
}

type entryRef struct {
	player int64
	score  scoreFP
}

// distinct-ordinal treap node
type scoreNode struct {
	score scoreFP
	prio  uint64
	refs  int
	left  *scoreNode
	right *scoreNode
	size  int
}

func ssize(n *scoreNode) int {
	if n == nil {
		return 0
	}
	return n.size
}

func sfix(n *scoreNode) {
	if n != nil {
		n.size = 1 + ssize(n.left) + ssize(n.right)
	}
}

func srotateRight(y *scoreNode) *scoreNode {
	x := y.left
	y.left = x.right
	x.right = y
	sfix(y)
	sfix(x)
	return x
}

func srotateLeft(x *scoreNode) *scoreNode {
	y := x.right
	x.right = y.left
	y.left = x
	sfix(x)
	sfix(y)
	return y
}

// sinsert bumps the refcount for score, creating the node on first use.
// Ordered score DESC like the entry treap.
func sinsert(n *scoreNode, score scoreFP, prio uint64) *scoreNode {
	if n == nil {
		return &scoreNode{score: score, prio: prio, refs: 1, size: 1}
	}
	switch {
	case score == n.score:
		n.refs++
		return n
	case score > n.score:
		n.left = sinsert(n.left, score, prio)
		if n.left.prio > n.prio {
			n = srotateRight(n)
		}
	default:
		n.right = sinsert(n.right, score, prio)
		if n.right.prio > n.prio {
			n = srotateLeft(n)
		}
	}
	sfix(n)
	return n
}

// srelease drops one reference, removing the node at zero.
func srelease(n *scoreNode, score scoreFP) *scoreNode {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score:
		n.refs--
		if n.refs > 0 {
			return n
		}
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = srotateRight(n)
			n.right = srelease(n.right, score)
		} else {
			n = srotateLeft(n)
			n.left = srelease(n.left, score)
		}
	case score > n.score:
		n.left = srelease(n.left, score)
	default:
		n.right = srelease(n.right, score)
	}
	sfix(n)
	return n
}

// countGreater returns the number of distinct ordinals strictly greater
// than score.
func countGreater(n *scoreNode, score scoreFP) int {
	count := 0
	for n != nil {
		if n.score > score {
			count += 1 + ssize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// TreapStore is the in-memory Store implementation.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node      // visible players, presentation order
	distinct *scoreNode // distinct visible ordinals, refcounted
	byID     map[int64]*Snapshot
	hidden   map[int64]struct{}
	rng      *rand.Rand
}

// NewTreapStore constructs an empty store.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:   make(map[int64]*Snapshot),
		hidden: make(map[int64]struct{}),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // treap priorities, not security
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyGame implements Store.ApplyGame under one write lock.
func (s *TreapStore) ApplyGame(ctx context.Context, updates []Update) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range updates {
		s.applyLocked(&updates[i])
	}
	metrics.UpdateTotalPlayers(len(s.byID))
	return nil
}

// applyLocked overwrites one player's snapshot with the new posterior.
// Must hold s.mu.
func (s *TreapStore) applyLocked(u *Update) {
	snap, known := s.byID[u.Player]
	if !known {
		snap = &Snapshot{
			Player:   u.Player,
			Name:     u.Name,
			Winrates: make(map[stats.Key]stats.Winrate),
		}
		s.byID[u.Player] = snap
	}

	_, isHidden := s.hidden[u.Player]
	if known && !isHidden {
		old := toFixedPoint(snap.Ordinal)
		s.root = deleteNode(s.root, u.Player, old)
		s.distinct = srelease(s.distinct, old)
	}

	snap.Mu = u.Mu
	snap.Sigma = u.Sigma
	snap.Ordinal = u.Mu - 3*u.Sigma
	snap.Games++
	snap.Winrates[u.Class] = snap.Winrates[u.Class].Record(u.Won)
	if snap.Name == "" {
		snap.Name = u.Name
	}

	if !isHidden {
		fp := toFixedPoint(snap.Ordinal)
		s.root = insert(s.root, u.Player, fp, s.rng.Uint64())
		s.distinct = sinsert(s.distinct, fp, s.rng.Uint64())
	}
}

// ReplacePlayer implements Store.ReplacePlayer.
func (s *TreapStore) ReplacePlayer(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, isHidden := s.hidden[snap.Player]
	if old, known := s.byID[snap.Player]; known && !isHidden {
		fp := toFixedPoint(old.Ordinal)
		s.root = deleteNode(s.root, snap.Player, fp)
		s.distinct = srelease(s.distinct, fp)
	}
	if snap.Winrates == nil {
		snap.Winrates = make(map[stats.Key]stats.Winrate)
	}
	copied := snap
	s.byID[snap.Player] = &copied
	if !isHidden {
		fp := toFixedPoint(snap.Ordinal)
		s.root = insert(s.root, snap.Player, fp, s.rng.Uint64())
		s.distinct = sinsert(s.distinct, fp, s.rng.Uint64())
	}
	return nil
}

// Snapshot implements Store.Snapshot.
func (s *TreapStore) Snapshot(ctx context.Context, player int64) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.byID[player]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	out := *snap
	out.Winrates = make(map[stats.Key]stats.Winrate, len(snap.Winrates))
	for k, v := range snap.Winrates {
		out.Winrates[k] = v
	}
	return out, nil
}

// Rank implements Store.Rank in O(log n).
func (s *TreapStore) Rank(ctx context.Context, player int64) (types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.byID[player]
	if !ok {
		return types.Entry{}, ErrNotFound
	}
	if _, isHidden := s.hidden[player]; isHidden {
		return types.Entry{}, ErrHidden
	}
	fp := toFixedPoint(snap.Ordinal)
	return types.Entry{
		Rank:    1 + countGreater(s.distinct, fp),
		Player:  player,
		Name:    snap.Name,
		Ordinal: toFloat(fp),
		Mu:      snap.Mu,
		Sigma:   snap.Sigma,
	}, nil
}

// Leaderboard implements Store.Leaderboard.
func (s *TreapStore) Leaderboard(ctx context.Context, offset, limit int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if offset < 0 || limit <= 0 {
		return nil, ErrInvalidWindow
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]entryRef, 0, limit)
	collectRange(s.root, offset, limit, &refs)

	out := make([]types.Entry, 0, len(refs))
	for _, ref := range refs {
		snap := s.byID[ref.player]
		out = append(out, types.Entry{
			Rank:    1 + countGreater(s.distinct, ref.score),
			Player:  ref.player,
			Name:    snap.Name,
			Ordinal: toFloat(ref.score),
			Mu:      snap.Mu,
			Sigma:   snap.Sigma,
		})
	}
	return out, nil
}

// Hide implements Store.Hide. The snapshot survives; only view
// membership changes.
func (s *TreapStore) Hide(ctx context.Context, player int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, already := s.hidden[player]; already {
		return nil
	}
	s.hidden[player] = struct{}{}
	if snap, known := s.byID[player]; known {
		fp := toFixedPoint(snap.Ordinal)
		s.root = deleteNode(s.root, player, fp)
		s.distinct = srelease(s.distinct, fp)
	}
	return nil
}

// Show implements Store.Show.
func (s *TreapStore) Show(ctx context.Context, player int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, isHidden := s.hidden[player]; !isHidden {
		return nil
	}
	delete(s.hidden, player)
	if snap, known := s.byID[player]; known {
		fp := toFixedPoint(snap.Ordinal)
		s.root = insert(s.root, player, fp, s.rng.Uint64())
		s.distinct = sinsert(s.distinct, fp, s.rng.Uint64())
	}
	return nil
}

// Hidden implements Store.Hidden.
func (s *TreapStore) Hidden(ctx context.Context, player int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, isHidden := s.hidden[player]
	return isHidden
}

// Count implements Store.Count.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// VisibleCount implements Store.VisibleCount.
func (s *TreapStore) VisibleCount(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nsize(s.root)
}

package nameindex

// BK-tree over casefolded aliases keyed by Levenshtein distance.
// Aliases are never deleted, so the tree only ever grows; stale-entry
// handling is not needed.

type bkNode struct {
	term     string
	children map[int]*bkNode
}

func (n *bkNode) insert(term string) {
	for {
		d := levenshtein(term, n.term)
		if d == 0 {
			return // already present
		}
		if n.children == nil {
			n.children = make(map[int]*bkNode)
		}
		child, ok := n.children[d]
		if !ok {
			n.children[d] = &bkNode{term: term}
			return
		}
		n = child
	}
}

// walk visits every term within maxDist of query, using the triangle
// inequality to prune subtrees.
func (n *bkNode) walk(query string, maxDist int, visit func(term string, dist int)) {
	d := levenshtein(query, n.term)
	if d <= maxDist {
		visit(n.term, d)
	}
	lo, hi := d-maxDist, d+maxDist
	for childDist, child := range n.children {
		if childDist >= lo && childDist <= hi {
			child.walk(query, maxDist, visit)
		}
	}
}

// levenshtein computes edit distance over runes with a two-row table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// Package stats tracks per-faction win/loss tallies for rating
// snapshots.
package stats

import "math"

// Key classifies an appearance for winrate purposes.
type Key struct {
	Faction string
	SawHunt bool
}

// Winrate is a win/loss tally with a Wilson-style confidence interval.
// The interval is ordered by lower bound so sparse records don't
// outrank well-established ones.
type Winrate struct {
	Wins  int
	Games int
}

// Add folds another tally into this one.
func (w Winrate) Add(other Winrate) Winrate {
	return Winrate{Wins: w.Wins + other.Wins, Games: w.Games + other.Games}
}

// Record counts one more game.
func (w Winrate) Record(won bool) Winrate {
	if won {
		w.Wins++
	}
	w.Games++
	return w
}

// interval returns the centre and radius of the score interval at z=3.
func (w Winrate) interval() (centre, radius float64) {
	const z = 3.0
	n := float64(w.Games)
	avg := float64(w.Wins) / n
	divisor := 1 + z*z/n
	centre = (avg + z*z/(2*n)) / divisor
	radius = z / (2 * n) * math.Sqrt(4*n*avg*(1-avg)+z*z) / divisor
	return centre, radius
}

// LowerBound is the conservative winrate estimate used for ordering.
// A tally with no games sorts below everything.
func (w Winrate) LowerBound() float64 {
	if w.Games == 0 {
		return math.Inf(-1)
	}
	centre, radius := w.interval()
	return centre - radius
}

// Centre is the interval midpoint, or 0 with no games.
func (w Winrate) Centre() float64 {
	if w.Games == 0 {
		return 0
	}
	centre, _ := w.interval()
	return centre
}

// Less orders winrates by interval lower bound.
func (w Winrate) Less(other Winrate) bool {
	return w.LowerBound() < other.LowerBound()
}

// Package rating implements the Gaussian skill-belief update applied to
// every committed game.
//
// The model is a two-team truncated-Gaussian update in the TrueSkill
// family: all winners form one team, all losers the other, and the
// posterior for each participant moves proportionally to their own
// uncertainty. There is no draw outcome; a structurally valid game
// always has at least one winner and one loser.
//
// The parameterization is fixed under AnalysisVersion. Changing any of
// the constants below (or the update rule itself) requires bumping the
// version so historical appearances stay attributable to the rule that
// produced them.
package rating

import (
	"fmt"
	"math"
)

// AnalysisVersion tags every appearance produced by this engine.
const AnalysisVersion = 1

// Documented default prior for a player with no appearance history.
const (
	DefaultMu    = 25.0
	DefaultSigma = DefaultMu / 3.0
)

// Rating is a Gaussian skill belief.
type Rating struct {
	Mu    float64
	Sigma float64
}

// Default returns the prior belief used before a player's first game.
func Default() Rating {
	return Rating{Mu: DefaultMu, Sigma: DefaultSigma}
}

// Ordinal is the conservative skill estimate used for ranking.
func (r Rating) Ordinal() float64 {
	return r.Mu - 3*r.Sigma
}

// Participant couples a prior belief with a game outcome.
type Participant struct {
	Prior Rating
	Won   bool
}

// Engine computes posterior beliefs for all participants of one game.
type Engine struct {
	beta float64 // per-game performance noise
	tau  float64 // additive dynamics, keeps sigma from collapsing
}

// New constructs an Engine with the fixed v1 parameterization unless
// overridden by options.
func New(opts ...Option) *Engine {
	e := &Engine{
		beta: DefaultSigma / 2.0,
		tau:  DefaultSigma / 100.0,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Version reports the analysis version of this engine's rule.
func (e *Engine) Version() int {
	return AnalysisVersion
}

// Rate returns one posterior per participant, index-aligned with the
// input. The whole slice is computed from the priors as a unit; callers
// must apply either all posteriors or none.
func (e *Engine) Rate(participants []Participant) ([]Rating, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: got %d participants", ErrTooFewParticipants, len(participants))
	}

	var winMu, loseMu, varSum float64
	winners, losers := 0, 0
	for _, p := range participants {
		v := p.Prior.Sigma*p.Prior.Sigma + e.tau*e.tau
		varSum += v
		if p.Won {
			winMu += p.Prior.Mu
			winners++
		} else {
			loseMu += p.Prior.Mu
			losers++
		}
	}
	if winners == 0 || losers == 0 {
		return nil, ErrOneSided
	}

	// Normalize team sums so uneven team sizes compare on equal footing.
	n := float64(len(participants))
	c2 := varSum + n*e.beta*e.beta
	c := math.Sqrt(c2)
	t := (winMu/float64(winners) - loseMu/float64(losers)) / c

	v := truncGaussMean(t)
	w := v * (v + t)

	out := make([]Rating, len(participants))
	for i, p := range participants {
		varP := p.Prior.Sigma*p.Prior.Sigma + e.tau*e.tau
		delta := varP / c * v
		shrink := 1 - varP/c2*w
		if shrink < minSigmaShrink {
			shrink = minSigmaShrink
		}
		mu := p.Prior.Mu + delta
		if !p.Won {
			mu = p.Prior.Mu - delta
		}
		out[i] = Rating{
			Mu:    mu,
			Sigma: math.Sqrt(varP * shrink),
		}
	}
	return out, nil
}

// minSigmaShrink bounds the variance multiplier away from zero so a
// single lopsided game cannot wipe out all uncertainty.
const minSigmaShrink = 1e-4

// truncGaussMean is the additive correction v(t) = pdf(t)/cdf(t) for a
// Gaussian truncated below at -t. Always positive, so a winner's mu
// strictly increases.
func truncGaussMean(t float64) float64 {
	denom := normCDF(t)
	if denom < 1e-300 {
		// Far tail; v(t) approaches -t.
		return -t
	}
	return normPDF(t) / denom
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

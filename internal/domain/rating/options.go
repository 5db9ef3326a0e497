package rating

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithBeta sets the per-game performance noise.
func WithBeta(beta float64) Option {
	return func(e *Engine) {
		if beta > 0 {
			e.beta = beta
		}
	}
}

// WithTau sets the additive dynamics factor.
func WithTau(tau float64) Option {
	return func(e *Engine) {
		if tau >= 0 {
			e.tau = tau
		}
	}
}

package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrTooFewParticipants = errors.New("too few participants")
	ErrOneSided           = errors.New("game has no winners or no losers")
)

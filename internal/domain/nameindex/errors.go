package nameindex

import "errors"

// Sentinel kinds for alias registration.
var (
	ErrEmptyAlias = errors.New("empty alias")
	ErrAliasTaken = errors.New("alias already owned by another player")
)

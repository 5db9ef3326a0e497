package model

import "errors"

// Sentinel kinds for game records.
var (
	ErrInvalidGame = errors.New("invalid game")
)

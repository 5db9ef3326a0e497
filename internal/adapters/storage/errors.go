package storage

import "errors"

// Sentinel errors for the appearance log.
var (
	// ErrDuplicateGame is returned when a game id is already logged.
	ErrDuplicateGame = errors.New("game already recorded")
	// ErrNotFound is returned for lookups that match no row.
	ErrNotFound = errors.New("not found")
)

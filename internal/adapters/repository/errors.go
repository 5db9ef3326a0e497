package repository

import "errors"

// Sentinel errors for the rating cache and leaderboard view.
var (
	// ErrNotFound is returned for players without any appearance.
	ErrNotFound = errors.New("player not found")
	// ErrHidden is returned when a ranked lookup targets a hidden player.
	ErrHidden = errors.New("player hidden")
	// ErrInvalidWindow is returned for a malformed leaderboard window.
	ErrInvalidWindow = errors.New("invalid leaderboard window")
)

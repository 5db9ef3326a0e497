package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrNotRunning is returned when a write arrives before Start or
	// after Stop.
	ErrNotRunning = errors.New("service not running")
	// ErrQueueFull is returned when the game queue sheds load.
	ErrQueueFull = errors.New("game queue full")
)

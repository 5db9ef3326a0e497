package resolve

import "errors"

// Sentinel kinds for identity resolution.
var (
	ErrEmptyExternalID = errors.New("empty external id")
)

package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// wrapKind annotates a sentinel kind with an operation and a cause.
func wrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// newKind annotates a sentinel kind with an operation.
func newKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

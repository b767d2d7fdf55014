package order

import "errors"

// Module errors.
var (
	ErrInvalidTransition = errors.New("invalid order status transition")
)

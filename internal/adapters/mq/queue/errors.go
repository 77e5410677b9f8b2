package queue

import "errors"

// Sentinel kinds for trigger queue errors.
var (
	ErrClosed = errors.New("queue closed")
)

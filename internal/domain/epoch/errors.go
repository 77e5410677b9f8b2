package epoch

import "errors"

var (
	// ErrInvalidBatch rejects a publish batch at validation time. No
	// partial state is visible: the prior epoch keeps serving.
	ErrInvalidBatch = errors.New("invalid publish batch")

	// ErrUnknownField marks a filter or sort field the view does not carry.
	ErrUnknownField = errors.New("unknown field")

	// ErrNoEpoch is returned when a category has never been published.
	ErrNoEpoch = errors.New("no published epoch")
)

package validate

import "errors"

// Sentinel kinds for validation errors. All are rejections: the caller
// is notified and no state changes.
var (
	ErrMissingField  = errors.New("missing required field")
	ErrNegativeCount = errors.New("negative count metric")
	ErrNotFinite     = errors.New("metric is not a finite number")
	ErrOutOfOrder    = errors.New("snapshot out of order")
)

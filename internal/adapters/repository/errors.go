package repository

import "errors"

// Sentinel kinds for snapshot log errors.
var (
	ErrDuplicate = errors.New("snapshot already recorded")
	ErrNotFound  = errors.New("subject not found")
)

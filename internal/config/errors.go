package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrInvalidWeights = errors.New("weights must sum to 1.0")
	ErrLoadConfig     = errors.New("load config failed")
)

package seed

import "time"

// HTTP status code constants.
const (
	StatusOK            = 200
	StatusAccepted      = 202
	StatusUnprocessable = 422
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PublishWaitDelay     = 5 * time.Second
	PercentageMultiplier = 100
)

// Package queue provides the recompute trigger channel between
// ingestion and the scoring workers.
package queue

import "time"

// Option applies a configuration option to the CoalescingQueue.
type Option func(*CoalescingQueue)

// WithCapacity bounds the number of distinct waiting categories.
func WithCapacity(capacity int) Option {
	return func(q *CoalescingQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithClock overrides the trigger timestamp source.
func WithClock(now func() time.Time) Option {
	return func(q *CoalescingQueue) {
		if now != nil {
			q.now = now
		}
	}
}

// Package queue provides the recompute trigger channel between
// ingestion and the scoring workers.
//
// Triggers are per-category and coalesce: a category already waiting
// is not enqueued twice, since one recomputation covers every
// snapshot accepted before it starts.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/creatorvc/scout/pkg/metrics"
)

// defaultCapacity bounds the number of distinct categories waiting.
const defaultCapacity = 1024

// Trigger asks the workers to recompute one category.
type Trigger struct {
	Category   string
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue of
// recompute triggers.
type Queue interface {
	// Enqueue marks a category for recomputation. Returns false only
	// when the trigger was dropped (queue closed or full); a coalesced
	// trigger reports true.
	Enqueue(ctx context.Context, category string) bool

	// Dequeue returns a channel delivering triggers as they become
	// due. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Trigger

	// Len returns the number of categories currently waiting.
	Len(ctx context.Context) int

	// Close stops the queue. Pending triggers are still delivered.
	Close() error

	IsClosed() bool
}

// CoalescingQueue implements Queue with a pending-set in front of a
// buffered channel.
type CoalescingQueue struct {
	mu       sync.Mutex
	pending  map[string]struct{}
	triggers chan Trigger
	out      chan Trigger
	capacity int
	closed   bool

	now func() time.Time
}

// NewCoalescingQueue creates a trigger queue with configuration options.
func NewCoalescingQueue(opts ...Option) *CoalescingQueue {
	q := &CoalescingQueue{
		capacity: defaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}

	q.pending = make(map[string]struct{}, q.capacity)
	q.triggers = make(chan Trigger, q.capacity)
	q.out = make(chan Trigger)
	go q.pump()

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueDepth(0)

	return q
}

// pump forwards triggers to consumers, releasing the pending mark at
// hand-off so snapshots arriving mid-recompute trigger another pass.
func (q *CoalescingQueue) pump() {
	defer close(q.out)
	for t := range q.triggers {
		q.mu.Lock()
		delete(q.pending, t.Category)
		depth := len(q.pending)
		q.mu.Unlock()
		metrics.UpdateQueueDepth(depth)

		q.out <- t
	}
}

// Enqueue marks a category dirty.
func (q *CoalescingQueue) Enqueue(ctx context.Context, category string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || ctx.Err() != nil {
		metrics.RecordTriggerDropped()
		return false
	}
	if _, waiting := q.pending[category]; waiting {
		metrics.RecordTriggerCoalesced()
		return true
	}

	select {
	case q.triggers <- Trigger{Category: category, EnqueuedAt: q.now()}:
		q.pending[category] = struct{}{}
		metrics.UpdateQueueDepth(len(q.pending))
		return true
	default:
		metrics.RecordTriggerDropped()
		return false
	}
}

// Dequeue returns the trigger channel.
func (q *CoalescingQueue) Dequeue(_ context.Context) <-chan Trigger {
	return q.out
}

// Len returns the number of waiting categories.
func (q *CoalescingQueue) Len(_ context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting triggers and drains the channel.
func (q *CoalescingQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.closed = true
	close(q.triggers)
	return nil
}

// IsClosed reports whether the queue was closed.
func (q *CoalescingQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

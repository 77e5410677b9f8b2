// Package dedupe provides idempotency tracking for snapshot ingestion.
package dedupe

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Deduper records seen snapshot identities so that resubmitting the
// same (subject, collected_at) pair is a no-op instead of a new write.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records
	// it if not. Returns true when key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing a retry. Use only when a
	// snapshot was marked seen but failed to be persisted.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// SnapshotKey builds the dedupe key for one snapshot identity. The
// collection timestamp is rendered at nanosecond precision so distinct
// instants never collide.
func SnapshotKey(subjectID string, collectedAt time.Time) string {
	return subjectID + "@" + strconv.FormatInt(collectedAt.UnixNano(), 10)
}

// inMemoryDeduper is a bounded seen-set with FIFO eviction. With
// maxSize <= 0 the set is unbounded and nothing is ever evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // insertion order, oldest first; unused when unbounded
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.order = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	d.seen[key] = struct{}{}
	if d.maxSize > 0 {
		d.order = append(d.order, key)
	}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; !exists {
		return
	}
	delete(d.seen, key)
	d.size.Add(-1)
	// The stale order entry is skipped at eviction time.
}

// evictOldest drops the oldest live entry. Entries already unrecorded
// are skipped and compacted away. Caller holds d.mu.
func (d *inMemoryDeduper) evictOldest() {
	for len(d.order) > 0 {
		key := d.order[0]
		d.order = d.order[1:]
		if _, live := d.seen[key]; live {
			delete(d.seen, key)
			d.size.Add(-1)
			return
		}
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Package repository defines the append-only snapshot log and its errors.
package repository

import (
	"context"
	"time"

	"github.com/creatorvc/scout/internal/domain/model"
)

// EpochRecord is the audit entry persisted for every published epoch.
type EpochRecord struct {
	Epoch        uint64
	Category     string
	PublishedAt  time.Time
	SubjectCount int
}

// Stats summarizes the log contents.
type Stats struct {
	Subjects   int
	Snapshots  int
	Categories int
}

// SnapshotLog provides append-only access to raw metric snapshots and
// the epoch audit trail. Snapshots are never updated or deleted; a
// subject's category and handle follow its latest accepted snapshot.
type SnapshotLog interface {
	// Append stores one snapshot. A snapshot with the same
	// (subject_id, collected_at) identity as an existing one returns
	// ErrDuplicate and changes nothing.
	Append(ctx context.Context, snap model.Snapshot) error

	// LatestTimestamp returns the newest collection time recorded for
	// a subject. The bool is false when the subject has no snapshots.
	LatestTimestamp(ctx context.Context, subjectID string) (time.Time, bool, error)

	// Has reports whether the exact (subject_id, collected_at) pair is
	// already stored.
	Has(ctx context.Context, subjectID string, collectedAt time.Time) (bool, error)

	// LatestByCategory returns the latest snapshot of every subject
	// whose current category matches.
	LatestByCategory(ctx context.Context, category string) ([]model.Snapshot, error)

	// LatestAll returns the latest snapshot of every subject.
	LatestAll(ctx context.Context) ([]model.Snapshot, error)

	// History returns a subject's snapshots ascending by collection
	// time, at most limit newest entries (0 means all).
	History(ctx context.Context, subjectID string, limit int) ([]model.Snapshot, error)

	// Subject resolves a subject's identity from its latest snapshot.
	// Returns ErrNotFound for an unknown subject.
	Subject(ctx context.Context, subjectID string) (model.Subject, error)

	// Categories lists the current categories, sorted.
	Categories(ctx context.Context) ([]string, error)

	// Counts reports log-level statistics.
	Counts(ctx context.Context) (Stats, error)

	// RecordEpoch appends one epoch audit entry.
	RecordEpoch(ctx context.Context, rec EpochRecord) error

	// EpochHighWater returns the highest persisted epoch id, 0 when
	// none was ever published.
	EpochHighWater(ctx context.Context) (uint64, error)

	Close() error
}

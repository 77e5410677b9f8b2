package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/creatorvc/scout/internal/domain/model"
)

// MemoryLog is an in-process SnapshotLog. It backs tests and runs
// without a database path configured; nothing survives a restart.
type MemoryLog struct {
	mu        sync.RWMutex
	bySubject map[string][]model.Snapshot // ascending by collection time
	epochs    []EpochRecord
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		bySubject: make(map[string][]model.Snapshot),
	}
}

func (m *MemoryLog) Close() error { return nil }

func (m *MemoryLog) Append(_ context.Context, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.bySubject[snap.SubjectID]
	for _, existing := range history {
		if existing.CollectedAt.Equal(snap.CollectedAt) {
			return fmt.Errorf("subject %s at %s: %w",
				snap.SubjectID, snap.CollectedAt.Format(time.RFC3339), ErrDuplicate)
		}
	}

	snap.Metrics = snap.Metrics.Clone()
	history = append(history, snap)
	sort.Slice(history, func(i, j int) bool {
		return history[i].CollectedAt.Before(history[j].CollectedAt)
	})
	m.bySubject[snap.SubjectID] = history
	return nil
}

func (m *MemoryLog) LatestTimestamp(_ context.Context, subjectID string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.bySubject[subjectID]
	if len(history) == 0 {
		return time.Time{}, false, nil
	}
	return history[len(history)-1].CollectedAt, true, nil
}

func (m *MemoryLog) Has(_ context.Context, subjectID string, collectedAt time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, existing := range m.bySubject[subjectID] {
		if existing.CollectedAt.Equal(collectedAt) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryLog) LatestByCategory(_ context.Context, category string) ([]model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Snapshot, 0)
	for _, history := range m.bySubject {
		latest := history[len(history)-1]
		if latest.Category == category {
			out = append(out, latest)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

func (m *MemoryLog) LatestAll(_ context.Context) ([]model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Snapshot, 0, len(m.bySubject))
	for _, history := range m.bySubject {
		out = append(out, history[len(history)-1])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

func (m *MemoryLog) History(_ context.Context, subjectID string, limit int) ([]model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.bySubject[subjectID]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]model.Snapshot, len(history))
	copy(out, history)
	return out, nil
}

func (m *MemoryLog) Subject(_ context.Context, subjectID string) (model.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.bySubject[subjectID]
	if len(history) == 0 {
		return model.Subject{}, fmt.Errorf("%s: %w", subjectID, ErrNotFound)
	}
	latest := history[len(history)-1]
	return model.Subject{ID: latest.SubjectID, Handle: latest.Handle, Category: latest.Category}, nil
}

func (m *MemoryLog) Categories(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, history := range m.bySubject {
		seen[history[len(history)-1].Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryLog) Counts(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	total := 0
	for _, history := range m.bySubject {
		total += len(history)
	}
	subjects := len(m.bySubject)
	m.mu.RUnlock()

	cats, _ := m.Categories(ctx)
	return Stats{Subjects: subjects, Snapshots: total, Categories: len(cats)}, nil
}

func (m *MemoryLog) RecordEpoch(_ context.Context, rec EpochRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epochs = append(m.epochs, rec)
	return nil
}

func (m *MemoryLog) EpochHighWater(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var high uint64
	for _, rec := range m.epochs {
		if rec.Epoch > high {
			high = rec.Epoch
		}
	}
	return high, nil
}

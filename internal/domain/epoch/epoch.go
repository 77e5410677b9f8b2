// Package epoch owns score publication: immutable per-category views
// swapped atomically under monotonically increasing epoch ids.
package epoch

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creatorvc/scout/internal/domain/model"
)

// Row is one subject's published score entry.
type Row struct {
	SubjectID string
	Handle    string
	Category  string

	Rank         int
	OverallScore float64
	SubScores    model.SubScores
	Trend        *model.TrendRecord
	Percentiles  model.PercentileVector
	Followers    float64

	ComputedAt time.Time
}

// View is an immutable published ranking for one category. Readers
// holding a View keep seeing it unchanged while newer epochs publish.
type View struct {
	Epoch       uint64
	Category    string
	PublishedAt time.Time

	rows []Row
	byID map[string]int
}

// Rows returns the ranked rows, best first.
func (v *View) Rows() []Row {
	return v.rows
}

// Lookup returns the row for a subject id within this view.
func (v *View) Lookup(subjectID string) (Row, bool) {
	i, ok := v.byID[subjectID]
	if !ok {
		return Row{}, false
	}
	return v.rows[i], true
}

// Publisher maintains the current view per category. Publication is a
// single pointer swap: a query sees either the whole previous epoch or
// the whole new one, never a mix.
type Publisher struct {
	mu    sync.RWMutex
	views map[string]*atomic.Pointer[View]

	epoch atomic.Uint64
	now   func() time.Time
}

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithClock overrides the publication timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// New constructs an empty Publisher.
func New(opts ...Option) *Publisher {
	p := &Publisher{
		views: make(map[string]*atomic.Pointer[View]),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Seed raises the epoch counter to at least highWater. Called once at
// startup with the persisted high-water mark so restarts never reuse
// an id.
func (p *Publisher) Seed(highWater uint64) {
	for {
		cur := p.epoch.Load()
		if cur >= highWater || p.epoch.CompareAndSwap(cur, highWater) {
			return
		}
	}
}

// Publish validates, ranks and atomically installs a new view for one
// category. Validation failures abort the whole batch and leave the
// previously published epoch serving. The rows slice is owned by the
// publisher after a successful call.
func (p *Publisher) Publish(ctx context.Context, category string, rows []Row) (*View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if category == "" {
		return nil, fmt.Errorf("%w: empty category", ErrInvalidBatch)
	}
	if err := validateRows(category, rows); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OverallScore != rows[j].OverallScore {
			return rows[i].OverallScore > rows[j].OverallScore
		}
		return rows[i].SubjectID < rows[j].SubjectID
	})
	assignRanksWithTies(rows)

	byID := make(map[string]int, len(rows))
	for i, r := range rows {
		byID[r.SubjectID] = i
	}

	view := &View{
		Epoch:       p.epoch.Add(1),
		Category:    category,
		PublishedAt: p.now(),
		rows:        rows,
		byID:        byID,
	}

	p.slot(category).Store(view)
	return view, nil
}

// Current returns the currently served view for category.
func (p *Publisher) Current(category string) (*View, error) {
	p.mu.RLock()
	slot, ok := p.views[category]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoEpoch, category)
	}
	v := slot.Load()
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEpoch, category)
	}
	return v, nil
}

// Categories lists every category with a published view, sorted.
func (p *Publisher) Categories() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, 0, len(p.views))
	for cat, slot := range p.views {
		if slot.Load() != nil {
			out = append(out, cat)
		}
	}
	sort.Strings(out)
	return out
}

// Views returns the current view of every published category.
func (p *Publisher) Views() []*View {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*View, 0, len(p.views))
	for _, slot := range p.views {
		if v := slot.Load(); v != nil {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

func (p *Publisher) slot(category string) *atomic.Pointer[View] {
	p.mu.RLock()
	slot, ok := p.views[category]
	p.mu.RUnlock()
	if ok {
		return slot
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if slot, ok = p.views[category]; ok {
		return slot
	}
	slot = &atomic.Pointer[View]{}
	p.views[category] = slot
	return slot
}

// validateRows checks the entire batch before anything is installed.
func validateRows(category string, rows []Row) error {
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		switch {
		case r.SubjectID == "":
			return fmt.Errorf("%w: row with empty subject id", ErrInvalidBatch)
		case r.Category != category:
			return fmt.Errorf("%w: subject %s carries category %q, batch is %q",
				ErrInvalidBatch, r.SubjectID, r.Category, category)
		}
		if _, dup := seen[r.SubjectID]; dup {
			return fmt.Errorf("%w: duplicate subject %s", ErrInvalidBatch, r.SubjectID)
		}
		seen[r.SubjectID] = struct{}{}

		for name, score := range map[string]float64{
			"overall_score":    r.OverallScore,
			"content_quality":  r.SubScores.ContentQuality,
			"audience_quality": r.SubScores.AudienceQuality,
			"brand_alignment":  r.SubScores.BrandAlignment,
		} {
			if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > 100 {
				return fmt.Errorf("%w: subject %s %s out of bounds: %v",
					ErrInvalidBatch, r.SubjectID, name, score)
			}
		}
	}
	return nil
}

// assignRanksWithTies gives equal overall scores an equal rank, with
// the following rank position skipped (1, 2, 2, 4). Rows must already
// be sorted best first.
func assignRanksWithTies(rows []Row) {
	for i := range rows {
		if i > 0 && rows[i].OverallScore == rows[i-1].OverallScore {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
}

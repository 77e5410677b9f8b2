// Package service provides the core scoring service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	triggerqueue "github.com/creatorvc/scout/internal/adapters/mq/queue"
	workerpool "github.com/creatorvc/scout/internal/adapters/mq/worker"
	"github.com/creatorvc/scout/internal/adapters/repository"
	"github.com/creatorvc/scout/internal/domain/cohort"
	"github.com/creatorvc/scout/internal/domain/compose"
	"github.com/creatorvc/scout/internal/domain/dedupe"
	"github.com/creatorvc/scout/internal/domain/epoch"
	"github.com/creatorvc/scout/internal/domain/model"
	"github.com/creatorvc/scout/internal/domain/trend"
	"github.com/creatorvc/scout/internal/domain/validate"
	"github.com/creatorvc/scout/pkg/logger"
	"github.com/creatorvc/scout/pkg/metrics"
)

// Trigger modes.
const (
	TriggerOnIngest = "on_ingest"
	TriggerInterval = "interval"
)

// Submission statuses.
const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
	StatusRejected  = "rejected"
)

// SubmitResult reports how one snapshot submission ended.
type SubmitResult struct {
	Status string
	Reason string // populated for rejections
}

// Listing is one page of a ranked category query.
type Listing struct {
	Category    string
	Epoch       uint64
	PublishedAt time.Time
	Total       int
	Rows        []epoch.Row
}

// SubjectDetail is the full current state of one subject.
type SubjectDetail struct {
	Subject model.Subject
	Row     *epoch.Row // nil until the subject's category published
	Epoch   uint64
	History []model.Snapshot
}

// Stats reports service counters for the stats endpoint.
type Stats struct {
	Started       bool
	Subjects      int
	Snapshots     int
	Categories    int
	QueueDepth    int
	Workers       int
	DedupeEntries int64
	Epochs        map[string]uint64
}

// Service wires ingestion, recomputation and queries together.
type Service struct {
	mu sync.RWMutex

	// Core components
	log       repository.SnapshotLog
	deduper   dedupe.Deduper
	triggers  triggerqueue.Queue
	publisher *epoch.Publisher
	pool      *workerpool.Pool

	// Domain components
	validator  *validate.Validator
	normalizer *cohort.Normalizer
	composer   *compose.Composer
	trends     *trend.Calculator

	// Configuration
	dbPath        string
	triggerMode   string
	interval      time.Duration
	workerCount   int
	queueSize     int
	dedupeSize    int
	batchTimeout  time.Duration
	cohortMinSize int
	trendWindow   int
	winsorMult    float64
	annualize     bool
	weights       *compose.Weights

	// State
	started  bool
	stopRun  context.CancelFunc
	poolDone chan struct{}

	// catLocks serializes recomputation per category so exactly one
	// batch per category is in flight and publishes in read order.
	catLocks sync.Map // category -> *sync.Mutex

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		triggerMode:   TriggerOnIngest,
		interval:      5 * time.Minute,
		workerCount:   runtime.NumCPU(),
		queueSize:     1024,
		dedupeSize:    100_000,
		batchTimeout:  30 * time.Second,
		cohortMinSize: 5,
		trendWindow:   6,
		winsorMult:    3.0,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.log == nil {
		if s.dbPath != "" {
			log, err := repository.NewSQLiteLog(s.dbPath)
			if err != nil {
				return fmt.Errorf("open snapshot log: %w", err)
			}
			s.log = log
			s.logger.Info(ctx, "using sqlite snapshot log", logger.String("path", s.dbPath))
		} else {
			s.log = repository.NewMemoryLog()
			s.logger.Info(ctx, "using in-memory snapshot log")
		}
	}

	s.publisher = epoch.New()
	highWater, err := s.log.EpochHighWater(ctx)
	if err != nil {
		return fmt.Errorf("load epoch high water: %w", err)
	}
	s.publisher.Seed(highWater)

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.triggers = triggerqueue.NewCoalescingQueue(triggerqueue.WithCapacity(s.queueSize))

	s.validator = validate.New()
	s.normalizer = cohort.New(cohort.WithMinCohortSize(s.cohortMinSize))
	composeOpts := []compose.Option{}
	if s.weights != nil {
		composeOpts = append(composeOpts, compose.WithWeights(*s.weights))
	}
	s.composer = compose.New(composeOpts...)
	s.trends = trend.New(
		trend.WithWindow(s.trendWindow),
		trend.WithWinsorMultiple(s.winsorMult),
		trend.WithAnnualize(s.annualize),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	s.stopRun = cancel
	s.poolDone = make(chan struct{})

	s.pool = workerpool.NewPool(s.workerCount, s.triggers, s,
		workerpool.WithBatchTimeout(s.batchTimeout),
	)
	go func() {
		defer close(s.poolDone)
		s.pool.Run(runCtx)
	}()

	if s.triggerMode == TriggerInterval {
		go s.runIntervalTrigger(runCtx)
	}

	// Rebuild views from the persisted log so restarts serve again.
	if cats, err := s.log.Categories(ctx); err == nil {
		for _, cat := range cats {
			s.triggers.Enqueue(ctx, cat)
		}
	}

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.workerCount),
		logger.String("triggerMode", s.triggerMode),
		logger.Uint64("epochHighWater", highWater),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")

	if s.triggers != nil {
		_ = s.triggers.Close()
	}
	if s.stopRun != nil {
		s.stopRun()
	}
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if s.poolDone != nil {
		<-s.poolDone
	}
	if s.log != nil {
		_ = s.log.Close()
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// runIntervalTrigger enqueues every known category each interval.
func (s *Service) runIntervalTrigger(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RecomputeAll(ctx); err != nil {
				s.logger.Error(ctx, "interval recompute failed", logger.Error(err))
			}
		}
	}
}

// SubmitSnapshot validates and appends one snapshot, then marks its
// category dirty. Resubmitting an identical (subject, collected_at)
// pair is a no-op reported as a duplicate.
func (s *Service) SubmitSnapshot(ctx context.Context, snap model.Snapshot) (SubmitResult, error) {
	key := dedupe.SnapshotKey(snap.SubjectID, snap.CollectedAt)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSnapshotDuplicate()
		return SubmitResult{Status: StatusDuplicate}, nil
	}

	last, hasPrior, err := s.log.LatestTimestamp(ctx, snap.SubjectID)
	if err != nil {
		s.deduper.Unrecord(ctx, key)
		return SubmitResult{}, err
	}
	if hasPrior && snap.CollectedAt.Equal(last) {
		metrics.RecordSnapshotDuplicate()
		return SubmitResult{Status: StatusDuplicate}, nil
	}

	// An older timestamp may still be a resubmission of a stored pair
	// the cache no longer remembers; that is a no-op, not out of order.
	if hasPrior && snap.CollectedAt.Before(last) {
		stored, err := s.log.Has(ctx, snap.SubjectID, snap.CollectedAt)
		if err != nil {
			s.deduper.Unrecord(ctx, key)
			return SubmitResult{}, err
		}
		if stored {
			metrics.RecordSnapshotDuplicate()
			return SubmitResult{Status: StatusDuplicate}, nil
		}
	}

	// The previous category still needs recomputing when a subject
	// moves, so resolve it before the append changes the answer.
	previousCategory := ""
	if hasPrior {
		if subject, err := s.log.Subject(ctx, snap.SubjectID); err == nil {
			previousCategory = subject.Category
		}
	}

	if err := s.validator.Check(snap, last, hasPrior); err != nil {
		s.deduper.Unrecord(ctx, key)
		reason := validate.Reason(err)
		metrics.RecordSnapshotRejected(reason)
		s.logger.Debug(ctx, "snapshot rejected",
			logger.String("subjectID", snap.SubjectID),
			logger.String("reason", reason),
		)
		return SubmitResult{Status: StatusRejected, Reason: reason}, nil
	}

	if err := s.log.Append(ctx, snap); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RecordSnapshotDuplicate()
			return SubmitResult{Status: StatusDuplicate}, nil
		}
		s.deduper.Unrecord(ctx, key)
		return SubmitResult{}, err
	}

	metrics.RecordSnapshotAccepted()

	if s.triggerMode == TriggerOnIngest {
		s.triggers.Enqueue(ctx, snap.Category)
		if previousCategory != "" && previousCategory != snap.Category {
			s.triggers.Enqueue(ctx, previousCategory)
		}
	}
	return SubmitResult{Status: StatusAccepted}, nil
}

// Recompute rebuilds and publishes one category's scores. It satisfies
// the worker pool's Recomputer interface. Batches for the same category
// are serialized: a trigger arriving mid-batch waits for the in-flight
// batch and then recomputes from the log again, so its snapshot lands
// in the next epoch and a stale batch can never overwrite a fresher
// view.
func (s *Service) Recompute(ctx context.Context, category string) error {
	mu := s.categoryLock(category)
	mu.Lock()
	defer mu.Unlock()

	metrics.RecordBatchStarted()

	members, err := s.log.LatestByCategory(ctx, category)
	if err != nil {
		metrics.RecordBatchAborted()
		return err
	}
	global, err := s.log.LatestAll(ctx)
	if err != nil {
		metrics.RecordBatchAborted()
		return err
	}

	res := s.normalizer.Normalize(toCohort(members), toCohort(global))

	rows := make([]epoch.Row, 0, len(members))
	lowConfidence, dampened := 0, 0
	computedAt := time.Now().UTC()
	for _, snap := range members {
		if err := ctx.Err(); err != nil {
			metrics.RecordBatchCancelled()
			return err
		}

		history, err := s.log.History(ctx, snap.SubjectID, s.trendWindow)
		if err != nil {
			metrics.RecordBatchAborted()
			return err
		}
		trendRec := s.trends.Compute(history)

		sub, overall := s.composer.Compose(res.Percentiles[snap.SubjectID], res.LowConfidence)
		if sub.LowConfidence {
			lowConfidence++
		}
		if trendRec != nil && trendRec.OutlierDampened {
			dampened++
		}

		rows = append(rows, epoch.Row{
			SubjectID:    snap.SubjectID,
			Handle:       snap.Handle,
			Category:     snap.Category,
			OverallScore: overall,
			SubScores:    sub,
			Trend:        trendRec,
			Percentiles:  res.Percentiles[snap.SubjectID],
			Followers:    snap.Metrics[model.MetricFollowerCount],
			ComputedAt:   computedAt,
		})
	}

	view, err := s.publisher.Publish(ctx, category, rows)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordBatchCancelled()
		} else {
			metrics.RecordBatchAborted()
		}
		return err
	}

	if err := s.log.RecordEpoch(ctx, repository.EpochRecord{
		Epoch:        view.Epoch,
		Category:     category,
		PublishedAt:  view.PublishedAt,
		SubjectCount: len(rows),
	}); err != nil {
		// The view already serves; the audit row is best effort.
		s.logger.Error(ctx, "epoch audit write failed",
			logger.Uint64("epoch", view.Epoch),
			logger.Error(err),
		)
	}

	metrics.RecordBatchPublished()
	metrics.UpdateCurrentEpoch(category, view.Epoch)
	metrics.UpdateEpochPublishUnix(category, float64(view.PublishedAt.Unix()))
	for i := 0; i < lowConfidence; i++ {
		metrics.RecordLowConfidenceScore()
	}
	for i := 0; i < dampened; i++ {
		metrics.RecordDampenedTrend()
	}
	metrics.UpdateSubjectsTotal(len(global))
	metrics.UpdateCategoriesTotal(len(s.publisher.Categories()))

	s.logger.Info(ctx, "epoch published",
		logger.String("category", category),
		logger.Uint64("epoch", view.Epoch),
		logger.Int("subjects", len(rows)),
	)
	return nil
}

// RecomputeAll marks every known category dirty and returns how many
// triggers were enqueued.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	cats, err := s.log.Categories(ctx)
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, cat := range cats {
		if s.triggers.Enqueue(ctx, cat) {
			enqueued++
		}
	}
	return enqueued, nil
}

// ListSubjects evaluates a ranked query against the current epoch of a
// category.
func (s *Service) ListSubjects(ctx context.Context, category string, q epoch.Query) (Listing, error) {
	start := time.Now()
	defer func() {
		metrics.RecordQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	view, err := s.publisher.Current(category)
	if err != nil {
		return Listing{}, err
	}
	rows, total, err := view.Evaluate(q)
	if err != nil {
		return Listing{}, err
	}
	return Listing{
		Category:    category,
		Epoch:       view.Epoch,
		PublishedAt: view.PublishedAt,
		Total:       total,
		Rows:        rows,
	}, nil
}

// GetSubject returns a subject's current published row plus its
// snapshot history.
func (s *Service) GetSubject(ctx context.Context, subjectID string) (SubjectDetail, error) {
	subject, err := s.log.Subject(ctx, subjectID)
	if err != nil {
		return SubjectDetail{}, err
	}

	detail := SubjectDetail{Subject: subject}
	if view, err := s.publisher.Current(subject.Category); err == nil {
		detail.Epoch = view.Epoch
		if row, ok := view.Lookup(subjectID); ok {
			detail.Row = &row
		}
	}

	history, err := s.log.History(ctx, subjectID, s.trendWindow)
	if err != nil {
		return SubjectDetail{}, err
	}
	detail.History = history
	return detail, nil
}

// Categories lists categories currently present in the log.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.log.Categories(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	started := s.started
	workers := s.workerCount
	s.mu.RUnlock()

	counts, err := s.log.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}

	epochs := make(map[string]uint64)
	for _, view := range s.publisher.Views() {
		epochs[view.Category] = view.Epoch
	}

	return Stats{
		Started:       started,
		Subjects:      counts.Subjects,
		Snapshots:     counts.Snapshots,
		Categories:    counts.Categories,
		QueueDepth:    s.triggers.Len(ctx),
		Workers:       workers,
		DedupeEntries: s.deduper.Size(),
		Epochs:        epochs,
	}, nil
}

// categoryLock returns the mutex serializing one category's batches.
func (s *Service) categoryLock(category string) *sync.Mutex {
	mu, _ := s.catLocks.LoadOrStore(category, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// toCohort converts latest snapshots into cohort members.
func toCohort(snaps []model.Snapshot) []cohort.Member {
	out := make([]cohort.Member, len(snaps))
	for i, s := range snaps {
		out[i] = cohort.Member{SubjectID: s.SubjectID, Metrics: s.Metrics}
	}
	return out
}

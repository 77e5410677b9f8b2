package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/creatorvc/scout/internal/domain/model"
	"github.com/creatorvc/scout/pkg/metrics"
)

// snapshotRow is the snapshots table row. Collection times are stored
// as unix nanoseconds, metrics as a JSON object.
type snapshotRow struct {
	ID          int64  `db:"id"`
	SubjectID   string `db:"subject_id"`
	Handle      string `db:"handle"`
	Category    string `db:"category"`
	CollectedAt int64  `db:"collected_at"`
	Metrics     string `db:"metrics"`
}

func (r snapshotRow) toModel() (model.Snapshot, error) {
	var m model.RawMetrics
	if err := json.Unmarshal([]byte(r.Metrics), &m); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode metrics for %s: %w", r.SubjectID, err)
	}
	return model.Snapshot{
		SubjectID:   r.SubjectID,
		Handle:      r.Handle,
		Category:    r.Category,
		CollectedAt: time.Unix(0, r.CollectedAt).UTC(),
		Metrics:     m,
	}, nil
}

// SQLiteLog implements SnapshotLog on a local SQLite database.
type SQLiteLog struct {
	db *sqlx.DB
}

// NewSQLiteLog opens the database at path and runs migrations.
func NewSQLiteLog(path string, opts ...SQLiteOption) (*SQLiteLog, error) {
	cfg := sqliteConfig{
		journalMode: "WAL",
		busyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d",
		path, cfg.journalMode, cfg.busyTimeout.Milliseconds())
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteLog{db: db}, nil
}

func (s *SQLiteLog) Close() error {
	return s.db.Close()
}

func (s *SQLiteLog) Append(ctx context.Context, snap model.Snapshot) error {
	start := time.Now()
	defer func() { metrics.RecordLogAppendLatency(float64(time.Since(start).Microseconds()) / 1000) }()

	payload, err := json.Marshal(snap.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics for %s: %w", snap.SubjectID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO snapshots (subject_id, handle, category, collected_at, metrics)
		VALUES (?, ?, ?, ?, ?)
	`, snap.SubjectID, snap.Handle, snap.Category, snap.CollectedAt.UnixNano(), string(payload))
	if err != nil {
		metrics.RecordStoreError("append")
		return fmt.Errorf("append snapshot for %s: %w", snap.SubjectID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append snapshot for %s: %w", snap.SubjectID, err)
	}
	if affected == 0 {
		return fmt.Errorf("subject %s at %s: %w",
			snap.SubjectID, snap.CollectedAt.Format(time.RFC3339), ErrDuplicate)
	}
	return nil
}

func (s *SQLiteLog) LatestTimestamp(ctx context.Context, subjectID string) (time.Time, bool, error) {
	var nanos int64
	err := s.db.GetContext(ctx, &nanos, `
		SELECT collected_at FROM snapshots
		WHERE subject_id = ?
		ORDER BY collected_at DESC LIMIT 1
	`, subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		metrics.RecordStoreError("latest_timestamp")
		return time.Time{}, false, fmt.Errorf("latest timestamp for %s: %w", subjectID, err)
	}
	return time.Unix(0, nanos).UTC(), true, nil
}

func (s *SQLiteLog) Has(ctx context.Context, subjectID string, collectedAt time.Time) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM snapshots
		WHERE subject_id = ? AND collected_at = ?
	`, subjectID, collectedAt.UnixNano())
	if err != nil {
		metrics.RecordStoreError("has")
		return false, fmt.Errorf("lookup snapshot for %s: %w", subjectID, err)
	}
	return count > 0, nil
}

// latestQuery selects each subject's newest snapshot.
const latestQuery = `
	SELECT s.id, s.subject_id, s.handle, s.category, s.collected_at, s.metrics
	FROM snapshots s
	JOIN (
		SELECT subject_id, MAX(collected_at) AS collected_at
		FROM snapshots GROUP BY subject_id
	) latest
	ON s.subject_id = latest.subject_id AND s.collected_at = latest.collected_at
`

func (s *SQLiteLog) LatestByCategory(ctx context.Context, category string) ([]model.Snapshot, error) {
	return s.selectSnapshots(ctx, "latest_by_category",
		latestQuery+` WHERE s.category = ? ORDER BY s.subject_id`, category)
}

func (s *SQLiteLog) LatestAll(ctx context.Context) ([]model.Snapshot, error) {
	return s.selectSnapshots(ctx, "latest_all", latestQuery+` ORDER BY s.subject_id`)
}

func (s *SQLiteLog) History(ctx context.Context, subjectID string, limit int) ([]model.Snapshot, error) {
	query := `
		SELECT id, subject_id, handle, category, collected_at, metrics
		FROM snapshots WHERE subject_id = ?
		ORDER BY collected_at DESC
	`
	args := []any{subjectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	out, err := s.selectSnapshots(ctx, "history", query, args...)
	if err != nil {
		return nil, err
	}
	// Flip the newest-first page into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *SQLiteLog) Subject(ctx context.Context, subjectID string) (model.Subject, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, subject_id, handle, category, collected_at, metrics
		FROM snapshots WHERE subject_id = ?
		ORDER BY collected_at DESC LIMIT 1
	`, subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subject{}, fmt.Errorf("%s: %w", subjectID, ErrNotFound)
	}
	if err != nil {
		metrics.RecordStoreError("subject")
		return model.Subject{}, fmt.Errorf("load subject %s: %w", subjectID, err)
	}
	return model.Subject{ID: row.SubjectID, Handle: row.Handle, Category: row.Category}, nil
}

func (s *SQLiteLog) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.SelectContext(ctx, &out, `
		SELECT DISTINCT s.category FROM snapshots s
		JOIN (
			SELECT subject_id, MAX(collected_at) AS collected_at
			FROM snapshots GROUP BY subject_id
		) latest
		ON s.subject_id = latest.subject_id AND s.collected_at = latest.collected_at
		ORDER BY s.category
	`)
	if err != nil {
		metrics.RecordStoreError("categories")
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *SQLiteLog) Counts(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.GetContext(ctx, &stats.Snapshots, `SELECT COUNT(*) FROM snapshots`)
	if err == nil {
		err = s.db.GetContext(ctx, &stats.Subjects,
			`SELECT COUNT(DISTINCT subject_id) FROM snapshots`)
	}
	if err == nil {
		var cats []string
		if cats, err = s.Categories(ctx); err == nil {
			stats.Categories = len(cats)
		}
	}
	if err != nil {
		metrics.RecordStoreError("counts")
		return Stats{}, fmt.Errorf("log counts: %w", err)
	}
	return stats, nil
}

func (s *SQLiteLog) RecordEpoch(ctx context.Context, rec EpochRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO epoch_history (epoch, category, published_at, subject_count)
		VALUES (?, ?, ?, ?)
	`, rec.Epoch, rec.Category, rec.PublishedAt.UnixNano(), rec.SubjectCount)
	if err != nil {
		metrics.RecordStoreError("record_epoch")
		return fmt.Errorf("record epoch %d: %w", rec.Epoch, err)
	}
	return nil
}

func (s *SQLiteLog) EpochHighWater(ctx context.Context) (uint64, error) {
	var high uint64
	err := s.db.GetContext(ctx, &high, `SELECT COALESCE(MAX(epoch), 0) FROM epoch_history`)
	if err != nil {
		metrics.RecordStoreError("epoch_high_water")
		return 0, fmt.Errorf("epoch high water: %w", err)
	}
	return high, nil
}

func (s *SQLiteLog) selectSnapshots(ctx context.Context, op, query string, args ...any) ([]model.Snapshot, error) {
	start := time.Now()
	defer func() { metrics.RecordLogReadLatency(float64(time.Since(start).Microseconds()) / 1000) }()

	var rows []snapshotRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		metrics.RecordStoreError(op)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]model.Snapshot, 0, len(rows))
	for _, r := range rows {
		snap, err := r.toModel()
		if err != nil {
			metrics.RecordStoreError(op)
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

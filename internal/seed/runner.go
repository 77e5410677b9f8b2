package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creatorvc/scout/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete seed flow: generate creator histories,
// submit them, force a recompute, then verify the published rankings.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting scout seed run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("subjects", cfg.Subjects),
		logger.Int("cycles", cfg.Cycles),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
		logger.String("logFile", cfg.LogFile),
		logger.Any("verbose", cfg.Verbose))

	if err := checkServiceHealth(ctx, cfg); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	snapshots, err := generateSnapshots(ctx, cfg, stats)
	if err != nil {
		return fmt.Errorf("snapshot generation failed: %w", err)
	}

	if err := submitSnapshots(ctx, cfg, snapshots, stats); err != nil {
		return fmt.Errorf("snapshot submission failed: %w", err)
	}

	if err := triggerRecompute(ctx, cfg); err != nil {
		return fmt.Errorf("recompute trigger failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for epochs to publish")
	time.Sleep(PublishWaitDelay)

	listings, err := retrieveListings(ctx, cfg, stats)
	if err != nil {
		return fmt.Errorf("listing retrieval failed: %w", err)
	}

	if err := verifyListings(cfg, listings, stats); err != nil {
		return fmt.Errorf("listing verification failed: %w", err)
	}

	if err := saveSnapshotsToFile(ctx, cfg, snapshots); err != nil {
		logger.Get().Warn(ctx, "failed to save snapshots to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "seed run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveSnapshotsToFile saves the generated snapshots to a JSON file.
func saveSnapshotsToFile(ctx context.Context, cfg *Config, snapshots []Snapshot) error {
	if len(snapshots) == 0 {
		return fmt.Errorf("no snapshots to save")
	}

	filename := cfg.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "seed_snapshots_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, snap := range snapshots {
		jsonData, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write snapshot %d: %w", i, err)
		}

		if i < len(snapshots)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "snapshots saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final seed statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, snapshotsPerSecond float64

	if stats.SnapshotsSubmitted > 0 {
		acceptRate = float64(stats.SnapshotsAccepted) / float64(stats.SnapshotsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		snapshotsPerSecond = float64(stats.SnapshotsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("subjectsGenerated", stats.SubjectsGenerated),
		logger.Int("snapshotsGenerated", stats.SnapshotsGenerated),
		logger.Int("snapshotsSubmitted", stats.SnapshotsSubmitted),
		logger.Int("snapshotsAccepted", stats.SnapshotsAccepted),
		logger.Int("snapshotsDuplicate", stats.SnapshotsDuplicate),
		logger.Int("snapshotsRejected", stats.SnapshotsRejected),
		logger.Int("snapshotsFailed", stats.SnapshotsFailed),
		logger.Int("listingsRetrieved", stats.ListingsRetrieved),
		logger.Int("rankedRows", stats.RankedRows),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("snapshotsPerSecond", snapshotsPerSecond))
}

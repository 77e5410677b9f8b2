package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitSnapshots submits snapshots concurrently using worker pools.
// Snapshots arrive cycle-major; each cycle is drained completely before
// the next starts so every creator's history posts in chronological
// order and nothing is rejected as out of order.
func submitSnapshots(ctx context.Context, cfg *Config, snapshots []Snapshot, stats *Stats) error {
	log.Printf("Submitting %d snapshots with %d workers...", len(snapshots), cfg.Workers)

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/snapshots"

	var (
		accepted  int64
		duplicate int64
		rejected  int64
		failed    int64
		submitted int64
	)

	perCycle := cfg.Subjects
	for offset := 0; offset < len(snapshots); offset += perCycle {
		end := offset + perCycle
		if end > len(snapshots) {
			end = len(snapshots)
		}
		if err := submitCycle(ctx, cfg, client, url, snapshots[offset:end],
			&submitted, &accepted, &duplicate, &rejected, &failed); err != nil {
			return err
		}

		if cfg.Verbose {
			log.Printf("Progress: %d/%d submitted (accepted: %d, duplicate: %d, rejected: %d, failed: %d)",
				atomic.LoadInt64(&submitted), len(snapshots),
				atomic.LoadInt64(&accepted), atomic.LoadInt64(&duplicate),
				atomic.LoadInt64(&rejected), atomic.LoadInt64(&failed))
		}
	}

	stats.SnapshotsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.SnapshotsAccepted = int(atomic.LoadInt64(&accepted))
	stats.SnapshotsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.SnapshotsRejected = int(atomic.LoadInt64(&rejected))
	stats.SnapshotsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`Snapshot submission completed:
   Accepted: %d
   Duplicate: %d
   Rejected: %d
   Failed: %d
`, stats.SnapshotsAccepted, stats.SnapshotsDuplicate, stats.SnapshotsRejected, stats.SnapshotsFailed)

	return nil
}

// submitCycle fans one cycle's snapshots out over the worker pool and
// waits for all of them.
func submitCycle(ctx context.Context, cfg *Config, client *HTTPClient, url string, batch []Snapshot,
	submitted, accepted, duplicate, rejected, failed *int64,
) error {
	snapChan := make(chan Snapshot, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for snap := range snapChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleSnapshot(ctx, client, url, snap)

					atomic.AddInt64(submitted, 1)
					switch result {
					case "accepted":
						atomic.AddInt64(accepted, 1)
					case "duplicate":
						atomic.AddInt64(duplicate, 1)
					case "rejected":
						atomic.AddInt64(rejected, 1)
					case "failed":
						atomic.AddInt64(failed, 1)
					}
				}
			}
		}()
	}

	for _, snap := range batch {
		select {
		case <-ctx.Done():
			close(snapChan)
			wg.Wait()
			return fmt.Errorf("context cancelled during submission: %w", ctx.Err())
		case snapChan <- snap:
		}
	}
	close(snapChan)
	wg.Wait()
	return nil
}

// submitSingleSnapshot submits one snapshot and classifies the outcome.
func submitSingleSnapshot(ctx context.Context, client *HTTPClient, url string, snap Snapshot) string {
	resp, err := client.Post(ctx, url, snap)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusAccepted:
		return "accepted"
	case StatusOK:
		return "duplicate"
	case StatusUnprocessable:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Reason != "" {
			log.Printf("snapshot rejected for %s: %s", snap.SubjectID, ack.Reason)
		}
		return "rejected"
	default:
		return "failed"
	}
}

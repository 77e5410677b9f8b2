package seed

import "time"

// Config holds configuration for the seed run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Subjects   int           // Number of creators to generate
	Cycles     int           // Snapshot cycles per creator
	Categories []string      // Categories to spread creators across
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	CycleGap   time.Duration // Simulated gap between collection cycles
	OutputFile string        // Output file for generated snapshots
	LogFile    string        // Log file for seed output
	Verbose    bool          // Enable verbose logging
}

// Snapshot is one metric snapshot to be submitted.
type Snapshot struct {
	SubjectID   string             `json:"subject_id"`
	Handle      string             `json:"handle"`
	Category    string             `json:"category"`
	CollectedAt string             `json:"collected_at"`
	RawMetrics  map[string]float64 `json:"raw_metrics"`
}

// AckResponse is the response from snapshot submission.
type AckResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ListEntry is one row of a ranked listing.
type ListEntry struct {
	Rank         int     `json:"rank"`
	SubjectID    string  `json:"subject_id"`
	Handle       string  `json:"handle"`
	OverallScore float64 `json:"overall_score"`
}

// Listing is the ranked view for one category.
type Listing struct {
	Category string      `json:"category"`
	Epoch    uint64      `json:"epoch"`
	Total    int         `json:"total"`
	Results  []ListEntry `json:"results"`
}

// Stats holds seed run statistics.
type Stats struct {
	SubjectsGenerated  int
	SnapshotsGenerated int
	SnapshotsSubmitted int
	SnapshotsAccepted  int
	SnapshotsDuplicate int
	SnapshotsRejected  int
	SnapshotsFailed    int
	ListingsRetrieved  int
	RankedRows         int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

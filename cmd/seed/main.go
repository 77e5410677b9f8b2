package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/creatorvc/scout/internal/seed"
)

// Default configuration constants.
const (
	defaultSubjects    = 200
	defaultCycles      = 8
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultCycleGap    = 168 * time.Hour
	defaultSeedTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9090", "Base URL of the service")
		subjects   = flag.Int("subjects", defaultSubjects, "Number of creators to generate")
		cycles     = flag.Int("cycles", defaultCycles, "Snapshot cycles per creator")
		categories = flag.String("categories", "tech,beauty,fitness,gaming", "Comma-separated categories to seed")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		cycleGap   = flag.Duration("gap", defaultCycleGap, "Simulated gap between collection cycles")
		outputFile = flag.String("output", "", "Output file for generated snapshots (default: seed_snapshots_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for seed output (default: seed_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	if err := seed.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSeedTimeout)
	defer cancel()

	cfg := &seed.Config{
		BaseURL:    *baseURL,
		Subjects:   *subjects,
		Cycles:     *cycles,
		Categories: strings.Split(*categories, ","),
		Workers:    *workers,
		Timeout:    *timeout,
		CycleGap:   *cycleGap,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := seed.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Seed run failed: " + err.Error() + "\n")
		return
	}
}

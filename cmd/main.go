package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creatorvc/scout/internal/adapters/http/api"
	"github.com/creatorvc/scout/internal/adapters/http/swagger"
	service "github.com/creatorvc/scout/internal/app"
	"github.com/creatorvc/scout/internal/config"
	"github.com/creatorvc/scout/internal/domain/compose"
	"github.com/creatorvc/scout/pkg/logger"
	"github.com/creatorvc/scout/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := service.New(
		service.WithLogger(loggerInstance),
		service.WithDatabasePath(cfg.DBPath),
		service.WithTriggerMode(cfg.TriggerMode),
		service.WithRecomputeInterval(time.Duration(cfg.RecomputeIntervalSec)*time.Second),
		service.WithBatchTimeout(time.Duration(cfg.BatchTimeoutSec)*time.Second),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.TriggerQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithCohortMinSize(cfg.CohortMinSize),
		service.WithTrendWindow(cfg.TrendWindow),
		service.WithWinsorMultiple(cfg.WinsorMultiple),
		service.WithAnnualize(cfg.Annualize),
		service.WithWeights(composeWeights(cfg.Weights)),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Keep service gauges fresh even between recomputations.
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API docs under /api-docs.
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, api.WithMaxPageSize(cfg.MaxPageSize))
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// composeWeights maps configuration weights onto the composer's type.
func composeWeights(w config.Weights) compose.Weights {
	return compose.Weights{
		Content:         w.Content,
		Audience:        w.Audience,
		Brand:           w.Brand,
		ContentMetrics:  compose.MetricWeights(w.ContentMetrics),
		AudienceMetrics: compose.MetricWeights(w.AudienceMetrics),
		BrandMetrics:    compose.MetricWeights(w.BrandMetrics),
	}
}

// startServiceMetricsUpdater refreshes service-level gauges periodically.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := svc.GetStats(ctx)
			if err != nil {
				continue
			}
			metrics.UpdateSubjectsTotal(stats.Subjects)
			metrics.UpdateCategoriesTotal(stats.Categories)
			metrics.UpdateQueueDepth(stats.QueueDepth)
		}
	}
}

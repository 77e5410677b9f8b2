// Package metrics provides Prometheus metrics for the scout scoring engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scout service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingest metrics
	snapshotsAccepted  prometheus.Counter
	snapshotsRejected  *prometheus.CounterVec
	snapshotsDuplicate prometheus.Counter

	// Recompute pipeline metrics
	batchesStarted   prometheus.Counter
	batchesPublished prometheus.Counter
	batchesAborted   prometheus.Counter
	batchesCancelled prometheus.Counter
	batchDuration    prometheus.Histogram

	// Epoch metrics
	currentEpoch     *prometheus.GaugeVec
	epochPublishUnix *prometheus.GaugeVec

	// Scoring quality metrics
	lowConfidenceScores prometheus.Counter
	dampenedTrends      prometheus.Counter

	// Trigger queue metrics
	queueDepth        prometheus.Gauge
	queueCapacity     prometheus.Gauge
	triggersCoalesced prometheus.Counter
	triggersDropped   prometheus.Counter

	// Inventory gauges
	subjectsTotal   prometheus.Gauge
	categoriesTotal prometheus.Gauge

	// Query and HTTP metrics
	queryLatency        prometheus.Histogram
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Storage metrics
	logAppendLatency prometheus.Histogram
	logReadLatency   prometheus.Histogram
	storeErrors      *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scout",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.snapshotsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshots_accepted_total",
		Help:      "Total number of metric snapshots accepted into the log",
	})

	m.snapshotsRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "snapshots_rejected_total",
			Help:      "Total number of snapshots rejected by the validator",
		},
		[]string{"reason"},
	)

	m.snapshotsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshots_duplicate_total",
		Help:      "Total number of resubmitted (subject, collected_at) pairs",
	})

	m.batchesStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_batches_started_total",
		Help:      "Total number of category recompute batches started",
	})

	m.batchesPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_batches_published_total",
		Help:      "Total number of recompute batches published as epochs",
	})

	m.batchesAborted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_batches_aborted_total",
		Help:      "Total number of recompute batches discarded before publication",
	})

	m.batchesCancelled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_batches_cancelled_total",
		Help:      "Total number of in-flight batches superseded by a newer trigger",
	})

	m.batchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_batch_duration_milliseconds",
		Help:      "Duration of category recompute batches in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.currentEpoch = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "current_epoch",
			Help:      "Identifier of the currently published epoch per category",
		},
		[]string{"category"},
	)

	m.epochPublishUnix = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "epoch_publish_unix",
			Help:      "Unix timestamp of the last epoch publication per category",
		},
		[]string{"category"},
	)

	m.lowConfidenceScores = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "low_confidence_scores_total",
		Help:      "Total number of score rows flagged low confidence (thin cohort or history)",
	})

	m.dampenedTrends = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dampened_trends_total",
		Help:      "Total number of trend records with winsorized deltas",
	})

	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "trigger_queue_depth",
		Help:      "Current number of pending recompute triggers",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "trigger_queue_capacity",
		Help:      "Maximum capacity of the recompute trigger queue",
	})

	m.triggersCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "triggers_coalesced_total",
		Help:      "Total number of triggers merged into an already-pending category trigger",
	})

	m.triggersDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "triggers_dropped_total",
		Help:      "Total number of triggers dropped due to backpressure",
	})

	m.subjectsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subjects_total",
		Help:      "Total number of subjects known to the engine",
	})

	m.categoriesTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "categories_total",
		Help:      "Total number of categories with at least one subject",
	})

	m.queryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_latency_milliseconds",
		Help:      "Ranking query evaluation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.logAppendLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_log_append_latency_milliseconds",
		Help:      "Snapshot log append latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.logReadLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_log_read_latency_milliseconds",
		Help:      "Snapshot log read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_errors_total",
			Help:      "Total number of persistence errors by operation",
		},
		[]string{"operation"},
	)
}

// RecordSnapshotAccepted increments the accepted snapshots counter.
func RecordSnapshotAccepted() {
	globalManager.snapshotsAccepted.Inc()
}

// RecordSnapshotRejected increments the rejected snapshots counter for a reason.
func RecordSnapshotRejected(reason string) {
	globalManager.snapshotsRejected.WithLabelValues(reason).Inc()
}

// RecordSnapshotDuplicate increments the duplicate snapshots counter.
func RecordSnapshotDuplicate() {
	globalManager.snapshotsDuplicate.Inc()
}

// RecordBatchStarted increments the started batches counter.
func RecordBatchStarted() {
	globalManager.batchesStarted.Inc()
}

// RecordBatchPublished increments the published batches counter.
func RecordBatchPublished() {
	globalManager.batchesPublished.Inc()
}

// RecordBatchAborted increments the aborted batches counter.
func RecordBatchAborted() {
	globalManager.batchesAborted.Inc()
}

// RecordBatchCancelled increments the superseded batches counter.
func RecordBatchCancelled() {
	globalManager.batchesCancelled.Inc()
}

// RecordBatchDuration records a recompute batch duration in milliseconds.
func RecordBatchDuration(ms float64) {
	globalManager.batchDuration.Observe(ms)
}

// UpdateCurrentEpoch sets the current epoch id for a category.
func UpdateCurrentEpoch(category string, epoch uint64) {
	globalManager.currentEpoch.WithLabelValues(category).Set(float64(epoch))
}

// UpdateEpochPublishUnix sets the last publish timestamp for a category.
func UpdateEpochPublishUnix(category string, unix float64) {
	globalManager.epochPublishUnix.WithLabelValues(category).Set(unix)
}

// RecordLowConfidenceScore increments the low-confidence counter.
func RecordLowConfidenceScore() {
	globalManager.lowConfidenceScores.Inc()
}

// RecordDampenedTrend increments the winsorized trend counter.
func RecordDampenedTrend() {
	globalManager.dampenedTrends.Inc()
}

// UpdateQueueDepth sets the current trigger queue depth.
func UpdateQueueDepth(depth int) {
	globalManager.queueDepth.Set(float64(depth))
}

// UpdateQueueCapacity sets the trigger queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordTriggerCoalesced increments the coalesced triggers counter.
func RecordTriggerCoalesced() {
	globalManager.triggersCoalesced.Inc()
}

// RecordTriggerDropped increments the dropped triggers counter.
func RecordTriggerDropped() {
	globalManager.triggersDropped.Inc()
}

// UpdateSubjectsTotal sets the total subjects gauge.
func UpdateSubjectsTotal(count int) {
	globalManager.subjectsTotal.Set(float64(count))
}

// UpdateCategoriesTotal sets the total categories gauge.
func UpdateCategoriesTotal(count int) {
	globalManager.categoriesTotal.Set(float64(count))
}

// RecordQueryLatency records ranking query latency in milliseconds.
func RecordQueryLatency(ms float64) {
	globalManager.queryLatency.Observe(ms)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordLogAppendLatency records snapshot log append latency.
func RecordLogAppendLatency(ms float64) {
	globalManager.logAppendLatency.Observe(ms)
}

// RecordLogReadLatency records snapshot log read latency.
func RecordLogReadLatency(ms float64) {
	globalManager.logReadLatency.Observe(ms)
}

// RecordStoreError increments the persistence error counter for an operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

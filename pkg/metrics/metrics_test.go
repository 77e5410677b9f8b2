package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording ingest metrics", func() {
			So(func() {
				RecordSnapshotAccepted()
				RecordSnapshotRejected("out_of_order")
				RecordSnapshotDuplicate()
			}, ShouldNotPanic)
		})

		Convey("When recording pipeline metrics", func() {
			So(func() {
				RecordBatchStarted()
				RecordBatchPublished()
				RecordBatchAborted()
				RecordBatchCancelled()
				RecordBatchDuration(12.5)
				UpdateCurrentEpoch("tech", 42)
				UpdateEpochPublishUnix("tech", 1700000000)
				RecordLowConfidenceScore()
				RecordDampenedTrend()
			}, ShouldNotPanic)
		})

		Convey("When updating queue and inventory gauges", func() {
			So(func() {
				UpdateQueueDepth(3)
				UpdateQueueCapacity(1024)
				RecordTriggerCoalesced()
				RecordTriggerDropped()
				UpdateSubjectsTotal(100)
				UpdateCategoriesTotal(7)
			}, ShouldNotPanic)
		})

		Convey("When recording query, HTTP and store metrics", func() {
			So(func() {
				RecordQueryLatency(1.2)
				RecordHTTPRequest("/subjects", "GET", "200")
				RecordHTTPRequestDuration("/subjects", "GET", "200", 4.2)
				RecordLogAppendLatency(0.3)
				RecordLogReadLatency(0.2)
				RecordStoreError("append")
			}, ShouldNotPanic)
		})

		Convey("Then the registry should be available", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

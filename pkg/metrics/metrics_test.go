package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
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

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording ingest metrics", func() {
			Convey("Then it should record processed games", func() {
				So(func() {
					RecordGameProcessed()
					RecordGameDuplicate()
					RecordGameRejected()
				}, ShouldNotPanic)
			})

			Convey("And it should record latencies", func() {
				So(func() {
					RecordRatingLatency(10.0)
					RecordCommitLatency(25.0)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording queue metrics", func() {
			So(func() {
				UpdateQueueSize(1000)
				UpdateQueueCapacity(100000)
				UpdateQueueUtilization(0.01)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(1.5)
			}, ShouldNotPanic)
		})

		Convey("When recording worker metrics", func() {
			So(func() {
				UpdateWorkerActiveCount(8)
				RecordWorkerProcessingLatency(12.0)
				RecordWorkerError()
			}, ShouldNotPanic)
		})

		Convey("When recording repository metrics", func() {
			So(func() {
				UpdateTotalPlayers(500)
				RecordRepositoryUpdateLatency(2.0)
				RecordRepositoryQueryLatency(0.5)
				RecordSnapshotRebuild()
			}, ShouldNotPanic)
		})

		Convey("When recording name index metrics", func() {
			So(func() {
				UpdateIndexSize(1200)
				RecordSearchLatency(0.3)
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/leaderboard", "GET", "200")
				RecordHTTPRequestDuration("/leaderboard", "GET", "200", 3.2)
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the global registry", t, func() {
		Convey("When fetching it", func() {
			registry := GetRegistry()

			Convey("Then it should be gatherable", func() {
				So(registry, ShouldNotBeNil)
				_, err := registry.Gather()
				So(err, ShouldBeNil)
			})
		})
	})
}

package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fincal_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fincal_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fincal_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Provider metrics
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fincal_provider_requests_total",
			Help: "Total number of data provider requests",
		},
		[]string{"provider", "status"}, // status: success|rate_limited|unauthorized|malformed|unavailable
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fincal_provider_latency_seconds",
			Help:    "Data provider request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	ProviderFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fincal_provider_fallbacks_total",
			Help: "Total number of provider fallback transitions",
		},
		[]string{"kind", "from", "to"},
	)

	// Sync run metrics
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fincal_sync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"job", "status"}, // status: success|failed|cancelled|skipped
	)

	SyncRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fincal_sync_records_total",
			Help: "Records seen by sync runs, by pipeline stage",
		},
		[]string{"job", "stage"}, // stage: processed|normalized|inserted|skipped|deduplicated|errors
	)

	SyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fincal_sync_duration_seconds",
			Help:    "Sync run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"job"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fincal_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"},
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fincal_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fincal_kafka_messages_total",
			Help: "Total number of Kafka messages",
		},
		[]string{"topic", "direction"}, // direction: produced|consumed
	)
)

var registerOnce sync.Once

// Init registers all metrics with Prometheus
func Init() {
	registerOnce.Do(func() {
		// Worker metrics
		prometheus.MustRegister(WorkerExecutions)
		prometheus.MustRegister(WorkerDuration)
		prometheus.MustRegister(WorkerLastRun)

		// Provider metrics
		prometheus.MustRegister(ProviderRequests)
		prometheus.MustRegister(ProviderLatency)
		prometheus.MustRegister(ProviderFallbacks)

		// Sync metrics
		prometheus.MustRegister(SyncRuns)
		prometheus.MustRegister(SyncRecords)
		prometheus.MustRegister(SyncDuration)

		// Database metrics
		prometheus.MustRegister(DBQueries)
		prometheus.MustRegister(DBQueryDuration)

		// System metrics
		prometheus.MustRegister(KafkaMessages)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordProviderRequest records one provider HTTP round trip.
// status is the provider error class, or "success".
func RecordProviderRequest(provider, status string, latency time.Duration) {
	ProviderRequests.WithLabelValues(provider, status).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordFallback records a provider transition within a run
func RecordFallback(kind, from, to string) {
	ProviderFallbacks.WithLabelValues(kind, from, to).Inc()
}

// SyncCounts is the subset of a run report exported as counters
type SyncCounts struct {
	Processed    int
	Normalized   int
	Inserted     int
	Skipped      int
	Deduplicated int
	Errors       int
}

// RecordSyncRun records the outcome of one sync run
func RecordSyncRun(job, status string, duration time.Duration, counts SyncCounts) {
	SyncRuns.WithLabelValues(job, status).Inc()
	SyncDuration.WithLabelValues(job).Observe(duration.Seconds())

	SyncRecords.WithLabelValues(job, "processed").Add(float64(counts.Processed))
	SyncRecords.WithLabelValues(job, "normalized").Add(float64(counts.Normalized))
	SyncRecords.WithLabelValues(job, "inserted").Add(float64(counts.Inserted))
	SyncRecords.WithLabelValues(job, "skipped").Add(float64(counts.Skipped))
	SyncRecords.WithLabelValues(job, "deduplicated").Add(float64(counts.Deduplicated))
	SyncRecords.WithLabelValues(job, "errors").Add(float64(counts.Errors))
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordKafkaMessage records a produced or consumed Kafka message
func RecordKafkaMessage(topic, direction string) {
	KafkaMessages.WithLabelValues(topic, direction).Inc()
}

// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	FramesReceived   prometheus.Counter
	TokensUpserted   prometheus.Counter
	ItemsSkipped     *prometheus.CounterVec
	BatchErrors      *prometheus.CounterVec
	IngestLatency    prometheus.Histogram
	SnapshotsPersist *prometheus.CounterVec

	// Connection metrics
	ActiveConnections prometheus.Gauge
	Connections       *prometheus.CounterVec

	// Registry metrics
	RegistrySize     prometheus.Gauge
	RegistryExpired  prometheus.Counter
	RegistryRestored prometheus.Counter

	// Risk metrics
	TokensByTier    *prometheus.GaugeVec
	RefreshRuns     *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	TokensScored    prometheus.Counter

	// Publish metrics
	MessagesPublished *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulRefresh   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_risk_monitor"
	}

	return &Metrics{
		// Ingestion metrics
		FramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "frames_received_total",
			Help:      "Total number of inbound text frames received",
		}),
		TokensUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tokens_upserted_total",
			Help:      "Total number of token snapshots upserted into the registry",
		}),
		ItemsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "items_skipped_total",
			Help:      "Total number of batch items skipped by reason",
		}, []string{"reason"}),
		BatchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "batch_errors_total",
			Help:      "Total number of rejected batches by reason",
		}, []string{"reason"}),
		IngestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "batch_latency_seconds",
			Help:      "Batch decode and upsert latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotsPersist: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "snapshots_persisted_total",
			Help:      "Total number of snapshot write-through attempts by status",
		}, []string{"status"}),

		// Connection metrics
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Current number of open inbound WebSocket connections",
		}),
		Connections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_total",
			Help:      "Total number of connection attempts by status",
		}, []string{"status"}),

		// Registry metrics
		RegistrySize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "entries",
			Help:      "Current number of tokens in the registry",
		}),
		RegistryExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "expired_total",
			Help:      "Total number of entries removed by the expiry sweep",
		}),
		RegistryRestored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "restored_total",
			Help:      "Total number of entries restored from persistence",
		}),

		// Risk metrics
		TokensByTier: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "tokens_by_tier",
			Help:      "Number of tokens per risk tier in the last refresh",
		}, []string{"scheme", "tier"}),
		RefreshRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "refresh_runs_total",
			Help:      "Total number of ranking refresh passes by status",
		}, []string{"status"}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "refresh_duration_seconds",
			Help:      "Ranking refresh pass duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		TokensScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "tokens_scored_total",
			Help:      "Total number of token scores computed",
		}),

		// Publish metrics
		MessagesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "messages_total",
			Help:      "Total number of published score messages by status",
		}, []string{"status"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful ranking refresh",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFrameReceived increments the inbound frame counter.
func RecordFrameReceived() {
	DefaultMetrics.FramesReceived.Inc()
}

// RecordBatch records the outcome of one ingested batch.
func RecordBatch(upserted int, latency time.Duration) {
	DefaultMetrics.TokensUpserted.Add(float64(upserted))
	DefaultMetrics.IngestLatency.Observe(latency.Seconds())
	DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()
}

// RecordItemSkipped records a batch item rejected during decode.
func RecordItemSkipped(reason string) {
	DefaultMetrics.ItemsSkipped.WithLabelValues(reason).Inc()
}

// RecordBatchError records a batch rejected as a whole.
func RecordBatchError(reason string) {
	DefaultMetrics.BatchErrors.WithLabelValues(reason).Inc()
}

// RecordSnapshotPersist records a snapshot write-through attempt.
func RecordSnapshotPersist(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.SnapshotsPersist.WithLabelValues(status).Inc()
}

// RecordConnectionOpened records an accepted connection.
func RecordConnectionOpened() {
	DefaultMetrics.ActiveConnections.Inc()
	DefaultMetrics.Connections.WithLabelValues("accepted").Inc()
}

// RecordConnectionClosed records a closed connection.
func RecordConnectionClosed() {
	DefaultMetrics.ActiveConnections.Dec()
}

// RecordConnectionRejected records a connection refused at the limit.
func RecordConnectionRejected() {
	DefaultMetrics.Connections.WithLabelValues("rejected").Inc()
}

// UpdateRegistrySize sets the registry entries gauge.
func UpdateRegistrySize(n int) {
	DefaultMetrics.RegistrySize.Set(float64(n))
}

// RecordExpired records entries removed by the expiry sweep.
func RecordExpired(n int) {
	DefaultMetrics.RegistryExpired.Add(float64(n))
}

// RecordRestored records entries restored at startup.
func RecordRestored(n int) {
	DefaultMetrics.RegistryRestored.Add(float64(n))
}

// UpdateTierCounts replaces the per-tier gauges for a scheme.
func UpdateTierCounts(scheme string, counts map[string]int) {
	DefaultMetrics.TokensByTier.DeletePartialMatch(prometheus.Labels{"scheme": scheme})
	for tier, n := range counts {
		DefaultMetrics.TokensByTier.WithLabelValues(scheme, tier).Set(float64(n))
	}
}

// RecordRefresh records a ranking refresh pass.
func RecordRefresh(status string, scored int, duration time.Duration) {
	DefaultMetrics.RefreshRuns.WithLabelValues(status).Inc()
	DefaultMetrics.RefreshDuration.Observe(duration.Seconds())
	DefaultMetrics.TokensScored.Add(float64(scored))
	if status == "success" {
		DefaultMetrics.LastSuccessfulRefresh.SetToCurrentTime()
	}
}

// RecordPublish records published score messages.
func RecordPublish(n int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.MessagesPublished.WithLabelValues(status).Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

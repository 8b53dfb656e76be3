// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Stream metrics
	StreamConnects   prometheus.Counter
	StreamReconnects prometheus.Counter
	StreamEvents     *prometheus.CounterVec

	// Migration metrics
	SignalsProcessed *prometheus.CounterVec
	PoolsCreated     prometheus.Counter

	// Watcher metrics
	WatcherTicks        *prometheus.CounterVec
	WatcherTicksSkipped prometheus.Counter
	PoolsEvaluated      prometheus.Counter
	PoolsRecycled       *prometheus.CounterVec

	// External call metrics
	IndexerQueryLatency *prometheus.HistogramVec
	EngineCallLatency   *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "reactor_watcher"
	}

	return &Metrics{
		StreamConnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connects_total",
			Help:      "Total number of successful event stream connections",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of scheduled stream reconnect attempts",
		}),
		StreamEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_total",
			Help:      "Total number of parsed stream frames by event type",
		}, []string{"event_type"}),

		SignalsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "signals_processed_total",
			Help:      "Total number of campaign signals processed by outcome",
		}, []string{"outcome"}),
		PoolsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "pools_created_total",
			Help:      "Total number of pools created and seeded",
		}),

		WatcherTicks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deadpool",
			Name:      "ticks_total",
			Help:      "Total number of dead-pool watcher ticks by status",
		}, []string{"status"}),
		WatcherTicksSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deadpool",
			Name:      "ticks_skipped_total",
			Help:      "Total number of ticks skipped due to an ongoing tick",
		}),
		PoolsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deadpool",
			Name:      "pools_evaluated_total",
			Help:      "Total number of pool health evaluations",
		}),
		PoolsRecycled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deadpool",
			Name:      "pools_recycled_total",
			Help:      "Total number of dead-pool recycles by mode",
		}, []string{"mode"}),

		IndexerQueryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "query_latency_seconds",
			Help:      "Ledger indexer query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		EngineCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "call_latency_seconds",
			Help:      "DEX engine call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordStreamConnect increments the stream connects counter.
func RecordStreamConnect() {
	DefaultMetrics.StreamConnects.Inc()
}

// RecordStreamReconnect increments the stream reconnects counter.
func RecordStreamReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// RecordStreamEvent counts a parsed frame by event type.
func RecordStreamEvent(eventType string) {
	DefaultMetrics.StreamEvents.WithLabelValues(eventType).Inc()
}

// RecordSignal counts a processed campaign signal by outcome.
func RecordSignal(outcome string) {
	DefaultMetrics.SignalsProcessed.WithLabelValues(outcome).Inc()
}

// RecordPoolCreated increments the pools created counter.
func RecordPoolCreated() {
	DefaultMetrics.PoolsCreated.Inc()
}

// RecordWatcherTick counts a completed watcher tick by status.
func RecordWatcherTick(status string) {
	DefaultMetrics.WatcherTicks.WithLabelValues(status).Inc()
}

// RecordWatcherTickSkipped counts a tick skipped by the re-entrancy guard.
func RecordWatcherTickSkipped() {
	DefaultMetrics.WatcherTicksSkipped.Inc()
}

// RecordPoolEvaluated increments the pool evaluations counter.
func RecordPoolEvaluated() {
	DefaultMetrics.PoolsEvaluated.Inc()
}

// RecordPoolRecycled counts a recycle by mode ("dry_run" or "live").
func RecordPoolRecycled(mode string) {
	DefaultMetrics.PoolsRecycled.WithLabelValues(mode).Inc()
}

// RecordIndexerQuery observes one ledger query duration.
func RecordIndexerQuery(query string, d time.Duration) {
	DefaultMetrics.IndexerQueryLatency.WithLabelValues(query).Observe(d.Seconds())
}

// RecordEngineCall observes one DEX engine call duration.
func RecordEngineCall(method string, d time.Duration) {
	DefaultMetrics.EngineCallLatency.WithLabelValues(method).Observe(d.Seconds())
}

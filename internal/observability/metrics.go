// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Post ingestion
	PostsFetched  *prometheus.CounterVec
	PostsStored   *prometheus.CounterVec
	PostsFiltered *prometheus.CounterVec

	// Candle ingestion
	CandlesAccepted *prometheus.CounterVec
	CandlesRejected *prometheus.CounterVec

	// Ledger
	CursorRegressions *prometheus.CounterVec

	// Poll cycles
	PollCycles    prometheus.Counter
	PollErrors    *prometheus.CounterVec
	PollDuration  prometheus.Histogram
	LastPollCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pulsetrack"
	}

	return &Metrics{
		PostsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "posts_fetched_total",
			Help:      "Total number of posts fetched from upstream",
		}, []string{"asset"}),
		PostsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "posts_stored_total",
			Help:      "Total number of newly stored posts",
		}, []string{"asset"}),
		PostsFiltered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "posts_filtered_total",
			Help:      "Total number of pre-launch posts filtered out",
		}, []string{"asset"}),
		CandlesAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candles_accepted_total",
			Help:      "Total number of candles accepted into storage",
		}, []string{"asset", "timeframe"}),
		CandlesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candles_rejected_total",
			Help:      "Total number of malformed candles rejected",
		}, []string{"asset", "timeframe"}),
		CursorRegressions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "cursor_regressions_total",
			Help:      "Total number of cursor merges that tried to move a field backwards",
		}, []string{"asset", "data_type"}),
		PollCycles: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cycles_total",
			Help:      "Total number of completed poll cycles",
		}),
		PollErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "errors_total",
			Help:      "Total number of per-asset poll errors",
		}, []string{"asset"}),
		PollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of poll cycles in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LastPollCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix timestamp of the last completed poll cycle",
		}),
	}
}

// Handler returns an HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HealthHandler returns a simple health check handler.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Package metrics provides Prometheus instrumentation for the sync
// pipeline and its HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SourceFailures counts fetch/parse failures per external source.
	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsync_source_failures_total",
		Help: "Fetch or parse failures per external source",
	}, []string{"source"})

	// FetchLatency tracks time spent fetching each external source.
	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketsync_fetch_latency_seconds",
		Help:    "External source fetch latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	}, []string{"source"})

	// SyncRuns counts reconciliation runs by trigger origin.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsync_sync_runs_total",
		Help: "Reconciliation runs by trigger",
	}, []string{"trigger"})

	// IssuesCreated counts tracked issues created by reconciliation.
	IssuesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketsync_issues_created_total",
		Help: "Tracked issues created",
	})

	// IssuesUpdated counts tracked issues whose fields changed.
	IssuesUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketsync_issues_updated_total",
		Help: "Tracked issues updated after a field diff",
	})

	// AlertsSent counts opportunity notifications actually delivered.
	AlertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketsync_alerts_sent_total",
		Help: "Opportunity alerts with at least one delivered channel",
	})

	// SnapshotRefreshes counts snapshot cache misses and forced refreshes.
	SnapshotRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsync_snapshot_refreshes_total",
		Help: "Snapshot fetch-all cycles by cause (miss, forced)",
	}, []string{"cause"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsync_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketsync_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments HTTP requests with count and duration.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

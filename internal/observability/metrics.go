package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	httpErrorsTotal         *prometheus.CounterVec
	activityRecordsTotal    *prometheus.CounterVec
	activityDroppedTotal    prometheus.Counter
	logSinkFailuresTotal    prometheus.Counter
	dashboardRequestsTotal  *prometheus.CounterVec
	dashboardLatencySeconds prometheus.Histogram
	cleanupDeletedTotal     prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pulse_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		activityRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_activity_records_total",
			Help: "Total number of activity records committed, labelled by event.",
		}, []string{"event"})

		activityDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_activity_stream_dropped_total",
			Help: "Activity stream broadcasts dropped because a secondary sink failed.",
		})

		logSinkFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_log_sink_failures_total",
			Help: "Centralized logger writes swallowed because the sink errored.",
		})

		dashboardRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_activity_dashboard_requests_total",
			Help: "Activity dashboard reads, labelled by cache outcome.",
		}, []string{"outcome"})

		dashboardLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_activity_dashboard_latency_seconds",
			Help:    "Latency distribution for activity dashboard aggregation.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		})

		cleanupDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_activity_cleanup_deleted_total",
			Help: "Activity records removed by the retention cleanup.",
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			activityRecordsTotal, activityDroppedTotal, logSinkFailuresTotal,
			dashboardRequestsTotal, dashboardLatencySeconds, cleanupDeletedTotal,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for served requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ActivityRecords exposes the counter for committed activity records.
func ActivityRecords() *prometheus.CounterVec {
	RegisterMetrics()
	return activityRecordsTotal
}

// ActivityStreamDropped exposes the counter for dropped stream broadcasts.
func ActivityStreamDropped() prometheus.Counter {
	RegisterMetrics()
	return activityDroppedTotal
}

// LogSinkFailures exposes the counter for swallowed log sink errors.
func LogSinkFailures() prometheus.Counter {
	RegisterMetrics()
	return logSinkFailuresTotal
}

// DashboardRequests exposes the counter for dashboard reads by cache outcome.
func DashboardRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardRequestsTotal
}

// DashboardLatency exposes the histogram for dashboard aggregation latency.
func DashboardLatency() prometheus.Histogram {
	RegisterMetrics()
	return dashboardLatencySeconds
}

// CleanupDeleted exposes the counter for records removed by retention cleanup.
func CleanupDeleted() prometheus.Counter {
	RegisterMetrics()
	return cleanupDeletedTotal
}

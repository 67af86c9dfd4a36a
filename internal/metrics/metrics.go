package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "donezo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "route", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "donezo_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	TaskEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donezo_task_events_total",
			Help: "Task events by routing key and publish outcome",
		},
		[]string{"event", "outcome"},
	)

	OverdueDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "donezo_overdue_tasks_detected_total",
			Help: "Tasks reported overdue by the background scanner",
		},
	)
)

func RecordHTTPRequestDuration(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func IncrementTaskEvent(event, outcome string) {
	TaskEvents.WithLabelValues(event, outcome).Inc()
}

func IncrementOverdueDetected() {
	OverdueDetected.Inc()
}

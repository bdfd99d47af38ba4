package observability

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every application collector.
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Auth Metrics
	LoginAttemptsTotal *prometheus.CounterVec
	RateLimitedTotal   prometheus.Counter

	// Task Metrics
	TaskMutationsTotal *prometheus.CounterVec

	// Queue (RabbitMQ) Metrics
	QueueMessagesPublished *prometheus.CounterVec
	QueuePublishFailures   *prometheus.CounterVec
	QueueMessagesConsumed  *prometheus.CounterVec

	// Worker Metrics
	EventsProcessedTotal    *prometheus.CounterVec
	EventProcessingDuration *prometheus.HistogramVec
	EventsFailedTotal       *prometheus.CounterVec

	reg prometheus.Registerer
}

// NewMetrics registers all collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		LoginAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"}, // success, invalid, bad_request, error
		),

		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "http_requests_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		TaskMutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasks_mutations_total",
				Help: "Total number of successful task mutations",
			},
			[]string{"action"}, // created, updated, deleted
		),

		QueueMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_published_total",
				Help: "Total number of messages published to the queue",
			},
			[]string{"queue_name"},
		),

		QueuePublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_publish_failures_total",
				Help: "Total number of messages that could not be published",
			},
			[]string{"queue_name"},
		),

		QueueMessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_consumed_total",
				Help: "Total number of messages consumed from the queue",
			},
			[]string{"queue_name"},
		),

		EventsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_events_processed_total",
				Help: "Total number of task events processed by the worker",
			},
			[]string{"action", "status"}, // status: success, failed
		),

		EventProcessingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "task_event_processing_duration_seconds",
				Help:    "Duration of task event processing in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"action"},
		),

		EventsFailedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_events_failed_total",
				Help: "Total number of task events that failed processing",
			},
			[]string{"error_type"},
		),
	}
}

// RegisterDBStats exposes connection pool statistics for db.
func (m *Metrics) RegisterDBStats(db *sql.DB, dbName string) error {
	return m.reg.Register(collectors.NewDBStatsCollector(db, dbName))
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hamyon"

// Update status labels
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusDropped = "dropped"
	StatusPanic   = "panic"
)

// MetricsCollector manages all Prometheus metrics for the bot
type MetricsCollector struct {
	registry *prometheus.Registry

	updatesTotal       *prometheus.CounterVec
	handlerDuration    *prometheus.HistogramVec
	expensesCreated    *prometheus.CounterVec
	parserResults      *prometheus.CounterVec
	speechRequests     *prometheus.CounterVec
	alertsSent         *prometheus.CounterVec
	telegramSendErrors prometheus.Counter
	workerQueueDepth   prometheus.Gauge
}

// NewMetricsCollector creates a collector on its own registry
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.NewRegistry())
}

// NewMetricsCollectorWithRegistry creates a new metrics collector with a custom registry.
// If registry is nil, a fresh one is created.
func NewMetricsCollectorWithRegistry(registry *prometheus.Registry) *MetricsCollector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &MetricsCollector{
		registry: registry,

		updatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_total",
				Help:      "Total number of Telegram updates handled",
			},
			[]string{"kind", "status"},
		),

		handlerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Time spent handling an update",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),

		expensesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "expenses_created_total",
				Help:      "Total number of expenses saved",
			},
			[]string{"source"},
		),

		parserResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parser_results_total",
				Help:      "Expense parses by the parser that produced them",
			},
			[]string{"source"},
		),

		speechRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "speech_requests_total",
				Help:      "Total number of speech recognition attempts",
			},
			[]string{"status"},
		),

		alertsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_sent_total",
				Help:      "Budget threshold alerts delivered",
			},
			[]string{"threshold"},
		),

		telegramSendErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telegram_send_errors_total",
				Help:      "Failed Telegram API sends",
			},
		),

		workerQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_queue_depth",
				Help:      "Updates waiting in worker queues",
			},
		),
	}
}

// Registry exposes the registry for the HTTP handler
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// RecordUpdate records a handled update and how long it took
func (m *MetricsCollector) RecordUpdate(kind, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.updatesTotal.WithLabelValues(kind, status).Inc()
	if duration > 0 {
		m.handlerDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// RecordExpenseCreated counts a saved expense by input source (text, voice, manual)
func (m *MetricsCollector) RecordExpenseCreated(source string) {
	if m == nil {
		return
	}
	m.expensesCreated.WithLabelValues(source).Inc()
}

// RecordParserResult counts which parser produced an expense
func (m *MetricsCollector) RecordParserResult(source string) {
	if m == nil {
		return
	}
	m.parserResults.WithLabelValues(source).Inc()
}

func (m *MetricsCollector) RecordSpeechRequest(status string) {
	if m == nil {
		return
	}
	m.speechRequests.WithLabelValues(status).Inc()
}

// RecordAlertSent counts one delivered threshold alert
func (m *MetricsCollector) RecordAlertSent(threshold int) {
	if m == nil {
		return
	}
	m.alertsSent.WithLabelValues(strconv.Itoa(threshold)).Inc()
}

func (m *MetricsCollector) RecordSendError() {
	if m == nil {
		return
	}
	m.telegramSendErrors.Inc()
}

// UpdateWorkerQueueDepth sets the number of queued updates across all workers
func (m *MetricsCollector) UpdateWorkerQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.workerQueueDepth.Set(float64(depth))
}

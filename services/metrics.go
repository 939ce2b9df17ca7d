package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for record lifecycle operations
type Metrics struct {
	// Expungement outcomes by operation and result (ok, rejected, error)
	Operations *prometheus.CounterVec

	// Expungement latency by operation
	OperationLatency *prometheus.HistogramVec

	// Appended identifier changes by stream and change (added, deleted)
	IdentifierChanges *prometheus.CounterVec

	// Outbox deliveries by topic and result (sent, retry, dead)
	OutboxDeliveries *prometheus.CounterVec

	// Undelivered outbox messages at the last relay pass
	OutboxBacklog prometheus.Gauge
}

// NewMetrics registers the metrics with reg; nil uses the default registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ident_expungement_operations_total",
			Help: "Expungement operations by operation and result",
		}, []string{"operation", "result"}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ident_expungement_duration_seconds",
			Help:    "Duration of expungement transactions by operation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		IdentifierChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ident_appended_identifier_changes_total",
			Help: "Appended identifier rows added or deleted by stream",
		}, []string{"stream", "change"}),

		OutboxDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ident_outbox_deliveries_total",
			Help: "Outbox delivery attempts by topic and result",
		}, []string{"topic", "result"}),

		OutboxBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ident_outbox_backlog",
			Help: "Pending outbox messages observed by the relay",
		}),
	}
}

// ObserveOperation records an expungement outcome and its latency
func (m *Metrics) ObserveOperation(operation, result string, d time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(operation, result).Inc()
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// AddIdentifierChanges records synchronizer adds and deletes for a stream
func (m *Metrics) AddIdentifierChanges(stream string, added, deleted int) {
	if m != nil {
		m.IdentifierChanges.WithLabelValues(stream, "added").Add(float64(added))
		m.IdentifierChanges.WithLabelValues(stream, "deleted").Add(float64(deleted))
	}
}

// IncOutboxDelivery records one outbox delivery attempt
func (m *Metrics) IncOutboxDelivery(topic, result string) {
	if m != nil {
		m.OutboxDeliveries.WithLabelValues(topic, result).Inc()
	}
}

// SetOutboxBacklog records the pending outbox count
func (m *Metrics) SetOutboxBacklog(n int64) {
	if m != nil {
		m.OutboxBacklog.Set(float64(n))
	}
}

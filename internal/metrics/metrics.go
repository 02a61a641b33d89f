package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DispatchTotal     *prometheus.CounterVec
	DeliveryFailures  *prometheus.CounterVec
	DispatchDuration  prometheus.Histogram
	AuditAppendErrors prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		DispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrack_events_dispatched_total",
			Help: "Total number of dispatched domain events",
		}, []string{"category", "tier"}),
		DeliveryFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrack_notification_delivery_failures_total",
			Help: "Total number of failed channel deliveries",
		}, []string{"channel"}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "medtrack_event_dispatch_duration_seconds",
			Help:    "Wall time of a full dispatch call including delivery join",
			Buckets: prometheus.DefBuckets,
		}),
		AuditAppendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_audit_append_errors_total",
			Help: "Total number of failed audit sink appends",
		}),
	}
}

func (m *Metrics) ObserveDispatch(category, tier string, seconds float64) {
	m.DispatchTotal.WithLabelValues(category, tier).Inc()
	m.DispatchDuration.Observe(seconds)
}

func (m *Metrics) IncrementDeliveryFailure(channel string) {
	m.DeliveryFailures.WithLabelValues(channel).Inc()
}

func (m *Metrics) IncrementAuditAppendError() {
	m.AuditAppendErrors.Inc()
}

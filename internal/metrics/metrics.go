package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the audit pipeline's Prometheus collectors
type Recorder struct {
	operationsTotal      *prometheus.CounterVec
	operationDuration    *prometheus.HistogramVec
	attributionFallbacks *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg yields a recorder bound to a private registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Recorder{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "biasaudit",
				Name:      "operations_total",
				Help:      "Total number of audit operations by outcome",
			},
			[]string{"operation", "status"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "biasaudit",
				Name:      "operation_duration_seconds",
				Help:      "Audit operation duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"operation"},
		),
		attributionFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "biasaudit",
				Name:      "attribution_fallbacks_total",
				Help:      "Attribution tensors that did not map cleanly onto the feature set",
			},
			[]string{"reason"},
		),
	}
}

// ObserveOperation records one finished operation
func (r *Recorder) ObserveOperation(operation string, started time.Time, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.operationsTotal.WithLabelValues(operation, status).Inc()
	r.operationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// AttributionFallback counts a normalizer fallback by reason
func (r *Recorder) AttributionFallback(reason string) {
	if r == nil || reason == "" {
		return
	}
	r.attributionFallbacks.WithLabelValues(reason).Inc()
}

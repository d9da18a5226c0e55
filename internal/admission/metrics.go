package admission

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "modelgate"

// Metrics exports the admission layer's state. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	decisions     *prometheus.CounterVec
	evictions     *prometheus.CounterVec
	queueLength   prometheus.Gauge
	queueCapacity prometheus.Gauge
	estimatedWait prometheus.Histogram
	processing    *prometheus.HistogramVec
	violations    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "admission_decisions_total",
			Help:      "Admission decisions by outcome.",
		}, []string{"outcome"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "queue_evictions_total",
			Help:      "Queued entries removed without being served, by reason.",
		}, []string{"reason"}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_length",
			Help:      "Entries currently holding an admission slot.",
		}),
		queueCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_capacity",
			Help:      "Configured admission queue capacity.",
		}),
		estimatedWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "estimated_wait_seconds",
			Help:      "Estimated wait handed out at admission.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		processing: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "processing_seconds",
			Help:      "Measured processing time of admitted work.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"outcome"}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invariant_violations_total",
			Help:      "Slot releases that found the queue in an unexpected state.",
		}),
	}
	reg.MustRegister(m.decisions, m.evictions, m.queueLength, m.queueCapacity, m.estimatedWait, m.processing, m.violations)
	return m
}

// Notify records the processing time of a completed or failed request.
func (m *Metrics) Notify(_ context.Context, c Completion) {
	if m == nil {
		return
	}
	outcome := "completed"
	if c.Failed() {
		outcome = "failed"
	}
	m.processing.WithLabelValues(outcome).Observe(c.Elapsed.Seconds())
}

func (m *Metrics) observeDecision(o Outcome, wait time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(o.String()).Inc()
	if o != OutcomeRejected {
		m.estimatedWait.Observe(wait.Seconds())
	}
}

func (m *Metrics) observeEviction(reason string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(reason).Inc()
}

func (m *Metrics) setQueueLength(n int) {
	if m == nil {
		return
	}
	m.queueLength.Set(float64(n))
}

func (m *Metrics) setCapacity(n int) {
	if m == nil {
		return
	}
	m.queueCapacity.Set(float64(n))
}

func (m *Metrics) invariantViolation() {
	if m == nil {
		return
	}
	m.violations.Inc()
}

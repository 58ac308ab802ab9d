package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRollupDuration   = "stats_rollup_duration_seconds"
	MetricRollupFailures   = "stats_rollup_failures_total"
	MetricDocumentsSkipped = "stats_documents_skipped_total"
)

// Skip reasons used as the "reason" label.
const (
	SkipReasonInvalidDocument = "invalid_document"
	SkipReasonMalformedBias   = "malformed_bias"
)

// Metrics contains Prometheus metrics for the aggregation engine.
type Metrics struct {
	rollupDuration   *prometheus.HistogramVec
	rollupFailures   *prometheus.CounterVec
	documentsSkipped *prometheus.CounterVec
}

// NewMetrics creates the collectors. Call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		rollupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRollupDuration,
				Help:    "Rollup computation time in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"rollup"},
		),
		rollupFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRollupFailures,
				Help: "Rollups that failed and were left out of a statistics report",
			},
			[]string{"rollup"},
		),
		documentsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDocumentsSkipped,
				Help: "Documents left out of aggregation",
			},
			[]string{"reason"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRollup records one rollup run.
func (m *Metrics) ObserveRollup(rollup string, seconds float64, err error) {
	m.rollupDuration.WithLabelValues(rollup).Observe(seconds)
	if err != nil {
		m.rollupFailures.WithLabelValues(rollup).Inc()
	}
}

// AddSkipped adds n skipped documents for reason.
func (m *Metrics) AddSkipped(reason string, n int64) {
	if n <= 0 {
		return
	}
	m.documentsSkipped.WithLabelValues(reason).Add(float64(n))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rollupDuration,
		m.rollupFailures,
		m.documentsSkipped,
	}
}

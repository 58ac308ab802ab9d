package binary

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricFetchTotal = "binary_fetch_total"
	MetricFetchBytes = "binary_fetch_bytes"
)

// Fetch outcomes used as the "outcome" label.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Metrics contains Prometheus metrics for binary fetches.
type Metrics struct {
	fetchTotal *prometheus.CounterVec
	fetchBytes *prometheus.HistogramVec
}

// NewMetrics creates the collectors. Call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFetchTotal,
				Help: "Binary fetches by bucket and outcome",
			},
			[]string{"bucket", "outcome"},
		),
		fetchBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricFetchBytes,
				Help:    "Size of reassembled binary objects in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1 KiB to 16 MiB
			},
			[]string{"bucket"},
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

// ObserveFetch records one fetch. size is only recorded for hits.
func (m *Metrics) ObserveFetch(bucket, outcome string, size int) {
	m.fetchTotal.WithLabelValues(bucket, outcome).Inc()
	if outcome == OutcomeHit {
		m.fetchBytes.WithLabelValues(bucket).Observe(float64(size))
	}
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.fetchTotal, m.fetchBytes}
}

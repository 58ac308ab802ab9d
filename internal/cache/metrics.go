package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricSnapshotOps is the snapshot operation counter.
const MetricSnapshotOps = "cache_snapshot_operations_total"

// Operations and outcomes used as labels.
const (
	OpGet = "get"
	OpPut = "put"

	OutcomeHit    = "hit"
	OutcomeMiss   = "miss"
	OutcomeStored = "stored"
	OutcomeError  = "error"
)

// Metrics contains Prometheus metrics for the snapshot cache.
type Metrics struct {
	ops *prometheus.CounterVec
}

// NewMetrics creates the collectors. Call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSnapshotOps,
				Help: "Snapshot cache operations by operation and outcome",
			},
			[]string{"op", "outcome"},
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

// Observe records one operation.
func (m *Metrics) Observe(op, outcome string) {
	m.ops.WithLabelValues(op, outcome).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.ops}
}

package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricImageSource    = "resolve_image_source_total"
	MetricArticleLookups = "resolve_article_lookups_total"
)

// Cascade levels used as the "level" label.
const (
	LevelCluster     = "cluster"
	LevelPerspective = "perspective"
)

// Article lookup outcomes.
const (
	LookupHit     = "hit"
	LookupNoImage = "no_image"
	LookupMiss    = "miss"
	LookupError   = "error"
)

// Metrics contains Prometheus metrics for the image cascade.
type Metrics struct {
	imageSource    *prometheus.CounterVec
	articleLookups *prometheus.CounterVec
}

// NewMetrics creates the collectors. Call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		imageSource: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricImageSource,
				Help: "Resolved images by cascade level and winning source",
			},
			[]string{"level", "source"},
		),
		articleLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricArticleLookups,
				Help: "Article image lookups by outcome",
			},
			[]string{"outcome"},
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

// ObserveSource records the winning source for one resolution.
func (m *Metrics) ObserveSource(level string, source Source) {
	m.imageSource.WithLabelValues(level, string(source)).Inc()
}

// ObserveLookup records one article lookup.
func (m *Metrics) ObserveLookup(outcome string) {
	m.articleLookups.WithLabelValues(outcome).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.imageSource, m.articleLookups}
}

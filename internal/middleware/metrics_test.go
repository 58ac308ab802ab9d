package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	m.ObserveHTTPRequest("GET", "/clusters", "200", 0.02, 0, 512)
	m.ObserveHTTPRequest("GET", "/clusters", "200", 0.03, 0, 256)
	m.ObserveHTTPRequest("GET", "/clusters/{id}", "404", 0.01, 0, 64)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	var total *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == MetricHTTPRequestsTotal {
			total = mf
		}
	}
	if total == nil {
		t.Fatalf("metric %s not found in registry", MetricHTTPRequestsTotal)
	}

	counts := map[string]float64{}
	for _, metric := range total.GetMetric() {
		var path string
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == "path" {
				path = lp.GetValue()
			}
		}
		counts[path] = metric.GetCounter().GetValue()
	}
	if counts["/clusters"] != 2 || counts["/clusters/{id}"] != 1 {
		t.Errorf("unexpected request counts %v", counts)
	}
}

func TestMetrics_RegisterTwiceFails(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestMetrics_Collectors(t *testing.T) {
	if got := len(NewMetrics().Collectors()); got != 5 {
		t.Errorf("expected 5 collectors, got %d", got)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelMap(m *dto.Metric) map[string]string {
	labels := make(map[string]string)
	for _, lp := range m.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	return labels
}

func TestHTTPMetrics(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		status      int
		wantPath    string
		wantMetrics bool
	}{
		{name: "listing", path: "/clusters", status: http.StatusOK, wantPath: "/clusters", wantMetrics: true},
		{name: "detail", path: "/clusters/665f1c", status: http.StatusNotFound, wantPath: "/clusters/{id}", wantMetrics: true},
		{name: "image redirect", path: "/images/IMG1", status: http.StatusFound, wantPath: "/images/{id}", wantMetrics: true},
		{name: "unknown", path: "/admin", status: http.StatusNotFound, wantPath: "other", wantMetrics: true},
		{name: "health excluded", path: "/health", status: http.StatusOK},
		{name: "ready excluded", path: "/ready", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetrics()
			reg := prometheus.NewRegistry()
			if err := m.Register(reg); err != nil {
				t.Fatalf("Register() failed: %v", err)
			}

			wrapped := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"success":true}`))
			}))

			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}

			total := gatherFamily(t, reg, MetricHTTPRequestsTotal)
			if !tt.wantMetrics {
				if total != nil && len(total.GetMetric()) > 0 {
					t.Errorf("expected no metrics for %s", tt.path)
				}
				return
			}
			if total == nil || len(total.GetMetric()) != 1 {
				t.Fatalf("expected one request counter series")
			}
			labels := labelMap(total.GetMetric()[0])
			if labels["path"] != tt.wantPath {
				t.Errorf("path label = %s, want %s", labels["path"], tt.wantPath)
			}
			if labels["method"] != "GET" {
				t.Errorf("method label = %s, want GET", labels["method"])
			}
		})
	}
}

func TestHTTPMetrics_ResponseSizeAndInFlight(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	body := `{"success":true,"code":"ok"}`
	var inFlight float64
	wrapped := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mf := gatherFamily(t, reg, MetricHTTPRequestsInFlight)
		inFlight = mf.GetMetric()[0].GetGauge().GetValue()
		_, _ = w.Write([]byte(body))
	}))

	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/trending", nil))

	if inFlight != 1 {
		t.Errorf("expected 1 in-flight request during handling, got %v", inFlight)
	}
	after := gatherFamily(t, reg, MetricHTTPRequestsInFlight).GetMetric()[0].GetGauge().GetValue()
	if after != 0 {
		t.Errorf("expected in-flight gauge to return to 0, got %v", after)
	}

	size := gatherFamily(t, reg, MetricHTTPResponseSizeBytes)
	if size == nil || len(size.GetMetric()) != 1 {
		t.Fatal("response size metric not found")
	}
	h := size.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 || h.GetSampleSum() != float64(len(body)) {
		t.Errorf("unexpected histogram count=%d sum=%v", h.GetSampleCount(), h.GetSampleSum())
	}
	if labels := labelMap(size.GetMetric()[0]); labels["status"] != "200" {
		t.Errorf("expected implicit 200 status, got %s", labels["status"])
	}
}

func TestMetricsResponseWriter(t *testing.T) {
	mrw := newMetricsResponseWriter(httptest.NewRecorder())

	mrw.WriteHeader(http.StatusFound)
	mrw.WriteHeader(http.StatusInternalServerError)
	n1, _ := mrw.Write([]byte("Hello "))
	n2, _ := mrw.Write([]byte("World"))

	if mrw.statusCode != http.StatusFound {
		t.Errorf("statusCode = %d, want %d", mrw.statusCode, http.StatusFound)
	}
	if mrw.size != int64(n1+n2) {
		t.Errorf("size = %d, want %d", mrw.size, n1+n2)
	}
}

func BenchmarkHTTPMetrics_Overhead(b *testing.B) {
	m := NewMetrics()
	if err := m.Register(prometheus.NewRegistry()); err != nil {
		b.Fatalf("Register() failed: %v", err)
	}
	wrapped := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/clusters/665f1c", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wrapped.ServeHTTP(httptest.NewRecorder(), req)
	}
}

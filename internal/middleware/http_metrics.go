package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// staticRoutes are reported as-is.
var staticRoutes = map[string]bool{
	"/":                  true,
	"/clusters":          true,
	"/search":            true,
	"/statistics":        true,
	"/trending":          true,
	"/trending/keywords": true,
	"/categories":        true,
	"/dates":             true,
	"/health":            true,
	"/ready":             true,
	"/metrics":           true,
}

// normalizePath converts paths with dynamic segments to route patterns to prevent
// cardinality explosion in metrics. This maps paths like /clusters/665f1c to /clusters/{id}.
func normalizePath(path string) string {
	if staticRoutes[path] {
		return path
	}

	parts := strings.Split(path, "/")
	switch {
	// /clusters/{id}
	case len(parts) == 3 && parts[1] == "clusters" && parts[2] != "":
		return "/clusters/{id}"
	// /images/article/{id}
	case len(parts) == 4 && parts[1] == "images" && parts[2] == "article" && parts[3] != "":
		return "/images/article/{id}"
	// /images/{id}
	case len(parts) == 3 && parts[1] == "images" && parts[2] != "":
		return "/images/{id}"
	}

	// Unknown paths collapse to one label so scanners cannot grow the series set.
	return "other"
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, request/response sizes, in-flight requests and request counts.
// Health check endpoints (/health, /ready) are excluded.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			metrics.httpRequestsInFlight.Inc()
			defer metrics.httpRequestsInFlight.Dec()

			mrw := newMetricsResponseWriter(w)

			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			next.ServeHTTP(mrw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(mrw.statusCode),
				time.Since(start).Seconds(),
				requestSize,
				mrw.size,
			)
		})
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func TestCORS_DisabledWhenNoOrigins(t *testing.T) {
	handler := CORS(CORSConfig{})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/clusters", nil)
	req.Header.Set("Origin", "https://news.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS headers, got Access-Control-Allow-Origin=%q", got)
	}
}

func TestCORS_Requests(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{" https://news.example.com ", ""},
		MaxAge:         600,
	}

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed string
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "https://news.example.com", wantStatus: http.StatusOK, wantAllowed: "https://news.example.com"},
		{name: "unknown origin", method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusForbidden},
		{name: "same origin", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "https://news.example.com", preflight: true, wantStatus: http.StatusNoContent, wantAllowed: "https://news.example.com"},
		{name: "preflight unknown origin", method: http.MethodOptions, origin: "https://evil.example.com", preflight: true, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORS(cfg)(okHandler())
			req := httptest.NewRequest(tt.method, "/statistics", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowed {
				t.Errorf("expected Access-Control-Allow-Origin %q, got %q", tt.wantAllowed, got)
			}
			if rr.Header().Get("Access-Control-Allow-Credentials") != "" {
				t.Error("credentials must never be allowed")
			}
		})
	}
}

func TestCORS_PreflightDefaults(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://news.example.com"}, MaxAge: 600})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/clusters", nil)
	req.Header.Set("Origin", "https://news.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, HEAD, OPTIONS" {
		t.Errorf("unexpected allowed methods %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Request-ID" {
		t.Errorf("unexpected allowed headers %q", got)
	}
	if got := rr.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("expected max age 600, got %q", got)
	}
}

func TestCORS_ExposesSnapshotHeaders(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://news.example.com"}})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/clusters", nil)
	req.Header.Set("Origin", "https://news.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-ID, X-Snapshot-Age" {
		t.Errorf("unexpected exposed headers %q", got)
	}
	if rr.Header().Get("Vary") != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", rr.Header().Get("Vary"))
	}
}

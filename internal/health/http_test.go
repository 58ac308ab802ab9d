package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPChecker_EmptyURL(t *testing.T) {
	err := NewHTTPChecker("s3", "").HealthCheck(context.Background())
	if err == nil || err.Error() != "s3 url not configured" {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestHTTPChecker_Status(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "forbidden anonymous access", status: http.StatusForbidden},
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodHead {
					t.Errorf("expected HEAD, got %s", r.Method)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := NewHTTPChecker("s3", server.URL).HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHTTPChecker_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewHTTPChecker("s3", server.URL).HealthCheck(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

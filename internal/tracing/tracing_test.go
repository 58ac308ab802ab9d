package tracing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestNewProvider_Disabled(t *testing.T) {
	var buf bytes.Buffer
	provider, err := NewProvider(Config{
		Enabled: false,
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Enabled() {
		t.Error("expected tracing to be disabled")
	}
	if !strings.Contains(buf.String(), "tracing disabled") {
		t.Errorf("expected disabled notice in log, got %q", buf.String())
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled provider returned %v", err)
	}
	if provider.Tracer("news") == nil {
		t.Error("expected a fallback tracer")
	}
}

func TestNewProvider_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     Config{Enabled: true},
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "negative sampling rate",
			cfg:     Config{Enabled: true, ServiceName: "newsbias-api", SamplingRate: -0.1},
			wantErr: ErrInvalidSamplingRate,
		},
		{
			name:    "sampling rate above one",
			cfg:     Config{Enabled: true, ServiceName: "newsbias-api", SamplingRate: 1.5},
			wantErr: ErrInvalidSamplingRate,
		},
		{
			name:    "unknown exporter",
			cfg:     Config{Enabled: true, ServiceName: "newsbias-api", ExporterType: "zipkin"},
			wantErr: ErrUnsupportedExporter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name     string
		exporter string
		endpoint string
		rate     float64
	}{
		{name: "http", exporter: ExporterOTLPHTTP, endpoint: "localhost:4318", rate: 0.1},
		{name: "grpc", exporter: ExporterOTLPGRPC, endpoint: "localhost:4317", rate: 1},
		{name: "default exporter", exporter: "", rate: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(Config{
				ServiceName:  "newsbias-api",
				Enabled:      true,
				Environment:  "test",
				ExporterType: tt.exporter,
				OTLPEndpoint: tt.endpoint,
				SamplingRate: tt.rate,
				InsecureMode: true,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !provider.Enabled() {
				t.Error("expected tracing to be enabled")
			}

			// No collector is listening, so a flush may fail; only the
			// absence of a hang matters here.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = provider.Shutdown(ctx)
		})
	}
}

func TestNewSampler_FollowsParent(t *testing.T) {
	sampler, err := newSampler(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	traceID := trace.TraceID{1}
	root := sampler.ShouldSample(sdktrace.SamplingParameters{TraceID: traceID, Name: "root"})
	if root.Decision != sdktrace.Drop {
		t.Errorf("expected root span to be dropped at rate 0, got %v", root.Decision)
	}

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	child := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: trace.ContextWithSpanContext(context.Background(), parent),
		TraceID:       traceID,
		Name:          "child",
	})
	if child.Decision != sdktrace.RecordAndSample {
		t.Errorf("expected sampled parent to be honoured, got %v", child.Decision)
	}
}

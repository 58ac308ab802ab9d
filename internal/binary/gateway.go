package binary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/onnwee/newsbias/internal/store"
	"github.com/onnwee/newsbias/internal/tracing"
)

// Gateway fetches objects across buckets.
type Gateway struct {
	store   Store
	buckets []string
	hints   map[Hint]string
	logger  *slog.Logger
	metrics *Metrics
}

// GatewayConfig configures bucket probing.
type GatewayConfig struct {
	// Buckets is the probe order. Defaults to DefaultBuckets.
	Buckets []string
	// HintBuckets maps hints to their preferred bucket. Defaults to
	// DefaultHintBuckets.
	HintBuckets map[Hint]string
}

// NewGateway creates a Gateway over s. logger and metrics may be nil.
func NewGateway(s Store, cfg GatewayConfig, logger *slog.Logger, metrics *Metrics) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	hints := cfg.HintBuckets
	if hints == nil {
		hints = DefaultHintBuckets
	}
	return &Gateway{
		store:   s,
		buckets: slices.Clone(buckets),
		hints:   hints,
		logger:  logger,
		metrics: metrics,
	}
}

// ProbeOrder returns the buckets Fetch will try for hint, in order.
func (g *Gateway) ProbeOrder(hint Hint) []string {
	first, ok := g.hints[hint]
	if !ok || !slices.Contains(g.buckets, first) {
		return slices.Clone(g.buckets)
	}
	order := make([]string, 0, len(g.buckets))
	order = append(order, first)
	for _, b := range g.buckets {
		if b != first {
			order = append(order, b)
		}
	}
	return order
}

// Fetch returns the object stored under id.
//
// Buckets are probed in ProbeOrder(hint) until one has metadata for id. If
// that object has no chunks, or no bucket has it, Fetch returns ErrNotFound.
// Store failures are returned wrapped in store.ErrUpstreamUnavailable.
func (g *Gateway) Fetch(ctx context.Context, id string, hint Hint) (obj *Object, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "binary.fetch")
	defer func() { endSpan(err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	for _, bucket := range g.ProbeOrder(hint) {
		meta, err := g.store.GetMetadata(ctx, id, bucket)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			g.observe(bucket, OutcomeError, 0)
			return nil, upstream(err)
		}

		chunks, err := g.store.GetChunks(ctx, id, bucket)
		if err != nil {
			g.observe(bucket, OutcomeError, 0)
			return nil, upstream(err)
		}
		if len(chunks) == 0 {
			g.logger.WarnContext(ctx, "binary object has no chunks",
				slog.String("id", id),
				slog.String("bucket", bucket))
			g.observe(bucket, OutcomeEmpty, 0)
			return nil, fmt.Errorf("%w: %s has no chunks in %s", ErrNotFound, id, bucket)
		}

		data := Reassemble(chunks)
		if meta.Length > 0 && int64(len(data)) != meta.Length {
			g.logger.WarnContext(ctx, "binary object length mismatch",
				slog.String("id", id),
				slog.String("bucket", bucket),
				slog.Int64("expected", meta.Length),
				slog.Int("actual", len(data)))
		}

		contentType := meta.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}

		g.observe(bucket, OutcomeHit, len(data))
		return &Object{ID: id, Bucket: bucket, ContentType: contentType, Data: data}, nil
	}

	g.observe("", OutcomeMiss, 0)
	return nil, ErrNotFound
}

// Reassemble concatenates chunks in ascending index order. The input slice is
// not modified.
func Reassemble(chunks []Chunk) []byte {
	sorted := slices.Clone(chunks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	size := 0
	for _, c := range sorted {
		size += len(c.Data)
	}
	var buf bytes.Buffer
	buf.Grow(size)
	for _, c := range sorted {
		buf.Write(c.Data)
	}
	return buf.Bytes()
}

func (g *Gateway) observe(bucket, outcome string, size int) {
	if g.metrics != nil {
		g.metrics.ObserveFetch(bucket, outcome, size)
	}
}

func upstream(err error) error {
	if errors.Is(err, store.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrUpstreamUnavailable, err)
}

package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/newsbias/internal/cluster"
)

// ErrPartialAggregation is wrapped by the error Compute returns when at least
// one rollup failed. The report still carries every rollup that succeeded.
var ErrPartialAggregation = errors.New("partial aggregation failure")

// Rollup names one independently computed rollup.
type Rollup string

const (
	RollupBiasAverage Rollup = "bias_average"
	RollupMedia       Rollup = "media_counts"
	RollupCategories  Rollup = "category_counts"
	RollupTrend       Rollup = "trend"
	RollupKeywords    Rollup = "top_keywords"
	RollupOverview    Rollup = "overview"
)

// AllRollups lists every rollup in reporting order.
var AllRollups = []Rollup{
	RollupBiasAverage,
	RollupMedia,
	RollupCategories,
	RollupTrend,
	RollupKeywords,
	RollupOverview,
}

// DefaultKeywordLimit is used when a request does not set one.
const DefaultKeywordLimit = 10

// Request selects rollups and their options.
type Request struct {
	Rollups      []Rollup // empty means AllRollups
	Categories   CategoryOptions
	Granularity  Granularity
	KeywordSide  cluster.Side
	KeywordLimit int

	// Invalid counts documents dropped before Compute because they failed
	// normalization. It is added to the report's skip totals.
	Invalid int

	// From and To bound the trend series for gap filling.
	From *time.Time
	To   *time.Time
}

// Report holds the rollups that completed. Rollups that were not requested
// or that failed are nil.
type Report struct {
	BiasAverage    *cluster.BiasRatio `json:"biasAverage"`
	MediaCounts    []OutletCount      `json:"mediaCounts"`
	CategoryCounts []CategoryCount    `json:"categoryCounts"`
	Trend          []TrendPoint       `json:"trend"`
	Keywords       []KeywordScore     `json:"keywords"`
	Overview       *Overview          `json:"overview"`

	Skipped          int      `json:"skipped"`
	SkippedInvalid   int      `json:"skippedInvalid"`
	SkippedMalformed int      `json:"skippedMalformed"`
	Failed           []Rollup `json:"failed,omitempty"`
}

// RollupFailure records why one rollup did not complete.
type RollupFailure struct {
	Rollup Rollup
	Err    error
}

func (f RollupFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Rollup, f.Err)
}

// PartialError lists the rollups that failed in one Compute call.
type PartialError struct {
	Failures []RollupFailure
}

func (e *PartialError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s: %s", ErrPartialAggregation, strings.Join(parts, "; "))
}

func (e *PartialError) Unwrap() error { return ErrPartialAggregation }

type rollupFunc func(clusters []*cluster.Cluster, req Request, r *Report)

// Engine runs rollups concurrently with per-rollup failure isolation.
type Engine struct {
	logger  *slog.Logger
	metrics *Metrics
	rollups map[Rollup]rollupFunc
}

// NewEngine creates an Engine. metrics may be nil.
func NewEngine(logger *slog.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:  logger,
		metrics: metrics,
		rollups: map[Rollup]rollupFunc{
			RollupBiasAverage: func(cs []*cluster.Cluster, _ Request, r *Report) {
				avg := BiasAverage(cs)
				r.BiasAverage = &avg
			},
			RollupMedia: func(cs []*cluster.Cluster, _ Request, r *Report) {
				r.MediaCounts = MediaCounts(cs)
			},
			RollupCategories: func(cs []*cluster.Cluster, req Request, r *Report) {
				r.CategoryCounts = CategoryCounts(cs, req.Categories)
			},
			RollupTrend: func(cs []*cluster.Cluster, req Request, r *Report) {
				points := Trend(cs, req.Granularity)
				if req.From != nil && req.To != nil {
					points = FillTrend(points, req.Granularity, *req.From, *req.To)
				}
				r.Trend = points
			},
			RollupKeywords: func(cs []*cluster.Cluster, req Request, r *Report) {
				r.Keywords = TopKeywords(cs, req.KeywordSide, req.KeywordLimit)
			},
			RollupOverview: func(cs []*cluster.Cluster, _ Request, r *Report) {
				o := Totals(cs)
				r.Overview = &o
			},
		},
	}
}

// Compute runs the requested rollups over clusters.
//
// Each rollup runs on its own goroutine. A rollup that panics or finds the
// caller's context done is recorded as failed without cancelling the others.
// When any rollup fails the returned error is a *PartialError wrapping
// ErrPartialAggregation and the report still holds every completed rollup.
func (e *Engine) Compute(ctx context.Context, clusters []*cluster.Cluster, req Request) (*Report, error) {
	req = e.withDefaults(req)
	report := &Report{}

	skipped := NewSkipStats()
	skipped.AddInvalid(int64(req.Invalid))
	for _, c := range clusters {
		if c.BiasSource == cluster.BiasMalformed {
			skipped.RecordMalformed()
			e.logger.WarnContext(ctx, "skipping malformed bias ratio in rollups",
				slog.String("cluster_id", c.ID))
		}
	}
	report.Skipped = int(skipped.Total())
	report.SkippedInvalid = int(skipped.Invalid())
	report.SkippedMalformed = int(skipped.Malformed())
	if e.metrics != nil {
		e.metrics.AddSkipped(SkipReasonInvalidDocument, skipped.Invalid())
		e.metrics.AddSkipped(SkipReasonMalformedBias, skipped.Malformed())
	}

	partials := make([]*Report, len(req.Rollups))
	failed := make([]error, len(req.Rollups))
	var g errgroup.Group

	for i, name := range req.Rollups {
		fn, ok := e.rollups[name]
		if !ok {
			failed[i] = errors.New("unknown rollup")
			continue
		}
		partials[i] = &Report{}

		g.Go(func() error {
			start := time.Now()
			err := run(ctx, fn, clusters, req, partials[i])
			if e.metrics != nil {
				e.metrics.ObserveRollup(string(name), time.Since(start).Seconds(), err)
			}
			failed[i] = err
			return nil
		})
	}
	_ = g.Wait()

	var failures []RollupFailure
	for i, name := range req.Rollups {
		if failed[i] != nil {
			failures = append(failures, RollupFailure{Rollup: name, Err: failed[i]})
			continue
		}
		merge(report, partials[i])
	}

	if len(failures) == 0 {
		return report, nil
	}

	for _, f := range failures {
		report.Failed = append(report.Failed, f.Rollup)
		e.logger.WarnContext(ctx, "rollup failed",
			slog.String("rollup", string(f.Rollup)),
			slog.String("error", f.Err.Error()))
	}
	return report, &PartialError{Failures: failures}
}

// run executes one rollup, turning a panic or a done context into an error.
func run(ctx context.Context, fn rollupFunc, clusters []*cluster.Cluster, req Request, out *Report) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	fn(clusters, req, out)
	return nil
}

func merge(dst, src *Report) {
	if src.BiasAverage != nil {
		dst.BiasAverage = src.BiasAverage
	}
	if src.MediaCounts != nil {
		dst.MediaCounts = src.MediaCounts
	}
	if src.CategoryCounts != nil {
		dst.CategoryCounts = src.CategoryCounts
	}
	if src.Trend != nil {
		dst.Trend = src.Trend
	}
	if src.Keywords != nil {
		dst.Keywords = src.Keywords
	}
	if src.Overview != nil {
		dst.Overview = src.Overview
	}
}

func (e *Engine) withDefaults(req Request) Request {
	if len(req.Rollups) == 0 {
		req.Rollups = AllRollups
	}
	if req.Granularity == "" {
		req.Granularity = Day
	}
	if req.KeywordSide == "" {
		req.KeywordSide = cluster.Left
	}
	if req.KeywordLimit <= 0 {
		req.KeywordLimit = DefaultKeywordLimit
	}
	return req
}

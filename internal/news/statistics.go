package news

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/stats"
	"github.com/onnwee/newsbias/internal/tracing"
)

// GetStatistics runs the requested rollups over every cluster matching f.
// When some rollups fail the envelope is still successful, carries code
// partial_aggregation and lists the failed rollups in the report.
func (s *Service) GetStatistics(ctx context.Context, f query.Filters, req stats.Request) query.Envelope {
	ctx, endSpan := tracing.StartSpan(ctx, "news.get_statistics")
	report, err := s.statistics(ctx, f, req)
	endSpan(err)

	var partial *stats.PartialError
	switch {
	case err == nil:
		return query.OK(report)
	case errors.As(err, &partial) && report != nil:
		tracing.AddEvent(ctx, "rollup_failed", attribute.Int("failures", len(partial.Failures)))
		return query.Partial(report, err.Error())
	default:
		return s.fail(ctx, "get_statistics", err)
	}
}

func (s *Service) statistics(ctx context.Context, f query.Filters, req stats.Request) (*stats.Report, error) {
	d, err := query.BuildQuery(f)
	if err != nil {
		return nil, err
	}
	all, invalid, err := s.loadCounted(ctx, d.Unpaged())
	if err != nil {
		return nil, err
	}
	req.From, req.To = d.From, d.To
	req.Invalid = invalid
	return s.engine.Compute(ctx, all, req)
}

// GetTrendingKeywords returns the top keywords of one side across the
// clusters matching f.
func (s *Service) GetTrendingKeywords(ctx context.Context, f query.Filters, side cluster.Side, limit int) query.Envelope {
	ctx, endSpan := tracing.StartSpan(ctx, "news.get_trending_keywords",
		attribute.String("side", string(side)))

	if side == "" {
		side = cluster.Left
	}
	if limit <= 0 {
		limit = stats.DefaultKeywordLimit
	}
	if limit > s.limits.Max {
		limit = s.limits.Max
	}

	// Keywords of clusters without any summary never surface.
	f.ContentOnly = true
	report, err := s.statistics(ctx, f, stats.Request{
		Rollups:      []stats.Rollup{stats.RollupKeywords},
		KeywordSide:  side,
		KeywordLimit: limit,
	})
	endSpan(err)
	if err != nil {
		return s.fail(ctx, "get_trending_keywords", err)
	}
	return query.OK(&TrendingKeywords{Side: side, Keywords: report.Keywords})
}

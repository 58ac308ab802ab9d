package news

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/ranking"
	"github.com/onnwee/newsbias/internal/stats"
	"github.com/onnwee/newsbias/internal/tracing"
)

// ListClusters returns one page of clusters matching f.
//
// Latest ordering is delegated to the store. Hot ordering needs the
// divergence of every match, so the whole filtered set is loaded, sorted and
// paged in process.
func (s *Service) ListClusters(ctx context.Context, f query.Filters, page, limit int) query.Envelope {
	ctx, endSpan := tracing.StartSpan(ctx, "news.list_clusters")
	result, err := s.listClusters(ctx, f, page, limit)
	endSpan(err)
	if err != nil {
		return s.fail(ctx, "list_clusters", err)
	}
	return query.OK(result)
}

// Search is ListClusters restricted to clusters with at least one summary.
// The search text is required.
func (s *Service) Search(ctx context.Context, f query.Filters, page, limit int) query.Envelope {
	ctx, endSpan := tracing.StartSpan(ctx, "news.search")
	if strings.TrimSpace(f.Search) == "" {
		err := fmt.Errorf("%w: search text is required", ErrValidation)
		endSpan(err)
		return s.fail(ctx, "search", err)
	}
	f.ContentOnly = true
	result, err := s.listClusters(ctx, f, page, limit)
	endSpan(err)
	if err != nil {
		return s.fail(ctx, "search", err)
	}
	return query.OK(result)
}

func (s *Service) listClusters(ctx context.Context, f query.Filters, page, limit int) (ClusterPage, error) {
	d, err := query.BuildQuery(f)
	if err != nil {
		return ClusterPage{}, err
	}
	page, limit = s.limits.Clamp(page, limit)
	tracing.SetAttributes(ctx,
		attribute.String("sort", string(d.Sort)),
		attribute.Int("page", page),
		attribute.Int("limit", limit))

	if d.Sort == ranking.ModeHot {
		all, err := s.load(ctx, d.Unpaged())
		if err != nil {
			return ClusterPage{}, err
		}
		ranking.SortHot(all)
		p := query.PageOf(all, page, limit)
		return query.NewPage(s.summarize(ctx, p.Items), p.Pagination.Total, page, limit), nil
	}

	total, err := s.clusters.Count(ctx, d)
	if err != nil {
		return ClusterPage{}, err
	}
	items, err := s.load(ctx, d.WithPage(page, limit))
	if err != nil {
		return ClusterPage{}, err
	}
	return query.NewPage(s.summarize(ctx, items), total, page, limit), nil
}

// Trending returns the top keywords of the left perspective together with
// the latest clusters that carry a summary. limit applies to both lists.
func (s *Service) Trending(ctx context.Context, f query.Filters, limit int) query.Envelope {
	ctx, endSpan := tracing.StartSpan(ctx, "news.trending")
	result, err := s.trending(ctx, f, limit)
	endSpan(err)
	if err != nil {
		return s.fail(ctx, "trending", err)
	}
	return query.OK(result)
}

func (s *Service) trending(ctx context.Context, f query.Filters, limit int) (*Trending, error) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	if limit > s.limits.Max {
		limit = s.limits.Max
	}
	f.Sort = string(ranking.ModeLatest)
	f.ContentOnly = true
	d, err := query.BuildQuery(f)
	if err != nil {
		return nil, err
	}

	all, err := s.load(ctx, d.Unpaged())
	if err != nil {
		return nil, err
	}

	latest := all
	if len(latest) > limit {
		latest = latest[:limit]
	}

	return &Trending{
		Keywords: stats.TopKeywords(all, cluster.Left, limit),
		Clusters: s.summarize(ctx, latest),
	}, nil
}

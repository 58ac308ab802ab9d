package news

import (
	"context"

	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/store"
	"github.com/onnwee/newsbias/internal/tracing"
)

// ListCategories returns every non-blank category with its cluster count,
// most frequent first.
func (s *Service) ListCategories(ctx context.Context) query.Envelope {
	return s.catalog(ctx, "list_categories", store.GroupByCategory)
}

// ListDates returns every publish day with its cluster count, newest first.
func (s *Service) ListDates(ctx context.Context) query.Envelope {
	return s.catalog(ctx, "list_dates", store.GroupByDay)
}

func (s *Service) catalog(ctx context.Context, op string, field store.GroupField) query.Envelope {
	ctx, endSpan := tracing.StartSpan(ctx, "news."+op)
	groups, err := s.clusters.Aggregate(ctx, store.Pipeline{GroupBy: field})
	endSpan(err)
	if err != nil {
		return s.fail(ctx, op, err)
	}
	if groups == nil {
		groups = []store.Group{}
	}
	return query.OK(&Catalog{Items: groups})
}

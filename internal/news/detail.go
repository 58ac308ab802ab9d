package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/tracing"
)

// GetCluster returns the detail view of one cluster, with every image
// resolved and a placeholder for each that is not.
func (s *Service) GetCluster(ctx context.Context, id string) query.Envelope {
	ctx, endSpan := tracing.StartSpan(ctx, "news.get_cluster")
	result, err := s.getCluster(ctx, id)
	endSpan(err)
	if err != nil {
		return s.fail(ctx, "get_cluster", err)
	}
	return query.OK(result)
}

func (s *Service) getCluster(ctx context.Context, id string) (*ClusterDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: cluster id is required", ErrValidation)
	}

	doc, err := s.clusters.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := cluster.Normalize(doc)
	if err != nil {
		return nil, err
	}

	res := s.resolver.All(ctx, c)
	detail := &ClusterDetail{
		ClusterSummary: s.summary(c, res.Cluster),
		Perspectives:   make(map[cluster.Side]PerspectiveView, len(cluster.Sides)),
	}
	for _, side := range cluster.Sides {
		detail.Perspectives[side] = s.perspectiveView(c, side, res.Perspectives[side])
	}
	return detail, nil
}

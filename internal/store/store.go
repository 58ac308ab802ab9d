// Package store defines the read-only collaborators the news core queries:
// the cluster document store and the article lookup. Implementations exist
// for MongoDB, PostgreSQL (articles only) and in-memory fixtures.
package store

import (
	"context"
	"errors"

	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/query"
)

var (
	// ErrNotFound is returned when no document matches an id.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable wraps any driver failure. Callers never see
	// a raw driver error.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// GroupField names a field Aggregate can group on.
type GroupField string

const (
	// GroupByCategory groups on the trimmed, non-blank category.
	GroupByCategory GroupField = "category"
	// GroupByDay groups on the publish date's calendar day (YYYY-MM-DD).
	GroupByDay GroupField = "day"
)

// Pipeline is a match-then-group aggregation.
type Pipeline struct {
	Filter  query.Descriptor
	GroupBy GroupField
}

// Group is one row of an aggregation result.
type Group struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ClusterStore reads raw cluster documents.
//
// Find applies the descriptor's filters, orders newest first (publish date
// descending, then id) and honours Skip and Limit. Ordering by divergence
// happens after normalization, not in the store.
type ClusterStore interface {
	Find(ctx context.Context, q query.Descriptor) ([]cluster.RawDocument, error)
	Count(ctx context.Context, q query.Descriptor) (int, error)
	FindByID(ctx context.Context, id string) (cluster.RawDocument, error)
	Aggregate(ctx context.Context, p Pipeline) ([]Group, error)
}

// ArticleLookup resolves the stored image of an article.
//
// FindImageID returns "" with a nil error when the article exists without an
// image, and ErrNotFound when the article does not exist.
type ArticleLookup interface {
	FindImageID(ctx context.Context, articleID string) (string, error)
}

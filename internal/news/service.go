// Package news is the query core: the entry points the HTTP transport calls.
//
// Every entry point answers with a query.Envelope. Collaborator failures never
// leave this package unwrapped; they are mapped onto the envelope codes in
// errors.go.
package news

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/newsbias/internal/binary"
	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/image"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/resolve"
	"github.com/onnwee/newsbias/internal/stats"
	"github.com/onnwee/newsbias/internal/store"
)

// DefaultImagePath is the route prefix used in generated image URLs.
const DefaultImagePath = "/images"

// DefaultTrendingLimit is the number of keywords and clusters in a trending
// listing when the caller does not set one.
const DefaultTrendingLimit = 5

// resolveConcurrency bounds concurrent image resolutions for one listing.
const resolveConcurrency = 4

// Deps are the collaborators of a Service. Articles and Thumbnails may be nil.
type Deps struct {
	Clusters     store.ClusterStore
	Articles     store.ArticleLookup
	Gateway      *binary.Gateway
	Resolver     *resolve.Resolver
	Engine       *stats.Engine
	Placeholders *image.Placeholders
	Thumbnails   *image.Thumbnailer
}

// Config holds Service options.
type Config struct {
	Limits    query.Limits
	ImagePath string
}

// Service implements the read-only news entry points.
type Service struct {
	clusters     store.ClusterStore
	articles     store.ArticleLookup
	gateway      *binary.Gateway
	resolver     *resolve.Resolver
	engine       *stats.Engine
	placeholders *image.Placeholders
	thumbnails   *image.Thumbnailer
	limits       query.Limits
	imagePath    string
	logger       *slog.Logger
}

// NewService creates a Service. Missing optional collaborators fall back to
// defaults: a resolver over deps.Articles, an engine without metrics and
// placeholders at the default base URL.
func NewService(deps Deps, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Resolver == nil {
		deps.Resolver = resolve.NewResolver(deps.Articles, 0, logger, nil)
	}
	if deps.Engine == nil {
		deps.Engine = stats.NewEngine(logger, nil)
	}
	if deps.Placeholders == nil {
		deps.Placeholders = image.NewPlaceholders(image.PlaceholderConfig{})
	}
	if cfg.Limits.Default <= 0 || cfg.Limits.Max <= 0 {
		cfg.Limits = query.DefaultLimits()
	}
	if cfg.ImagePath == "" {
		cfg.ImagePath = DefaultImagePath
	}

	return &Service{
		clusters:     deps.Clusters,
		articles:     deps.Articles,
		gateway:      deps.Gateway,
		resolver:     deps.Resolver,
		engine:       deps.Engine,
		placeholders: deps.Placeholders,
		thumbnails:   deps.Thumbnails,
		limits:       cfg.Limits,
		imagePath:    cfg.ImagePath,
		logger:       logger,
	}
}

// load fetches and normalizes every cluster matching d. Documents that fail
// normalization are skipped and logged.
func (s *Service) load(ctx context.Context, d query.Descriptor) ([]*cluster.Cluster, error) {
	out, _, err := s.loadCounted(ctx, d)
	return out, err
}

// loadCounted is load that also reports how many documents were skipped.
func (s *Service) loadCounted(ctx context.Context, d query.Descriptor) ([]*cluster.Cluster, int, error) {
	docs, err := s.clusters.Find(ctx, d)
	if err != nil {
		return nil, 0, err
	}
	out, invalid := s.normalizeAll(ctx, docs)
	return out, invalid, nil
}

func (s *Service) normalizeAll(ctx context.Context, docs []cluster.RawDocument) ([]*cluster.Cluster, int) {
	skipped := stats.NewSkipStats()
	out := make([]*cluster.Cluster, 0, len(docs))
	for _, doc := range docs {
		c, err := cluster.Normalize(doc)
		if err != nil {
			skipped.RecordInvalid()
			s.logger.WarnContext(ctx, "skipping invalid cluster document",
				slog.Any("id", documentID(doc)),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, c)
	}
	skipped.LogSummary(s.logger, "normalize")
	return out, int(skipped.Invalid())
}

func documentID(doc cluster.RawDocument) any {
	if id, ok := doc["_id"]; ok {
		return id
	}
	return doc["id"]
}

// summarize builds list items, resolving each cluster's image concurrently.
// Output order matches clusters.
func (s *Service) summarize(ctx context.Context, clusters []*cluster.Cluster) []ClusterSummary {
	out := make([]ClusterSummary, len(clusters))
	var g errgroup.Group
	g.SetLimit(resolveConcurrency)
	for i, c := range clusters {
		g.Go(func() error {
			out[i] = s.summary(c, s.resolver.Cluster(ctx, c))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

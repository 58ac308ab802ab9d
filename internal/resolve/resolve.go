// Package resolve picks the image shown for a cluster and for each of its
// perspectives.
//
// Cluster level, first match wins:
//
//  1. the cluster's representative image
//  2. the first perspective (left, center, right) with its own image
//  3. the first referenced article with an image, same side order
//  4. none; the caller renders a placeholder
//
// Perspective level:
//
//  1. the perspective's own image
//  2. the first referenced article of that side with an image
//  3. the cluster-level image
//  4. none
//
// Article lookups for one cluster run concurrently, but selection always
// walks the fixed order above, so the result depends only on the cluster and
// the lookup results.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/newsbias/internal/binary"
	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/store"
	"github.com/onnwee/newsbias/internal/tracing"
)

// maxConcurrentLookups bounds in-flight article lookups for one cluster.
const maxConcurrentLookups = 8

// Source records which cascade step produced an image.
type Source string

const (
	SourceRepresentative Source = "representative"
	SourcePerspective    Source = "perspective"
	SourceArticle        Source = "article"
	SourceInherited      Source = "inherited"
	// SourceNone is only used as a metric label.
	SourceNone Source = "none"
)

// ImageRef identifies a resolved image.
type ImageRef struct {
	ID        string       `json:"id"`
	Source    Source       `json:"source"`
	Side      cluster.Side `json:"side,omitempty"`
	ArticleID string       `json:"articleId,omitempty"`
	Hint      binary.Hint  `json:"hint"` // bucket hint for the binary gateway
}

// Resolution is the full set of images for one cluster. Nil entries are
// unresolved.
type Resolution struct {
	Cluster      *ImageRef
	Perspectives map[cluster.Side]*ImageRef
}

// Resolver runs the image cascade.
type Resolver struct {
	lookup  store.ArticleLookup
	probes  int
	logger  *slog.Logger
	metrics *Metrics
}

// NewResolver creates a Resolver. lookup may be nil, in which case the
// article steps never match. probes caps the article ids looked up per side;
// probes <= 0 looks up every referenced article.
func NewResolver(lookup store.ArticleLookup, probes int, logger *slog.Logger, metrics *Metrics) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		lookup:  lookup,
		probes:  probes,
		logger:  logger,
		metrics: metrics,
	}
}

// Cluster resolves the cluster-level image. It returns nil when no step
// matches.
func (r *Resolver) Cluster(ctx context.Context, c *cluster.Cluster) *ImageRef {
	s := r.session(c)
	ref := s.cluster(ctx)
	r.observe(LevelCluster, ref)
	return ref
}

// Perspective resolves the image for one side. It returns nil when no step
// matches.
func (r *Resolver) Perspective(ctx context.Context, c *cluster.Cluster, side cluster.Side) *ImageRef {
	s := r.session(c)
	ref := s.perspective(ctx, side)
	r.observe(LevelPerspective, ref)
	return ref
}

// All resolves the cluster image and every perspective image, issuing each
// article lookup at most once.
func (r *Resolver) All(ctx context.Context, c *cluster.Cluster) Resolution {
	ctx, endSpan := tracing.StartSpan(ctx, "resolve.all")
	defer endSpan(nil)

	s := r.session(c)

	// Every side without its own image may need its articles, either for
	// its own step 2 or for the cluster's step 3.
	var pending []cluster.Side
	for _, side := range cluster.Sides {
		if ownImage(c, side) == "" {
			pending = append(pending, side)
		}
	}
	s.prefetch(ctx, pending)

	res := Resolution{
		Cluster:      s.cluster(ctx),
		Perspectives: make(map[cluster.Side]*ImageRef, len(cluster.Sides)),
	}
	r.observe(LevelCluster, res.Cluster)
	for _, side := range cluster.Sides {
		ref := s.perspective(ctx, side)
		res.Perspectives[side] = ref
		r.observe(LevelPerspective, ref)
	}
	return res
}

func (r *Resolver) observe(level string, ref *ImageRef) {
	if r.metrics == nil {
		return
	}
	source := SourceNone
	if ref != nil {
		source = ref.Source
	}
	r.metrics.ObserveSource(level, source)
}

// session memoizes article lookups for one cluster.
type session struct {
	r        *Resolver
	c        *cluster.Cluster
	articles map[cluster.Side]*ImageRef
	fetched  map[cluster.Side]bool
}

func (r *Resolver) session(c *cluster.Cluster) *session {
	return &session{
		r:        r,
		c:        c,
		articles: make(map[cluster.Side]*ImageRef),
		fetched:  make(map[cluster.Side]bool),
	}
}

func (s *session) cluster(ctx context.Context) *ImageRef {
	if id := representative(s.c); id != "" {
		return &ImageRef{ID: id, Source: SourceRepresentative, Hint: binary.HintGeneral}
	}
	for _, side := range cluster.Sides {
		if id := ownImage(s.c, side); id != "" {
			return &ImageRef{ID: id, Source: SourcePerspective, Side: side, Hint: binary.HintGeneral}
		}
	}
	s.prefetch(ctx, cluster.Sides)
	for _, side := range cluster.Sides {
		if ref := s.articles[side]; ref != nil {
			return clone(ref)
		}
	}
	return nil
}

func (s *session) perspective(ctx context.Context, side cluster.Side) *ImageRef {
	if id := ownImage(s.c, side); id != "" {
		return &ImageRef{ID: id, Source: SourcePerspective, Side: side, Hint: binary.HintGeneral}
	}
	s.prefetch(ctx, []cluster.Side{side})
	if ref := s.articles[side]; ref != nil {
		return clone(ref)
	}
	if ref := s.cluster(ctx); ref != nil {
		inherited := clone(ref)
		inherited.Source = SourceInherited
		return inherited
	}
	return nil
}

// prefetch looks up the article ids of every side not yet fetched, up to
// the probe cap when one is set. All lookups run concurrently; per side the first id with an image
// in array order wins.
func (s *session) prefetch(ctx context.Context, sides []cluster.Side) {
	type probe struct {
		side cluster.Side
		ids  []string
	}

	var probes []probe
	for _, side := range sides {
		if s.fetched[side] {
			continue
		}
		s.fetched[side] = true
		if s.r.lookup == nil {
			continue
		}
		ids := s.c.Perspective(side).ArticleIDs
		if s.r.probes > 0 && len(ids) > s.r.probes {
			ids = ids[:s.r.probes]
		}
		if len(ids) > 0 {
			probes = append(probes, probe{side: side, ids: ids})
		}
	}
	if len(probes) == 0 {
		return
	}

	results := make([][]string, len(probes))
	var g errgroup.Group
	g.SetLimit(maxConcurrentLookups)
	for i, p := range probes {
		results[i] = make([]string, len(p.ids))
		for j, articleID := range p.ids {
			g.Go(func() error {
				results[i][j] = s.lookup(ctx, p.side, articleID)
				return nil
			})
		}
	}
	_ = g.Wait()

	for i, p := range probes {
		for j, imageID := range results[i] {
			if imageID != "" {
				s.articles[p.side] = &ImageRef{
					ID:        imageID,
					Source:    SourceArticle,
					Side:      p.side,
					ArticleID: p.ids[j],
					Hint:      binary.HintArticle,
				}
				break
			}
		}
	}
}

// lookup returns the article's image id, or "" on any miss. Failures other
// than a missing article are logged and treated as misses.
func (s *session) lookup(ctx context.Context, side cluster.Side, articleID string) string {
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return ""
	}
	imageID, err := s.r.lookup.FindImageID(ctx, articleID)
	switch {
	case err == nil:
		s.r.countLookup(LookupHit, imageID != "")
		return strings.TrimSpace(imageID)
	case errors.Is(err, store.ErrNotFound):
		s.r.countLookup(LookupMiss, false)
	default:
		s.r.logger.WarnContext(ctx, "article image lookup failed",
			slog.String("cluster_id", s.c.ID),
			slog.String("side", string(side)),
			slog.String("article_id", articleID),
			slog.String("error", err.Error()))
		s.r.countLookup(LookupError, false)
	}
	return ""
}

func (r *Resolver) countLookup(outcome string, withImage bool) {
	if r.metrics == nil {
		return
	}
	if outcome == LookupHit && !withImage {
		outcome = LookupNoImage
	}
	r.metrics.ObserveLookup(outcome)
}

func representative(c *cluster.Cluster) string {
	if c.RepresentativeImageID == nil {
		return ""
	}
	return strings.TrimSpace(*c.RepresentativeImageID)
}

func ownImage(c *cluster.Cluster, side cluster.Side) string {
	p := c.Perspective(side)
	if p.ImageID == nil {
		return ""
	}
	return strings.TrimSpace(*p.ImageID)
}

func clone(ref *ImageRef) *ImageRef {
	cp := *ref
	return &cp
}

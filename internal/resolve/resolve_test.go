package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/onnwee/newsbias/internal/binary"
	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/store"
)

func strPtr(s string) *string { return &s }

func article(id, imageID string) cluster.Article {
	a := cluster.Article{ID: id}
	if imageID != "" {
		a.ImageID = strPtr(imageID)
	}
	return a
}

func newCluster(perspectives map[cluster.Side]*cluster.Perspective) *cluster.Cluster {
	return &cluster.Cluster{ID: "c1", Title: "Tariff talks", Perspectives: perspectives}
}

func TestCluster_ArticleFallback(t *testing.T) {
	c := newCluster(map[cluster.Side]*cluster.Perspective{
		cluster.Left: {ArticleIDs: []string{"A1"}},
	})
	lookup := store.NewMemoryArticleLookup(article("A1", "IMG1"))

	ref := NewResolver(lookup, 0, nil, nil).Cluster(context.Background(), c)
	if ref == nil {
		t.Fatal("expected an image")
	}
	if ref.ID != "IMG1" || ref.Source != SourceArticle || ref.ArticleID != "A1" || ref.Hint != binary.HintArticle {
		t.Errorf("unexpected ref %+v", ref)
	}
}

func TestCluster_Order(t *testing.T) {
	lookup := store.NewMemoryArticleLookup(
		article("L1", "IMG-L1"),
		article("C1", "IMG-C1"),
		article("R1", ""),
		article("R2", "IMG-R2"),
	)

	tests := []struct {
		name       string
		c          *cluster.Cluster
		wantID     string
		wantSource Source
		wantSide   cluster.Side
	}{
		{
			name: "representative wins",
			c: &cluster.Cluster{
				ID:                    "c1",
				RepresentativeImageID: strPtr("REP"),
				Perspectives: map[cluster.Side]*cluster.Perspective{
					cluster.Left: {ImageID: strPtr("IMG-L")},
				},
			},
			wantID:     "REP",
			wantSource: SourceRepresentative,
		},
		{
			name: "perspective image in side order",
			c: newCluster(map[cluster.Side]*cluster.Perspective{
				cluster.Right:  {ImageID: strPtr("IMG-R")},
				cluster.Center: {ImageID: strPtr("IMG-C")},
				cluster.Left:   {ArticleIDs: []string{"L1"}},
			}),
			wantID:     "IMG-C",
			wantSource: SourcePerspective,
			wantSide:   cluster.Center,
		},
		{
			name: "blank representative is ignored",
			c: &cluster.Cluster{
				ID:                    "c1",
				RepresentativeImageID: strPtr("  "),
				Perspectives: map[cluster.Side]*cluster.Perspective{
					cluster.Right: {ImageID: strPtr("IMG-R")},
				},
			},
			wantID:     "IMG-R",
			wantSource: SourcePerspective,
			wantSide:   cluster.Right,
		},
		{
			name: "article in side order",
			c: newCluster(map[cluster.Side]*cluster.Perspective{
				cluster.Right:  {ArticleIDs: []string{"R2"}},
				cluster.Center: {ArticleIDs: []string{"C1"}},
			}),
			wantID:     "IMG-C1",
			wantSource: SourceArticle,
			wantSide:   cluster.Center,
		},
		{
			name: "first article with image within a side",
			c: newCluster(map[cluster.Side]*cluster.Perspective{
				cluster.Right: {ArticleIDs: []string{"missing", "R1", "R2"}},
			}),
			wantID:     "IMG-R2",
			wantSource: SourceArticle,
			wantSide:   cluster.Right,
		},
	}

	r := NewResolver(lookup, 3, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := r.Cluster(context.Background(), tt.c)
			if ref == nil {
				t.Fatal("expected an image")
			}
			if ref.ID != tt.wantID || ref.Source != tt.wantSource || ref.Side != tt.wantSide {
				t.Errorf("expected %s from %s/%s, got %+v", tt.wantID, tt.wantSource, tt.wantSide, ref)
			}
		})
	}
}

func TestCluster_NoImage(t *testing.T) {
	c := newCluster(map[cluster.Side]*cluster.Perspective{
		cluster.Left: {ArticleIDs: []string{"A1"}},
	})
	lookup := store.NewMemoryArticleLookup(article("A1", ""))

	if ref := NewResolver(lookup, 0, nil, nil).Cluster(context.Background(), c); ref != nil {
		t.Errorf("expected no image, got %+v", ref)
	}
	if ref := NewResolver(nil, 0, nil, nil).Cluster(context.Background(), c); ref != nil {
		t.Errorf("expected no image without a lookup, got %+v", ref)
	}
}

func TestCluster_UnboundedLookupsReachLateArticle(t *testing.T) {
	c := newCluster(map[cluster.Side]*cluster.Perspective{
		cluster.Left: {ArticleIDs: []string{"A1", "A2", "A3", "A4"}},
	})
	lookup := store.NewMemoryArticleLookup(
		article("A1", ""), article("A2", ""), article("A3", ""), article("A4", "IMG4"),
	)

	ref := NewResolver(lookup, 0, nil, nil).Cluster(context.Background(), c)
	if ref == nil || ref.ID != "IMG4" || ref.ArticleID != "A4" || ref.Source != SourceArticle {
		t.Errorf("expected fourth article image, got %+v", ref)
	}
}

func TestCluster_ProbeLimit(t *testing.T) {
	c := newCluster(map[cluster.Side]*cluster.Perspective{
		cluster.Left: {ArticleIDs: []string{"A1", "A2", "A3"}},
	})
	lookup := store.NewMemoryArticleLookup(article("A1", ""), article("A2", ""), article("A3", "IMG3"))

	if ref := NewResolver(lookup, 2, nil, nil).Cluster(context.Background(), c); ref != nil {
		t.Errorf("expected third article to be outside the probe window, got %+v", ref)
	}
	if lookup.Calls("A3") != 0 {
		t.Error("expected A3 not to be looked up")
	}
}

func TestPerspective_Order(t *testing.T) {
	c := &cluster.Cluster{
		ID: "c1",
		Perspectives: map[cluster.Side]*cluster.Perspective{
			cluster.Left:   {ImageID: strPtr("IMG-L")},
			cluster.Center: {ArticleIDs: []string{"C1"}},
			cluster.Right:  {ArticleIDs: []string{"R1"}},
		},
	}
	lookup := store.NewMemoryArticleLookup(article("C1", "IMG-C1"), article("R1", ""))
	r := NewResolver(lookup, 0, nil, nil)
	ctx := context.Background()

	if ref := r.Perspective(ctx, c, cluster.Left); ref == nil || ref.ID != "IMG-L" || ref.Source != SourcePerspective {
		t.Errorf("left: unexpected %+v", ref)
	}
	if ref := r.Perspective(ctx, c, cluster.Center); ref == nil || ref.ID != "IMG-C1" || ref.Source != SourceArticle {
		t.Errorf("center: unexpected %+v", ref)
	}

	ref := r.Perspective(ctx, c, cluster.Right)
	if ref == nil || ref.ID != "IMG-L" || ref.Source != SourceInherited || ref.Side != cluster.Left {
		t.Errorf("right: expected inherited cluster image, got %+v", ref)
	}
	if ref != nil && ref.Hint != binary.HintGeneral {
		t.Errorf("expected inherited ref to keep its origin hint, got %s", ref.Hint)
	}
}

func TestPerspective_InheritsArticleImage(t *testing.T) {
	c := newCluster(map[cluster.Side]*cluster.Perspective{
		cluster.Left: {ArticleIDs: []string{"A1"}},
	})
	lookup := store.NewMemoryArticleLookup(article("A1", "IMG1"))

	ref := NewResolver(lookup, 0, nil, nil).Perspective(context.Background(), c, cluster.Right)
	if ref == nil || ref.ID != "IMG1" || ref.Source != SourceInherited || ref.Hint != binary.HintArticle {
		t.Errorf("unexpected %+v", ref)
	}
}

func TestAll_LooksUpEachArticleOnce(t *testing.T) {
	c := newCluster(map[cluster.Side]*cluster.Perspective{
		cluster.Left:   {ArticleIDs: []string{"L1", "L2"}},
		cluster.Center: {ArticleIDs: []string{"C1"}},
		cluster.Right:  {ArticleIDs: []string{"R1"}},
	})
	lookup := store.NewMemoryArticleLookup(article("L1", ""), article("L2", "IMG-L2"), article("C1", ""))

	res := NewResolver(lookup, 0, nil, nil).All(context.Background(), c)

	for _, id := range []string{"L1", "L2", "C1", "R1"} {
		if n := lookup.Calls(id); n != 1 {
			t.Errorf("%s: expected 1 lookup, got %d", id, n)
		}
	}
	if res.Cluster == nil || res.Cluster.ID != "IMG-L2" {
		t.Errorf("unexpected cluster image %+v", res.Cluster)
	}
	if ref := res.Perspectives[cluster.Left]; ref == nil || ref.Source != SourceArticle {
		t.Errorf("left: unexpected %+v", ref)
	}
	for _, side := range []cluster.Side{cluster.Center, cluster.Right} {
		if ref := res.Perspectives[side]; ref == nil || ref.Source != SourceInherited || ref.ID != "IMG-L2" {
			t.Errorf("%s: expected inherited image, got %+v", side, ref)
		}
	}
}

func TestAll_Deterministic(t *testing.T) {
	perspectives := map[cluster.Side]*cluster.Perspective{}
	var articles []cluster.Article
	for _, side := range cluster.Sides {
		var ids []string
		for i := 0; i < 3; i++ {
			id := fmt.Sprintf("%s-%d", side, i)
			ids = append(ids, id)
			articles = append(articles, article(id, "IMG-"+id))
		}
		perspectives[side] = &cluster.Perspective{ArticleIDs: ids}
	}
	c := newCluster(perspectives)
	r := NewResolver(store.NewMemoryArticleLookup(articles...), 0, nil, nil)

	first := r.All(context.Background(), c)
	for i := 0; i < 50; i++ {
		got := r.All(context.Background(), c)
		if *got.Cluster != *first.Cluster {
			t.Fatalf("run %d: cluster image changed from %+v to %+v", i, first.Cluster, got.Cluster)
		}
		for _, side := range cluster.Sides {
			if *got.Perspectives[side] != *first.Perspectives[side] {
				t.Fatalf("run %d: %s image changed", i, side)
			}
		}
	}
	if first.Cluster.ID != "IMG-left-0" {
		t.Errorf("expected first left article to win, got %s", first.Cluster.ID)
	}
}

func TestLookupErrorIsAMiss(t *testing.T) {
	c := newCluster(map[cluster.Side]*cluster.Perspective{
		cluster.Left:  {ArticleIDs: []string{"A1"}},
		cluster.Right: {ArticleIDs: []string{"A2"}},
	})
	lookup := store.NewMemoryArticleLookup(article("A1", "IMG1"), article("A2", "IMG2"))
	lookup.FailOn("A1", errors.New("timeout"))

	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ref := NewResolver(lookup, 0, nil, metrics).Cluster(context.Background(), c)
	if ref == nil || ref.ID != "IMG2" {
		t.Fatalf("expected failing lookup to fall through, got %+v", ref)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	counts := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "/" + lp.GetValue()
			}
			counts[key] = m.GetCounter().GetValue()
		}
	}
	if counts[MetricArticleLookups+"/error"] != 1 || counts[MetricArticleLookups+"/hit"] != 1 {
		t.Errorf("unexpected lookup counters %v", counts)
	}
	if counts[MetricImageSource+"/cluster/article"] != 1 {
		t.Errorf("unexpected source counters %v", counts)
	}
}

package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/onnwee/newsbias/internal/cluster"
)

const epsilon = 1e-9

func TestDivergence(t *testing.T) {
	tests := []struct {
		name string
		bias cluster.BiasRatio
		want float64
	}{
		{name: "all center", bias: cluster.BiasRatio{Center: 1}, want: 0},
		{name: "even split", bias: cluster.BiasRatio{Left: 0.5, Right: 0.5}, want: 0},
		{name: "all right", bias: cluster.BiasRatio{Right: 1}, want: 0.5},
		{name: "all left", bias: cluster.BiasRatio{Left: 1}, want: 0.5},
		{name: "mild left", bias: cluster.BiasRatio{Left: 0.4, Center: 0.3, Right: 0.3}, want: 0.05},
		{name: "neutral default", bias: cluster.NeutralBias(), want: 0},
		{name: "drift clamps", bias: cluster.BiasRatio{Left: 0, Center: 1, Right: 1}, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Divergence(tt.bias)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("Divergence(%+v) = %v, want %v", tt.bias, got, tt.want)
			}
		})
	}
}

func TestDivergence_Range(t *testing.T) {
	for l := 0.0; l <= 1.0; l += 0.1 {
		for c := 0.0; l+c <= 1.0+epsilon; c += 0.1 {
			r := math.Max(0, 1-l-c)
			got := Divergence(cluster.BiasRatio{Left: l, Center: c, Right: r})
			if got < 0 || got > MaxDivergence {
				t.Fatalf("Divergence out of range for (%v,%v,%v): %v", l, c, r, got)
			}
		}
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		name string
		bias cluster.BiasRatio
		want Band
	}{
		{name: "right dominant", bias: cluster.BiasRatio{Left: 0.2, Center: 0.2, Right: 0.6}, want: BandWarm},
		{name: "left dominant", bias: cluster.BiasRatio{Left: 0.7, Center: 0.1, Right: 0.2}, want: BandCool},
		{name: "center dominant", bias: cluster.BiasRatio{Left: 0.3, Center: 0.4, Right: 0.3}, want: BandNeutral},
		{name: "right at threshold is not dominant", bias: cluster.BiasRatio{Left: 0.3, Center: 0.3, Right: 0.4}, want: BandDefault},
		{name: "tie between sides", bias: cluster.BiasRatio{Left: 0.45, Center: 0.1, Right: 0.45}, want: BandDefault},
		{name: "neutral default", bias: cluster.NeutralBias(), want: BandDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BandFor(tt.bias); got != tt.want {
				t.Errorf("BandFor(%+v) = %q, want %q", tt.bias, got, tt.want)
			}
		})
	}
}

func TestSortHot(t *testing.T) {
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	clusters := []*cluster.Cluster{
		{ID: "mild", PublishedDate: day.Add(48 * time.Hour), BiasRatio: cluster.BiasRatio{Left: 0.4, Center: 0.3, Right: 0.3}},
		{ID: "right", PublishedDate: day, BiasRatio: cluster.BiasRatio{Right: 1}},
		{ID: "left-new", PublishedDate: day.Add(24 * time.Hour), BiasRatio: cluster.BiasRatio{Left: 1}},
		{ID: "center", PublishedDate: day.Add(72 * time.Hour), BiasRatio: cluster.BiasRatio{Center: 1}},
	}

	SortHot(clusters)

	want := []string{"left-new", "right", "mild", "center"}
	for i, id := range want {
		if clusters[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, clusters[i].ID)
		}
	}
}

func TestSortLatest_TieBreaksByID(t *testing.T) {
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	clusters := []*cluster.Cluster{
		{ID: "b", PublishedDate: day},
		{ID: "a", PublishedDate: day},
		{ID: "c", PublishedDate: day.Add(time.Hour)},
	}

	SortLatest(clusters)

	got := []string{clusters[0].ID, clusters[1].ID, clusters[2].ID}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode(""); !ok || m != ModeLatest {
		t.Errorf("expected empty mode to default to latest, got %q", m)
	}
	if m, ok := ParseMode("hot"); !ok || m != ModeHot {
		t.Errorf("expected hot, got %q", m)
	}
	if _, ok := ParseMode("popular"); ok {
		t.Error("expected unknown mode to be rejected")
	}
}

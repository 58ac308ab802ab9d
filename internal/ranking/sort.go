package ranking

import (
	"sort"

	"github.com/onnwee/newsbias/internal/cluster"
)

// Mode is a listing sort order.
type Mode string

// Sort modes.
const (
	ModeLatest Mode = "latest"
	ModeHot    Mode = "hot"
)

// ParseMode returns the sort mode for s. Empty input selects ModeLatest.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeLatest:
		return ModeLatest, true
	case ModeHot:
		return ModeHot, true
	}
	return "", false
}

// LessLatest orders by publish date descending, then id ascending.
func LessLatest(a, b *cluster.Cluster) bool {
	if !a.PublishedDate.Equal(b.PublishedDate) {
		return a.PublishedDate.After(b.PublishedDate)
	}
	return a.ID < b.ID
}

// LessHot orders by divergence descending, then by LessLatest.
func LessHot(a, b *cluster.Cluster) bool {
	da, db := Divergence(a.BiasRatio), Divergence(b.BiasRatio)
	if da != db {
		return da > db
	}
	return LessLatest(a, b)
}

// Less returns the comparator for mode.
func Less(mode Mode) func(a, b *cluster.Cluster) bool {
	if mode == ModeHot {
		return LessHot
	}
	return LessLatest
}

// Sort orders clusters in place by mode.
func Sort(clusters []*cluster.Cluster, mode Mode) {
	less := Less(mode)
	sort.SliceStable(clusters, func(i, j int) bool {
		return less(clusters[i], clusters[j])
	})
}

// SortHot orders clusters by divergence descending, newest first on ties.
func SortHot(clusters []*cluster.Cluster) {
	Sort(clusters, ModeHot)
}

// SortLatest orders clusters newest first.
func SortLatest(clusters []*cluster.Cluster) {
	Sort(clusters, ModeLatest)
}

// Package stats computes rollups over normalized clusters: bias average,
// outlet counts, category counts, time-bucketed trends and keyword rankings.
//
// Every rollup is a pure function. Empty input yields the neutral split or an
// empty slice, never NaN. Clusters whose stored bias ratio was malformed are
// left out of bias averages.
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/onnwee/newsbias/internal/cluster"
)

// UnclassifiedLabel is the default bucket name for clusters without a category.
const UnclassifiedLabel = "unclassified"

// OutletCount is the number of articles one outlet contributed.
type OutletCount struct {
	Outlet string `json:"outlet"`
	Count  int    `json:"count"`
}

// CategoryCount is the number of clusters in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategoryOptions controls how blank categories are treated.
type CategoryOptions struct {
	IncludeUnclassified bool
	Label               string // defaults to UnclassifiedLabel
}

// TrendPoint is one date bucket of a trend series.
type TrendPoint struct {
	Bucket      string            `json:"bucket"`
	Count       int               `json:"count"`
	BiasAverage cluster.BiasRatio `json:"biasAverage"`
}

// KeywordScore is a keyword with its summed score.
type KeywordScore struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Overview holds collection totals.
type Overview struct {
	TotalClusters int `json:"totalClusters"`
	TotalArticles int `json:"totalArticles"`
}

// Granularity is the width of a trend bucket.
type Granularity string

const (
	Day   Granularity = "day"
	Month Granularity = "month"
)

// ParseGranularity returns the granularity for s. Empty input selects Day.
func ParseGranularity(s string) (Granularity, bool) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case "", Day:
		return Day, true
	case Month:
		return Month, true
	}
	return "", false
}

func (g Granularity) layout() string {
	if g == Month {
		return "2006-01"
	}
	return "2006-01-02"
}

func (g Granularity) truncate(t time.Time) time.Time {
	t = t.UTC()
	if g == Month {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (g Granularity) next(t time.Time) time.Time {
	if g == Month {
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// biasUsable reports whether c may contribute to a bias average.
func biasUsable(c *cluster.Cluster) bool {
	return c.BiasSource != cluster.BiasMalformed
}

// BiasAverage returns the mean left/center/right split. With no usable
// clusters it returns the neutral split.
func BiasAverage(clusters []*cluster.Cluster) cluster.BiasRatio {
	var sum cluster.BiasRatio
	n := 0
	for _, c := range clusters {
		if !biasUsable(c) {
			continue
		}
		sum.Left += c.BiasRatio.Left
		sum.Center += c.BiasRatio.Center
		sum.Right += c.BiasRatio.Right
		n++
	}
	if n == 0 {
		return cluster.NeutralBias()
	}
	return cluster.BiasRatio{
		Left:   sum.Left / float64(n),
		Center: sum.Center / float64(n),
		Right:  sum.Right / float64(n),
	}
}

// MediaCounts sums per-outlet article counts, highest first. Equal counts are
// ordered by outlet name.
func MediaCounts(clusters []*cluster.Cluster) []OutletCount {
	totals := make(map[string]int)
	for _, c := range clusters {
		for outlet, n := range c.MediaCounts {
			if strings.TrimSpace(outlet) == "" {
				continue
			}
			totals[outlet] += n
		}
	}

	out := make([]OutletCount, 0, len(totals))
	for outlet, n := range totals {
		out = append(out, OutletCount{Outlet: outlet, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Outlet < out[j].Outlet
	})
	return out
}

// CategoryCounts counts clusters per category, highest first.
func CategoryCounts(clusters []*cluster.Cluster, opts CategoryOptions) []CategoryCount {
	label := opts.Label
	if label == "" {
		label = UnclassifiedLabel
	}

	totals := make(map[string]int)
	for _, c := range clusters {
		category := strings.TrimSpace(c.Category)
		if category == "" {
			if !opts.IncludeUnclassified {
				continue
			}
			category = label
		}
		totals[category]++
	}

	out := make([]CategoryCount, 0, len(totals))
	for category, n := range totals {
		out = append(out, CategoryCount{Category: category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Trend buckets clusters by publish date, oldest bucket first. Clusters
// without a date are left out.
func Trend(clusters []*cluster.Cluster, g Granularity) []TrendPoint {
	type acc struct {
		count   int
		members []*cluster.Cluster
	}
	buckets := make(map[string]*acc)
	for _, c := range clusters {
		if c.PublishedDate.IsZero() {
			continue
		}
		key := g.truncate(c.PublishedDate).Format(g.layout())
		b, ok := buckets[key]
		if !ok {
			b = &acc{}
			buckets[key] = b
		}
		b.count++
		b.members = append(b.members, c)
	}

	out := make([]TrendPoint, 0, len(buckets))
	for key, b := range buckets {
		out = append(out, TrendPoint{Bucket: key, Count: b.count, BiasAverage: BiasAverage(b.members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket < out[j].Bucket })
	return out
}

// maxFilledBuckets bounds gap filling for very wide ranges.
const maxFilledBuckets = 1000

// FillTrend inserts empty buckets for every period in [from, to) that has no
// data. Ranges wider than maxFilledBuckets periods are returned unchanged.
func FillTrend(points []TrendPoint, g Granularity, from, to time.Time) []TrendPoint {
	if !from.Before(to) {
		return points
	}

	have := make(map[string]TrendPoint, len(points))
	for _, p := range points {
		have[p.Bucket] = p
	}

	var filled []TrendPoint
	for t := g.truncate(from); t.Before(to); t = g.next(t) {
		if len(filled) >= maxFilledBuckets {
			return points
		}
		key := t.Format(g.layout())
		if p, ok := have[key]; ok {
			filled = append(filled, p)
			delete(have, key)
			continue
		}
		filled = append(filled, TrendPoint{Bucket: key, BiasAverage: cluster.NeutralBias()})
	}

	// Points outside the window are kept so no data is dropped.
	for _, p := range have {
		filled = append(filled, p)
	}
	sort.Slice(filled, func(i, j int) bool { return filled[i].Bucket < filled[j].Bucket })
	return filled
}

// TopKeywords sums keyword scores for one side and returns the best limit
// words. Equal scores are ordered lexically. A limit below 1 returns every
// word.
func TopKeywords(clusters []*cluster.Cluster, side cluster.Side, limit int) []KeywordScore {
	totals := make(map[string]float64)
	for _, c := range clusters {
		for _, kw := range c.Perspective(side).Keywords {
			totals[kw.Word] += kw.Score
		}
	}

	out := make([]KeywordScore, 0, len(totals))
	for word, score := range totals {
		out = append(out, KeywordScore{Word: word, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Word < out[j].Word
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Totals returns the cluster and article totals.
func Totals(clusters []*cluster.Cluster) Overview {
	o := Overview{TotalClusters: len(clusters)}
	for _, c := range clusters {
		o.TotalArticles += c.ArticleCount()
	}
	return o
}

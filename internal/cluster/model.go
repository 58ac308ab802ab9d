// Package cluster provides the canonical in-memory representation of a news
// cluster and the normalizer that maps stored documents onto it.
package cluster

import (
	"strings"
	"time"
)

// Side identifies one of the three political perspectives of a cluster.
type Side string

// Perspective sides.
const (
	Left   Side = "left"
	Center Side = "center"
	Right  Side = "right"
)

// Sides is the fixed perspective order used wherever a deterministic walk over
// perspectives is required.
var Sides = []Side{Left, Center, Right}

// ParseSide returns the Side for s (case-insensitive) and whether it was valid.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Left:
		return Left, true
	case Center:
		return Center, true
	case Right:
		return Right, true
	}
	return "", false
}

// BiasSource records where a cluster's bias ratio came from.
type BiasSource int

const (
	// BiasStored means the document carried a usable bias ratio.
	BiasStored BiasSource = iota
	// BiasDefaulted means the ratio was absent and the even split was used.
	BiasDefaulted
	// BiasMalformed means the ratio was present but unusable; the even split
	// was substituted so ranking keeps working, but rollups skip the cluster.
	BiasMalformed
)

// BiasRatio is the left/center/right split of a cluster's coverage.
type BiasRatio struct {
	Left   float64 `json:"left"`
	Center float64 `json:"center"`
	Right  float64 `json:"right"`
}

// NeutralBias returns the even 1/3 split.
func NeutralBias() BiasRatio {
	return BiasRatio{Left: 1.0 / 3, Center: 1.0 / 3, Right: 1.0 / 3}
}

// Keyword is a scored keyword extracted upstream for one perspective.
type Keyword struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Perspective is one side's view of a story.
//
// Outlets[i], ArticleURLs[i] and ArticleIDs[i] describe the same article.
// When the stored arrays disagree in length, ArticleIDs and ArticleURLs are
// left empty and Mismatched is set.
type Perspective struct {
	Summary     string    `json:"summary"`
	Keywords    []Keyword `json:"keywords"`
	Outlets     []string  `json:"outlets"`
	ArticleIDs  []string  `json:"articleIds"`
	ArticleURLs []string  `json:"articleUrls"`
	ImageID     *string   `json:"imageId,omitempty"`
	Mismatched  bool      `json:"-"`
}

// HasSummary reports whether the perspective carries a non-blank summary.
func (p *Perspective) HasSummary() bool {
	return p != nil && strings.TrimSpace(p.Summary) != ""
}

// Cluster is one story grouped across outlets.
type Cluster struct {
	ID                    string                `json:"id"`
	Title                 string                `json:"title"`
	PublishedDate         time.Time             `json:"publishedDate"`
	Category              string                `json:"category,omitempty"`
	BiasRatio             BiasRatio             `json:"biasRatio"`
	BiasSource            BiasSource            `json:"-"`
	MediaCounts           map[string]int        `json:"mediaCounts"`
	RepresentativeImageID *string               `json:"representativeImageId,omitempty"`
	Perspectives          map[Side]*Perspective `json:"perspectives"`
}

// Perspective returns the perspective for side, never nil.
func (c *Cluster) Perspective(side Side) *Perspective {
	if p, ok := c.Perspectives[side]; ok && p != nil {
		return p
	}
	return &Perspective{}
}

// HasContent reports whether at least one perspective has a summary.
// Clusters without content are excluded from search and trending listings.
func (c *Cluster) HasContent() bool {
	for _, side := range Sides {
		if c.Perspective(side).HasSummary() {
			return true
		}
	}
	return false
}

// ArticleCount returns the total number of articles across all outlets.
func (c *Cluster) ArticleCount() int {
	total := 0
	for _, n := range c.MediaCounts {
		total += n
	}
	return total
}

// Article is the read-only article record owned by the ingestion pipeline.
type Article struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	ImageID *string `json:"imageId,omitempty"`
}

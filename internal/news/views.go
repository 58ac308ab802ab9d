package news

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/ranking"
	"github.com/onnwee/newsbias/internal/resolve"
	"github.com/onnwee/newsbias/internal/stats"
	"github.com/onnwee/newsbias/internal/store"
)

// ImageView is a renderable image. Placeholder is set when URL points at a
// synthesized placeholder instead of a stored image.
type ImageView struct {
	URL         string            `json:"url"`
	Placeholder bool              `json:"placeholder"`
	Ref         *resolve.ImageRef `json:"ref,omitempty"`
}

// ClusterSummary is one item of a cluster listing.
type ClusterSummary struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	PublishedDate time.Time         `json:"publishedDate"`
	Category      string            `json:"category,omitempty"`
	BiasRatio     cluster.BiasRatio `json:"biasRatio"`
	Divergence    float64           `json:"divergence"`
	Band          ranking.Band      `json:"band"`
	MediaCounts   map[string]int    `json:"mediaCounts"`
	ArticleCount  int               `json:"articleCount"`
	Image         ImageView         `json:"image"`
}

// ArticleView is one referenced article of a perspective.
type ArticleView struct {
	ArticleID string `json:"articleId"`
	URL       string `json:"url"`
	Outlet    string `json:"outlet,omitempty"`
	ImageURL  string `json:"imageUrl"`
}

// PerspectiveView is one side of a cluster detail.
type PerspectiveView struct {
	Summary  string            `json:"summary"`
	Keywords []cluster.Keyword `json:"keywords"`
	Outlets  []string          `json:"outlets"`
	Articles []ArticleView     `json:"articles"`
	Image    ImageView         `json:"image"`
}

// ClusterDetail is the full view of one cluster.
type ClusterDetail struct {
	ClusterSummary
	Perspectives map[cluster.Side]PerspectiveView `json:"perspectives"`
}

// TrendingKeywords is the result of GetTrendingKeywords.
type TrendingKeywords struct {
	Side     cluster.Side         `json:"side"`
	Keywords []stats.KeywordScore `json:"keywords"`
}

// Trending is the result of Trending.
type Trending struct {
	Keywords []stats.KeywordScore `json:"keywords"`
	Clusters []ClusterSummary     `json:"clusters"`
}

// Catalog lists distinct values with their cluster counts.
type Catalog struct {
	Items []store.Group `json:"items"`
}

// ClusterPage is a page of cluster summaries.
type ClusterPage = query.Page[ClusterSummary]

func (s *Service) summary(c *cluster.Cluster, ref *resolve.ImageRef) ClusterSummary {
	img := ImageView{Ref: ref}
	if ref != nil {
		img.URL = s.imageURL(ref)
	} else {
		img.URL = s.placeholders.ForCluster(c)
		img.Placeholder = true
	}

	return ClusterSummary{
		ID:            c.ID,
		Title:         c.Title,
		PublishedDate: c.PublishedDate,
		Category:      c.Category,
		BiasRatio:     c.BiasRatio,
		Divergence:    ranking.Divergence(c.BiasRatio),
		Band:          ranking.BandFor(c.BiasRatio),
		MediaCounts:   c.MediaCounts,
		ArticleCount:  c.ArticleCount(),
		Image:         img,
	}
}

// imageURL is the transport URL of a resolved image.
func (s *Service) imageURL(ref *resolve.ImageRef) string {
	u := fmt.Sprintf("%s/%s", strings.TrimRight(s.imagePath, "/"), url.PathEscape(ref.ID))
	if ref.Hint != "" {
		u += "?hint=" + url.QueryEscape(string(ref.Hint))
	}
	return u
}

// articleImageURL is the transport URL that resolves an article's image.
func (s *Service) articleImageURL(articleID string) string {
	return fmt.Sprintf("%s/article/%s", strings.TrimRight(s.imagePath, "/"), url.PathEscape(articleID))
}

func (s *Service) perspectiveView(c *cluster.Cluster, side cluster.Side, ref *resolve.ImageRef) PerspectiveView {
	p := c.Perspective(side)

	articles := make([]ArticleView, 0, len(p.ArticleIDs))
	for i, id := range p.ArticleIDs {
		v := ArticleView{ArticleID: id, ImageURL: s.articleImageURL(id)}
		if i < len(p.ArticleURLs) {
			v.URL = p.ArticleURLs[i]
		}
		if i < len(p.Outlets) {
			v.Outlet = p.Outlets[i]
		}
		articles = append(articles, v)
	}

	img := ImageView{Ref: ref}
	if ref != nil {
		img.URL = s.imageURL(ref)
	} else {
		img.URL = s.placeholders.ForCluster(c)
		img.Placeholder = true
	}

	keywords := p.Keywords
	if keywords == nil {
		keywords = []cluster.Keyword{}
	}
	outlets := p.Outlets
	if outlets == nil {
		outlets = []string{}
	}

	return PerspectiveView{
		Summary:  p.Summary,
		Keywords: keywords,
		Outlets:  outlets,
		Articles: articles,
		Image:    img,
	}
}

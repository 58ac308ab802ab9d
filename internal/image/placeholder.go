package image

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/color"
	"github.com/onnwee/newsbias/internal/ranking"
)

// Placeholder defaults.
const (
	DefaultPlaceholderBase = "https://via.placeholder.com"
	DefaultTitleLength     = 20
	Ellipsis               = "..."

	// Cluster placeholders are larger than generic ones.
	ClusterWidth  = 400
	ClusterHeight = 250
	GenericWidth  = 300
	GenericHeight = 200

	// DefaultLabel is shown when there is no title.
	DefaultLabel = "이미지 없음"
	// ClusterLabel is shown for a cluster without a title.
	ClusterLabel = "뉴스 클러스터"
)

// PlaceholderConfig configures placeholder URLs.
type PlaceholderConfig struct {
	// BaseURL of the placeholder image service. Defaults to DefaultPlaceholderBase.
	BaseURL string
	// TitleLength is the label length in characters before truncation.
	// Defaults to DefaultTitleLength.
	TitleLength int
}

// Placeholders builds placeholder image URLs.
type Placeholders struct {
	base        string
	titleLength int
}

// NewPlaceholders creates a Placeholders from cfg.
func NewPlaceholders(cfg PlaceholderConfig) *Placeholders {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultPlaceholderBase
	}
	n := cfg.TitleLength
	if n <= 0 {
		n = DefaultTitleLength
	}
	return &Placeholders{base: base, titleLength: n}
}

// Truncate shortens s to n characters and appends Ellipsis when anything was
// cut. Characters are counted as runes, so Hangul titles are never split
// mid-character.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + Ellipsis
}

// ForCluster returns the placeholder URL for c, labelled with its truncated
// title and coloured by its bias band.
func (p *Placeholders) ForCluster(c *cluster.Cluster) string {
	label := Truncate(c.Title, p.titleLength)
	if label == "" {
		label = ClusterLabel
	}
	return p.URL(label, ranking.BandFor(c.BiasRatio), ClusterWidth, ClusterHeight)
}

// ForText returns a generic placeholder URL in the default band.
func (p *Placeholders) ForText(text string) string {
	label := Truncate(text, p.titleLength)
	if label == "" {
		label = DefaultLabel
	}
	return p.URL(label, ranking.BandDefault, GenericWidth, GenericHeight)
}

// URL builds {base}/{w}x{h}/{bg}/{fg}?text={label}.
func (p *Placeholders) URL(label string, band ranking.Band, width, height int) string {
	swatch := color.ForBand(band)
	return fmt.Sprintf("%s/%dx%d/%s/%s?text=%s",
		p.base, width, height, swatch.Background, swatch.Text, url.QueryEscape(label))
}

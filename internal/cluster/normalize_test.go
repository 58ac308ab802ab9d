package cluster

import (
	"errors"
	"testing"
	"time"
)

type hexID string

func (h hexID) Hex() string { return string(h) }

func TestNormalize_RequiredIdentity(t *testing.T) {
	tests := []struct {
		name string
		raw  RawDocument
	}{
		{name: "missing id", raw: RawDocument{"title": "Budget vote"}},
		{name: "missing title", raw: RawDocument{"_id": "c1"}},
		{name: "blank title", raw: RawDocument{"_id": "c1", "title": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("expected ErrInvalidDocument, got %v", err)
			}
		})
	}
}

func TestNormalize_SparseDocument(t *testing.T) {
	c, err := Normalize(RawDocument{"_id": hexID("665f1c"), "title": "Tariff talks"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.ID != "665f1c" {
		t.Errorf("expected ObjectID-like id to render as hex, got %q", c.ID)
	}
	if c.BiasRatio != NeutralBias() {
		t.Errorf("expected neutral bias, got %+v", c.BiasRatio)
	}
	if c.BiasSource != BiasDefaulted {
		t.Errorf("expected BiasDefaulted, got %v", c.BiasSource)
	}
	if c.Category != "" {
		t.Errorf("expected empty category, got %q", c.Category)
	}
	for _, side := range Sides {
		p := c.Perspective(side)
		if p.ArticleIDs == nil || p.ArticleURLs == nil || p.Outlets == nil {
			t.Errorf("%s: expected empty, non-nil arrays", side)
		}
		if p.ImageID != nil {
			t.Errorf("%s: expected no image", side)
		}
	}
	if c.HasContent() {
		t.Error("expected cluster without summaries to have no content")
	}
}

func TestNormalize_FieldConventions(t *testing.T) {
	raw := RawDocument{
		"_id":        "c1",
		"title":      "Chip investment plan",
		"pub_date":   "2025-05-01T13:03:08Z",
		"category":   " 경제 ",
		"bias_ratio": map[string]any{"left": 0.3, "center": 0.4, "right": 0.3},
		"media_counts": map[string]any{
			"연합뉴스": 2,
			"조선일보": float64(1),
			"broken": "x",
		},
		"left": map[string]any{
			"summary":           "Labour groups criticise the plan.",
			"keywords":          []any{map[string]any{"word": "노동권", "score": 0.9}, map[string]any{"word": "", "score": 0.5}},
			"press_list":        []any{"한겨레"},
			"left_article_ids":  []any{"A1"},
			"left_article_urls": []any{"https://example.com/a1"},
		},
		"center": map[string]any{
			"summary":      "The government announced a plan.",
			"outlets":      []string{"연합뉴스"},
			"article_ids":  []string{"A2"},
			"article_urls": []string{"https://example.com/a2"},
			"image_id":     "IMGC",
		},
		"right": map[string]any{
			"press_list":         []any{"조선일보", "동아일보"},
			"right_article_ids":  []any{"A3"},
			"right_article_urls": []any{"https://example.com/a3", "https://example.com/a4"},
		},
	}

	c, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 5, 1, 13, 3, 8, 0, time.UTC)
	if !c.PublishedDate.Equal(want) {
		t.Errorf("expected published date %v, got %v", want, c.PublishedDate)
	}
	if c.Category != "경제" {
		t.Errorf("expected trimmed category, got %q", c.Category)
	}
	if c.BiasSource != BiasStored || c.BiasRatio.Center != 0.4 {
		t.Errorf("unexpected bias %+v (%v)", c.BiasRatio, c.BiasSource)
	}
	if len(c.MediaCounts) != 2 || c.MediaCounts["연합뉴스"] != 2 {
		t.Errorf("unexpected media counts %v", c.MediaCounts)
	}

	left := c.Perspective(Left)
	if len(left.ArticleIDs) != 1 || left.ArticleIDs[0] != "A1" {
		t.Errorf("expected legacy left ids to be canonicalized, got %v", left.ArticleIDs)
	}
	if len(left.Keywords) != 1 {
		t.Errorf("expected blank keyword to be dropped, got %v", left.Keywords)
	}

	center := c.Perspective(Center)
	if len(center.ArticleURLs) != 1 || center.Outlets[0] != "연합뉴스" {
		t.Errorf("expected newer field names to be read, got %+v", center)
	}
	if center.ImageID == nil || *center.ImageID != "IMGC" {
		t.Errorf("expected center image, got %v", center.ImageID)
	}

	right := c.Perspective(Right)
	if !right.Mismatched || len(right.ArticleIDs) != 0 || len(right.ArticleURLs) != 0 {
		t.Errorf("expected mismatched arrays to be emptied, got %+v", right)
	}
	if len(right.Outlets) != 2 {
		t.Errorf("expected outlets kept for display, got %v", right.Outlets)
	}

	if !c.HasContent() {
		t.Error("expected cluster with summaries to have content")
	}
}

func TestNormalize_BiasRatio(t *testing.T) {
	tests := []struct {
		name       string
		bias       any
		wantSource BiasSource
		want       BiasRatio
	}{
		{name: "absent", bias: nil, wantSource: BiasDefaulted, want: NeutralBias()},
		{name: "empty object", bias: map[string]any{}, wantSource: BiasDefaulted, want: NeutralBias()},
		{name: "non numeric", bias: map[string]any{"left": "0.5", "center": 0.5}, wantSource: BiasMalformed, want: NeutralBias()},
		{name: "negative", bias: map[string]any{"left": -0.1, "center": 0.5, "right": 0.6}, wantSource: BiasMalformed, want: NeutralBias()},
		{name: "not an object", bias: "left", wantSource: BiasMalformed, want: NeutralBias()},
		{name: "partial", bias: map[string]any{"right": 1}, wantSource: BiasStored, want: BiasRatio{Right: 1}},
		{name: "drifting", bias: map[string]any{"left": 0.5, "center": 0.5, "right": 0.2}, wantSource: BiasStored, want: BiasRatio{Left: 0.5, Center: 0.5, Right: 0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := RawDocument{"_id": "c1", "title": "t"}
			if tt.bias != nil {
				raw["bias_ratio"] = tt.bias
			}
			c, err := Normalize(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.BiasSource != tt.wantSource {
				t.Errorf("expected source %v, got %v", tt.wantSource, c.BiasSource)
			}
			if c.BiasRatio != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, c.BiasRatio)
			}
		})
	}
}

func TestNormalize_DateFallbacks(t *testing.T) {
	c, err := Normalize(RawDocument{"_id": "c1", "title": "t", "pub_date": "", "crawl_date": "2025-05-02"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.PublishedDate.Format("2006-01-02"); got != "2025-05-02" {
		t.Errorf("expected crawl_date fallback, got %s", got)
	}

	c, err = Normalize(RawDocument{"_id": "c2", "title": "t", "pub_date": "not a date"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.PublishedDate.IsZero() {
		t.Errorf("expected zero date for unparseable value, got %v", c.PublishedDate)
	}
}

func TestParseSide(t *testing.T) {
	if s, ok := ParseSide(" Center "); !ok || s != Center {
		t.Errorf("expected center, got %q %v", s, ok)
	}
	if _, ok := ParseSide("middle"); ok {
		t.Error("expected unknown side to be rejected")
	}
}

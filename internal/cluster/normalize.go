package cluster

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidDocument is returned when a document lacks an identity field.
var ErrInvalidDocument = errors.New("invalid cluster document")

// RawDocument is a stored cluster document as decoded by a store driver.
// Nested documents are map[string]any and arrays are []any.
type RawDocument map[string]any

// DateFields are the publish-date fields in precedence order. The first one
// holding a usable date wins.
var DateFields = []string{"pub_date", "crawl_date", "created_at"}

// dateLayouts are tried in order when a date is stored as a string.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize maps a raw document onto the canonical Cluster shape.
//
// Both historical per-side field conventions are accepted: the older
// "<side>_article_ids"/"<side>_article_urls" names and the newer
// "article_ids"/"article_urls". Only a missing id or title is an error.
func Normalize(raw RawDocument) (*Cluster, error) {
	id := identity(raw["_id"])
	if id == "" {
		id = identity(raw["id"])
	}
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidDocument)
	}

	title := strings.TrimSpace(str(raw["title"]))
	if title == "" {
		return nil, fmt.Errorf("%w: cluster %s has no title", ErrInvalidDocument, id)
	}

	c := &Cluster{
		ID:           id,
		Title:        title,
		Category:     strings.TrimSpace(str(raw["category"])),
		MediaCounts:  mediaCounts(raw["media_counts"]),
		Perspectives: make(map[Side]*Perspective, len(Sides)),
	}

	for _, key := range DateFields {
		if t, ok := parseDate(raw[key]); ok {
			c.PublishedDate = t
			break
		}
	}

	c.BiasRatio, c.BiasSource = biasRatio(raw["bias_ratio"])

	if img := optionalID(raw["image_file_id"]); img != nil {
		c.RepresentativeImageID = img
	} else {
		c.RepresentativeImageID = optionalID(raw["representative_image_id"])
	}

	for _, side := range Sides {
		c.Perspectives[side] = perspective(side, asMap(raw[string(side)]))
	}

	return c, nil
}

func perspective(side Side, m map[string]any) *Perspective {
	p := &Perspective{
		Summary:  strings.TrimSpace(str(m["summary"])),
		Keywords: keywords(m["keywords"]),
	}

	p.Outlets = firstStrings(m, "press_list", "outlets")
	ids := firstStrings(m, string(side)+"_article_ids", "article_ids")
	urls := firstStrings(m, string(side)+"_article_urls", "article_urls")

	if lengthsAgree(len(ids), len(urls), len(p.Outlets)) {
		p.ArticleIDs = ids
		p.ArticleURLs = urls
	} else {
		p.ArticleIDs = []string{}
		p.ArticleURLs = []string{}
		p.Mismatched = true
	}

	if img := optionalID(m["image_file_id"]); img != nil {
		p.ImageID = img
	} else {
		p.ImageID = optionalID(m["image_id"])
	}
	return p
}

// lengthsAgree reports whether every non-empty positional array has the
// same length.
func lengthsAgree(lengths ...int) bool {
	n := -1
	for _, l := range lengths {
		if l == 0 {
			continue
		}
		if n >= 0 && l != n {
			return false
		}
		n = l
	}
	return true
}

func biasRatio(v any) (BiasRatio, BiasSource) {
	if v == nil {
		return NeutralBias(), BiasDefaulted
	}
	m := asMap(v)
	if m == nil {
		return NeutralBias(), BiasMalformed
	}

	var r BiasRatio
	targets := []struct {
		key string
		dst *float64
	}{
		{"left", &r.Left},
		{"center", &r.Center},
		{"right", &r.Right},
	}

	missing := 0
	for _, t := range targets {
		raw, ok := m[t.key]
		if !ok || raw == nil {
			missing++
			continue
		}
		f, ok := number(raw)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return NeutralBias(), BiasMalformed
		}
		*t.dst = f
	}
	if missing == len(targets) {
		return NeutralBias(), BiasDefaulted
	}
	return r, BiasStored
}

func keywords(v any) []Keyword {
	items := asSlice(v)
	out := make([]Keyword, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		word := strings.TrimSpace(str(m["word"]))
		if word == "" {
			continue
		}
		score, _ := number(m["score"])
		if math.IsNaN(score) {
			score = 0
		}
		out = append(out, Keyword{Word: word, Score: math.Max(0, math.Min(1, score))})
	}
	return out
}

func mediaCounts(v any) map[string]int {
	out := make(map[string]int)
	for name, raw := range asMap(v) {
		n, ok := number(raw)
		if !ok || n < 0 || math.IsNaN(n) {
			continue
		}
		out[name] = int(n)
	}
	return out
}

// firstStrings returns the string array stored under the first present key.
func firstStrings(m map[string]any, keys ...string) []string {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		items := asSlice(v)
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, identity(item))
		}
		return out
	}
	return []string{}
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case RawDocument:
		return m
	}
	return nil
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out
	}
	return nil
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// identity renders an id value (string, ObjectID-like or number) as a string.
func identity(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case interface{ Hex() string }:
		return id.Hex()
	case fmt.Stringer:
		return id.String()
	case float64, int, int32, int64:
		return fmt.Sprint(id)
	}
	return ""
}

func optionalID(v any) *string {
	id := identity(v)
	if id == "" {
		return nil
	}
	return &id
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func parseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), !d.IsZero()
	case interface{ Time() time.Time }:
		t := d.Time()
		return t.UTC(), !t.IsZero()
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

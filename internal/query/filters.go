package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/ranking"
)

// ErrInvalidFilter is returned by BuildQuery for unusable filter values.
var ErrInvalidFilter = errors.New("invalid filter")

// DayLayout is the calendar-day form accepted for date filters.
const DayLayout = "2006-01-02"

// Filters are the raw, caller-supplied listing options.
type Filters struct {
	DateFrom    string
	DateTo      string
	Category    string
	Search      string
	Sort        string
	ContentOnly bool
}

// Descriptor is a validated query ready to run against a ClusterStore.
//
// From is inclusive and To is exclusive. A date-only DateTo covers the whole
// day, so To is midnight of the following day.
type Descriptor struct {
	From        *time.Time
	To          *time.Time
	Category    string
	Search      string
	Sort        ranking.Mode
	ContentOnly bool
	Skip        int
	Limit       int // 0 means no limit
}

// BuildQuery validates filters and returns the equivalent descriptor.
func BuildQuery(f Filters) (Descriptor, error) {
	d := Descriptor{
		Category:    strings.TrimSpace(f.Category),
		Search:      strings.TrimSpace(f.Search),
		ContentOnly: f.ContentOnly,
	}

	mode, ok := ranking.ParseMode(strings.ToLower(strings.TrimSpace(f.Sort)))
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: unknown sort %q", ErrInvalidFilter, f.Sort)
	}
	d.Sort = mode

	if s := strings.TrimSpace(f.DateFrom); s != "" {
		from, _, err := parseBound(s)
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: dateFrom: %v", ErrInvalidFilter, err)
		}
		d.From = &from
	}
	if s := strings.TrimSpace(f.DateTo); s != "" {
		to, dayOnly, err := parseBound(s)
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: dateTo: %v", ErrInvalidFilter, err)
		}
		if dayOnly {
			to = to.AddDate(0, 0, 1)
		} else {
			to = to.Add(time.Nanosecond)
		}
		d.To = &to
	}
	if d.From != nil && d.To != nil && !d.From.Before(*d.To) {
		return Descriptor{}, fmt.Errorf("%w: dateFrom is after dateTo", ErrInvalidFilter)
	}

	return d, nil
}

func parseBound(s string) (t time.Time, dayOnly bool, err error) {
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t.UTC(), true, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected %s or RFC3339, got %q", DayLayout, s)
	}
	return t.UTC(), false, nil
}

// WithPage returns a copy of d with skip and limit set for page.
func (d Descriptor) WithPage(page, limit int) Descriptor {
	d.Skip = (page - 1) * limit
	d.Limit = limit
	return d
}

// Unpaged returns a copy of d without skip or limit.
func (d Descriptor) Unpaged() Descriptor {
	d.Skip, d.Limit = 0, 0
	return d
}

// Match reports whether c satisfies every filter in d.
func (d Descriptor) Match(c *cluster.Cluster) bool {
	if d.ContentOnly && !c.HasContent() {
		return false
	}
	if d.Category != "" && c.Category != d.Category {
		return false
	}
	if d.From != nil && c.PublishedDate.Before(*d.From) {
		return false
	}
	if d.To != nil && !c.PublishedDate.Before(*d.To) {
		return false
	}
	if d.Search != "" && !matchText(c, d.Search) {
		return false
	}
	return true
}

// matchText is a case-insensitive OR over the title and the three summaries.
func matchText(c *cluster.Cluster, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(c.Title), needle) {
		return true
	}
	for _, side := range cluster.Sides {
		if strings.Contains(strings.ToLower(c.Perspective(side).Summary), needle) {
			return true
		}
	}
	return false
}

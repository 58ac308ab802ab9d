package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/stats"
)

// params reads query parameters and collects every parse problem so one
// response can report them all.
type params struct {
	values url.Values
	errs   []string
}

func newParams(values url.Values) *params {
	return &params{values: values}
}

func (p *params) str(name string) string {
	return strings.TrimSpace(p.values.Get(name))
}

// int returns 0 for an absent parameter.
func (p *params) int(name string) int {
	s := p.str(name)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s must be an integer", name))
		return 0
	}
	return n
}

// nonNegative is int with negative values rejected.
func (p *params) nonNegative(name string) int {
	n := p.int(name)
	if n < 0 {
		p.errs = append(p.errs, fmt.Sprintf("%s must not be negative", name))
		return 0
	}
	return n
}

func (p *params) bool(name string) bool {
	s := p.str(name)
	if s == "" {
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s must be a boolean", name))
	}
	return b
}

// side returns def when the parameter is absent.
func (p *params) side(name string, def cluster.Side) cluster.Side {
	s := p.str(name)
	if s == "" {
		return def
	}
	side, ok := cluster.ParseSide(s)
	if !ok {
		p.errs = append(p.errs, fmt.Sprintf("%s must be one of left, center, right", name))
		return def
	}
	return side
}

// filters reads the listing filters. Date and sort values are validated by
// the service.
func (p *params) filters() query.Filters {
	return query.Filters{
		DateFrom: p.str("dateFrom"),
		DateTo:   p.str("dateTo"),
		Category: p.str("category"),
		Search:   p.str("search"),
		Sort:     p.str("sort"),
	}
}

// statsRequest reads the rollup selection and options.
func (p *params) statsRequest() stats.Request {
	req := stats.Request{
		KeywordSide:  p.side("side", cluster.Left),
		KeywordLimit: p.nonNegative("keywordLimit"),
		Categories: stats.CategoryOptions{
			IncludeUnclassified: p.bool("unclassified"),
		},
	}

	granularity, ok := stats.ParseGranularity(p.str("granularity"))
	if !ok {
		p.errs = append(p.errs, "granularity must be day or month")
	}
	req.Granularity = granularity

	if s := p.str("rollups"); s != "" {
		for _, name := range strings.Split(s, ",") {
			rollup, ok := parseRollup(name)
			if !ok {
				p.errs = append(p.errs, fmt.Sprintf("unknown rollup %q", strings.TrimSpace(name)))
				continue
			}
			req.Rollups = append(req.Rollups, rollup)
		}
	}
	return req
}

func parseRollup(s string) (stats.Rollup, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range stats.AllRollups {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// err returns the collected problems as one message, or "".
func (p *params) err() string {
	return strings.Join(p.errs, "; ")
}

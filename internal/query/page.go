package query

// Default page size limits.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Limits holds the configured default and maximum page sizes.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns the stock page size limits.
func DefaultLimits() Limits {
	return Limits{Default: DefaultLimit, Max: MaxLimit}
}

// Clamp applies the page size limits. A page below 1 becomes 1, a missing
// limit becomes Default and a limit above Max becomes Max.
func (l Limits) Clamp(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = l.Default
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if l.Max > 0 && limit > l.Max {
		limit = l.Max
	}
	return page, limit
}

// Pagination is the metadata attached to a paged result.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginate computes pagination metadata. page and limit are clamped to at
// least 1 and TotalPages is never below 1.
func Paginate(total, page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if total < 0 {
		total = 0
	}
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// Page is one page of items.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPage wraps an already sliced page of items.
func NewPage[T any](items []T, total, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: Paginate(total, page, limit)}
}

// PageOf slices the full result set down to the requested page.
func PageOf[T any](all []T, page, limit int) Page[T] {
	p := Paginate(len(all), page, limit)
	start := (p.Page - 1) * p.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	items := make([]T, end-start)
	copy(items, all[start:end])
	return Page[T]{Items: items, Pagination: p}
}

// Map converts the items of a page, keeping its pagination.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Items))
	for i, item := range p.Items {
		out[i] = fn(item)
	}
	return Page[U]{Items: out, Pagination: p.Pagination}
}

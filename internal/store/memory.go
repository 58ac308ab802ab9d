package store

import (
	"context"
	"sort"
	"sync"

	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/ranking"
)

// MemoryClusterStore is a ClusterStore over an in-process document set.
// Documents that fail normalization never match a filter but can still be
// fetched by id.
type MemoryClusterStore struct {
	mu   sync.RWMutex
	docs map[string]cluster.RawDocument
	err  error
}

// NewMemoryClusterStore creates a store holding docs, keyed by "_id" or "id".
func NewMemoryClusterStore(docs ...cluster.RawDocument) *MemoryClusterStore {
	s := &MemoryClusterStore{docs: make(map[string]cluster.RawDocument)}
	for _, doc := range docs {
		s.Put(doc)
	}
	return s
}

// Put adds or replaces a document.
func (s *MemoryClusterStore) Put(doc cluster.RawDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docID(doc)] = doc
}

// SetError makes every subsequent call fail with ErrUpstreamUnavailable
// wrapping err. A nil err restores normal operation.
func (s *MemoryClusterStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func docID(doc cluster.RawDocument) string {
	if c, err := cluster.Normalize(doc); err == nil {
		return c.ID
	}
	if id, ok := doc["_id"].(string); ok {
		return id
	}
	id, _ := doc["id"].(string)
	return id
}

type entry struct {
	raw cluster.RawDocument
	c   *cluster.Cluster
}

// matching returns the normalized documents that satisfy q, newest first.
func (s *MemoryClusterStore) matching(q query.Descriptor) ([]entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, upstream(s.err)
	}

	out := make([]entry, 0, len(s.docs))
	for _, raw := range s.docs {
		c, err := cluster.Normalize(raw)
		if err != nil || !q.Match(c) {
			continue
		}
		out = append(out, entry{raw: raw, c: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ranking.LessLatest(out[i].c, out[j].c)
	})
	return out, nil
}

// Find implements ClusterStore.
func (s *MemoryClusterStore) Find(_ context.Context, q query.Descriptor) ([]cluster.RawDocument, error) {
	entries, err := s.matching(q)
	if err != nil {
		return nil, err
	}

	start := min(max(q.Skip, 0), len(entries))
	end := len(entries)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	out := make([]cluster.RawDocument, 0, end-start)
	for _, e := range entries[start:end] {
		out = append(out, e.raw)
	}
	return out, nil
}

// Count implements ClusterStore.
func (s *MemoryClusterStore) Count(_ context.Context, q query.Descriptor) (int, error) {
	entries, err := s.matching(q.Unpaged())
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// FindByID implements ClusterStore.
func (s *MemoryClusterStore) FindByID(_ context.Context, id string) (cluster.RawDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, upstream(s.err)
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Aggregate implements ClusterStore. Groups come back ordered by key
// descending for days and by count descending (then key) for categories.
func (s *MemoryClusterStore) Aggregate(_ context.Context, p Pipeline) ([]Group, error) {
	entries, err := s.matching(p.Filter.Unpaged())
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, e := range entries {
		key := groupKey(e.c, p.GroupBy)
		if key == "" {
			continue
		}
		counts[key]++
	}
	return sortGroups(counts, p.GroupBy), nil
}

func groupKey(c *cluster.Cluster, field GroupField) string {
	switch field {
	case GroupByCategory:
		return c.Category
	case GroupByDay:
		if c.PublishedDate.IsZero() {
			return ""
		}
		return c.PublishedDate.Format(query.DayLayout)
	}
	return ""
}

func sortGroups(counts map[string]int, field GroupField) []Group {
	groups := make([]Group, 0, len(counts))
	for k, n := range counts {
		groups = append(groups, Group{Key: k, Count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if field == GroupByDay {
			return groups[i].Key > groups[j].Key
		}
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

// MemoryArticleLookup is an ArticleLookup over a fixed article set.
type MemoryArticleLookup struct {
	mu       sync.RWMutex
	articles map[string]cluster.Article
	errs     map[string]error
	calls    map[string]int
}

// NewMemoryArticleLookup creates a lookup holding articles.
func NewMemoryArticleLookup(articles ...cluster.Article) *MemoryArticleLookup {
	l := &MemoryArticleLookup{
		articles: make(map[string]cluster.Article),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
	for _, a := range articles {
		l.articles[a.ID] = a
	}
	return l
}

// FailOn makes lookups of articleID fail with ErrUpstreamUnavailable.
func (l *MemoryArticleLookup) FailOn(articleID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs[articleID] = err
}

// Calls reports how many times articleID was looked up.
func (l *MemoryArticleLookup) Calls(articleID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.calls[articleID]
}

// FindImageID implements ArticleLookup.
func (l *MemoryArticleLookup) FindImageID(_ context.Context, articleID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls[articleID]++
	if err, ok := l.errs[articleID]; ok {
		return "", upstream(err)
	}
	a, ok := l.articles[articleID]
	if !ok {
		return "", ErrNotFound
	}
	if a.ImageID == nil {
		return "", nil
	}
	return *a.ImageID, nil
}

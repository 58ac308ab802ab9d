package stats

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// SkipStats counts documents left out of a computation.
// All operations are thread-safe using atomic counters.
type SkipStats struct {
	invalid   int64 // failed normalization
	malformed int64 // unusable bias ratio
}

// NewSkipStats creates a new SkipStats instance.
func NewSkipStats() *SkipStats {
	return &SkipStats{}
}

// RecordInvalid counts a document that failed normalization.
func (s *SkipStats) RecordInvalid() {
	atomic.AddInt64(&s.invalid, 1)
}

// AddInvalid counts n documents that failed normalization elsewhere.
func (s *SkipStats) AddInvalid(n int64) {
	if n <= 0 {
		return
	}
	atomic.AddInt64(&s.invalid, n)
}

// RecordMalformed counts a cluster whose bias ratio was unusable.
func (s *SkipStats) RecordMalformed() {
	atomic.AddInt64(&s.malformed, 1)
}

// Invalid returns the number of documents that failed normalization.
func (s *SkipStats) Invalid() int64 {
	return atomic.LoadInt64(&s.invalid)
}

// Malformed returns the number of clusters with an unusable bias ratio.
func (s *SkipStats) Malformed() int64 {
	return atomic.LoadInt64(&s.malformed)
}

// Total returns every skipped document.
func (s *SkipStats) Total() int64 {
	return s.Invalid() + s.Malformed()
}

// String returns a human-readable summary.
func (s *SkipStats) String() string {
	return fmt.Sprintf("invalid=%d malformed=%d total=%d", s.Invalid(), s.Malformed(), s.Total())
}

// LogSummary logs the counters at WARN when anything was skipped.
func (s *SkipStats) LogSummary(logger *slog.Logger, scope string) {
	if s.Total() == 0 {
		return
	}
	logger.Warn("documents skipped",
		"scope", scope,
		"invalid", s.Invalid(),
		"malformed", s.Malformed(),
		"total", s.Total(),
	)
}

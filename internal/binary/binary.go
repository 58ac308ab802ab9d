// Package binary retrieves chunked image objects from a binary object store.
//
// Objects live in one of several named buckets. The Gateway probes the bucket
// matching the caller's hint first and then the remaining buckets in their
// configured order, reassembling the first object it finds from chunks sorted
// by index.
package binary

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no bucket holds a readable object for an id.
var ErrNotFound = errors.New("binary object not found")

// Hint tells the gateway which bucket to try first.
type Hint string

const (
	// HintNone probes buckets in configured order.
	HintNone Hint = ""
	// HintGeneral marks images stored on clusters or perspectives.
	HintGeneral Hint = "general"
	// HintArticle marks images stored on articles.
	HintArticle Hint = "article"
)

// ParseHint returns the hint for s. Unknown values map to HintNone.
func ParseHint(s string) Hint {
	switch Hint(s) {
	case HintGeneral, HintArticle:
		return Hint(s)
	}
	return HintNone
}

// Default bucket names, in probe order.
const (
	BucketThumbnails    = "thumbnails"
	BucketArticleImages = "article_images"
	BucketFS            = "fs"
)

// DefaultBuckets is the probe order used when none is configured.
var DefaultBuckets = []string{BucketThumbnails, BucketArticleImages, BucketFS}

// DefaultHintBuckets maps each hint to the bucket probed first.
var DefaultHintBuckets = map[Hint]string{
	HintGeneral: BucketThumbnails,
	HintArticle: BucketArticleImages,
}

// Metadata describes a stored object.
type Metadata struct {
	ContentType string
	Length      int64
}

// Chunk is one piece of an object. Index is its position, starting at 0.
type Chunk struct {
	Index int
	Data  []byte
}

// Store reads objects from named buckets.
//
// GetMetadata returns ErrNotFound when bucket has no object with id. Chunks
// may be returned in any order; the gateway sorts them by Index.
type Store interface {
	GetMetadata(ctx context.Context, id, bucket string) (*Metadata, error)
	GetChunks(ctx context.Context, id, bucket string) ([]Chunk, error)
}

// Object is a reassembled binary object.
type Object struct {
	ID          string
	Bucket      string
	ContentType string
	Data        []byte
}

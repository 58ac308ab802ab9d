// Package cache keeps last-known-good response snapshots.
//
// The transport stores every successful read response under a key derived
// from its route and query. When a later request for the same key fails with
// an upstream outage, the stored snapshot is served instead. The core never
// reads from this cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrMiss is returned when no snapshot exists for a key.
var ErrMiss = errors.New("snapshot not found")

// DefaultTTL is how long snapshots are kept.
const DefaultTTL = 24 * time.Hour

// Snapshot is a stored response body.
type Snapshot struct {
	Body        []byte    `cbor:"body"`
	ContentType string    `cbor:"content_type"`
	StoredAt    time.Time `cbor:"stored_at"`
}

// Age returns how old the snapshot is at now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s.StoredAt.IsZero() || now.Before(s.StoredAt) {
		return 0
	}
	return now.Sub(s.StoredAt)
}

// Store reads and writes snapshots. Get returns ErrMiss for unknown keys.
type Store interface {
	Get(ctx context.Context, key string) (*Snapshot, error)
	Put(ctx context.Context, key string, s *Snapshot) error
}

// Key builds the snapshot key for a route and its query. Query parameters
// are sorted so equivalent requests share a key.
func Key(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Encode serializes a snapshot as CBOR.
func Encode(s *Snapshot) ([]byte, error) {
	data, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a CBOR snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

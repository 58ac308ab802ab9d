package binary

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type memoryObject struct {
	meta   Metadata
	chunks []Chunk
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]memoryObject
	failing map[string]error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]map[string]memoryObject),
		failing: make(map[string]error),
	}
}

// Put stores chunks under id in bucket, in the order given.
func (s *MemoryStore) Put(bucket, id, contentType string, chunks ...Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var length int64
	for _, c := range chunks {
		length += int64(len(c.Data))
	}
	if s.buckets[bucket] == nil {
		s.buckets[bucket] = make(map[string]memoryObject)
	}
	s.buckets[bucket][id] = memoryObject{
		meta:   Metadata{ContentType: contentType, Length: length},
		chunks: slices.Clone(chunks),
	}
}

// PutBytes splits data into chunkSize pieces and stores them.
func (s *MemoryStore) PutBytes(bucket, id, contentType string, data []byte, chunkSize int) {
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	var chunks []Chunk
	for i := 0; i*chunkSize < len(data); i++ {
		end := min((i+1)*chunkSize, len(data))
		chunks = append(chunks, Chunk{Index: i, Data: data[i*chunkSize : end]})
	}
	s.Put(bucket, id, contentType, chunks...)
}

// Fail makes every call against bucket return err.
func (s *MemoryStore) Fail(bucket string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[bucket] = err
}

// GetMetadata implements Store.
func (s *MemoryStore) GetMetadata(_ context.Context, id, bucket string) (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failing[bucket]; err != nil {
		return nil, err
	}
	obj, ok := s.buckets[bucket][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, id)
	}
	meta := obj.meta
	return &meta, nil
}

// GetChunks implements Store.
func (s *MemoryStore) GetChunks(_ context.Context, id, bucket string) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failing[bucket]; err != nil {
		return nil, err
	}
	return slices.Clone(s.buckets[bucket][id].chunks), nil
}

package ratelimit

import (
	"context"
	"sync"
)

// MemoryStore はプロセス内のmapにBucketを保持するStore。
// エントリは削除しないため、キーの種類数に比例してメモリが増える。
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]Bucket
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]Bucket),
	}
}

// Get はキーに対応するBucketを返す。
func (s *MemoryStore) Get(_ context.Context, key string) (Bucket, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[key]
	return b, ok, nil
}

// Put はキーに対応するBucketを上書きする。
func (s *MemoryStore) Put(_ context.Context, key string, b Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[key] = b
	return nil
}

// Len は保持しているBucketの数を返す。テストおよびメトリクス用。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}

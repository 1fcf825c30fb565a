package memory

import (
	"context"
	"fmt"

	"github.com/goodtune/pqoptimizer/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize bounds the number of keys kept by an in-memory store.
const DefaultSize = 128

// Store is an ephemeral storage.KVStore backed by an LRU cache.
// Contents are lost on restart; intended for development and tests.
type Store struct {
	cache *lru.Cache[string, []byte]
}

// Open creates an in-memory store holding at most size keys.
func Open(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create memory store: %w", err)
	}
	return &Store{cache: cache}, nil
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := s.cache.Get(key)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put stores a copy of value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Add(key, append([]byte(nil), value...))
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Remove(key)
	return nil
}

// Close purges the cache.
func (s *Store) Close() error {
	s.cache.Purge()
	return nil
}

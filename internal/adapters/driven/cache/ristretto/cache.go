// Package ristretto provides an EmbeddingCache backed by dgraph-io/ristretto.
package ristretto

import (
	"fmt"
	"slices"

	"github.com/dgraph-io/ristretto"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// DefaultSize is the number of vectors kept when no size is configured.
const DefaultSize = 10000

// Cache is a bounded, concurrent vector cache. Every entry costs 1, so
// the size bounds the number of vectors rather than their bytes.
type Cache struct {
	c *ristretto.Cache
}

var _ driven.EmbeddingCache = (*Cache)(nil)

// New creates a cache holding up to size vectors.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(size) * 10,
		MaxCost:     int64(size),
		BufferItems: 64,
		// Cost is entry count; ristretto's per-item overhead must not count.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cache{c: c}, nil
}

// Get returns a copy of the cached vector.
func (c *Cache) Get(key string) ([]float32, bool) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float32)
	if !ok {
		return nil, false
	}
	return slices.Clone(vec), true
}

// Set stores a copy of vector. Writes are buffered and may be rejected
// by the admission policy.
func (c *Cache) Set(key string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	c.c.Set(key, slices.Clone(vector), 1)
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() {
	c.c.Wait()
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}

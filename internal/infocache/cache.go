// Package infocache holds the bounded lookup caches of the decode pipeline.
//
// Both caches are pure memoization: each Get or Put is atomic, but callers
// that check, compute and then store may race and compute the same value
// twice. The last write wins.
package infocache

import (
	"fmt"

	"media-decoder/internal/decode"
	"media-decoder/internal/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the entry limit used when none is configured.
const DefaultCapacity = 16384

// Cache is a fixed-capacity LRU keyed by resource locator.
type Cache[V any] struct {
	name string
	lru  *lru.Cache[string, V]
}

// New creates a named cache. The name labels its metrics. A non-positive
// capacity falls back to DefaultCapacity.
func New[V any](name string, capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	evictions := metrics.LookupCacheEvictions.WithLabelValues(name)
	l, err := lru.NewWithEvict[string, V](capacity, func(string, V) {
		evictions.Inc()
	})
	if err != nil {
		// only reachable with a non-positive size
		panic(fmt.Sprintf("infocache: %v", err))
	}

	return &Cache[V]{name: name, lru: l}
}

// Get returns the value stored for key and marks it recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		metrics.LookupCacheHits.WithLabelValues(c.name).Inc()
	} else {
		metrics.LookupCacheMisses.WithLabelValues(c.name).Inc()
	}
	return v, ok
}

// Put stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache[V]) Put(key string, value V) {
	c.lru.Add(key, value)
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Name returns the metrics label of the cache.
func (c *Cache[V]) Name() string {
	return c.name
}

// ClassificationCache maps a locator to "is motion-media".
type ClassificationCache = Cache[bool]

// NewClassificationCache creates the classification cache.
func NewClassificationCache(capacity int) *ClassificationCache {
	return New[bool]("classification", capacity)
}

// OrientationCache maps a locator to its resolved rotation in degrees.
// Mirroring is not stored.
type OrientationCache struct {
	*Cache[int]
}

// NewOrientationCache creates the orientation cache.
func NewOrientationCache(capacity int) *OrientationCache {
	return &OrientationCache{Cache: New[int]("orientation", capacity)}
}

// Put stores rotation normalized into [0,360).
func (c *OrientationCache) Put(key string, rotation int) {
	c.Cache.Put(key, decode.NormalizeRotation(rotation))
}

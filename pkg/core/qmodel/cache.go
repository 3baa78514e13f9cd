package qmodel

import (
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"fusion_costing/pkg/models"
)

// Key identifies a memoized estimate.
type Key struct {
	SizeMW     float64
	Technology models.Technology
}

// Cache memoizes Q estimates. Implementations must be safe for concurrent use;
// two goroutines racing on the same key may both compute it.
type Cache interface {
	Get(k Key) (float64, bool)
	Add(k Key, q float64)
	Len() int
	Purge()
}

// LRUCache is a bounded least-recently-used cache.
type LRUCache struct {
	c *lru.Cache[Key, float64]
}

// NewLRUCache creates a bounded cache holding at most size entries.
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[Key, float64](size)
	if err != nil {
		return nil, fmt.Errorf("q cache size %d: %w", size, err)
	}
	return &LRUCache{c: c}, nil
}

func (l *LRUCache) Get(k Key) (float64, bool) { return l.c.Get(k) }
func (l *LRUCache) Add(k Key, q float64)      { l.c.Add(k, q) }
func (l *LRUCache) Len() int                  { return l.c.Len() }
func (l *LRUCache) Purge()                    { l.c.Purge() }

// MapCache is an unbounded cache guarded by a RWMutex.
type MapCache struct {
	mu sync.RWMutex
	m  map[Key]float64
}

// NewMapCache creates an empty unbounded cache.
func NewMapCache() *MapCache {
	return &MapCache{m: make(map[Key]float64)}
}

func (c *MapCache) Get(k Key) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.m[k]
	return q, ok
}

func (c *MapCache) Add(k Key, q float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = q
}

func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *MapCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[Key]float64)
}

// CacheStats counts cache traffic for an Estimator.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// Estimator wraps the pure curve with a memo cache.
type Estimator struct {
	cache  Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewEstimator builds an estimator over cache. A nil cache disables memoization.
func NewEstimator(cache Cache) *Estimator {
	return &Estimator{cache: cache}
}

// Estimate returns the memoized estimate for (size, technology).
func (e *Estimator) Estimate(size float64, t models.Technology) (Estimate, error) {
	if err := checkSize(size); err != nil {
		return Estimate{}, err
	}
	c, warnings := resolve(t)
	out := Estimate{SizeMW: size, Technology: c.Technology, Warnings: warnings}

	if e == nil || e.cache == nil {
		out.Q = c.Evaluate(size)
		return out, nil
	}

	key := Key{SizeMW: size, Technology: c.Technology}
	if q, ok := e.cache.Get(key); ok {
		e.hits.Add(1)
		out.Q = q
		return out, nil
	}
	e.misses.Add(1)
	out.Q = c.Evaluate(size)
	e.cache.Add(key, out.Q)
	return out, nil
}

// Stats reports hit/miss counters and the current cache size.
func (e *Estimator) Stats() CacheStats {
	s := CacheStats{Hits: e.hits.Load(), Misses: e.misses.Load()}
	if e.cache != nil {
		s.Size = e.cache.Len()
	}
	return s
}

// Reset purges the cache and zeroes the counters.
func (e *Estimator) Reset() {
	if e.cache != nil {
		e.cache.Purge()
	}
	e.hits.Store(0)
	e.misses.Store(0)
}

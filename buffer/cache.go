// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package buffer

import (
	"container/list"
	"sync"
	"sync/atomic"
)

const (
	// cacheShards must be a power of 2 for mask-based shard selection.
	cacheShards = 16
	cacheMask   = cacheShards - 1

	// DefaultCacheCapacity is the per-shard capacity used when
	// NewCachedGetter is given a non-positive capacity.
	DefaultCacheCapacity = 64
)

// CachedGetter memoizes another Getter by handle key.
//
// The composability predicate describes every layer's buffer on every
// frame, and most buffers are reused across frames from a small swapchain,
// so successful and failed extractions are both cached. Callers must
// Invalidate a handle when its allocation is freed, since keys can be
// reused afterwards.
//
// CachedGetter is safe for concurrent use; displays validating on
// different goroutines share one instance.
type CachedGetter struct {
	next     Getter
	capacity int
	shards   [cacheShards]*cacheShard

	hits   atomic.Uint64
	misses atomic.Uint64
}

type cacheShard struct {
	mu      sync.Mutex
	entries map[uint64]*list.Element
	lru     *list.List // front is most recently used
}

type cacheEntry struct {
	key  uint64
	desc *Descriptor
	err  error
}

// NewCachedGetter wraps next with an LRU cache holding up to capacity
// entries per shard.
func NewCachedGetter(next Getter, capacity int) *CachedGetter {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c := &CachedGetter{next: next, capacity: capacity}
	for i := range c.shards {
		c.shards[i] = &cacheShard{
			entries: make(map[uint64]*list.Element),
			lru:     list.New(),
		}
	}
	return c
}

func (c *CachedGetter) shard(key uint64) *cacheShard {
	// Handle keys are often sequential; mix before masking.
	key ^= key >> 33
	key *= 0xff51afd7ed558ccd
	key ^= key >> 33
	return c.shards[key&cacheMask]
}

// Describe implements Getter. The returned descriptor is shared and must
// not be modified.
func (c *CachedGetter) Describe(h Handle) (*Descriptor, error) {
	if h == nil {
		return nil, ErrUnsupportedHandle
	}
	key := h.Key()
	s := c.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.lru.MoveToFront(el)
		c.hits.Add(1)
		e := el.Value.(*cacheEntry)
		return e.desc, e.err
	}
	c.misses.Add(1)

	// Extraction runs under the shard lock so concurrent callers for the
	// same handle do not describe it twice.
	desc, err := c.next.Describe(h)

	for s.lru.Len() >= c.capacity {
		oldest := s.lru.Back()
		s.lru.Remove(oldest)
		delete(s.entries, oldest.Value.(*cacheEntry).key)
	}
	s.entries[key] = s.lru.PushFront(&cacheEntry{key: key, desc: desc, err: err})

	return desc, err
}

// Invalidate forgets the cached result for h.
func (c *CachedGetter) Invalidate(h Handle) {
	if h == nil {
		return
	}
	key := h.Key()
	s := c.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.lru.Remove(el)
		delete(s.entries, key)
	}
}

// Len returns the number of cached handles.
func (c *CachedGetter) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// CacheStats holds hit and miss counters.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// Stats returns the cache counters.
func (c *CachedGetter) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

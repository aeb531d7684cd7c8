// Package cache is a typed in-memory cache whose loads are coalesced per key.
// Entries live until their TTL passes or they are deleted. Failed loads are
// never stored.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type Options struct {
	// TTL of zero keeps entries until they are deleted.
	TTL        time.Duration
	MaxEntries int
}

type MetricsHooks struct {
	OnHit   func(labels map[string]string)
	OnMiss  func(labels map[string]string)
	OnStore func(labels map[string]string)
	OnError func(labels map[string]string)
}

type entry[V any] struct {
	value    V
	storedAt time.Time
	lastUsed time.Time
}

type Cache[V any] struct {
	mu      sync.RWMutex
	items   map[string]*entry[V]
	order   []string
	gen     map[string]uint64
	opts    Options
	metrics MetricsHooks
	sf      singleflight.Group
}

// SnapshotEntry is a point-in-time copy of one entry.
type SnapshotEntry[V any] struct {
	Key      string
	Value    V
	StoredAt time.Time
	LastUsed time.Time
}

func New[V any](opts Options, hooks MetricsHooks) *Cache[V] {
	return &Cache[V]{
		items:   make(map[string]*entry[V]),
		order:   make([]string, 0, 32),
		gen:     make(map[string]uint64),
		opts:    opts,
		metrics: hooks,
	}
}

// Loader produces the value for key. It receives a context that is not
// cancelled when the caller that triggered the load goes away.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// Get returns the cached value for key or loads it. Concurrent misses for the
// same key share one load. If ctx ends first Get returns ctx.Err() while the
// load carries on for the remaining waiters.
func (c *Cache[V]) Get(ctx context.Context, key string, loader Loader[V]) (V, error) {
	if v, ok := c.lookup(key); ok {
		c.emit(c.metrics.OnHit, key)
		return v, nil
	}
	c.emit(c.metrics.OnMiss, key)

	c.mu.RLock()
	startGen := c.gen[key]
	c.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(key, func() (interface{}, error) {
		v, err := loader(detached, key)
		if err != nil {
			c.emit(c.metrics.OnError, key)
			return v, err
		}
		c.store(key, v, startGen)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e, now) {
		delete(c.items, key)
		c.removeFromOrder(key)
		var zero V
		return zero, false
	}
	e.lastUsed = now
	return e.value, true
}

func (c *Cache[V]) expired(e *entry[V], now time.Time) bool {
	return c.opts.TTL > 0 && now.Sub(e.storedAt) >= c.opts.TTL
}

// store drops the value when key was deleted after the load started.
func (c *Cache[V]) store(key string, v V, startGen uint64) {
	now := time.Now()
	c.mu.Lock()
	if c.gen[key] != startGen {
		c.mu.Unlock()
		return
	}
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = &entry[V]{value: v, storedAt: now, lastUsed: now}
	c.evictIfNeeded()
	c.mu.Unlock()
	c.emit(c.metrics.OnStore, key)
}

func (c *Cache[V]) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// FIFO eviction
func (c *Cache[V]) evictIfNeeded() {
	if c.opts.MaxEntries <= 0 {
		return
	}
	for len(c.items) > c.opts.MaxEntries && len(c.order) > 0 {
		victim := c.order[0]
		c.order = c.order[1:]
		delete(c.items, victim)
	}
}

func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	c.gen[key]++
	startGen := c.gen[key]
	c.mu.Unlock()
	c.sf.Forget(key)
	c.store(key, v, startGen)
}

// Peek returns a cached value without triggering a load.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || c.expired(e, time.Now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete removes key. A load already running for key will not store its
// result, and the next Get starts a fresh load.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	c.gen[key]++
	delete(c.items, key)
	c.removeFromOrder(key)
	c.mu.Unlock()
	c.sf.Forget(key)
}

// Clear deletes every entry and every running load.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.items)+len(c.gen))
	for k := range c.items {
		keys = append(keys, k)
	}
	for k := range c.gen {
		keys = append(keys, k)
	}
	for _, k := range keys {
		c.gen[k]++
	}
	c.items = make(map[string]*entry[V])
	c.order = c.order[:0]
	c.mu.Unlock()
	for _, k := range keys {
		c.sf.Forget(k)
	}
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Snapshot returns a copy of current entries for debugging.
func (c *Cache[V]) Snapshot() []SnapshotEntry[V] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SnapshotEntry[V], 0, len(c.items))
	for k, e := range c.items {
		out = append(out, SnapshotEntry[V]{
			Key:      k,
			Value:    e.value,
			StoredAt: e.storedAt,
			LastUsed: e.lastUsed,
		})
	}
	return out
}

func (c *Cache[V]) emit(hook func(map[string]string), key string) {
	if hook != nil {
		hook(map[string]string{"key": key})
	}
}

package token

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// backend is what the cache decorates.
type backend interface {
	Put(ctx context.Context, t domain.Token) error
	Get(ctx context.Context, appID, tokenUUID string) (domain.Token, error)
	Delete(ctx context.Context, appID, tokenUUID string) error
	DeleteAll(ctx context.Context, appID string) error
	List(ctx context.Context, appID string) ([]domain.Token, error)
}

// defaultMaxEntries bounds the cache unless WithMaxEntries overrides it.
const defaultMaxEntries = 10000

type cacheEntry struct {
	token     domain.Token
	found     bool
	expiresAt time.Time
}

// Cached keeps token lookups in memory for a TTL, including misses.
// Writes through this decorator invalidate the affected entries; writes made
// by other processes become visible once the TTL elapses. The cache holds at
// most maxEntries entries: expired ones are swept when it fills up, then
// arbitrary ones are evicted.
type Cached struct {
	inner      backend
	ttl        time.Duration
	now        func() time.Time
	cacheTotal *prometheus.CounterVec
	maxEntries int

	mu      sync.RWMutex
	entries map[string]cacheEntry
	// gen advances on every invalidation. A load that started under an older
	// generation is not stored.
	gen uint64
}

// NewCached creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func NewCached(inner backend, ttl time.Duration, cacheTotal *prometheus.CounterVec) *Cached {
	return &Cached{
		inner:      inner,
		ttl:        ttl,
		now:        time.Now,
		cacheTotal: cacheTotal,
		maxEntries: defaultMaxEntries,
		entries:    make(map[string]cacheEntry),
	}
}

// WithMaxEntries overrides the cache bound. Values below 1 are ignored.
func (c *Cached) WithMaxEntries(n int) *Cached {
	if n > 0 {
		c.maxEntries = n
	}
	return c
}

// Len returns the number of cached entries, expired ones included.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cacheKey(appID, tokenUUID string) string {
	return appID + "~~" + tokenUUID
}

// Get returns a cached token or loads it from the inner store.
func (c *Cached) Get(ctx context.Context, appID, tokenUUID string) (domain.Token, error) {
	key := cacheKey(appID, tokenUUID)

	c.mu.RLock()
	e, ok := c.entries[key]
	gen := c.gen
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		c.incCache("hit")
		if !e.found {
			return domain.Token{}, domain.ErrNotFound
		}
		return e.token, nil
	}

	c.incCache("miss")

	t, err := c.inner.Get(ctx, appID, tokenUUID)
	found := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Token{}, err
	}

	c.store(gen, key, cacheEntry{token: t, found: found, expiresAt: c.now().Add(c.ttl)})
	return t, err
}

// Put writes through and invalidates the token.
func (c *Cached) Put(ctx context.Context, t domain.Token) error {
	err := c.inner.Put(ctx, t)
	c.invalidate(t.AppID, t.UUID)
	return err
}

// Delete writes through and invalidates the token.
func (c *Cached) Delete(ctx context.Context, appID, tokenUUID string) error {
	err := c.inner.Delete(ctx, appID, tokenUUID)
	c.invalidate(appID, tokenUUID)
	return err
}

// DeleteAll writes through and drops every cached entry.
func (c *Cached) DeleteAll(ctx context.Context, appID string) error {
	err := c.inner.DeleteAll(ctx, appID)
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.gen++
	c.mu.Unlock()
	return err
}

// List is not cached.
func (c *Cached) List(ctx context.Context, appID string) ([]domain.Token, error) {
	return c.inner.List(ctx, appID)
}

// store caches e unless an invalidation happened since gen was read.
func (c *Cached) store(gen uint64, key string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		c.evict()
	}
	c.entries[key] = e
}

// evict frees room for one entry. Caller holds c.mu.
func (c *Cached) evict() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	for k := range c.entries {
		if len(c.entries) < c.maxEntries {
			return
		}
		delete(c.entries, k)
	}
}

func (c *Cached) invalidate(appID, tokenUUID string) {
	c.mu.Lock()
	delete(c.entries, cacheKey(appID, tokenUUID))
	c.gen++
	c.mu.Unlock()
}

func (c *Cached) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

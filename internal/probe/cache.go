package probe

import (
	"context"
	"sync"
	"time"

	"github.com/krzko/proxy-switcheroo/internal/rules"
	"github.com/krzko/proxy-switcheroo/internal/telemetry"
)

// Cache defaults.
const (
	DefaultCacheTTL      = 60 * time.Second
	DefaultSweepInterval = 5 * time.Minute
)

// Prober answers a trigger's probe, possibly from cache. The Cache is the
// production implementation; tests substitute stubs.
type Prober interface {
	Probe(ctx context.Context, t rules.Trigger, bypassCache bool) Result
}

// Runner executes a probe for real. *Executor satisfies it.
type Runner interface {
	Execute(ctx context.Context, t rules.Trigger) Result
}

type cacheEntry struct {
	result Result
	expiry time.Time
}

// Cache memoizes probe results per trigger definition with a TTL. Keys are
// canonical (kind + hashed key-stable serialization), so structurally equal
// triggers share an entry no matter how they were constructed.
//
// An expired entry is rejected on lookup by timestamp comparison; the
// periodic sweep only reclaims memory.
type Cache struct {
	runner Runner
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithClock substitutes the time source; used by tests to control expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache wraps runner with memoization. A non-positive ttl uses
// DefaultCacheTTL.
func NewCache(runner Runner, ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		runner:  runner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe returns a cached result when a fresh entry exists, otherwise
// executes the probe and stores the result. With bypassCache the cache is
// neither read nor written, preserving TTL semantics for other callers.
func (c *Cache) Probe(ctx context.Context, t rules.Trigger, bypassCache bool) Result {
	if bypassCache {
		return c.runner.Execute(ctx, t)
	}

	key := rules.CacheKey(t)
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expiry) {
		c.mu.Unlock()
		telemetry.ProbeCache.WithLabelValues("hit").Inc()
		return e.result
	}
	c.mu.Unlock()
	telemetry.ProbeCache.WithLabelValues("miss").Inc()

	// The probe itself runs outside the lock; insertion is last-write-wins,
	// which keeps a single authoritative entry per key.
	res := c.runner.Execute(ctx, t)
	c.mu.Lock()
	c.entries[key] = cacheEntry{result: res, expiry: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return res
}

// Clear drops all entries immediately. Used when forcing re-evaluation.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Sweep removes expired entries and reports how many were dropped. It is
// advisory housekeeping; correctness never depends on it running.
func (c *Cache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

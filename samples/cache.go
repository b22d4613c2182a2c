package samples

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"streamtrace/common"
)

// SampleLoader is implemented by Loader and by Cache.
type SampleLoader interface {
	LoadRates(step string, proto common.Protocol, media bool) ([]RateSample, error)
}

type Key struct {
	Step  string
	Proto common.Protocol
	Media bool
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Step, k.Proto, common.Category(k.Media))
}

type cacheEntry struct {
	samples []RateSample
	stored  time.Time
}

// Cache memoizes LoadRates per (step, protocol, category) for a time-to-live.
// Expiry is lazy: a stale entry is dropped on the next lookup of its key.
// Concurrent misses on one key share a single load, and failed loads are not
// stored.
type Cache struct {
	loader   SampleLoader
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
	requests *prometheus.CounterVec

	mu      sync.Mutex
	entries map[Key]*cacheEntry
	group   singleflight.Group
}

type CacheOption func(*Cache)

// WithClock replaces time.Now as the cache clock.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

// WithRegisterer registers the cache request counter on reg.
func WithRegisterer(reg prometheus.Registerer) CacheOption {
	return func(c *Cache) { c.requests = newCacheRequests(reg) }
}

// NewCache wraps loader. A non-positive ttl makes every lookup load.
func NewCache(loader SampleLoader, ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		logger:  slog.Default(),
		entries: make(map[Key]*cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.requests == nil {
		c.requests = newCacheRequests(nil)
	}
	return c
}

func (c *Cache) LoadRates(step string, proto common.Protocol, media bool) ([]RateSample, error) {
	return c.Get(Key{Step: step, Proto: proto, Media: media})
}

// Get returns the cached samples of key, loading them on a miss. The returned
// slice is a copy owned by the caller.
func (c *Cache) Get(key Key) ([]RateSample, error) {
	if s, ok := c.lookup(key, true); ok {
		return s, nil
	}
	v, err, shared := c.group.Do(key.String(), func() (interface{}, error) {
		if s, ok := c.lookup(key, false); ok {
			return s, nil
		}
		s, err := c.loader.LoadRates(key.Step, key.Proto, key.Media)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = &cacheEntry{samples: s, stored: c.now()}
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		c.logger.Error("sample load failed", "key", key.String(), "error", err)
		return nil, err
	}
	if shared {
		c.logger.Debug("sample load shared", "key", key.String())
	} else {
		c.logger.Debug("samples cached", "key", key.String(), "entries", c.Len())
	}
	return copySamples(v.([]RateSample)), nil
}

// lookup returns a fresh entry for key. Stale entries are evicted. count tells
// whether the outcome is recorded in the request counter.
func (c *Cache) lookup(key Key, count bool) ([]RateSample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	switch {
	case !ok:
		if count {
			c.requests.WithLabelValues("miss").Inc()
		}
		return nil, false
	case c.ttl <= 0 || c.now().Sub(e.stored) >= c.ttl:
		delete(c.entries, key)
		if count {
			c.requests.WithLabelValues("expired").Inc()
		}
		return nil, false
	}
	if count {
		c.requests.WithLabelValues("hit").Inc()
	}
	return copySamples(e.samples), true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func copySamples(s []RateSample) []RateSample {
	return append([]RateSample(nil), s...)
}

package price

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a fetched quote is considered fresh.
const DefaultTTL = 60 * time.Second

// Cached wraps a Source with a short TTL cache. A fresh cached value
// is served as ok; when refresh fails but an old value exists, that
// value is served with a stale status so consumers can surface it.
type Cached struct {
	inner Source
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	value     float64
	fetchedAt time.Time
	hasValue  bool
}

// CachedOption configures Cached.
type CachedOption func(*Cached)

// WithTTL sets the cache freshness window.
func WithTTL(ttl time.Duration) CachedOption {
	return func(c *Cached) {
		c.ttl = ttl
	}
}

// WithClock sets the time source (for tests).
func WithClock(now func() time.Time) CachedOption {
	return func(c *Cached) {
		c.now = now
	}
}

// NewCached creates a caching decorator around inner.
func NewCached(inner Source, opts ...CachedOption) *Cached {
	c := &Cached{
		inner: inner,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Source = (*Cached)(nil)

// GetPrice returns a cached quote when fresh, otherwise refreshes.
// A failed refresh degrades to the last known value marked stale
// rather than erroring, as long as any value was ever fetched.
func (c *Cached) GetPrice(ctx context.Context) Quote {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.hasValue && now.Sub(c.fetchedAt) < c.ttl {
		return Quote{Value: c.value, Status: StatusOK}
	}

	q := c.inner.GetPrice(ctx)
	if q.Usable() {
		c.value = q.Value
		c.fetchedAt = now
		c.hasValue = true
		return Quote{Value: q.Value, Status: StatusOK}
	}

	if c.hasValue {
		return Quote{Value: c.value, Status: StatusStale}
	}
	return Quote{Status: StatusError}
}

package credentials

import (
	"context"
	"sync"
	"time"
)

// DefaultExpiryWindow refreshes credentials slightly before they
// actually expire so in-flight requests do not sign with a dying token.
const DefaultExpiryWindow = 5 * time.Minute

// Cache wraps a Provider with an expiring cache and single-flight fill:
// concurrent misses trigger exactly one upstream Retrieve, and every
// waiter observes that one result or that one failure. A call that
// begins before expiry but whose fetch outlives it still uses the
// fetched value once ready.
type Cache struct {
	provider Provider
	window   time.Duration

	// now is replaceable in tests.
	now func() time.Time

	mu       sync.Mutex
	creds    Credentials
	valid    bool
	inflight *fetch
}

type fetch struct {
	done  chan struct{}
	creds Credentials
	err   error
}

// NewCache wraps provider. A zero window uses DefaultExpiryWindow.
func NewCache(provider Provider, window time.Duration) *Cache {
	if window <= 0 {
		window = DefaultExpiryWindow
	}
	return &Cache{
		provider: provider,
		window:   window,
		now:      time.Now,
	}
}

// Retrieve returns cached credentials while they remain fresh, filling
// the cache through the wrapped provider otherwise.
func (c *Cache) Retrieve(ctx context.Context) (Credentials, error) {
	c.mu.Lock()
	if c.valid && !c.creds.Expired(c.now(), c.window) {
		creds := c.creds
		c.mu.Unlock()
		return creds, nil
	}

	f := c.inflight
	if f == nil {
		f = &fetch{done: make(chan struct{})}
		c.inflight = f
		go c.fill(f)
	}
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.creds, f.err
	case <-ctx.Done():
		// The fetch keeps running; later callers can still use its
		// result.
		return Credentials{}, ctx.Err()
	}
}

// fill runs the upstream fetch off the caller's context so one
// canceled waiter does not starve the rest.
func (c *Cache) fill(f *fetch) {
	f.creds, f.err = c.provider.Retrieve(context.Background())

	c.mu.Lock()
	if f.err == nil {
		c.creds = f.creds
		c.valid = true
	}
	c.inflight = nil
	c.mu.Unlock()

	close(f.done)
}

// Invalidate drops the cached value, forcing the next Retrieve to hit
// the provider.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

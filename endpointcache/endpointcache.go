// Package endpointcache caches dynamically discovered service
// endpoints. Concurrent misses for one key share a single in-flight
// discovery call: the first miss installs a pending slot and starts the
// fetch, later misses wait on that slot, and all of them observe the
// same result or the same failure.
package endpointcache

import (
	"context"
	"sync"
	"time"
)

// Endpoint is one discovered address with its cache lifetime. A zero
// CachePeriod means the endpoint is used once and never stored.
type Endpoint struct {
	Address     string
	CachePeriod time.Duration
}

// Discoverer performs the upstream discovery call.
type Discoverer interface {
	DiscoverEndpoints(ctx context.Context, key string) ([]Endpoint, error)
}

// DiscovererFunc adapts a function to the Discoverer interface.
type DiscovererFunc func(ctx context.Context, key string) ([]Endpoint, error)

func (f DiscovererFunc) DiscoverEndpoints(ctx context.Context, key string) ([]Endpoint, error) {
	return f(ctx, key)
}

type entry struct {
	address string
	expires time.Time
}

type flight struct {
	done    chan struct{}
	address string
	err     error
}

// Cache is a keyed endpoint cache with single-flight fill. Keys combine
// the operation name with its discovery identifiers.
type Cache struct {
	discoverer Discoverer

	// now is replaceable in tests.
	now func() time.Time

	mu       sync.Mutex
	entries  map[string]entry
	inflight map[string]*flight
}

// New returns an empty cache backed by d.
func New(d Discoverer) *Cache {
	return &Cache{
		discoverer: d,
		now:        time.Now,
		entries:    map[string]entry{},
		inflight:   map[string]*flight{},
	}
}

// Get returns the endpoint address for key, reusing a non-expired cache
// entry or joining the single in-flight discovery for that key.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.now().Before(e.expires) {
			c.mu.Unlock()
			return e.address, nil
		}
		delete(c.entries, key)
	}

	f, ok := c.inflight[key]
	if !ok {
		f = &flight{done: make(chan struct{})}
		c.inflight[key] = f
		go c.discover(key, f)
	}
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.address, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Cache) discover(key string, f *flight) {
	endpoints, err := c.discoverer.DiscoverEndpoints(context.Background(), key)

	c.mu.Lock()
	switch {
	case err != nil:
		f.err = err
	case len(endpoints) == 0:
		f.err = errNoEndpoints
	default:
		ep := endpoints[0]
		f.address = ep.Address
		if ep.CachePeriod > 0 {
			c.entries[key] = entry{
				address: ep.Address,
				expires: c.now().Add(ep.CachePeriod),
			}
		}
	}
	delete(c.inflight, key)
	c.mu.Unlock()

	close(f.done)
}

// Invalidate evicts the entry for key, typically after the service
// rejects the cached endpoint.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

type discoveryError string

func (e discoveryError) Error() string { return string(e) }

const errNoEndpoints = discoveryError("endpoint discovery returned no endpoints")

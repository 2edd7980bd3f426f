package client

import (
	"fmt"
	"time"

	"github.com/cirrusws/cirrus-sdk-go/credentials"
	"github.com/cirrusws/cirrus-sdk-go/endpointcache"
	"github.com/cirrusws/cirrus-sdk-go/middleware"
	"github.com/cirrusws/cirrus-sdk-go/retry"
	"github.com/cirrusws/cirrus-sdk-go/signer"
	"github.com/cirrusws/cirrus-sdk-go/transport"
)

// Opt configures a Client under construction.
type Opt func(*Client) error

// WithHTTPClient injects the HTTP transport. Anything with a Do method
// works, which is how tests supply a mock.
func WithHTTPClient(d transport.Doer) Opt {
	return func(c *Client) error {
		if d == nil {
			return fmt.Errorf("http client is nil")
		}
		c.httpClient = d
		return nil
	}
}

// WithEndpoint overrides the service base URL.
func WithEndpoint(endpoint string) Opt {
	return func(c *Client) error {
		c.info.Endpoint = endpoint
		return nil
	}
}

// WithRegion sets the signing region.
func WithRegion(region string) Opt {
	return func(c *Client) error {
		c.info.SigningRegion = region
		return nil
	}
}

// WithCredentialsProvider wraps the provider in the client's shared
// expiring single-flight cache.
func WithCredentialsProvider(p credentials.Provider) Opt {
	return func(c *Client) error {
		c.creds = credentials.NewCache(p, 0)
		return nil
	}
}

// WithAnonymousCredentials disables credential resolution and request
// signing entirely.
func WithAnonymousCredentials() Opt {
	return func(c *Client) error {
		c.anonymous = true
		c.creds = nil
		return nil
	}
}

// WithSigner replaces the default signer.
func WithSigner(s signer.Signer) Opt {
	return func(c *Client) error {
		c.signer = s
		return nil
	}
}

// WithRetryer replaces the default retry policy.
func WithRetryer(r retry.Retryer) Opt {
	return func(c *Client) error {
		c.retryer = r
		return nil
	}
}

// WithMaxWaitTime bounds the cumulative retry backoff of one call.
func WithMaxWaitTime(d time.Duration) Opt {
	return func(c *Client) error {
		c.maxWaitTime = d
		return nil
	}
}

// WithEndpointDiscovery enables discovery for operations that require
// it, backed by the shared single-flight cache.
func WithEndpointDiscovery(d endpointcache.Discoverer) Opt {
	return func(c *Client) error {
		c.endpoints = endpointcache.New(d)
		return nil
	}
}

// WithMiddleware replaces the stock middleware chain. Order matters:
// the first middleware is outermost.
func WithMiddleware(mw ...middleware.Middleware) Opt {
	return func(c *Client) error {
		c.mw = mw
		return nil
	}
}

// WithUserAgent overrides the default User-Agent value.
func WithUserAgent(ua string) Opt {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

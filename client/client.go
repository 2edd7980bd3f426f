// Package client runs operation calls end to end: resolve a credential,
// resolve an endpoint, build and sign the request, push it through the
// middleware chain to the transport, parse the response, and retry
// under the configured policy.
package client

import (
	"net/http"
	"time"

	"github.com/cirrusws/cirrus-sdk-go/credentials"
	"github.com/cirrusws/cirrus-sdk-go/endpointcache"
	"github.com/cirrusws/cirrus-sdk-go/middleware"
	"github.com/cirrusws/cirrus-sdk-go/request"
	"github.com/cirrusws/cirrus-sdk-go/retry"
	"github.com/cirrusws/cirrus-sdk-go/signer"
	"github.com/cirrusws/cirrus-sdk-go/transport"
)

// Version is the SDK runtime version reported in the User-Agent.
const Version = "0.9.0"

// Client executes operations against one service configuration. It is
// safe for concurrent use; calls share only the credential cache and
// the endpoint-discovery cache, both of which serialize their fills.
type Client struct {
	info request.ClientInfo

	httpClient transport.Doer
	signer     signer.Signer
	creds      *credentials.Cache
	retryer    retry.Retryer
	endpoints  *endpointcache.Cache
	mw         []middleware.Middleware

	// maxWaitTime bounds cumulative backoff across all attempts of one
	// call; zero means unbounded. Distinct from any per-attempt network
	// timeout on the HTTP client.
	maxWaitTime time.Duration

	userAgent string
	anonymous bool
}

// New returns a client for the given service configuration.
func New(info request.ClientInfo, opts ...Opt) (*Client, error) {
	c := &Client{
		info:      info,
		userAgent: "cirrus-sdk-go/" + Version,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.signer == nil {
		c.signer = signer.New()
	}
	if c.retryer == nil {
		c.retryer = retry.NewStandard()
	}
	if c.creds == nil && !c.anonymous {
		c.creds = credentials.NewCache(credentials.ChainProvider{
			Providers: []credentials.Provider{credentials.EnvProvider{}},
		}, 0)
	}
	if c.mw == nil {
		c.mw = []middleware.Middleware{
			middleware.InvocationID(),
			middleware.UserAgent(c.userAgent),
			middleware.ContentLength(),
			middleware.RequestLogger(),
		}
	}
	return c, nil
}

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/cirrusws/cirrus-sdk-go/credentials"
	"github.com/cirrusws/cirrus-sdk-go/endpointcache"
	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/middleware"
	"github.com/cirrusws/cirrus-sdk-go/protocol"
	"github.com/cirrusws/cirrus-sdk-go/request"
	"github.com/cirrusws/cirrus-sdk-go/retry"
	"github.com/cirrusws/cirrus-sdk-go/shape"
	"github.com/cirrusws/cirrus-sdk-go/transport"
)

func testInfo() request.ClientInfo {
	return request.ClientInfo{
		ServiceName:   "table",
		APIVersion:    "2012-08-10",
		Protocol:      protocol.JSONRPC,
		JSONVersion:   "1.0",
		TargetPrefix:  "TableService",
		Endpoint:      "https://table.example.com",
		SigningName:   "table",
		SigningRegion: "us-east-1",
	}
}

func getItemOp() *request.Operation {
	return &request.Operation{
		Name: "GetItem",
		Output: &shape.Member{
			Name: "GetItemOutput",
			Type: shape.TypeStruct,
			Fields: []shape.Member{
				{Name: "Name", Type: shape.TypeString},
			},
		},
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func newTestClient(t *testing.T, doer transport.Doer, opts ...Opt) *Client {
	t.Helper()
	opts = append([]Opt{
		WithHTTPClient(doer),
		WithCredentialsProvider(credentials.StaticProvider{
			Value: credentials.Credentials{AccessKeyID: "AK", SecretAccessKey: "SK"},
		}),
		WithRetryer(retry.NewStandard(retry.WithMaxBackoff(time.Millisecond))),
	}, opts...)
	c, err := New(testInfo(), opts...)
	assert.NilError(t, err)
	return c
}

func TestInvoke(t *testing.T) {
	var seen *http.Request
	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		seen = req
		return jsonResponse(200, `{"Name":"widget"}`), nil
	})
	c := newTestClient(t, doer)

	out, err := c.Invoke(context.Background(), getItemOp(), shape.Value{})
	assert.NilError(t, err)
	assert.Check(t, is.Equal(out.Get("Name").Str, "widget"))

	assert.Check(t, is.Equal(seen.Header.Get(request.TargetHeader), "TableService.GetItem"))
	assert.Check(t, is.Equal(seen.Header.Get("Content-Type"), "application/x-amz-json-1.0"))
	assert.Check(t, seen.Header.Get("Authorization") != "")
	assert.Check(t, seen.Header.Get(middleware.InvocationIDHeader) != "")

	body, err := io.ReadAll(seen.Body)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(body), "{}"))
}

// A policy that retries three times gives up after exactly four
// attempts and surfaces the final error.
func TestInvokeRetriesExhausted(t *testing.T) {
	var attempts atomic.Int64
	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		attempts.Add(1)
		return jsonResponse(503, `{"__type":"ServiceUnavailable","message":"try later"}`), nil
	})
	c := newTestClient(t, doer, WithRetryer(retry.NewStandard(
		retry.WithMaxAttempts(4),
		retry.WithMaxBackoff(time.Millisecond),
	)))

	_, err := c.Invoke(context.Background(), getItemOp(), shape.Value{})
	assert.Check(t, is.Equal(attempts.Load(), int64(4)))

	var me *retry.MaxAttemptsError
	assert.Assert(t, errors.As(err, &me))
	assert.Check(t, is.Equal(me.Attempt, 4))

	ae, ok := errdefs.IsAPIError(err)
	assert.Assert(t, ok)
	assert.Check(t, is.Equal(ae.Code, "ServiceUnavailable"))
}

func TestInvokeRetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int64
	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		if attempts.Add(1) < 3 {
			return nil, fmt.Errorf("connection refused")
		}
		return jsonResponse(200, `{"Name":"widget"}`), nil
	})
	c := newTestClient(t, doer, WithRetryer(retry.NewStandard(
		retry.WithMaxAttempts(5),
		retry.WithMaxBackoff(time.Millisecond),
	)))

	out, err := c.Invoke(context.Background(), getItemOp(), shape.Value{})
	assert.NilError(t, err)
	assert.Check(t, is.Equal(out.Get("Name").Str, "widget"))
	assert.Check(t, is.Equal(attempts.Load(), int64(3)))
}

// Each attempt rebuilds the request, but all attempts of one call must
// carry the same invocation id.
func TestInvokeInvocationIDStableAcrossRetries(t *testing.T) {
	var ids []string
	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		ids = append(ids, req.Header.Get(middleware.InvocationIDHeader))
		if len(ids) < 3 {
			return nil, fmt.Errorf("connection refused")
		}
		return jsonResponse(200, `{"Name":"widget"}`), nil
	})
	c := newTestClient(t, doer, WithRetryer(retry.NewStandard(
		retry.WithMaxAttempts(5),
		retry.WithMaxBackoff(time.Millisecond),
	)))

	_, err := c.Invoke(context.Background(), getItemOp(), shape.Value{})
	assert.NilError(t, err)

	assert.Assert(t, is.Len(ids, 3))
	assert.Check(t, ids[0] != "")
	assert.Check(t, is.Equal(ids[0], ids[1]))
	assert.Check(t, is.Equal(ids[1], ids[2]))

	// A second call gets its own id.
	firstID := ids[0]
	ids = nil
	_, err = c.Invoke(context.Background(), getItemOp(), shape.Value{})
	assert.NilError(t, err)
	assert.Check(t, ids[0] != firstID)
}

func TestInvokeClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int64
	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		attempts.Add(1)
		return jsonResponse(404, `{"__type":"ResourceNotFoundException","message":"missing"}`), nil
	})
	c := newTestClient(t, doer)

	_, err := c.Invoke(context.Background(), getItemOp(), shape.Value{})
	assert.Check(t, is.Equal(attempts.Load(), int64(1)))

	ae, ok := errdefs.IsAPIError(err)
	assert.Assert(t, ok)
	assert.Check(t, is.Equal(ae.Code, "ResourceNotFoundException"))
}

// A one-shot body stream cannot be replayed, so even a retryable
// failure ends the call after a single attempt.
func TestInvokeOneShotStreamNotRetried(t *testing.T) {
	var attempts atomic.Int64
	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		attempts.Add(1)
		return nil, fmt.Errorf("connection reset")
	})
	c := newTestClient(t, doer)

	op := &request.Operation{Name: "PutBlob", HTTPMethod: "PUT", HTTPPath: "/blob"}
	_, err := c.Invoke(context.Background(), op, shape.Value{},
		WithBodyStream(oneShotReader{bytes.NewReader([]byte("data"))}, 4))

	assert.Check(t, is.Equal(attempts.Load(), int64(1)))
	assert.Check(t, errdefs.IsTransport(err))
}

func TestInvokeAnonymousSkipsSigning(t *testing.T) {
	var seen *http.Request
	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		seen = req
		return jsonResponse(200, `{}`), nil
	})
	c, err := New(testInfo(), WithHTTPClient(doer), WithAnonymousCredentials())
	assert.NilError(t, err)

	_, err = c.Invoke(context.Background(), getItemOp(), shape.Value{})
	assert.NilError(t, err)
	assert.Check(t, is.Equal(seen.Header.Get("Authorization"), ""))
}

func TestInvokeDiscoveredEndpoint(t *testing.T) {
	var discoveries atomic.Int64
	var hosts []string
	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		hosts = append(hosts, req.URL.Host)
		return jsonResponse(200, `{}`), nil
	})
	c := newTestClient(t, doer, WithEndpointDiscovery(
		endpointcache.DiscovererFunc(func(ctx context.Context, key string) ([]endpointcache.Endpoint, error) {
			discoveries.Add(1)
			return []endpointcache.Endpoint{{Address: "https://cell-3.example.com", CachePeriod: time.Minute}}, nil
		}),
	))

	op := getItemOp()
	op.RequiresDiscovery = true

	for i := 0; i < 2; i++ {
		_, err := c.Invoke(context.Background(), op, shape.Value{})
		assert.NilError(t, err)
	}
	assert.Check(t, is.Equal(discoveries.Load(), int64(1)))
	assert.Check(t, is.DeepEqual(hosts, []string{"cell-3.example.com", "cell-3.example.com"}))
}

func TestInvokeValidationFailsFast(t *testing.T) {
	var attempts atomic.Int64
	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		attempts.Add(1)
		return jsonResponse(200, `{}`), nil
	})
	c := newTestClient(t, doer)

	op := &request.Operation{
		Name: "GetItem",
		Input: &shape.Member{
			Name: "GetItemInput",
			Type: shape.TypeStruct,
			Fields: []shape.Member{
				{Name: "Key", Type: shape.TypeString, Required: true},
			},
		},
	}
	_, err := c.Invoke(context.Background(), op, shape.Struct())
	assert.Check(t, errdefs.IsValidation(err))
	assert.Check(t, is.Equal(attempts.Load(), int64(0)))
}

// oneShotReader hides the Seeker half of bytes.Reader.
type oneShotReader struct{ r io.Reader }

func (r oneShotReader) Read(p []byte) (int, error) { return r.r.Read(p) }

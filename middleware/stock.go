package middleware

import (
	"context"
	"net/http"

	"github.com/containerd/log"
	"github.com/google/uuid"

	"github.com/cirrusws/cirrus-sdk-go/transport"
)

// InvocationIDHeader identifies a logical call across its retry
// attempts; every attempt of one call carries the same id.
const InvocationIDHeader = "X-Cirrus-Invocation-Id"

type invocationIDKey struct{}

// WithInvocationID mints the id for one logical call and pins it in the
// context, so every retry attempt stamps the same value even though the
// request is rebuilt per attempt.
func WithInvocationID(ctx context.Context) context.Context {
	return context.WithValue(ctx, invocationIDKey{}, uuid.NewString())
}

// InvocationID stamps the invocation id header: the context-pinned id
// when present, otherwise a fresh one. An id already on the request is
// left alone.
func InvocationID() Middleware {
	return Func("InvocationID", func(ctx context.Context, req *transport.Request, next Handler) (*http.Response, error) {
		if req.HTTP.Header.Get(InvocationIDHeader) == "" {
			id, _ := ctx.Value(invocationIDKey{}).(string)
			if id == "" {
				id = uuid.NewString()
			}
			req.HTTP.Header.Set(InvocationIDHeader, id)
		}
		return next.Handle(ctx, req)
	})
}

// UserAgent sets the User-Agent header unless the caller already did.
func UserAgent(ua string) Middleware {
	return Func("UserAgent", func(ctx context.Context, req *transport.Request, next Handler) (*http.Response, error) {
		if req.HTTP.Header.Get("User-Agent") == "" {
			req.HTTP.Header.Set("User-Agent", ua)
		}
		return next.Handle(ctx, req)
	})
}

// ContentLength fills in the request's ContentLength when the body size
// is measurable but was not declared. net/http serializes the header
// from that field and ignores a Content-Length header set directly on
// an outbound request.
func ContentLength() Middleware {
	return Func("ContentLength", func(ctx context.Context, req *transport.Request, next Handler) (*http.Response, error) {
		if req.HTTP.ContentLength <= 0 {
			if n, ok := req.StreamLength(); ok {
				req.HTTP.ContentLength = n
			}
		}
		return next.Handle(ctx, req)
	})
}

// RequestLogger traces each attempt and its outcome. Bodies and
// credentials never reach the log.
func RequestLogger() Middleware {
	return Func("RequestLogger", func(ctx context.Context, req *transport.Request, next Handler) (*http.Response, error) {
		logger := log.G(ctx).WithFields(log.Fields{
			"method": req.HTTP.Method,
			"host":   req.HTTP.URL.Host,
			"path":   req.HTTP.URL.Path,
		})
		logger.Trace("sending request")
		resp, err := next.Handle(ctx, req)
		if err != nil {
			logger.WithError(err).Trace("request failed")
			return resp, err
		}
		logger.WithField("status", resp.StatusCode).Trace("received response")
		return resp, nil
	})
}

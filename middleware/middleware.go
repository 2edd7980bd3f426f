// Package middleware runs ordered request/response interceptors around
// the Send stage. Each middleware receives the next stage as a
// continuation: it may rewrite the request, short-circuit with its own
// response or error, or inspect the response after the inner call
// returns. Declaration order is outermost-first on the way in, which
// makes it innermost-first on the way out.
package middleware

import (
	"context"
	"net/http"

	"github.com/cirrusws/cirrus-sdk-go/transport"
)

// Handler is one stage of the chain.
type Handler interface {
	Handle(ctx context.Context, req *transport.Request) (*http.Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *transport.Request) (*http.Response, error)

func (f HandlerFunc) Handle(ctx context.Context, req *transport.Request) (*http.Response, error) {
	return f(ctx, req)
}

// Middleware decorates the next handler.
type Middleware interface {
	// ID uniquely names the middleware within one chain.
	ID() string

	Handle(ctx context.Context, req *transport.Request, next Handler) (*http.Response, error)
}

// Func returns a Middleware from an id and a function.
func Func(id string, fn func(ctx context.Context, req *transport.Request, next Handler) (*http.Response, error)) Middleware {
	return mwFunc{id: id, fn: fn}
}

type mwFunc struct {
	id string
	fn func(ctx context.Context, req *transport.Request, next Handler) (*http.Response, error)
}

func (m mwFunc) ID() string { return m.id }

func (m mwFunc) Handle(ctx context.Context, req *transport.Request, next Handler) (*http.Response, error) {
	return m.fn(ctx, req, next)
}

// Chain wraps inner with mws; mws[0] becomes the outermost stage.
func Chain(inner Handler, mws ...Middleware) Handler {
	h := inner
	for i := len(mws) - 1; i >= 0; i-- {
		h = decorated{next: h, with: mws[i]}
	}
	return h
}

type decorated struct {
	next Handler
	with Middleware
}

func (d decorated) Handle(ctx context.Context, req *transport.Request) (*http.Response, error) {
	return d.with.Handle(ctx, req, d.next)
}

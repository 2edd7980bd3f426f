package client

import (
	"context"
	"fmt"

	"github.com/cirrusws/cirrus-sdk-go/request"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// Pager walks a paginated operation one page at a time, threading the
// continuation token between calls.
type Pager struct {
	client *Client
	op     *request.Operation
	input  shape.Value

	token     shape.Value
	firstPage bool
	done      bool
}

// Paginate returns a Pager over op, which must declare a Paginator.
func (c *Client) Paginate(op *request.Operation, input shape.Value) *Pager {
	return &Pager{
		client:    c,
		op:        op,
		input:     input,
		firstPage: true,
	}
}

// HasMorePages reports whether NextPage has another page to fetch.
func (p *Pager) HasMorePages() bool {
	return p.firstPage || !p.done
}

// NextPage fetches the next page. Pagination stops when a page comes
// back without an output token, or with an empty one.
func (p *Pager) NextPage(ctx context.Context) (shape.Value, error) {
	if p.op.Paginator == nil {
		return shape.Value{}, fmt.Errorf("operation %s is not paginated", p.op.Name)
	}
	if !p.HasMorePages() {
		return shape.Value{}, fmt.Errorf("no more pages for %s", p.op.Name)
	}

	in := p.input
	if !p.firstPage {
		// Copy the entries before stitching the token in so the caller's
		// input survives across pages.
		in.Kind = shape.KindStruct
		in.Entries = append([]shape.Entry(nil), in.Entries...)
		in.Set(p.op.Paginator.InputToken, p.token)
	}
	p.firstPage = false

	out, err := p.client.Invoke(ctx, p.op, in)
	if err != nil {
		return shape.Value{}, err
	}

	token := out.Get(p.op.Paginator.OutputToken)
	if token.IsZero() {
		p.done = true
	} else {
		p.token = token
	}
	return out, nil
}

package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/eventstream"
	"github.com/cirrusws/cirrus-sdk-go/request"
	"github.com/cirrusws/cirrus-sdk-go/shape"
	"github.com/cirrusws/cirrus-sdk-go/transport"
)

func streamOp() *request.Operation {
	return &request.Operation{
		Name: "SubscribeToShard",
		Stream: &request.StreamInfo{
			Events: map[string]*shape.Member{
				"Record": {
					Name: "Record",
					Type: shape.TypeStruct,
					Fields: []shape.Member{
						{Name: "data", Type: shape.TypeString},
					},
				},
			},
		},
	}
}

func encodeEvent(t *testing.T, eventType, payload string) []byte {
	t.Helper()
	data, err := eventstream.EncodeMessage(eventstream.Message{
		Headers: map[string]string{
			eventstream.MessageTypeHeader: "event",
			eventstream.EventTypeHeader:   eventType,
			eventstream.ContentTypeHeader: "application/json",
		},
		Payload: []byte(payload),
	})
	assert.NilError(t, err)
	return data
}

func TestInvokeStream(t *testing.T) {
	var body []byte
	body = append(body, encodeEvent(t, "Record", `{"data":"one"}`)...)
	body = append(body, encodeEvent(t, "Record", `{"data":"two"}`)...)

	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(bytes.NewReader(body)),
		}, nil
	})
	c := newTestClient(t, doer)

	stream, err := c.InvokeStream(context.Background(), streamOp(), shape.Value{})
	assert.NilError(t, err)
	defer stream.Close()

	ev, err := stream.Next()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(ev.Type, "Record"))
	assert.Check(t, is.Equal(ev.Value.Get("data").Str, "one"))

	ev, err = stream.Next()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(ev.Value.Get("data").Str, "two"))

	_, err = stream.Next()
	assert.Check(t, is.ErrorIs(err, io.EOF))
	assert.NilError(t, stream.Close())
}

func TestInvokeStreamErrorStatus(t *testing.T) {
	doer := transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(400, `{"__type":"InvalidArgument","message":"bad shard"}`), nil
	})
	c := newTestClient(t, doer)

	_, err := c.InvokeStream(context.Background(), streamOp(), shape.Value{})
	ae, ok := errdefs.IsAPIError(err)
	assert.Assert(t, ok)
	assert.Check(t, is.Equal(ae.Code, "InvalidArgument"))
}

func TestInvokeStreamRequiresStreamOp(t *testing.T) {
	c := newTestClient(t, transport.DoerFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{}`), nil
	}))

	_, err := c.InvokeStream(context.Background(), getItemOp(), shape.Value{})
	assert.ErrorContains(t, err, "no event stream")
}

// Package restjson combines REST location bindings with a JSON body. A
// member bound to the payload location replaces the body with its own
// encoding rather than nesting under its field name.
package restjson

import (
	"net/http"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol/jsonrpc"
	"github.com/cirrusws/cirrus-sdk-go/protocol/jsonutil"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// BuildBody serializes the body members left over after location
// binding. payload, when non-nil, replaces the body wholesale.
func BuildBody(m, payload *shape.Member, payloadValue, body shape.Value) ([]byte, error) {
	if payload != nil {
		if payloadValue.IsZero() {
			return nil, nil
		}
		if payload.Type == shape.TypeBlob {
			return payloadValue.Blob, nil
		}
		if payload.Type == shape.TypeString {
			return []byte(payloadValue.Str), nil
		}
		return jsonutil.Encode(payload, payloadValue)
	}
	if body.IsZero() {
		return nil, nil
	}
	return jsonutil.Encode(m, body)
}

// UnmarshalBody decodes the response body members. When a payload
// member exists the raw body belongs to it alone.
func UnmarshalBody(m *shape.Member, body []byte) (shape.Value, error) {
	out := shape.Struct()
	if m == nil {
		return out, nil
	}
	if payload := m.PayloadField(); payload != nil {
		switch payload.Type {
		case shape.TypeBlob:
			out.Set(payload.Name, shape.Blob(body))
		case shape.TypeString:
			out.Set(payload.Name, shape.String(string(body)))
		default:
			pv, err := jsonutil.Decode(payload, body)
			if err != nil {
				return shape.Value{}, err
			}
			out.Set(payload.Name, pv)
		}
		return out, nil
	}
	return jsonutil.Decode(m, body)
}

// UnmarshalError shares the JSON error extraction with the jsonrpc
// protocol; REST-JSON services answer with the same body schema.
func UnmarshalError(resp *http.Response, body []byte) *errdefs.APIError {
	return jsonrpc.UnmarshalError(resp, body)
}

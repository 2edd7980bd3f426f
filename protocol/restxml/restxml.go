// Package restxml combines REST location bindings with an XML body.
package restxml

import (
	"bytes"
	"net/http"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol/query"
	"github.com/cirrusws/cirrus-sdk-go/protocol/xmlutil"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// BuildBody serializes the body members left over after location
// binding. payload, when non-nil, replaces the body wholesale: raw for
// blob/string members, its own XML document otherwise.
func BuildBody(m, payload *shape.Member, payloadValue, body shape.Value) ([]byte, error) {
	if payload != nil {
		if payloadValue.IsZero() {
			return nil, nil
		}
		switch payload.Type {
		case shape.TypeBlob:
			return payloadValue.Blob, nil
		case shape.TypeString:
			return []byte(payloadValue.Str), nil
		}
		return serialize(payload, payloadValue)
	}
	if body.IsZero() {
		return nil, nil
	}
	return serialize(m, body)
}

func serialize(m *shape.Member, v shape.Value) ([]byte, error) {
	node, err := xmlutil.Build(m, v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := node.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBody decodes the response body members.
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
			root, err := xmlutil.Parse(bytes.NewReader(body))
			if err != nil {
				return shape.Value{}, &errdefs.CodecError{Path: payload.Name, Reason: "malformed xml response", Err: err}
			}
			pv, err := xmlutil.Unmarshal(payload, root)
			if err != nil {
				return shape.Value{}, err
			}
			out.Set(payload.Name, pv)
		}
		return out, nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	root, err := xmlutil.Parse(bytes.NewReader(body))
	if err != nil {
		return shape.Value{}, &errdefs.CodecError{Path: m.Name, Reason: "malformed xml response", Err: err}
	}
	return xmlutil.Unmarshal(m, root)
}

// UnmarshalError decodes both the <ErrorResponse><Error> envelope and
// the bare <Error> form some services answer with.
func UnmarshalError(resp *http.Response, body []byte) *errdefs.APIError {
	return query.UnmarshalError(resp, body)
}

package request

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cirrusws/cirrus-sdk-go/protocol"
	"github.com/cirrusws/cirrus-sdk-go/protocol/ec2query"
	"github.com/cirrusws/cirrus-sdk-go/protocol/jsonrpc"
	"github.com/cirrusws/cirrus-sdk-go/protocol/query"
	"github.com/cirrusws/cirrus-sdk-go/protocol/rest"
	"github.com/cirrusws/cirrus-sdk-go/protocol/restjson"
	"github.com/cirrusws/cirrus-sdk-go/protocol/restxml"
	"github.com/cirrusws/cirrus-sdk-go/shape"
	"github.com/cirrusws/cirrus-sdk-go/transport"
)

// Build assembles the HTTP request for one operation call: validate the
// input, resolve the target URL (endpoint, host prefix, uri labels),
// run the protocol body codec, apply location bindings and set the
// content type and any required body checksum. endpoint overrides the
// client's static endpoint when non-empty (a discovered endpoint).
func Build(ctx context.Context, info ClientInfo, op *Operation, input shape.Value, endpoint string) (*transport.Request, error) {
	if op.Input != nil {
		if err := shape.Validate(op.Input, input); err != nil {
			return nil, err
		}
	}

	if endpoint == "" {
		endpoint = info.Endpoint
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("malformed endpoint %q: %w", endpoint, err)
	}

	method := op.HTTPMethod
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, base.String(), nil)
	if err != nil {
		return nil, err
	}
	req := transport.New(httpReq)

	switch info.Protocol {
	case protocol.Query, protocol.EC2Query, protocol.JSONRPC:
		err = buildBodyProtocol(info, op, input, req)
	default:
		err = buildRESTProtocol(info, op, input, req)
	}
	if err != nil {
		return nil, err
	}

	if op.HostPrefix != "" {
		labels := hostLabels(op.Input, input)
		prefix, err := protocol.ExpandHostPrefix(op.HostPrefix, labels)
		if err != nil {
			return nil, err
		}
		req.HTTP.URL.Host = prefix + req.HTTP.URL.Host
		req.HTTP.Host = req.HTTP.URL.Host
	}

	if err := applyChecksum(op.Checksum, req); err != nil {
		return nil, err
	}
	return req, nil
}

// buildBodyProtocol handles the three whole-body protocols, where every
// member travels in the body and the path is the endpoint's own.
func buildBodyProtocol(info ClientInfo, op *Operation, input shape.Value, req *transport.Request) error {
	if req.HTTP.URL.Path == "" {
		req.HTTP.URL.Path = "/"
	}
	if op.HTTPPath != "" && op.HTTPPath != "/" {
		req.HTTP.URL.Path = joinPath(req.HTTP.URL.Path, op.HTTPPath)
	}

	var body []byte
	var err error
	switch info.Protocol {
	case protocol.Query:
		body, err = query.Build(op.Name, info.APIVersion, op.Input, input)
	case protocol.EC2Query:
		body, err = ec2query.Build(op.Name, info.APIVersion, op.Input, input)
	default:
		body, err = jsonrpc.Build(req.HTTP.Method, op.Input, input)
		if info.TargetPrefix != "" {
			req.HTTP.Header.Set(TargetHeader, info.TargetPrefix+"."+op.Name)
		}
	}
	if err != nil {
		return err
	}
	if body != nil {
		req.SetBufferedBody(body)
		req.HTTP.Header.Set("Content-Type", protocol.BodyContentType(info.Protocol, info.JSONVersion))
	}
	return nil
}

// buildRESTProtocol expands the path template, applies location
// bindings and serializes whatever is left into the body.
func buildRESTProtocol(info ClientInfo, op *Operation, input shape.Value, req *transport.Request) error {
	bindings := rest.Bindings{PathLabels: map[string]string{}, HostLabels: map[string]string{}}
	if op.Input != nil {
		var err error
		bindings, err = rest.Build(req.HTTP, op.Input, input)
		if err != nil {
			return err
		}
	}

	path, err := protocol.ExpandPath(op.HTTPPath, bindings.PathLabels)
	if err != nil {
		return err
	}
	// ExpandPath output is already percent-encoded; keep the escaped
	// form in RawPath so net/url does not re-encode it.
	escaped := joinPath(req.HTTP.URL.Path, path)
	unescaped, uerr := url.PathUnescape(escaped)
	if uerr != nil {
		return fmt.Errorf("internal: produced invalid escaped path %q: %w", escaped, uerr)
	}
	req.HTTP.URL.Path = unescaped
	req.HTTP.URL.RawPath = escaped

	var body []byte
	switch info.Protocol {
	case protocol.RESTJSON:
		body, err = restjson.BuildBody(op.Input, bindings.Payload, bindings.PayloadValue, bindings.Body)
	default:
		body, err = restxml.BuildBody(op.Input, bindings.Payload, bindings.PayloadValue, bindings.Body)
	}
	if err != nil {
		return err
	}
	if body == nil {
		return nil
	}

	req.SetBufferedBody(body)
	req.HTTP.Header.Set("Content-Type", bodyContentType(info, bindings.Payload))
	return nil
}

// bodyContentType picks the Content-Type for a REST body: the payload
// member's declared type, the raw-bytes default for blob payloads, or
// the protocol default.
func bodyContentType(info ClientInfo, payload *shape.Member) string {
	if payload != nil {
		if payload.ContentType != "" {
			return payload.ContentType
		}
		if payload.Type == shape.TypeBlob {
			return protocol.ContentTypeBinaryPayload
		}
		if info.Protocol == protocol.RESTXML {
			return protocol.ContentTypeOctetStream
		}
	}
	if info.Protocol == protocol.RESTJSON {
		return protocol.ContentTypeJSON
	}
	return protocol.ContentTypeOctetStream
}

func hostLabels(m *shape.Member, v shape.Value) map[string]string {
	labels := map[string]string{}
	if m == nil {
		return labels
	}
	for i := range m.Fields {
		f := &m.Fields[i]
		if f.Location != shape.LocationHostLabel {
			continue
		}
		if fv := v.Get(f.Name); fv.Kind == shape.KindString {
			labels[f.WireLocationName()] = fv.Str
		}
	}
	return labels
}

func joinPath(base, p string) string {
	base = strings.TrimSuffix(base, "/")
	if p == "" {
		return base
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return base + p
}

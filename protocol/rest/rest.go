// Package rest applies per-member location overrides: members bound to
// headers, the query string, URI path labels, host labels or the status
// code travel in the HTTP envelope rather than the protocol body,
// regardless of which body codec the operation uses.
package rest

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// Bindings is the result of splitting an input value by location.
type Bindings struct {
	// Body holds the members that remain in the protocol body. Zero when
	// every member was bound elsewhere and no payload member exists.
	Body shape.Value

	// Payload is the member replacing the body wholesale, if any.
	Payload      *shape.Member
	PayloadValue shape.Value

	// PathLabels and HostLabels fill {name} placeholders in the path
	// template and host prefix.
	PathLabels map[string]string
	HostLabels map[string]string
}

// Build writes header and query bindings onto req and returns the
// remaining body members and template labels. Query-bound lists emit one
// name=value pair per element in original order, never sorted.
func Build(req *http.Request, m *shape.Member, v shape.Value) (Bindings, error) {
	out := Bindings{
		PathLabels: map[string]string{},
		HostLabels: map[string]string{},
	}
	query := req.URL.Query()
	body := shape.Struct()

	for i := range m.Fields {
		f := &m.Fields[i]
		fv := v.Get(f.Name)
		if fv.IsZero() && f.Location != shape.LocationPayload {
			continue
		}
		switch f.Location {
		case shape.LocationHeader:
			s, err := headerString(f, fv)
			if err != nil {
				return Bindings{}, err
			}
			req.Header.Set(f.WireLocationName(), s)
		case shape.LocationHeaderMap:
			prefix := f.WireLocationName()
			for _, e := range fv.Entries {
				if e.Value.Kind != shape.KindString {
					return Bindings{}, fmt.Errorf("header map %s values must be strings", f.Name)
				}
				req.Header.Set(prefix+e.Key, e.Value.Str)
			}
		case shape.LocationQuery:
			if fv.Kind == shape.KindList {
				for _, el := range fv.List {
					s, err := headerString(f.ListMember, el)
					if err != nil {
						return Bindings{}, err
					}
					query.Add(f.WireLocationName(), s)
				}
			} else {
				s, err := headerString(f, fv)
				if err != nil {
					return Bindings{}, err
				}
				query.Add(f.WireLocationName(), s)
			}
		case shape.LocationURI:
			s, err := headerString(f, fv)
			if err != nil {
				return Bindings{}, err
			}
			out.PathLabels[f.WireLocationName()] = s
		case shape.LocationHostLabel:
			s, err := headerString(f, fv)
			if err != nil {
				return Bindings{}, err
			}
			out.HostLabels[f.WireLocationName()] = s
		case shape.LocationPayload:
			out.Payload = f
			out.PayloadValue = fv
		case shape.LocationStatusCode:
			// Decode-only binding.
		default:
			body.Set(f.Name, fv)
		}
	}

	req.URL.RawQuery = query.Encode()
	if len(body.Entries) > 0 {
		out.Body = body
	}
	return out, nil
}

// UnmarshalMeta overlays header, header-map and status-code bindings
// from resp onto out, which already holds the decoded body members.
// Header-map keys come back in net/http's canonical casing (Foo, not
// foo), so key case is not preserved across a round trip.
func UnmarshalMeta(resp *http.Response, m *shape.Member, out *shape.Value) error {
	if out.Kind == shape.KindInvalid {
		*out = shape.Struct()
	}
	for i := range m.Fields {
		f := &m.Fields[i]
		switch f.Location {
		case shape.LocationHeader:
			hv := resp.Header.Get(f.WireLocationName())
			if hv == "" {
				continue
			}
			fv, err := parseHeader(f, hv)
			if err != nil {
				return err
			}
			out.Set(f.Name, fv)
		case shape.LocationHeaderMap:
			prefix := f.WireLocationName()
			entries := shape.Map()
			for name, vals := range resp.Header {
				if len(vals) == 0 || !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
					continue
				}
				entries.Entries = append(entries.Entries, shape.Entry{
					Key:   name[len(prefix):],
					Value: shape.String(vals[0]),
				})
			}
			if len(entries.Entries) > 0 {
				sortEntries(entries.Entries)
				out.Set(f.Name, entries)
			}
		case shape.LocationStatusCode:
			out.Set(f.Name, shape.Int(int64(resp.StatusCode)))
		}
	}
	return nil
}

// headerString converts a scalar to its reversible header/query/uri
// string form. Header timestamps default to the HTTP date format.
func headerString(m *shape.Member, v shape.Value) (string, error) {
	switch v.Kind {
	case shape.KindString, shape.KindNumber:
		return v.Str, nil
	case shape.KindBool:
		return strconv.FormatBool(v.Bool), nil
	case shape.KindBlob:
		return base64.StdEncoding.EncodeToString(v.Blob), nil
	case shape.KindTime:
		return protocol.FormatTime(v.Time, m.TimeFormat, shape.TimeHTTPDate), nil
	default:
		return "", fmt.Errorf("value kind %s cannot be header-encoded", v.Kind)
	}
}

func parseHeader(m *shape.Member, s string) (shape.Value, error) {
	path := m.Name
	switch m.Type {
	case shape.TypeString:
		if !m.InEnum(s) {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("enum value %q not recognized", s)}
		}
		return shape.String(s), nil
	case shape.TypeInteger, shape.TypeLong, shape.TypeDouble:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed number header", Err: err}
		}
		return shape.Number(s), nil
	case shape.TypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed bool header", Err: err}
		}
		return shape.Bool(b), nil
	case shape.TypeBlob:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed base64 header", Err: err}
		}
		return shape.Blob(b), nil
	case shape.TypeTimestamp:
		t, err := protocol.ParseTime(s, m.TimeFormat, shape.TimeHTTPDate)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed timestamp header", Err: err}
		}
		return shape.Time(t), nil
	default:
		return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "unsupported header type"}
	}
}

func sortEntries(entries []shape.Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
}

// Package jsonutil maps shape value trees to and from JSON bodies.
// Timestamps default to epoch seconds; members may opt into ISO-8601 or
// HTTP-date strings. Blobs are standard base64.
package jsonutil

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// Encode renders v as a JSON document. An absent value encodes as {} so
// JSON-protocol servers always receive a body.
func Encode(m *shape.Member, v shape.Value) ([]byte, error) {
	if v.IsZero() {
		return []byte("{}"), nil
	}
	tree, err := encodeValue(m, v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encodeValue(m *shape.Member, v shape.Value) (any, error) {
	switch m.Type {
	case shape.TypeStruct:
		obj := make(map[string]any, len(m.Fields))
		for i := range m.Fields {
			f := &m.Fields[i]
			fv := v.Get(f.Name)
			if fv.IsZero() {
				continue
			}
			enc, err := encodeValue(f, fv)
			if err != nil {
				return nil, err
			}
			obj[f.Name] = enc
		}
		return obj, nil
	case shape.TypeList:
		arr := make([]any, 0, len(v.List))
		for _, el := range v.List {
			enc, err := encodeValue(m.ListMember, el)
			if err != nil {
				return nil, err
			}
			arr = append(arr, enc)
		}
		return arr, nil
	case shape.TypeMap:
		obj := make(map[string]any, len(v.Entries))
		for _, e := range v.Entries {
			enc, err := encodeValue(m.MapValue, e.Value)
			if err != nil {
				return nil, err
			}
			obj[e.Key] = enc
		}
		return obj, nil
	case shape.TypeTimestamp:
		format := m.TimeFormat
		if format == shape.TimeDefault {
			format = shape.TimeEpochSeconds
		}
		s := protocol.FormatTime(v.Time, format, shape.TimeEpochSeconds)
		if format == shape.TimeEpochSeconds {
			return json.Number(s), nil
		}
		return s, nil
	case shape.TypeBlob:
		return base64.StdEncoding.EncodeToString(v.Blob), nil
	case shape.TypeBool:
		return v.Bool, nil
	case shape.TypeInteger, shape.TypeLong, shape.TypeDouble:
		return json.Number(v.Str), nil
	default:
		return v.Str, nil
	}
}

// Decode parses a JSON document into a value tree. Unknown object keys
// are ignored; missing required members and unrecognized enum values
// fail closed.
func Decode(m *shape.Member, data []byte) (shape.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return shape.Struct(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return shape.Value{}, &errdefs.CodecError{Path: m.Name, Reason: "malformed json", Err: err}
	}
	return decodeValue(m, raw, m.Name)
}

func decodeValue(m *shape.Member, raw any, path string) (shape.Value, error) {
	if raw == nil {
		return shape.Value{}, nil
	}
	switch m.Type {
	case shape.TypeStruct:
		obj, ok := raw.(map[string]any)
		if !ok {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("expected object, got %T", raw)}
		}
		out := shape.Struct()
		for i := range m.Fields {
			f := &m.Fields[i]
			child, present := obj[f.Name]
			if !present || child == nil {
				if f.Required && f.Location == shape.LocationBody {
					return shape.Value{}, &errdefs.CodecError{Path: path + "." + f.Name, Reason: "missing required member"}
				}
				continue
			}
			fv, err := decodeValue(f, child, path+"."+f.Name)
			if err != nil {
				return shape.Value{}, err
			}
			out.Set(f.Name, fv)
		}
		return out, nil
	case shape.TypeList:
		arr, ok := raw.([]any)
		if !ok {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("expected array, got %T", raw)}
		}
		out := shape.ListOf()
		for i, el := range arr {
			ev, err := decodeValue(m.ListMember, el, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return shape.Value{}, err
			}
			out.List = append(out.List, ev)
		}
		return out, nil
	case shape.TypeMap:
		obj, ok := raw.(map[string]any)
		if !ok {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("expected object, got %T", raw)}
		}
		out := shape.Map()
		for _, k := range sortedKeys(obj) {
			ev, err := decodeValue(m.MapValue, obj[k], path+"["+k+"]")
			if err != nil {
				return shape.Value{}, err
			}
			out.Entries = append(out.Entries, shape.Entry{Key: k, Value: ev})
		}
		return out, nil
	case shape.TypeString:
		s, ok := raw.(string)
		if !ok {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("expected string, got %T", raw)}
		}
		if !m.InEnum(s) {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("enum value %q not recognized", s)}
		}
		return shape.String(s), nil
	case shape.TypeInteger, shape.TypeLong, shape.TypeDouble:
		num, ok := raw.(json.Number)
		if !ok {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("expected number, got %T", raw)}
		}
		return shape.Number(num.String()), nil
	case shape.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("expected bool, got %T", raw)}
		}
		return shape.Bool(b), nil
	case shape.TypeBlob:
		s, ok := raw.(string)
		if !ok {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("expected base64 string, got %T", raw)}
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed base64", Err: err}
		}
		return shape.Blob(b), nil
	case shape.TypeTimestamp:
		format := m.TimeFormat
		if format == shape.TimeDefault {
			format = shape.TimeEpochSeconds
		}
		var text string
		switch t := raw.(type) {
		case json.Number:
			text = t.String()
		case string:
			text = t
		default:
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("expected timestamp, got %T", raw)}
		}
		ts, err := protocol.ParseTime(text, format, shape.TimeEpochSeconds)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed timestamp", Err: err}
		}
		return shape.Time(ts), nil
	default:
		return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "unsupported member type"}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

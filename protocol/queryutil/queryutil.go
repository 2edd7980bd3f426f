// Package queryutil flattens a shape value tree into the key=value pairs
// of the Query wire protocol and reassembles a tree from them. Nested
// structs extend the key path with ".", list elements with a 1-based
// index and map entries with the map key.
package queryutil

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// Build flattens v into values. With ec2 set, the first letter of every
// struct-derived key segment is upper-cased (the EC2 protocol variant).
// Callers serialize with url.Values.Encode, which sorts keys and keeps
// the output byte-identical between runs for signature stability.
func Build(values url.Values, root *shape.Member, v shape.Value, ec2 bool) error {
	if v.IsZero() {
		return nil
	}
	if root.Type != shape.TypeStruct {
		return fmt.Errorf("query body must be a struct shape, got %s", v.Kind)
	}
	for i := range root.Fields {
		f := &root.Fields[i]
		fv := v.Get(f.Name)
		if fv.IsZero() {
			continue
		}
		name := f.Name
		if ec2 {
			name = capitalize(name)
		}
		if err := flatten(values, name, f, fv, ec2); err != nil {
			return err
		}
	}
	return nil
}

func flatten(values url.Values, prefix string, m *shape.Member, v shape.Value, ec2 bool) error {
	switch m.Type {
	case shape.TypeStruct:
		for i := range m.Fields {
			f := &m.Fields[i]
			fv := v.Get(f.Name)
			if fv.IsZero() {
				continue
			}
			name := f.Name
			if ec2 {
				name = capitalize(name)
			}
			if err := flatten(values, prefix+"."+name, f, fv, ec2); err != nil {
				return err
			}
		}
	case shape.TypeList:
		for i, el := range v.List {
			if err := flatten(values, prefix+"."+strconv.Itoa(i+1), m.ListMember, el, ec2); err != nil {
				return err
			}
		}
	case shape.TypeMap:
		// Map keys are caller data, never case-transformed.
		for _, e := range v.Entries {
			if err := flatten(values, prefix+"."+e.Key, m.MapValue, e.Value, ec2); err != nil {
				return err
			}
		}
	default:
		s, err := scalarString(m, v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", prefix, err)
		}
		values.Set(prefix, s)
	}
	return nil
}

func scalarString(m *shape.Member, v shape.Value) (string, error) {
	switch v.Kind {
	case shape.KindString, shape.KindNumber:
		return v.Str, nil
	case shape.KindBool:
		return strconv.FormatBool(v.Bool), nil
	case shape.KindBlob:
		return base64.StdEncoding.EncodeToString(v.Blob), nil
	case shape.KindTime:
		return protocol.FormatTime(v.Time, m.TimeFormat, shape.TimeISO8601), nil
	default:
		return "", fmt.Errorf("value kind %s is not a query scalar", v.Kind)
	}
}

// Parse is the inverse of Build. Decode applies no case transformation;
// the EC2 variant only differs on the encode side.
func Parse(values url.Values, root *shape.Member) (shape.Value, error) {
	out := shape.Struct()
	for i := range root.Fields {
		f := &root.Fields[i]
		fv, err := unflatten(values, f.Name, f)
		if err != nil {
			return shape.Value{}, err
		}
		if !fv.IsZero() {
			out.Set(f.Name, fv)
		}
	}
	return out, nil
}

func unflatten(values url.Values, prefix string, m *shape.Member) (shape.Value, error) {
	switch m.Type {
	case shape.TypeStruct:
		out := shape.Struct()
		for i := range m.Fields {
			f := &m.Fields[i]
			fv, err := unflatten(values, prefix+"."+f.Name, f)
			if err != nil {
				return shape.Value{}, err
			}
			if !fv.IsZero() {
				out.Set(f.Name, fv)
			}
		}
		if len(out.Entries) == 0 {
			return shape.Value{}, nil
		}
		return out, nil
	case shape.TypeList:
		out := shape.ListOf()
		for i := 1; ; i++ {
			key := prefix + "." + strconv.Itoa(i)
			if !hasKey(values, key) {
				break
			}
			el, err := unflatten(values, key, m.ListMember)
			if err != nil {
				return shape.Value{}, err
			}
			out.List = append(out.List, el)
		}
		if len(out.List) == 0 {
			return shape.Value{}, nil
		}
		return out, nil
	case shape.TypeMap:
		out := shape.Map()
		for _, mk := range mapKeys(values, prefix+".") {
			mv, err := unflatten(values, prefix+"."+mk, m.MapValue)
			if err != nil {
				return shape.Value{}, err
			}
			out.Entries = append(out.Entries, shape.Entry{Key: mk, Value: mv})
		}
		if len(out.Entries) == 0 {
			return shape.Value{}, nil
		}
		return out, nil
	default:
		vs, ok := values[prefix]
		if !ok || len(vs) == 0 {
			return shape.Value{}, nil
		}
		return parseScalar(m, prefix, vs[0])
	}
}

func parseScalar(m *shape.Member, path, s string) (shape.Value, error) {
	switch m.Type {
	case shape.TypeString:
		if !m.InEnum(s) {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("enum value %q not recognized", s)}
		}
		return shape.String(s), nil
	case shape.TypeInteger, shape.TypeLong, shape.TypeDouble:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed number", Err: err}
		}
		return shape.Number(s), nil
	case shape.TypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed bool", Err: err}
		}
		return shape.Bool(b), nil
	case shape.TypeBlob:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed base64", Err: err}
		}
		return shape.Blob(b), nil
	case shape.TypeTimestamp:
		t, err := protocol.ParseTime(s, m.TimeFormat, shape.TimeISO8601)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed timestamp", Err: err}
		}
		return shape.Time(t), nil
	default:
		return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "unsupported scalar type"}
	}
}

// hasKey reports whether any flattened key equals prefix or extends it.
func hasKey(values url.Values, prefix string) bool {
	if _, ok := values[prefix]; ok {
		return true
	}
	for k := range values {
		if strings.HasPrefix(k, prefix+".") {
			return true
		}
	}
	return false
}

// mapKeys returns the sorted distinct first path segments under prefix.
func mapKeys(values url.Values, prefix string) []string {
	seen := map[string]bool{}
	var keys []string
	for k := range values {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if i := strings.IndexByte(rest, '.'); i >= 0 {
			rest = rest[:i]
		}
		if rest != "" && !seen[rest] {
			seen[rest] = true
			keys = append(keys, rest)
		}
	}
	sort.Strings(keys)
	return keys
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

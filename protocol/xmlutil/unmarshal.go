package xmlutil

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
	"github.com/cirrusws/cirrus-sdk-go/protocol"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// Unmarshal decodes the element into a value tree. Decoding fails
// closed: a missing required element or an enum value outside the
// declared set yields an error, never a substituted default. Elements
// the schema does not mention are ignored.
func Unmarshal(m *shape.Member, node *Node) (shape.Value, error) {
	return decodeStruct(m, node, m.Name)
}

func decodeStruct(m *shape.Member, node *Node, path string) (shape.Value, error) {
	out := shape.Struct()
	for i := range m.Fields {
		f := &m.Fields[i]
		fv, err := decodeMember(f, node, path+"."+f.Name)
		if err != nil {
			return shape.Value{}, err
		}
		if fv.IsZero() {
			if f.Required && f.Location == shape.LocationBody {
				return shape.Value{}, &errdefs.CodecError{Path: path + "." + f.Name, Reason: "missing required element"}
			}
			continue
		}
		out.Set(f.Name, fv)
	}
	return out, nil
}

func decodeMember(m *shape.Member, parent *Node, path string) (shape.Value, error) {
	name := m.WireLocationName()
	switch m.Type {
	case shape.TypeStruct:
		node := parent.Child(name)
		if node == nil {
			return shape.Value{}, nil
		}
		return decodeStruct(m, node, path)
	case shape.TypeList:
		var nodes []*Node
		if m.Flattened {
			nodes = parent.ChildrenNamed(name)
		} else if wrapper := parent.Child(name); wrapper != nil {
			nodes = wrapper.ChildrenNamed(listMemberTag(m))
		}
		if len(nodes) == 0 {
			return shape.Value{}, nil
		}
		out := shape.ListOf()
		for i, n := range nodes {
			el, err := decodeElement(m.ListMember, n, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return shape.Value{}, err
			}
			out.List = append(out.List, el)
		}
		return out, nil
	case shape.TypeMap:
		var entries []*Node
		if m.Flattened {
			entries = parent.ChildrenNamed(name)
		} else if wrapper := parent.Child(name); wrapper != nil {
			entries = wrapper.ChildrenNamed(entryTag(m))
		}
		if len(entries) == 0 {
			return shape.Value{}, nil
		}
		keyTag, valueTag := mapEntryTags(m)
		out := shape.Map()
		for _, entry := range entries {
			var key string
			var valueNode *Node
			if m.XMLKeyAttribute {
				attr, ok := entry.AttrValue(keyTag)
				if !ok {
					return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("map entry missing %s attribute", keyTag)}
				}
				key, valueNode = attr, entry
			} else {
				keyNode := entry.Child(keyTag)
				valueNode = entry.Child(valueTag)
				if keyNode == nil || valueNode == nil {
					return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "map entry missing key or value element"}
				}
				key = keyNode.Text
			}
			ev, err := decodeElement(m.MapValue, valueNode, path+"["+key+"]")
			if err != nil {
				return shape.Value{}, err
			}
			out.Entries = append(out.Entries, shape.Entry{Key: key, Value: ev})
		}
		return out, nil
	default:
		node := parent.Child(name)
		if node == nil {
			return shape.Value{}, nil
		}
		return decodeScalar(m, node.Text, path)
	}
}

// decodeElement decodes a node that is itself the member (a list element
// or map value), as opposed to a child looked up by name.
func decodeElement(m *shape.Member, node *Node, path string) (shape.Value, error) {
	switch m.Type {
	case shape.TypeStruct:
		return decodeStruct(m, node, path)
	case shape.TypeList, shape.TypeMap:
		// Nested containers reuse the named lookup against the element.
		return decodeMember(m, node, path)
	default:
		return decodeScalar(m, node.Text, path)
	}
}

func decodeScalar(m *shape.Member, text, path string) (shape.Value, error) {
	switch m.Type {
	case shape.TypeString:
		if !m.InEnum(text) {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: fmt.Sprintf("enum value %q not recognized", text)}
		}
		return shape.String(text), nil
	case shape.TypeInteger, shape.TypeLong, shape.TypeDouble:
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed number", Err: err}
		}
		return shape.Number(text), nil
	case shape.TypeBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed bool", Err: err}
		}
		return shape.Bool(b), nil
	case shape.TypeBlob:
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed base64", Err: err}
		}
		return shape.Blob(b), nil
	case shape.TypeTimestamp:
		t, err := protocol.ParseTime(text, m.TimeFormat, shape.TimeISO8601)
		if err != nil {
			return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "malformed timestamp", Err: err}
		}
		return shape.Time(t), nil
	default:
		return shape.Value{}, &errdefs.CodecError{Path: path, Reason: "unsupported scalar type"}
	}
}

package xmlutil

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/cirrusws/cirrus-sdk-go/protocol"
	"github.com/cirrusws/cirrus-sdk-go/shape"
)

// Build encodes v as an XML element named after the member (or its
// LocationName override). Lists serialize flattened (repeated siblings)
// or wrapped in per-entry member elements. Maps serialize as entry
// elements (tag configurable) holding <key> and <value> children,
// without the wrapper element when flattened, or with the key as an
// attribute on the entry element in the attribute-bearing form.
func Build(m *shape.Member, v shape.Value) (*Node, error) {
	root := NewNode(m.WireLocationName())
	if m.XMLNamespace != "" {
		root.Attr = append(root.Attr, xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: m.XMLNamespace})
	}
	if err := buildInto(root, m, v); err != nil {
		return nil, err
	}
	return root, nil
}

// buildInto fills parent with the encoding of a struct/map/list value,
// or sets its text for scalars.
func buildInto(parent *Node, m *shape.Member, v shape.Value) error {
	switch m.Type {
	case shape.TypeStruct:
		for i := range m.Fields {
			f := &m.Fields[i]
			fv := v.Get(f.Name)
			if fv.IsZero() {
				continue
			}
			if err := appendMember(parent, f, fv, f.WireLocationName()); err != nil {
				return err
			}
		}
		return nil
	case shape.TypeList, shape.TypeMap:
		return fmt.Errorf("xml body root must be a struct shape")
	default:
		s, err := scalarText(m, v)
		if err != nil {
			return err
		}
		parent.Text = s
		return nil
	}
}

func appendMember(parent *Node, m *shape.Member, v shape.Value, name string) error {
	switch m.Type {
	case shape.TypeStruct:
		child := NewNode(name)
		if m.XMLNamespace != "" {
			child.Attr = append(child.Attr, xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: m.XMLNamespace})
		}
		parent.AddChild(child)
		return buildInto(child, m, v)
	case shape.TypeList:
		if m.Flattened {
			for _, el := range v.List {
				if err := appendMember(parent, m.ListMember, el, name); err != nil {
					return err
				}
			}
			return nil
		}
		wrapper := parent.AddChild(NewNode(name))
		tag := listMemberTag(m)
		for _, el := range v.List {
			if err := appendMember(wrapper, m.ListMember, el, tag); err != nil {
				return err
			}
		}
		return nil
	case shape.TypeMap:
		keyTag, valueTag := mapEntryTags(m)
		appendEntry := func(into *Node, e shape.Entry) error {
			if m.XMLKeyAttribute {
				into.Attr = append(into.Attr, xml.Attr{Name: xml.Name{Local: keyTag}, Value: e.Key})
				return entryContent(into, m.MapValue, e.Value)
			}
			into.AddText(keyTag, e.Key)
			return appendMember(into, m.MapValue, e.Value, valueTag)
		}
		if m.Flattened {
			// Flat form: one element per entry, no wrapper.
			for _, e := range v.Entries {
				if err := appendEntry(parent.AddChild(NewNode(name)), e); err != nil {
					return err
				}
			}
			return nil
		}
		wrapper := parent.AddChild(NewNode(name))
		for _, e := range v.Entries {
			if err := appendEntry(wrapper.AddChild(NewNode(entryTag(m))), e); err != nil {
				return err
			}
		}
		return nil
	default:
		s, err := scalarText(m, v)
		if err != nil {
			return err
		}
		parent.AddText(name, s)
		return nil
	}
}

// entryContent encodes a map value as the content of an existing entry
// element: struct fields become children, scalars become the element
// text. Nested containers keep their named form inside the entry.
func entryContent(entry *Node, m *shape.Member, v shape.Value) error {
	switch m.Type {
	case shape.TypeStruct:
		return buildInto(entry, m, v)
	case shape.TypeList, shape.TypeMap:
		return appendMember(entry, m, v, m.WireLocationName())
	default:
		s, err := scalarText(m, v)
		if err != nil {
			return err
		}
		entry.Text = s
		return nil
	}
}

func scalarText(m *shape.Member, v shape.Value) (string, error) {
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
		return "", fmt.Errorf("value kind %s is not an xml scalar", v.Kind)
	}
}

func listMemberTag(m *shape.Member) string {
	if m.ListMember != nil && m.ListMember.Name != "" {
		return m.ListMember.Name
	}
	return "member"
}

func entryTag(m *shape.Member) string {
	if m.XMLEntryTag != "" {
		return m.XMLEntryTag
	}
	return "entry"
}

func mapEntryTags(m *shape.Member) (key, value string) {
	key, value = "key", "value"
	if m.MapKey != nil && m.MapKey.Name != "" {
		key = m.MapKey.Name
	}
	if m.MapValue != nil && m.MapValue.Name != "" {
		value = m.MapValue.Name
	}
	return key, value
}

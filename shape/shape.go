// Package shape describes the typed input and output of an API operation.
//
// A Shape is a static, generated description of where each member of an
// operation travels in an HTTP message (body, header, query string, URI
// path, ...) and how it is encoded on the wire. The codec packages under
// protocol/ consume this metadata together with a [Value] tree; no runtime
// struct reflection is involved.
package shape

import "regexp"

// Location identifies where a member is carried in an HTTP message.
// The zero value means the member travels in the protocol's default
// body encoding.
type Location int

const (
	// LocationBody places the member in the protocol body (default).
	LocationBody Location = iota
	// LocationHeader binds a scalar member to a single named header.
	LocationHeader
	// LocationHeaderMap binds a string map to one header per entry,
	// each named by a shared prefix plus the entry key.
	LocationHeaderMap
	// LocationQuery binds a scalar or list member to the URL query string.
	LocationQuery
	// LocationURI substitutes the member into a {name} or {name+} path
	// template placeholder.
	LocationURI
	// LocationPayload replaces the entire body with the member's own
	// encoding.
	LocationPayload
	// LocationStatusCode binds the HTTP status code to an integer member.
	// Decode only.
	LocationStatusCode
	// LocationHostLabel substitutes the member into the operation's
	// host-prefix template.
	LocationHostLabel
)

// Type is the wire type of a member.
type Type int

const (
	TypeString Type = iota
	TypeInteger
	TypeLong
	TypeDouble
	TypeBool
	TypeBlob
	TypeTimestamp
	TypeStruct
	TypeList
	TypeMap
)

// TimestampFormat selects the wire representation of a timestamp member.
type TimestampFormat int

const (
	// TimeDefault defers to the protocol default: epoch seconds for the
	// JSON protocols, ISO-8601 for Query/EC2 and the XML body, HTTP date
	// for headers.
	TimeDefault TimestampFormat = iota
	TimeEpochSeconds
	TimeISO8601
	TimeHTTPDate
)

// Member describes one member of a shape, or (recursively) the shape
// itself. The top-level member of an operation input/output is always a
// TypeStruct whose Fields carry the operation's members in declaration
// order.
type Member struct {
	// Name is the wire name: the JSON field, XML element, or query key.
	Name string

	Type Type

	Location Location

	// LocationName overrides Name for header/query/uri bindings. Empty
	// means Name is used as-is.
	LocationName string

	Required bool

	// Enum is the closed set of allowed values for a string member.
	// Decoding a value outside the set fails, it is never replaced by a
	// default.
	Enum []string

	// TimeFormat applies to TypeTimestamp members.
	TimeFormat TimestampFormat

	// Flattened lists serialize as repeated siblings without the wrapper
	// element; flattened maps drop the <entry> wrapper.
	Flattened bool

	// XMLNamespace is emitted as an xmlns attribute on the member's
	// element when set.
	XMLNamespace string

	// ContentType declares the media type of a raw payload member.
	// Empty falls back to the protocol default.
	ContentType string

	// Fields are the members of a TypeStruct, in declaration order.
	Fields []Member

	// ListMember describes the element of a TypeList. Its Name is the
	// XML member tag (empty means "member").
	ListMember *Member

	// MapKey and MapValue describe TypeMap entries. Their Names are the
	// XML tags (empty means "key"/"value").
	MapKey   *Member
	MapValue *Member

	// XMLEntryTag overrides the per-entry element tag of an XML map
	// (empty means "entry").
	XMLEntryTag string

	// XMLKeyAttribute selects the attribute-bearing XML map form: each
	// entry element carries its key as an attribute (named by the key
	// tag) and the value as the element content, instead of <key> and
	// <value> child elements.
	XMLKeyAttribute bool

	// Validation constraints, applied client-side before a request is
	// built. Pattern is compiled once at generation time.
	MinLength *int
	MaxLength *int
	MinValue  *float64
	MaxValue  *float64
	Pattern   *regexp.Regexp
}

// WireLocationName returns the name the member is bound to outside the
// body: the explicit LocationName when set, otherwise the wire name.
func (m *Member) WireLocationName() string {
	if m.LocationName != "" {
		return m.LocationName
	}
	return m.Name
}

// Field returns the struct field with the given wire name.
func (m *Member) Field(name string) *Member {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i]
		}
	}
	return nil
}

// PayloadField returns the member bound to LocationPayload, if any.
func (m *Member) PayloadField() *Member {
	for i := range m.Fields {
		if m.Fields[i].Location == LocationPayload {
			return &m.Fields[i]
		}
	}
	return nil
}

// InEnum reports whether s is allowed by the member's enum constraint.
// Members without an enum accept any value.
func (m *Member) InEnum(s string) bool {
	if len(m.Enum) == 0 {
		return true
	}
	for _, e := range m.Enum {
		if e == s {
			return true
		}
	}
	return false
}

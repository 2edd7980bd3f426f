package shape

import (
	"strconv"
	"time"
)

// Kind discriminates the closed set of Value variants.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindBlob
	KindTime
	KindList
	KindMap
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindBlob:
		return "blob"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindStruct:
		return "struct"
	default:
		return "invalid"
	}
}

// Value is a closed tagged union holding one operation input or output
// tree. Generated code builds a Value from its typed parameters; the
// codecs never see the caller's structs. Numbers are carried as decimal
// text so 64-bit integers survive a round-trip unharmed.
//
// The zero Value is "absent": optional members that were not set.
type Value struct {
	Kind Kind

	// Str holds KindString values and the decimal text of KindNumber.
	Str  string
	Bool bool
	Blob []byte
	Time time.Time

	// List holds KindList elements in order.
	List []Value

	// Entries holds KindMap and KindStruct members in declaration or
	// insertion order. Order is preserved so encoders stay deterministic.
	Entries []Entry
}

// Entry is one keyed child of a map or struct Value.
type Entry struct {
	Key   string
	Value Value
}

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Int returns a number Value from an int64.
func Int(i int64) Value { return Value{Kind: KindNumber, Str: strconv.FormatInt(i, 10)} }

// Float returns a number Value from a float64.
func Float(f float64) Value {
	return Value{Kind: KindNumber, Str: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Number returns a number Value from pre-rendered decimal text.
func Number(text string) Value { return Value{Kind: KindNumber, Str: text} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Blob returns a binary Value.
func Blob(b []byte) Value { return Value{Kind: KindBlob, Blob: b} }

// Time returns a timestamp Value.
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// ListOf returns a list Value.
func ListOf(elems ...Value) Value { return Value{Kind: KindList, List: elems} }

// Struct returns a struct Value with fields in the given order.
func Struct(fields ...Entry) Value { return Value{Kind: KindStruct, Entries: fields} }

// Map returns a map Value with entries in the given order.
func Map(entries ...Entry) Value { return Value{Kind: KindMap, Entries: entries} }

// Field is a convenience constructor for struct/map entries.
func Field(key string, v Value) Entry { return Entry{Key: key, Value: v} }

// IsZero reports whether the value is absent.
func (v Value) IsZero() bool { return v.Kind == KindInvalid }

// Get returns the child entry with the given key of a struct or map
// Value, or a zero Value.
func (v Value) Get(key string) Value {
	for _, e := range v.Entries {
		if e.Key == key {
			return e.Value
		}
	}
	return Value{}
}

// Set appends or replaces the child entry with the given key.
func (v *Value) Set(key string, child Value) {
	for i := range v.Entries {
		if v.Entries[i].Key == key {
			v.Entries[i].Value = child
			return
		}
	}
	v.Entries = append(v.Entries, Entry{Key: key, Value: child})
}

// Int64 returns the numeric value as an int64.
func (v Value) Int64() (int64, error) {
	return strconv.ParseInt(v.Str, 10, 64)
}

// Float64 returns the numeric value as a float64.
func (v Value) Float64() (float64, error) {
	return strconv.ParseFloat(v.Str, 64)
}

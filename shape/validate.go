package shape

import (
	"fmt"
	"strconv"

	"github.com/cirrusws/cirrus-sdk-go/errdefs"
)

// Validate checks v against the member's client-side constraints:
// required members present, length and range bounds, regex patterns and
// enum sets. It is run before a request is built; violations are never
// retried.
func Validate(m *Member, v Value) error {
	return validate(m, v, m.Name)
}

func validate(m *Member, v Value, path string) error {
	if v.IsZero() {
		if m.Required {
			return &errdefs.ValidationError{Path: path, Constraint: "required", Message: "missing required member"}
		}
		return nil
	}

	switch m.Type {
	case TypeString:
		if err := checkLength(m, len(v.Str), path); err != nil {
			return err
		}
		if m.Pattern != nil && !m.Pattern.MatchString(v.Str) {
			return &errdefs.ValidationError{
				Path:       path,
				Constraint: "pattern",
				Message:    fmt.Sprintf("value %q does not match %s", v.Str, m.Pattern),
			}
		}
		if !m.InEnum(v.Str) {
			return &errdefs.ValidationError{
				Path:       path,
				Constraint: "enum",
				Message:    fmt.Sprintf("value %q is not in the allowed set", v.Str),
			}
		}
	case TypeInteger, TypeLong, TypeDouble:
		f, err := v.Float64()
		if err != nil {
			return &errdefs.ValidationError{Path: path, Constraint: "number", Message: "malformed number " + strconv.Quote(v.Str)}
		}
		if m.MinValue != nil && f < *m.MinValue {
			return &errdefs.ValidationError{
				Path:       path,
				Constraint: "min",
				Message:    fmt.Sprintf("value %v is less than minimum %v", f, *m.MinValue),
			}
		}
		if m.MaxValue != nil && f > *m.MaxValue {
			return &errdefs.ValidationError{
				Path:       path,
				Constraint: "max",
				Message:    fmt.Sprintf("value %v is greater than maximum %v", f, *m.MaxValue),
			}
		}
	case TypeBlob:
		if err := checkLength(m, len(v.Blob), path); err != nil {
			return err
		}
	case TypeList:
		if err := checkLength(m, len(v.List), path); err != nil {
			return err
		}
		if m.ListMember != nil {
			for i, el := range v.List {
				if err := validate(m.ListMember, el, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	case TypeMap:
		if err := checkLength(m, len(v.Entries), path); err != nil {
			return err
		}
		if m.MapValue != nil {
			for _, e := range v.Entries {
				if err := validate(m.MapValue, e.Value, path+"["+e.Key+"]"); err != nil {
					return err
				}
			}
		}
	case TypeStruct:
		for i := range m.Fields {
			f := &m.Fields[i]
			if err := validate(f, v.Get(f.Name), path+"."+f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkLength(m *Member, n int, path string) error {
	if m.MinLength != nil && n < *m.MinLength {
		return &errdefs.ValidationError{
			Path:       path,
			Constraint: "minLength",
			Message:    fmt.Sprintf("length %d is less than minimum %d", n, *m.MinLength),
		}
	}
	if m.MaxLength != nil && n > *m.MaxLength {
		return &errdefs.ValidationError{
			Path:       path,
			Constraint: "maxLength",
			Message:    fmt.Sprintf("length %d is greater than maximum %d", n, *m.MaxLength),
		}
	}
	return nil
}

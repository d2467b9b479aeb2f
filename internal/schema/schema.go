// Package schema defines the declared fields of a generated dataset.
package schema

import (
	"fmt"
	"strings"
)

// FieldType enumerates declared field types.
type FieldType int

// Field type constants.
const (
	TypeDecimal FieldType = iota
	TypeInteger
	TypeString
	TypeDatetime
	TypeDate
)

// Kind groups field types that share a restriction domain.
type Kind int

// Kind constants.
const (
	KindNumeric Kind = iota
	KindString
	KindDatetime
)

// Kind returns the restriction domain of the type.
func (t FieldType) Kind() Kind {
	switch t {
	case TypeDecimal, TypeInteger:
		return KindNumeric
	case TypeDatetime, TypeDate:
		return KindDatetime
	default:
		return KindString
	}
}

func (t FieldType) String() string {
	switch t {
	case TypeDecimal:
		return "decimal"
	case TypeInteger:
		return "integer"
	case TypeString:
		return "string"
	case TypeDatetime:
		return "datetime"
	case TypeDate:
		return "date"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDatetime:
		return "datetime"
	default:
		return "string"
	}
}

// ParseFieldType maps a profile type name to a FieldType.
func ParseFieldType(name string) (FieldType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "decimal", "numeric", "number", "float", "double":
		return TypeDecimal, true
	case "integer", "int", "long":
		return TypeInteger, true
	case "string", "text", "varchar":
		return TypeString, true
	case "datetime", "timestamp":
		return TypeDatetime, true
	case "date":
		return TypeDate, true
	default:
		return 0, false
	}
}

// Field describes a dataset column.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
	Unique   bool
	// Format is an output hint: a fmt verb for numerics, a Go time layout for datetimes.
	Format string
}

// SQLType returns the SQL type string for this field.
func (f Field) SQLType() string {
	switch f.Type {
	case TypeDecimal:
		return "DECIMAL(42,20)"
	case TypeInteger:
		return "BIGINT"
	case TypeDatetime:
		return "DATETIME(3)"
	case TypeDate:
		return "DATE"
	default:
		return "VARCHAR(1024)"
	}
}

func (f Field) String() string {
	return f.Name
}

// ProfileFields is the ordered, immutable set of declared fields.
type ProfileFields struct {
	fields []Field
	index  map[string]int
}

// NewProfileFields builds a field set. Duplicate names are rejected.
func NewProfileFields(fields []Field) (ProfileFields, error) {
	out := ProfileFields{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return ProfileFields{}, fmt.Errorf("field name must not be empty")
		}
		if _, ok := out.index[f.Name]; ok {
			return ProfileFields{}, fmt.Errorf("duplicate field %q", f.Name)
		}
		out.index[f.Name] = len(out.fields)
		out.fields = append(out.fields, f)
	}
	return out, nil
}

// MustProfileFields is NewProfileFields for statically known fields.
func MustProfileFields(fields ...Field) ProfileFields {
	pf, err := NewProfileFields(fields)
	if err != nil {
		panic(err)
	}
	return pf
}

// Len returns the number of fields.
func (p ProfileFields) Len() int {
	return len(p.fields)
}

// At returns the field at position i.
func (p ProfileFields) At(i int) Field {
	return p.fields[i]
}

// All returns a copy of the fields in declaration order.
func (p ProfileFields) All() []Field {
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// ByName returns a field by name if present.
func (p ProfileFields) ByName(name string) (Field, bool) {
	i, ok := p.index[name]
	if !ok {
		return Field{}, false
	}
	return p.fields[i], true
}

// IndexOf returns the position of the named field, or -1.
func (p ProfileFields) IndexOf(name string) int {
	i, ok := p.index[name]
	if !ok {
		return -1
	}
	return i
}

// Names returns field names in declaration order.
func (p ProfileFields) Names() []string {
	out := make([]string, 0, len(p.fields))
	for _, f := range p.fields {
		out = append(out, f.Name)
	}
	return out
}

// Equal reports whether both sets declare the same fields in the same order.
func (p ProfileFields) Equal(other ProfileFields) bool {
	if len(p.fields) != len(other.fields) {
		return false
	}
	for i := range p.fields {
		if p.fields[i] != other.fields[i] {
			return false
		}
	}
	return true
}

package constraint

import (
	"fmt"

	"rowsynth/internal/restriction"
	"rowsynth/internal/schema"
)

// RelationKind compares one field against another.
type RelationKind int

// RelationKind constants. For datetime fields GreaterThan reads as after
// and LessThan as before.
const (
	RelEqual RelationKind = iota
	RelNotEqual
	RelGreaterThan
	RelGreaterThanOrEqual
	RelLessThan
	RelLessThanOrEqual
)

// Negate returns the complementary relation.
func (k RelationKind) Negate() RelationKind {
	switch k {
	case RelEqual:
		return RelNotEqual
	case RelNotEqual:
		return RelEqual
	case RelGreaterThan:
		return RelLessThanOrEqual
	case RelGreaterThanOrEqual:
		return RelLessThan
	case RelLessThan:
		return RelGreaterThanOrEqual
	default:
		return RelGreaterThan
	}
}

func (k RelationKind) String() string {
	switch k {
	case RelEqual:
		return "=="
	case RelNotEqual:
		return "!="
	case RelGreaterThan:
		return ">"
	case RelGreaterThanOrEqual:
		return ">="
	case RelLessThan:
		return "<"
	default:
		return "<="
	}
}

// Relation requires Main KIND (Other + Offset). For datetime fields the
// offset counts Unit steps; for numerics it is added directly.
type Relation struct {
	Main   schema.Field
	Other  schema.Field
	Kind   RelationKind
	Offset int64
	Unit   restriction.TimeUnit
}

func (Relation) constraint() {}

// Field returns the dependent field.
func (r Relation) Field() schema.Field { return r.Main }

// Negate returns the complementary relation.
func (r Relation) Negate() Relation {
	r.Kind = r.Kind.Negate()
	return r
}

func (r Relation) Key() string {
	if r.Offset == 0 {
		return fmt.Sprintf("%s %s field %s", r.Main.Name, r.Kind, r.Other.Name)
	}
	if r.Main.Type.Kind() == schema.KindDatetime {
		return fmt.Sprintf("%s %s field %s %+d %s", r.Main.Name, r.Kind, r.Other.Name, r.Offset, r.Unit)
	}
	return fmt.Sprintf("%s %s field %s %+d", r.Main.Name, r.Kind, r.Other.Name, r.Offset)
}

func (r Relation) String() string { return r.Key() }

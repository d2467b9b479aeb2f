// Package constraint defines the closed constraint language: atomic
// predicates on one field, relations between two fields and the logical
// combinators over them.
package constraint

import (
	"fmt"
	"strings"
	"time"

	"rowsynth/internal/restriction"
	"rowsynth/internal/schema"

	"github.com/shopspring/decimal"
)

// Constraint is any node of a profile's constraint expression.
type Constraint interface {
	String() string
	constraint()
}

// Atomic is a leaf predicate. Two atomics are the same constraint when
// their keys are equal.
type Atomic interface {
	Constraint
	Field() schema.Field
	Key() string
}

// Negate returns the complement of an atomic. Double negation cancels.
func Negate(a Atomic) Atomic {
	if n, ok := a.(Negated); ok {
		return n.Inner
	}
	if r, ok := a.(Relation); ok {
		return r.Negate()
	}
	return Negated{Inner: a}
}

// BoundOp is a comparison against a constant.
type BoundOp int

// BoundOp constants.
const (
	GreaterThan BoundOp = iota
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

// Flip returns the operator of the complementary bound.
func (op BoundOp) Flip() BoundOp {
	switch op {
	case GreaterThan:
		return LessThanOrEqual
	case GreaterThanOrEqual:
		return LessThan
	case LessThan:
		return GreaterThanOrEqual
	default:
		return GreaterThan
	}
}

// IsLower reports whether the operator bounds from below.
func (op BoundOp) IsLower() bool {
	return op == GreaterThan || op == GreaterThanOrEqual
}

// Inclusive reports whether equality satisfies the operator.
func (op BoundOp) Inclusive() bool {
	return op == GreaterThanOrEqual || op == LessThanOrEqual
}

func (op BoundOp) String() string {
	switch op {
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case LessThan:
		return "<"
	default:
		return "<="
	}
}

// IsNull requires the field to be null.
type IsNull struct {
	F schema.Field
}

// InSet restricts the field to a weighted whitelist.
type InSet struct {
	F      schema.Field
	Values *restriction.DistributedList
}

// NumericBound compares a numeric field against a constant.
type NumericBound struct {
	F     schema.Field
	Op    BoundOp
	Value decimal.Decimal
}

// DateBound compares a datetime field against an instant.
type DateBound struct {
	F     schema.Field
	Op    BoundOp
	Value time.Time
}

// NumericGranularTo restricts a numeric field to a number of decimal places.
type NumericGranularTo struct {
	F     schema.Field
	Scale int32
}

// DateGranularTo restricts a datetime field to a time unit grid.
type DateGranularTo struct {
	F    schema.Field
	Unit restriction.TimeUnit
}

// LengthOp is a string length comparison.
type LengthOp int

// LengthOp constants.
const (
	OfLength LengthOp = iota
	ShorterThan
	LongerThan
)

// StringLength constrains the rune length of a string field.
type StringLength struct {
	F      schema.Field
	Op     LengthOp
	Length int
}

// Matches requires a string field to match a pattern.
type Matches struct {
	F       schema.Field
	Pattern restriction.Pattern
}

// Negated is the complement of an atomic.
type Negated struct {
	Inner Atomic
}

func (IsNull) constraint()            {}
func (InSet) constraint()             {}
func (NumericBound) constraint()      {}
func (DateBound) constraint()         {}
func (NumericGranularTo) constraint() {}
func (DateGranularTo) constraint()    {}
func (StringLength) constraint()      {}
func (Matches) constraint()           {}
func (Negated) constraint()           {}

func (c IsNull) Field() schema.Field            { return c.F }
func (c InSet) Field() schema.Field             { return c.F }
func (c NumericBound) Field() schema.Field      { return c.F }
func (c DateBound) Field() schema.Field         { return c.F }
func (c NumericGranularTo) Field() schema.Field { return c.F }
func (c DateGranularTo) Field() schema.Field    { return c.F }
func (c StringLength) Field() schema.Field      { return c.F }
func (c Matches) Field() schema.Field           { return c.F }
func (c Negated) Field() schema.Field           { return c.Inner.Field() }

func (c IsNull) Key() string { return c.F.Name + " is null" }

func (c InSet) Key() string {
	keys := make([]string, 0, c.Values.Len())
	for _, e := range c.Values.Elements() {
		keys = append(keys, fmt.Sprintf("%s@%g", restriction.ValueKey(e.Value), e.Weight))
	}
	return c.F.Name + " in {" + strings.Join(keys, ",") + "}"
}

func (c NumericBound) Key() string {
	return fmt.Sprintf("%s %s %s", c.F.Name, c.Op, restriction.ValueKey(c.Value))
}

func (c DateBound) Key() string {
	return fmt.Sprintf("%s %s %s", c.F.Name, c.Op, restriction.ValueKey(c.Value))
}

func (c NumericGranularTo) Key() string {
	return fmt.Sprintf("%s granular to scale %d", c.F.Name, c.Scale)
}

func (c DateGranularTo) Key() string {
	return fmt.Sprintf("%s granular to %s", c.F.Name, c.Unit)
}

func (c StringLength) Key() string {
	switch c.Op {
	case ShorterThan:
		return fmt.Sprintf("%s shorter than %d", c.F.Name, c.Length)
	case LongerThan:
		return fmt.Sprintf("%s longer than %d", c.F.Name, c.Length)
	default:
		return fmt.Sprintf("%s of length %d", c.F.Name, c.Length)
	}
}

func (c Matches) Key() string {
	if c.Pattern.Full {
		return fmt.Sprintf("%s matching %s", c.F.Name, c.Pattern.Source)
	}
	return fmt.Sprintf("%s containing %s", c.F.Name, c.Pattern.Source)
}

func (c Negated) Key() string { return "not(" + c.Inner.Key() + ")" }

func (c IsNull) String() string            { return c.Key() }
func (c NumericGranularTo) String() string { return c.Key() }
func (c DateGranularTo) String() string    { return c.Key() }
func (c StringLength) String() string      { return c.Key() }
func (c Matches) String() string           { return c.Key() }
func (c Negated) String() string           { return "NOT " + c.Inner.String() }

func (c InSet) String() string {
	return fmt.Sprintf("%s in %s", c.F.Name, c.Values)
}

func (c NumericBound) String() string {
	return fmt.Sprintf("%s %s %s", c.F.Name, c.Op, c.Value)
}

func (c DateBound) String() string {
	return fmt.Sprintf("%s %s %s", c.F.Name, c.Op, c.Value.UTC().Format(time.RFC3339Nano))
}

// EqualTo is shorthand for a single-member InSet.
func EqualTo(f schema.Field, v any) InSet {
	return InSet{F: f, Values: restriction.Uniform(v)}
}

// InSetOf builds a uniform InSet.
func InSetOf(f schema.Field, values ...any) InSet {
	return InSet{F: f, Values: restriction.Uniform(values...)}
}

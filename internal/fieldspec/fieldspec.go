// Package fieldspec holds the per-field restriction set, its merge algebra
// and the reduction of atomic constraints into row specifications.
package fieldspec

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"rowsynth/internal/restriction"
	"rowsynth/internal/schema"
	"rowsynth/internal/util"

	"github.com/shopspring/decimal"
)

// Nullability is the null requirement on a field.
type Nullability int

// Nullability constants.
const (
	Unconstrained Nullability = iota
	MustBeNull
	MustNotBeNull
)

func (n Nullability) String() string {
	switch n {
	case MustBeNull:
		return "null"
	case MustNotBeNull:
		return "not null"
	default:
		return "nullable"
	}
}

// FieldSpec is the set of restrictions on one field. The zero value is not
// usable; start from Default or Impossible.
type FieldSpec struct {
	fieldType   schema.FieldType
	nullability Nullability
	whitelist   *restriction.DistributedList
	blacklist   map[string]any
	typed       restriction.Typed
	impossible  bool
}

// Default returns the unrestricted spec for a type. maxStringLength <= 0
// selects restriction.DefaultMaxStringLength.
func Default(t schema.FieldType, maxStringLength int) FieldSpec {
	return FieldSpec{fieldType: t, typed: defaultTyped(t, maxStringLength)}
}

// Impossible returns the spec admitting no value at all.
func Impossible(t schema.FieldType) FieldSpec {
	return FieldSpec{fieldType: t, impossible: true}
}

func defaultTyped(t schema.FieldType, maxStringLength int) restriction.Typed {
	switch t {
	case schema.TypeDecimal:
		return restriction.UnboundedNumeric(restriction.DefaultNumericScale)
	case schema.TypeInteger:
		return restriction.UnboundedNumeric(0)
	case schema.TypeDatetime:
		return restriction.UnboundedDateTime(restriction.Millis)
	case schema.TypeDate:
		return restriction.UnboundedDateTime(restriction.Days)
	default:
		return restriction.DefaultString(maxStringLength)
	}
}

// Type returns the declared field type.
func (f FieldSpec) Type() schema.FieldType { return f.fieldType }

// IsImpossible reports whether no value, null included, satisfies the spec.
func (f FieldSpec) IsImpossible() bool { return f.impossible }

// Nullability returns the null requirement.
func (f FieldSpec) Nullability() Nullability { return f.nullability }

// Whitelist returns the whitelist, or nil when values are not enumerated.
func (f FieldSpec) Whitelist() *restriction.DistributedList { return f.whitelist }

// Typed returns the type-specific restriction.
func (f FieldSpec) Typed() restriction.Typed { return f.typed }

// Numeric returns the numeric range when the field is numeric.
func (f FieldSpec) Numeric() (*restriction.NumericRestriction, bool) {
	r, ok := f.typed.(*restriction.NumericRestriction)
	return r, ok
}

// DateTime returns the datetime range when the field is a datetime.
func (f FieldSpec) DateTime() (*restriction.DateTimeRestriction, bool) {
	r, ok := f.typed.(*restriction.DateTimeRestriction)
	return r, ok
}

// Strings returns the string restriction when the field is a string.
func (f FieldSpec) Strings() (*restriction.StringRestriction, bool) {
	r, ok := f.typed.(*restriction.StringRestriction)
	return r, ok
}

// Blacklist returns blacklisted values ordered by canonical key.
func (f FieldSpec) Blacklist() []any {
	keys := make([]string, 0, len(f.blacklist))
	for k := range f.blacklist {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = f.blacklist[k]
	}
	return out
}

// IsBlacklisted reports whether v is excluded.
func (f FieldSpec) IsBlacklisted(v any) bool {
	_, ok := f.blacklist[restriction.ValueKey(v)]
	return ok
}

// CanBeNull reports whether null is an admissible value.
func (f FieldSpec) CanBeNull() bool {
	return !f.impossible && f.nullability != MustNotBeNull
}

// MustBeNull reports whether null is the only admissible value.
func (f FieldSpec) MustBeNull() bool {
	return !f.impossible && f.nullability == MustBeNull
}

// Permits reports whether a concrete value (nil for null) satisfies the spec.
func (f FieldSpec) Permits(v any) bool {
	if f.impossible {
		return false
	}
	if v == nil {
		return f.nullability != MustNotBeNull
	}
	if f.nullability == MustBeNull {
		return false
	}
	v = restriction.NormalizeValue(v)
	if f.IsBlacklisted(v) {
		return false
	}
	if f.whitelist != nil && !f.whitelist.Contains(v) {
		return false
	}
	return f.typed.MatchValue(v)
}

// WithNullability returns a copy with the null requirement replaced.
func (f FieldSpec) WithNullability(n Nullability) FieldSpec {
	f.nullability = n
	return f
}

// Equal compares two specs category by category. Whitelists compare as sets.
func (f FieldSpec) Equal(other FieldSpec) bool {
	if f.fieldType != other.fieldType || f.impossible != other.impossible {
		return false
	}
	if f.impossible {
		return true
	}
	if f.nullability != other.nullability || len(f.blacklist) != len(other.blacklist) {
		return false
	}
	for k := range f.blacklist {
		if _, ok := other.blacklist[k]; !ok {
			return false
		}
	}
	if (f.whitelist == nil) != (other.whitelist == nil) {
		return false
	}
	if f.whitelist != nil && !f.whitelist.Equal(other.whitelist) {
		return false
	}
	return typedEqual(f.typed, other.typed)
}

func typedEqual(a, b restriction.Typed) bool {
	switch x := a.(type) {
	case *restriction.NumericRestriction:
		y, ok := b.(*restriction.NumericRestriction)
		return ok && x.Equal(y)
	case *restriction.DateTimeRestriction:
		y, ok := b.(*restriction.DateTimeRestriction)
		return ok && x.Equal(y)
	case *restriction.StringRestriction:
		y, ok := b.(*restriction.StringRestriction)
		return ok && x.Equal(y)
	default:
		return a == nil && b == nil
	}
}

func (f FieldSpec) String() string {
	if f.impossible {
		return "<impossible>"
	}
	parts := []string{f.fieldType.String()}
	if f.nullability != Unconstrained {
		parts = append(parts, f.nullability.String())
	}
	if f.nullability != MustBeNull {
		if f.whitelist != nil {
			parts = append(parts, "in "+f.whitelist.String())
		}
		if len(f.blacklist) > 0 {
			bl := make([]string, 0, len(f.blacklist))
			for _, v := range f.Blacklist() {
				bl = append(bl, formatValue(v))
			}
			parts = append(parts, "not in {"+strings.Join(bl, ", ")+"}")
		}
		parts = append(parts, f.typed.String())
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// normalize filters the whitelist by the typed restriction and blacklist
// and collapses an empty whitelist into the impossible spec.
func (f FieldSpec) normalize() FieldSpec {
	if f.impossible || f.whitelist == nil {
		return f
	}
	f.whitelist = f.whitelist.Filter(func(v any) bool {
		return !f.IsBlacklisted(v) && f.typed.MatchValue(v)
	})
	if f.whitelist.Len() == 0 {
		return Impossible(f.fieldType)
	}
	return f
}

// Merge conjoins two specs. Any contradiction yields the impossible spec.
// Merging specs of different field types is a programming error.
func Merge(a, b FieldSpec) FieldSpec {
	if a.fieldType != b.fieldType {
		util.Invariantf("merge of %s spec with %s spec", a.fieldType, b.fieldType)
	}
	if a.impossible || b.impossible {
		return Impossible(a.fieldType)
	}
	out := FieldSpec{fieldType: a.fieldType}

	nullability, ok := mergeNullability(a.nullability, b.nullability)
	if !ok {
		return Impossible(a.fieldType)
	}
	out.nullability = nullability

	typed, ok := mergeTyped(a.typed, b.typed)
	if !ok {
		return Impossible(a.fieldType)
	}
	out.typed = typed

	switch {
	case a.whitelist != nil && b.whitelist != nil:
		out.whitelist = a.whitelist.Intersect(b.whitelist)
	case a.whitelist != nil:
		out.whitelist = a.whitelist
	default:
		out.whitelist = b.whitelist
	}

	if len(a.blacklist)+len(b.blacklist) > 0 {
		out.blacklist = make(map[string]any, len(a.blacklist)+len(b.blacklist))
		for k, v := range a.blacklist {
			out.blacklist[k] = v
		}
		for k, v := range b.blacklist {
			out.blacklist[k] = v
		}
	}
	return out.normalize()
}

func mergeNullability(a, b Nullability) (Nullability, bool) {
	switch {
	case a == b:
		return a, true
	case a == Unconstrained:
		return b, true
	case b == Unconstrained:
		return a, true
	default:
		return Unconstrained, false
	}
}

func mergeTyped(a, b restriction.Typed) (restriction.Typed, bool) {
	switch x := a.(type) {
	case *restriction.NumericRestriction:
		y, ok := b.(*restriction.NumericRestriction)
		if !ok {
			util.Invariantf("merge of numeric restriction with %T", b)
		}
		m, ok := x.Merge(y)
		if !ok {
			return nil, false
		}
		return m, true
	case *restriction.DateTimeRestriction:
		y, ok := b.(*restriction.DateTimeRestriction)
		if !ok {
			util.Invariantf("merge of datetime restriction with %T", b)
		}
		m, ok := x.Merge(y)
		if !ok {
			return nil, false
		}
		return m, true
	case *restriction.StringRestriction:
		y, ok := b.(*restriction.StringRestriction)
		if !ok {
			util.Invariantf("merge of string restriction with %T", b)
		}
		m, ok := x.Merge(y)
		if !ok {
			return nil, false
		}
		return m, true
	default:
		util.Invariantf("unknown restriction %T", a)
		return nil, false
	}
}

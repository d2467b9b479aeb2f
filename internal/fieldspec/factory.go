package fieldspec

import (
	"fmt"

	"rowsynth/internal/constraint"
	"rowsynth/internal/restriction"
	"rowsynth/internal/schema"
	"rowsynth/internal/util"
)

// maxPatternRepeat is the largest repeat count the regexp engine accepts.
const maxPatternRepeat = 1000

// Factory turns single-field atomics into field specs.
type Factory struct {
	MaxStringLength int
}

// FromAtomic builds the spec admitting exactly the values that satisfy a.
// Relations restrict no single field and return the default spec.
func (fac Factory) FromAtomic(a constraint.Atomic) FieldSpec {
	if n, ok := a.(constraint.Negated); ok {
		return fac.fromNegated(n.Inner)
	}
	f := a.Field()
	base := Default(f.Type, fac.MaxStringLength)
	switch c := a.(type) {
	case constraint.IsNull:
		return base.WithNullability(MustBeNull)
	case constraint.InSet:
		base.whitelist = c.Values
		return base.normalize()
	case constraint.NumericBound:
		return fac.withTyped(base, numericBound(requireKind(f, schema.KindNumeric, c), c.Op, c))
	case constraint.DateBound:
		return fac.withTyped(base, dateBound(requireKind(f, schema.KindDatetime, c), c.Op, c))
	case constraint.NumericGranularTo:
		requireKind(f, schema.KindNumeric, c)
		return fac.withTyped(base, restriction.UnboundedNumeric(c.Scale))
	case constraint.DateGranularTo:
		requireKind(f, schema.KindDatetime, c)
		return fac.withTyped(base, restriction.UnboundedDateTime(c.Unit))
	case constraint.StringLength:
		requireKind(f, schema.KindString, c)
		return fac.stringLength(base, c, false)
	case constraint.Matches:
		requireKind(f, schema.KindString, c)
		return fac.withTyped(base, restriction.NewStringRestriction(0, maxLength(base), []restriction.Pattern{c.Pattern}, nil))
	case constraint.Relation:
		return base
	default:
		util.Invariantf("unsupported atomic %T", a)
		return base
	}
}

func (fac Factory) fromNegated(a constraint.Atomic) FieldSpec {
	f := a.Field()
	base := Default(f.Type, fac.MaxStringLength)
	switch c := a.(type) {
	case constraint.IsNull:
		return base.WithNullability(MustNotBeNull)
	case constraint.InSet:
		base.blacklist = make(map[string]any, c.Values.Len())
		for _, v := range c.Values.Values() {
			base.blacklist[restriction.ValueKey(v)] = v
		}
		return base
	case constraint.NumericBound:
		return fac.withTyped(base, numericBound(requireKind(f, schema.KindNumeric, c), c.Op.Flip(), c))
	case constraint.DateBound:
		return fac.withTyped(base, dateBound(requireKind(f, schema.KindDatetime, c), c.Op.Flip(), c))
	case constraint.NumericGranularTo, constraint.DateGranularTo:
		return base
	case constraint.StringLength:
		requireKind(f, schema.KindString, c)
		return fac.stringLength(base, c, true)
	case constraint.Matches:
		requireKind(f, schema.KindString, c)
		return fac.withTyped(base, restriction.NewStringRestriction(0, maxLength(base), nil, []restriction.Pattern{c.Pattern}))
	case constraint.Relation:
		return base
	default:
		util.Invariantf("unsupported negated atomic %T", a)
		return base
	}
}

func (fac Factory) stringLength(base FieldSpec, c constraint.StringLength, negated bool) FieldSpec {
	upper := maxLength(base)
	switch {
	case c.Op == constraint.OfLength && !negated:
		return fac.withLength(base, c.Length, c.Length)
	case c.Op == constraint.OfLength:
		if c.Length > upper || c.Length > maxPatternRepeat {
			return base
		}
		p := restriction.MustPattern(fmt.Sprintf(".{%d}", c.Length), true)
		return fac.withTyped(base, restriction.NewStringRestriction(0, upper, nil, []restriction.Pattern{p}))
	case c.Op == constraint.ShorterThan && !negated:
		return fac.withLength(base, 0, c.Length-1)
	case c.Op == constraint.ShorterThan:
		return fac.withLength(base, c.Length, upper)
	case c.Op == constraint.LongerThan && !negated:
		return fac.withLength(base, c.Length+1, upper)
	default:
		return fac.withLength(base, 0, c.Length)
	}
}

func (fac Factory) withLength(base FieldSpec, lo, hi int) FieldSpec {
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		return Impossible(base.fieldType)
	}
	return fac.withTyped(base, restriction.NewStringRestriction(lo, hi, nil, nil))
}

func (fac Factory) withTyped(base FieldSpec, r restriction.Typed) FieldSpec {
	return Merge(base, FieldSpec{fieldType: base.fieldType, typed: r})
}

func maxLength(base FieldSpec) int {
	s, ok := base.Strings()
	if !ok {
		return restriction.DefaultMaxStringLength
	}
	return s.MaxLength()
}

func requireKind(f schema.Field, kind schema.Kind, c constraint.Atomic) schema.Field {
	if f.Type.Kind() != kind {
		util.Invariantf("%s applied to %s field %s", c, f.Type, f.Name)
	}
	return f
}

func numericBound(f schema.Field, op constraint.BoundOp, c constraint.NumericBound) restriction.Typed {
	scale := restriction.DefaultNumericScale
	if f.Type == schema.TypeInteger {
		scale = 0
	}
	lo := restriction.NumericLimit(restriction.NumericMin, true)
	hi := restriction.NumericLimit(restriction.NumericMax, true)
	if op.IsLower() {
		lo = restriction.NumericLimit(c.Value, op.Inclusive())
	} else {
		hi = restriction.NumericLimit(c.Value, op.Inclusive())
	}
	return restriction.NewNumericRestriction(lo, hi, scale)
}

func dateBound(f schema.Field, op constraint.BoundOp, c constraint.DateBound) restriction.Typed {
	unit := restriction.Millis
	if f.Type == schema.TypeDate {
		unit = restriction.Days
	}
	lo := restriction.DateTimeLimit(restriction.DateTimeMin, true)
	hi := restriction.DateTimeLimit(restriction.DateTimeMax, true)
	if op.IsLower() {
		lo = restriction.DateTimeLimit(c.Value, op.Inclusive())
	} else {
		hi = restriction.DateTimeLimit(c.Value, op.Inclusive())
	}
	return restriction.NewDateTimeRestriction(lo, hi, unit)
}

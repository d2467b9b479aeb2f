package generation

import (
	"time"

	"rowsynth/internal/constraint"
	"rowsynth/internal/fieldspec"
	"rowsynth/internal/schema"
	"rowsynth/internal/util"

	"github.com/shopspring/decimal"
)

// relationSpec is the spec a relation imposes on its main field once the
// other field holds value. A null other value imposes nothing.
func relationSpec(fac fieldspec.Factory, rel constraint.Relation, value any) (fieldspec.FieldSpec, bool) {
	if value == nil {
		return fieldspec.FieldSpec{}, false
	}
	target := offsetValue(rel, value)
	var a constraint.Atomic
	switch rel.Kind {
	case constraint.RelEqual:
		a = constraint.EqualTo(rel.Main, target)
	case constraint.RelNotEqual:
		a = constraint.Negate(constraint.EqualTo(rel.Main, target))
	default:
		a = boundAtomic(rel, target)
	}
	return fac.FromAtomic(a), true
}

func offsetValue(rel constraint.Relation, value any) any {
	if rel.Offset == 0 {
		return value
	}
	switch v := value.(type) {
	case decimal.Decimal:
		return v.Add(decimal.NewFromInt(rel.Offset))
	case time.Time:
		return rel.Unit.Add(v, rel.Offset)
	default:
		return value
	}
}

func boundAtomic(rel constraint.Relation, target any) constraint.Atomic {
	var op constraint.BoundOp
	switch rel.Kind {
	case constraint.RelGreaterThan:
		op = constraint.GreaterThan
	case constraint.RelGreaterThanOrEqual:
		op = constraint.GreaterThanOrEqual
	case constraint.RelLessThan:
		op = constraint.LessThan
	default:
		op = constraint.LessThanOrEqual
	}
	switch v := target.(type) {
	case decimal.Decimal:
		return constraint.NumericBound{F: rel.Main, Op: op, Value: v}
	case time.Time:
		return constraint.DateBound{F: rel.Main, Op: op, Value: v}
	default:
		util.Invariantf("relation %s compares non-ordered value %T", rel, target)
		return nil
	}
}

// fieldOrder places every relation's other field before its main field,
// keeping declaration order otherwise. Fields on a cycle fall back to
// declaration order; rows are checked against every relation afterwards.
func fieldOrder(fields schema.ProfileFields, relations []constraint.Relation) []int {
	deps := make([]map[int]struct{}, fields.Len())
	for _, rel := range relations {
		main, other := fields.IndexOf(rel.Main.Name), fields.IndexOf(rel.Other.Name)
		if main == other {
			continue
		}
		if deps[main] == nil {
			deps[main] = map[int]struct{}{}
		}
		deps[main][other] = struct{}{}
	}
	placed := make([]bool, fields.Len())
	order := make([]int, 0, fields.Len())
	for len(order) < fields.Len() {
		next := -1
		for i := range fields.Len() {
			if placed[i] {
				continue
			}
			ready := true
			for d := range deps[i] {
				if !placed[d] {
					ready = false
					break
				}
			}
			if ready {
				next = i
				break
			}
		}
		if next < 0 {
			for i := range fields.Len() {
				if !placed[i] {
					next = i
					break
				}
			}
		}
		placed[next] = true
		order = append(order, next)
	}
	return order
}

// satisfiesRelations checks a complete row.
func satisfiesRelations(fac fieldspec.Factory, fields schema.ProfileFields, relations []constraint.Relation, values []any) bool {
	for _, rel := range relations {
		spec, ok := relationSpec(fac, rel, values[fields.IndexOf(rel.Other.Name)])
		if !ok {
			continue
		}
		main := values[fields.IndexOf(rel.Main.Name)]
		if main == nil {
			continue
		}
		if !spec.Permits(main) {
			return false
		}
	}
	return true
}

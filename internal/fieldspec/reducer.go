package fieldspec

import (
	"rowsynth/internal/constraint"
	"rowsynth/internal/schema"
	"rowsynth/internal/util"
)

// Reducer folds atomic constraints into a row spec.
type Reducer struct {
	Factory Factory
}

// Reduce folds atomics per field starting from each type's default. The
// second result is false when any field becomes impossible. Relations are
// carried on the row spec.
func (r Reducer) Reduce(fields schema.ProfileFields, atomics []constraint.Atomic) (*RowSpec, bool) {
	specs := make(map[string]FieldSpec, fields.Len())
	for _, f := range fields.All() {
		specs[f.Name] = Default(f.Type, r.Factory.MaxStringLength)
	}
	var relations []constraint.Relation
	for _, a := range atomics {
		if rel, ok := a.(constraint.Relation); ok {
			checkField(fields, rel.Main)
			checkField(fields, rel.Other)
			relations = append(relations, rel)
			continue
		}
		f := checkField(fields, a.Field())
		merged := Merge(specs[f.Name], r.Factory.FromAtomic(a))
		if merged.IsImpossible() {
			return nil, false
		}
		specs[f.Name] = merged
	}
	return NewRowSpec(fields, specs, relations), true
}

// Reduce uses a Reducer with default options.
func Reduce(fields schema.ProfileFields, atomics []constraint.Atomic) (*RowSpec, bool) {
	return Reducer{}.Reduce(fields, atomics)
}

func checkField(fields schema.ProfileFields, f schema.Field) schema.Field {
	declared, ok := fields.ByName(f.Name)
	if !ok {
		util.Invariantf("constraint on undeclared field %s", f.Name)
	}
	if declared.Type != f.Type {
		util.Invariantf("constraint on %s uses type %s, declared %s", f.Name, f.Type, declared.Type)
	}
	return declared
}

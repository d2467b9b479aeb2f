package fieldspec

import (
	"slices"
	"strings"

	"rowsynth/internal/constraint"
	"rowsynth/internal/schema"
	"rowsynth/internal/util"
)

// RowSpec maps every declared field to its spec and carries the field
// relations the row generator must honour.
type RowSpec struct {
	fields    schema.ProfileFields
	specs     map[string]FieldSpec
	relations []constraint.Relation
}

// NewRowSpec builds a row spec. Every declared field must have a spec.
func NewRowSpec(fields schema.ProfileFields, specs map[string]FieldSpec, relations []constraint.Relation) *RowSpec {
	for _, name := range fields.Names() {
		if _, ok := specs[name]; !ok {
			util.Invariantf("row spec missing field %s", name)
		}
	}
	if len(specs) != fields.Len() {
		util.Invariantf("row spec has %d specs for %d fields", len(specs), fields.Len())
	}
	return &RowSpec{fields: fields, specs: specs, relations: normalizeRelations(relations)}
}

func normalizeRelations(in []constraint.Relation) []constraint.Relation {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.SortFunc(out, func(a, b constraint.Relation) int { return strings.Compare(a.Key(), b.Key()) })
	return slices.CompactFunc(out, func(a, b constraint.Relation) bool { return a.Key() == b.Key() })
}

// Fields returns the declared fields.
func (r *RowSpec) Fields() schema.ProfileFields { return r.fields }

// SpecFor returns the spec of a declared field.
func (r *RowSpec) SpecFor(name string) FieldSpec {
	s, ok := r.specs[name]
	if !ok {
		util.Invariantf("row spec has no field %s", name)
	}
	return s
}

// Relations returns the field relations ordered by key.
func (r *RowSpec) Relations() []constraint.Relation { return r.relations }

// Equal compares field specs and relations.
func (r *RowSpec) Equal(other *RowSpec) bool {
	if !r.fields.Equal(other.fields) || len(r.relations) != len(other.relations) {
		return false
	}
	for i := range r.relations {
		if r.relations[i].Key() != other.relations[i].Key() {
			return false
		}
	}
	for name, s := range r.specs {
		if !s.Equal(other.specs[name]) {
			return false
		}
	}
	return true
}

func (r *RowSpec) String() string {
	var b strings.Builder
	for i, name := range r.fields.Names() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(r.specs[name].String())
	}
	for _, rel := range r.relations {
		b.WriteString("; ")
		b.WriteString(rel.String())
	}
	return b.String()
}

// MergeRowSpecs conjoins row specs over the same field set. The second
// result is false when any field becomes impossible.
func MergeRowSpecs(specs ...*RowSpec) (*RowSpec, bool) {
	if len(specs) == 0 {
		util.Invariantf("merge of zero row specs")
	}
	first := specs[0]
	merged := make(map[string]FieldSpec, len(first.specs))
	for name, s := range first.specs {
		merged[name] = s
	}
	var relations []constraint.Relation
	relations = append(relations, first.relations...)
	for _, next := range specs[1:] {
		if !first.fields.Equal(next.fields) {
			util.Invariantf("row spec field sets differ: %v vs %v", first.fields.Names(), next.fields.Names())
		}
		for name, s := range next.specs {
			m := Merge(merged[name], s)
			if m.IsImpossible() {
				return nil, false
			}
			merged[name] = m
		}
		relations = append(relations, next.relations...)
	}
	if first.hasImpossible() {
		return nil, false
	}
	return &RowSpec{fields: first.fields, specs: merged, relations: normalizeRelations(relations)}, true
}

func (r *RowSpec) hasImpossible() bool {
	for _, s := range r.specs {
		if s.IsImpossible() {
			return true
		}
	}
	return false
}

package generation

import (
	"fmt"
	"iter"
	"strings"

	"rowsynth/internal/constraint"
	"rowsynth/internal/fieldspec"
	"rowsynth/internal/schema"
)

// Combination selects how full-sequential field values are combined.
type Combination int

// Combination constants.
const (
	// Exhaustive emits the cartesian product of field values.
	Exhaustive Combination = iota
	// Minimal zips field values until the longest column is exhausted,
	// repeating the last value of shorter columns.
	Minimal
)

// ParseCombination maps a config name to a Combination.
func ParseCombination(name string) (Combination, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "exhaustive":
		return Exhaustive, nil
	case "minimal":
		return Minimal, nil
	default:
		return Exhaustive, fmt.Errorf("unknown combination strategy %q", name)
	}
}

func (c Combination) String() string {
	if c == Minimal {
		return "minimal"
	}
	return "exhaustive"
}

// Row is one generated record. Values follow field declaration order; nil
// is null.
type Row struct {
	Fields schema.ProfileFields
	Values []any
}

// Get returns the value of a named field.
func (r Row) Get(name string) (any, bool) {
	i := r.Fields.IndexOf(name)
	if i < 0 {
		return nil, false
	}
	return r.Values[i], true
}

// maxRowAttempts bounds consecutive failed random rows for one row spec.
const maxRowAttempts = 1000

// RowGenerator produces the rows admitted by a row spec.
type RowGenerator struct {
	Values      FieldSpecValueGenerator
	Combination Combination
	Factory     fieldspec.Factory
}

// Generate yields rows for spec. In random mode the sequence is unbounded
// unless a field runs dry; in full-sequential mode it ends when the
// combination is exhausted.
func (g RowGenerator) Generate(spec *fieldspec.RowSpec) iter.Seq[Row] {
	if g.Values.Strategy == FullSequential {
		if g.Combination == Minimal {
			return g.minimal(spec)
		}
		return g.exhaustive(spec)
	}
	return g.random(spec)
}

type plan struct {
	fields    schema.ProfileFields
	order     []int
	relations [][]constraint.Relation
	all       []constraint.Relation
}

func newPlan(spec *fieldspec.RowSpec) plan {
	fields := spec.Fields()
	p := plan{
		fields:    fields,
		order:     fieldOrder(fields, spec.Relations()),
		relations: make([][]constraint.Relation, fields.Len()),
		all:       spec.Relations(),
	}
	for _, rel := range spec.Relations() {
		i := fields.IndexOf(rel.Main.Name)
		p.relations[i] = append(p.relations[i], rel)
	}
	return p
}

// effective merges the field's spec with the relations whose other field
// already has a value. The second result is false on contradiction.
func (g RowGenerator) effective(p plan, spec *fieldspec.RowSpec, i int, values []any, assigned []bool) (fieldspec.FieldSpec, bool) {
	fs := spec.SpecFor(p.fields.At(i).Name)
	for _, rel := range p.relations[i] {
		j := p.fields.IndexOf(rel.Other.Name)
		if !assigned[j] {
			continue
		}
		rs, ok := relationSpec(g.Factory, rel, values[j])
		if !ok {
			continue
		}
		fs = fieldspec.Merge(fs, rs)
		if fs.IsImpossible() {
			return fs, false
		}
	}
	return fs, true
}

func (g RowGenerator) random(spec *fieldspec.RowSpec) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		p := newPlan(spec)
		n := p.fields.Len()
		// Fields without relations draw from one long-lived sequence.
		streams := make([]func() (any, bool), n)
		for i := range n {
			f := p.fields.At(i)
			if len(p.relations[i]) > 0 && !g.Values.Sequential(f) {
				continue
			}
			next, stop := iter.Pull(g.Values.Generate(f, spec.SpecFor(f.Name)))
			defer stop()
			streams[i] = next
		}
		failures := 0
		for failures < maxRowAttempts {
			values := make([]any, n)
			assigned := make([]bool, n)
			ok := true
			for _, i := range p.order {
				v, found, exhausted := g.drawRandom(p, spec, streams[i], i, values, assigned)
				if exhausted {
					return
				}
				if !found {
					ok = false
					break
				}
				values[i], assigned[i] = v, true
			}
			if !ok || !satisfiesRelations(g.Factory, p.fields, p.all, values) {
				failures++
				continue
			}
			failures = 0
			if !yield(Row{Fields: p.fields, Values: values}) {
				return
			}
		}
	}
}

// drawRandom picks one value for field i. exhausted reports that a
// long-lived stream ran dry and no further rows are possible.
func (g RowGenerator) drawRandom(p plan, spec *fieldspec.RowSpec, stream func() (any, bool), i int, values []any, assigned []bool) (v any, found, exhausted bool) {
	f := p.fields.At(i)
	if stream != nil && len(p.relations[i]) == 0 {
		v, ok := stream()
		return v, ok, !ok
	}
	fs, ok := g.effective(p, spec, i, values, assigned)
	if !ok {
		return nil, false, false
	}
	if stream != nil {
		for range maxRowAttempts {
			v, ok := stream()
			if !ok {
				return nil, false, true
			}
			if fs.Permits(v) {
				return v, true, false
			}
		}
		return nil, false, false
	}
	for v := range g.Values.Generate(f, fs) {
		return v, true, false
	}
	return nil, false, false
}

func (g RowGenerator) exhaustive(spec *fieldspec.RowSpec) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		p := newPlan(spec)
		n := p.fields.Len()
		values := make([]any, n)
		assigned := make([]bool, n)
		var rec func(k int) bool
		rec = func(k int) bool {
			if k == len(p.order) {
				if !satisfiesRelations(g.Factory, p.fields, p.all, values) {
					return true
				}
				return yield(Row{Fields: p.fields, Values: append([]any(nil), values...)})
			}
			i := p.order[k]
			f := p.fields.At(i)
			own := spec.SpecFor(f.Name)
			fs, ok := g.effective(p, spec, i, values, assigned)
			if !ok {
				return true
			}
			for v := range g.Values.Generate(f, own) {
				if !fs.Permits(v) {
					continue
				}
				values[i], assigned[i] = v, true
				if !rec(k + 1) {
					return false
				}
			}
			assigned[i] = false
			return true
		}
		rec(0)
	}
}

func (g RowGenerator) minimal(spec *fieldspec.RowSpec) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		p := newPlan(spec)
		n := p.fields.Len()
		nexts := make([]func() (any, bool), n)
		for i := range n {
			f := p.fields.At(i)
			next, stop := iter.Pull(g.Values.Generate(f, spec.SpecFor(f.Name)))
			defer stop()
			nexts[i] = next
		}
		last := make([]any, n)
		done := make([]bool, n)
		started := make([]bool, n)
		for {
			values := make([]any, n)
			assigned := make([]bool, n)
			advanced := false
			ok := true
			for _, i := range p.order {
				fs, feasible := g.effective(p, spec, i, values, assigned)
				if !feasible {
					ok = false
					break
				}
				v, found := g.nextMinimal(nexts[i], fs, &last[i], &done[i], &started[i], &advanced)
				if !found {
					ok = false
					break
				}
				values[i], assigned[i] = v, true
			}
			if !advanced {
				return
			}
			if !ok || !satisfiesRelations(g.Factory, p.fields, p.all, values) {
				continue
			}
			if !yield(Row{Fields: p.fields, Values: values}) {
				return
			}
		}
	}
}

// nextMinimal advances a column to its next permitted value, or repeats its
// last value once the column is exhausted.
func (g RowGenerator) nextMinimal(next func() (any, bool), fs fieldspec.FieldSpec, last *any, done, started, advanced *bool) (any, bool) {
	for !*done {
		v, ok := next()
		if !ok {
			*done = true
			break
		}
		if !fs.Permits(v) {
			continue
		}
		*last, *started, *advanced = v, true, true
		return v, true
	}
	if !*started {
		return nil, false
	}
	return *last, fs.Permits(*last)
}

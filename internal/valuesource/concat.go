package valuesource

import (
	"iter"

	"rowsynth/internal/util"
)

// Concat is the union of several sources. Random draws first pick a source
// by weight.
type Concat struct {
	Sources []FieldValueSource
	Weights []float64
}

// WithNull appends null to a source, drawn one time in ten.
func WithNull(values FieldValueSource) Concat {
	return Concat{Sources: []FieldValueSource{values, NullOnly{}}, Weights: []float64{9, 1}}
}

// IsFinite implements FieldValueSource.
func (c Concat) IsFinite() bool {
	for _, s := range c.Sources {
		if !s.IsFinite() {
			return false
		}
	}
	return true
}

// ValueCount implements FieldValueSource.
func (c Concat) ValueCount() uint64 {
	var n uint64
	for _, s := range c.Sources {
		n = saturatingAdd(n, s.ValueCount())
	}
	return n
}

// AllValues implements FieldValueSource.
func (c Concat) AllValues() iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, s := range c.Sources {
			for v := range s.AllValues() {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// RandomValues implements FieldValueSource. An exhausted member source is
// dropped from further draws.
func (c Concat) RandomValues(r util.RandomSource) iter.Seq[any] {
	return func(yield func(any) bool) {
		type member struct {
			next   func() (any, bool)
			stop   func()
			weight float64
		}
		members := make([]member, 0, len(c.Sources))
		for i, s := range c.Sources {
			next, stop := iter.Pull(s.RandomValues(r))
			w := 1.0
			if i < len(c.Weights) {
				w = c.Weights[i]
			}
			members = append(members, member{next: next, stop: stop, weight: w})
		}
		defer func() {
			for _, m := range members {
				m.stop()
			}
		}()
		for len(members) > 0 {
			weights := make([]float64, len(members))
			for i, m := range members {
				weights[i] = m.weight
			}
			i := util.PickWeightedFloat(r, weights)
			v, ok := members[i].next()
			if !ok {
				members[i].stop()
				members = append(members[:i], members[i+1:]...)
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Intersect implements FieldValueSource.
func (Concat) Intersect(FieldValueSource) (FieldValueSource, error) {
	return nil, ErrUnsupported
}

// Complement implements FieldValueSource.
func (Concat) Complement() (FieldValueSource, error) {
	return nil, ErrUnsupported
}

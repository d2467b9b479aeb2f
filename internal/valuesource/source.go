// Package valuesource produces concrete values for a single field, either
// by enumerating its domain or by drawing from it at random.
package valuesource

import (
	"iter"
	"math"

	"rowsynth/internal/restriction"
	"rowsynth/internal/util"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned by sources that cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported by value source")

// FieldValueSource is the value domain of one field. A nil value is null.
type FieldValueSource interface {
	// IsFinite reports whether AllValues enumerates the whole domain.
	IsFinite() bool
	// ValueCount is the domain size, saturating at math.MaxUint64.
	ValueCount() uint64
	// AllValues enumerates deterministically; the sequence is restartable.
	AllValues() iter.Seq[any]
	// RandomValues draws without end until the consumer stops.
	RandomValues(r util.RandomSource) iter.Seq[any]
	Intersect(other FieldValueSource) (FieldValueSource, error)
	Complement() (FieldValueSource, error)
}

// maxConsecutiveMisses bounds rejection sampling before a random sequence
// gives up.
const maxConsecutiveMisses = 1000

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// NullOnly yields only null.
type NullOnly struct{}

// IsFinite implements FieldValueSource.
func (NullOnly) IsFinite() bool { return true }

// ValueCount implements FieldValueSource.
func (NullOnly) ValueCount() uint64 { return 1 }

// AllValues implements FieldValueSource.
func (NullOnly) AllValues() iter.Seq[any] {
	return func(yield func(any) bool) {
		yield(nil)
	}
}

// RandomValues implements FieldValueSource.
func (NullOnly) RandomValues(util.RandomSource) iter.Seq[any] {
	return func(yield func(any) bool) {
		for yield(nil) {
		}
	}
}

// Intersect implements FieldValueSource.
func (n NullOnly) Intersect(other FieldValueSource) (FieldValueSource, error) {
	if _, ok := other.(NullOnly); ok {
		return n, nil
	}
	return nil, ErrUnsupported
}

// Complement implements FieldValueSource.
func (NullOnly) Complement() (FieldValueSource, error) {
	return nil, ErrUnsupported
}

// Whitelist yields the members of a weighted list.
type Whitelist struct {
	List *restriction.DistributedList
}

// Empty is the source with no values.
func Empty() Whitelist {
	return Whitelist{List: restriction.Uniform()}
}

// IsFinite implements FieldValueSource.
func (w Whitelist) IsFinite() bool { return true }

// ValueCount implements FieldValueSource.
func (w Whitelist) ValueCount() uint64 { return uint64(w.List.Len()) }

// AllValues implements FieldValueSource.
func (w Whitelist) AllValues() iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range w.List.Values() {
			if !yield(v) {
				return
			}
		}
	}
}

// RandomValues implements FieldValueSource. Draws are weighted.
func (w Whitelist) RandomValues(r util.RandomSource) iter.Seq[any] {
	return func(yield func(any) bool) {
		if w.List.Len() == 0 {
			return
		}
		for yield(w.List.PickRandom(r)) {
		}
	}
}

// Intersect implements FieldValueSource.
func (w Whitelist) Intersect(other FieldValueSource) (FieldValueSource, error) {
	o, ok := other.(Whitelist)
	if !ok {
		return nil, ErrUnsupported
	}
	return Whitelist{List: w.List.Intersect(o.List)}, nil
}

// Complement implements FieldValueSource.
func (Whitelist) Complement() (FieldValueSource, error) {
	return nil, ErrUnsupported
}

// Filtered hides values rejected by Keep.
type Filtered struct {
	Inner FieldValueSource
	Keep  func(any) bool
}

// IsFinite implements FieldValueSource.
func (f Filtered) IsFinite() bool { return f.Inner.IsFinite() }

// ValueCount is an upper bound: the inner count.
func (f Filtered) ValueCount() uint64 { return f.Inner.ValueCount() }

// AllValues implements FieldValueSource.
func (f Filtered) AllValues() iter.Seq[any] {
	return func(yield func(any) bool) {
		for v := range f.Inner.AllValues() {
			if f.Keep(v) && !yield(v) {
				return
			}
		}
	}
}

// RandomValues implements FieldValueSource. The sequence ends after too
// many consecutive rejections.
func (f Filtered) RandomValues(r util.RandomSource) iter.Seq[any] {
	return func(yield func(any) bool) {
		misses := 0
		for v := range f.Inner.RandomValues(r) {
			if !f.Keep(v) {
				misses++
				if misses >= maxConsecutiveMisses {
					return
				}
				continue
			}
			misses = 0
			if !yield(v) {
				return
			}
		}
	}
}

// Intersect implements FieldValueSource.
func (f Filtered) Intersect(other FieldValueSource) (FieldValueSource, error) {
	inner, err := f.Inner.Intersect(other)
	if err != nil {
		return nil, err
	}
	return Filtered{Inner: inner, Keep: f.Keep}, nil
}

// Complement implements FieldValueSource.
func (Filtered) Complement() (FieldValueSource, error) {
	return nil, ErrUnsupported
}

package valuesource

import (
	"iter"
	"time"

	"rowsynth/internal/restriction"
	"rowsynth/internal/util"

	"github.com/shopspring/decimal"
)

// DefaultEnumerationLimit is the largest open-ended range enumerated value by
// value. Larger open-ended ranges enumerate only their boundary values.
const DefaultEnumerationLimit = 10_000

// Linear draws from a numeric or datetime range.
type Linear[T any] struct {
	Range *restriction.Linear[T]
	// Lowest and Highest are the unbounded sentinels, used by Complement.
	Lowest, Highest T
	// EnumerationLimit overrides DefaultEnumerationLimit when positive.
	EnumerationLimit uint64
}

// NumericSource builds a source over a numeric range.
func NumericSource(r *restriction.NumericRestriction) Linear[decimal.Decimal] {
	return Linear[decimal.Decimal]{Range: r, Lowest: restriction.NumericMin, Highest: restriction.NumericMax}
}

// DateTimeSource builds a source over a datetime range.
func DateTimeSource(r *restriction.DateTimeRestriction) Linear[time.Time] {
	return Linear[time.Time]{Range: r, Lowest: restriction.DateTimeMin, Highest: restriction.DateTimeMax}
}

func (l Linear[T]) limit() uint64 {
	if l.EnumerationLimit > 0 {
		return l.EnumerationLimit
	}
	return DefaultEnumerationLimit
}

// IsFinite reports whether every value is enumerated.
func (l Linear[T]) IsFinite() bool {
	return !l.openEnded() || l.Range.Count() <= l.limit()
}

// openEnded reports whether either edge is the unbounded sentinel.
func (l Linear[T]) openEnded() bool {
	lo, hi := l.Range.Min(), l.Range.Max()
	return lo.Equal(lo.At(l.Lowest, lo.Inclusive())) || hi.Equal(hi.At(l.Highest, hi.Inclusive()))
}

// ValueCount implements FieldValueSource.
func (l Linear[T]) ValueCount() uint64 {
	return l.Range.Count()
}

// AllValues enumerates bounded ranges lazily in grid order. Open-ended ranges
// over the enumeration limit yield only their first and last on-grid values.
func (l Linear[T]) AllValues() iter.Seq[any] {
	return func(yield func(any) bool) {
		count := l.Range.Count()
		if count == 0 {
			return
		}
		first, last := l.Range.First(), l.Range.Last()
		if count > l.limit() && l.openEnded() {
			if !yield(first) {
				return
			}
			if count > 1 {
				yield(last)
			}
			return
		}
		g := l.Range.Granularity()
		v := first
		for range count {
			if !yield(v) {
				return
			}
			v = g.Next(v)
		}
	}
}

// RandomValues draws uniformly over the grid.
func (l Linear[T]) RandomValues(r util.RandomSource) iter.Seq[any] {
	return func(yield func(any) bool) {
		if l.Range.IsContradictory() {
			return
		}
		first, last := l.Range.First(), l.Range.Last()
		g := l.Range.Granularity()
		for yield(g.Random(first, last, r)) {
		}
	}
}

// Intersect merges two ranges of the same type.
func (l Linear[T]) Intersect(other FieldValueSource) (FieldValueSource, error) {
	o, ok := other.(Linear[T])
	if !ok {
		return nil, ErrUnsupported
	}
	merged, ok := l.Range.Merge(o.Range)
	if !ok {
		return Empty(), nil
	}
	l.Range = merged
	return l, nil
}

// Complement is supported for half-open ranges: one side must be the
// unbounded sentinel.
func (l Linear[T]) Complement() (FieldValueSource, error) {
	lo, hi := l.Range.Min(), l.Range.Max()
	g := l.Range.Granularity()
	switch {
	case lo.Equal(lo.At(l.Lowest, true)):
		l.Range = restriction.NewLinear(hi.Flip(), hi.At(l.Highest, true), g)
		return l, nil
	case hi.Equal(hi.At(l.Highest, true)):
		l.Range = restriction.NewLinear(lo.At(l.Lowest, true), lo.Flip(), g)
		return l, nil
	default:
		return nil, ErrUnsupported
	}
}

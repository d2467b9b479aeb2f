package restriction

import (
	"fmt"
	"math"

	"rowsynth/internal/util"
)

// Typed is the closed set of type-specific restrictions a field spec carries.
type Typed interface {
	// MatchValue reports whether a concrete value satisfies the restriction.
	MatchValue(v any) bool
	String() string
	typed()
}

// Linear is a closed-or-open range on an ordered grid. Both limits are
// always present.
type Linear[T any] struct {
	min         Limit[T]
	max         Limit[T]
	granularity Granularity[T]
}

// NewLinear builds a range. A missing limit or granularity panics.
func NewLinear[T any](min, max Limit[T], granularity Granularity[T]) *Linear[T] {
	if !min.IsSet() || !max.IsSet() {
		util.Invariantf("linear restriction requires both limits")
	}
	if granularity == nil {
		util.Invariantf("linear restriction requires a granularity")
	}
	return &Linear[T]{min: min, max: max, granularity: granularity}
}

func (*Linear[T]) typed() {}

// Min returns the low limit.
func (l *Linear[T]) Min() Limit[T] { return l.min }

// Max returns the high limit.
func (l *Linear[T]) Max() Limit[T] { return l.max }

// Granularity returns the grid.
func (l *Linear[T]) Granularity() Granularity[T] { return l.granularity }

// Matches reports whether x lies within both limits and on the grid.
func (l *Linear[T]) Matches(x T) bool {
	return l.min.PermitsBelow(x) && l.max.PermitsAbove(x) && l.granularity.IsCorrectScale(x)
}

// MatchValue implements Typed.
func (l *Linear[T]) MatchValue(v any) bool {
	x, ok := v.(T)
	return ok && l.Matches(x)
}

// First returns the smallest on-grid value admitted by the low limit.
func (l *Linear[T]) First() T {
	v := l.min.value
	if l.min.inclusive && l.granularity.IsCorrectScale(v) {
		return v
	}
	return l.granularity.Next(v)
}

// Last returns the largest on-grid value admitted by the high limit.
func (l *Linear[T]) Last() T {
	v := l.max.value
	if l.max.inclusive && l.granularity.IsCorrectScale(v) {
		return v
	}
	return l.granularity.Previous(v)
}

// IsContradictory reports whether no on-grid value lies in the range.
func (l *Linear[T]) IsContradictory() bool {
	return l.min.cmp(l.First(), l.Last()) > 0
}

// Count returns the number of on-grid values, saturating.
func (l *Linear[T]) Count() uint64 {
	if l.IsContradictory() {
		return 0
	}
	n := l.granularity.Steps(l.First(), l.Last())
	if n == math.MaxUint64 {
		return n
	}
	return n + 1
}

// WithMin returns a copy with a replaced low limit.
func (l *Linear[T]) WithMin(min Limit[T]) *Linear[T] {
	return NewLinear(min, l.max, l.granularity)
}

// WithMax returns a copy with a replaced high limit.
func (l *Linear[T]) WithMax(max Limit[T]) *Linear[T] {
	return NewLinear(l.min, max, l.granularity)
}

// Merge intersects two ranges. The second result is false when the
// intersection contains no on-grid value.
func (l *Linear[T]) Merge(other *Linear[T]) (*Linear[T], bool) {
	merged := &Linear[T]{
		min:         tighterMin(l.min, other.min),
		max:         tighterMax(l.max, other.max),
		granularity: l.granularity.Merge(other.granularity),
	}
	if merged.IsContradictory() {
		return nil, false
	}
	return merged, true
}

// Equal compares limits and grid.
func (l *Linear[T]) Equal(other *Linear[T]) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.min.Equal(other.min) && l.max.Equal(other.max) && l.granularity.Equal(other.granularity)
}

func (l *Linear[T]) String() string {
	lo, hi := "[", "]"
	if !l.min.inclusive {
		lo = "("
	}
	if !l.max.inclusive {
		hi = ")"
	}
	return fmt.Sprintf("%s%v, %v%s %s", lo, l.min.value, l.max.value, hi, l.granularity)
}

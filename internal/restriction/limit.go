// Package restriction implements the per-field restriction algebra: limits,
// granularity grids, linear (numeric and datetime) ranges, string shape and
// weighted whitelists.
package restriction

import (
	"fmt"

	"rowsynth/internal/util"
)

// Limit is one edge of a linear range. A zero Limit is unset; use NewLimit.
type Limit[T any] struct {
	value     T
	inclusive bool
	cmp       func(a, b T) int
}

// NewLimit builds a limit ordered by cmp.
func NewLimit[T any](value T, inclusive bool, cmp func(a, b T) int) Limit[T] {
	if cmp == nil {
		util.Invariantf("limit constructed without an ordering")
	}
	return Limit[T]{value: value, inclusive: inclusive, cmp: cmp}
}

// IsSet reports whether the limit was constructed.
func (l Limit[T]) IsSet() bool {
	return l.cmp != nil
}

// Value returns the boundary value.
func (l Limit[T]) Value() T {
	return l.value
}

// Inclusive reports whether the boundary value itself is permitted.
func (l Limit[T]) Inclusive() bool {
	return l.inclusive
}

// Flip returns the same boundary with the opposite inclusivity.
func (l Limit[T]) Flip() Limit[T] {
	return Limit[T]{value: l.value, inclusive: !l.inclusive, cmp: l.cmp}
}

// PermitsBelow reports whether x is allowed by l acting as a lower bound.
func (l Limit[T]) PermitsBelow(x T) bool {
	c := l.cmp(x, l.value)
	return c > 0 || (c == 0 && l.inclusive)
}

// PermitsAbove reports whether x is allowed by l acting as an upper bound.
func (l Limit[T]) PermitsAbove(x T) bool {
	c := l.cmp(x, l.value)
	return c < 0 || (c == 0 && l.inclusive)
}

// At returns a limit with the same ordering at another value.
func (l Limit[T]) At(value T, inclusive bool) Limit[T] {
	return Limit[T]{value: value, inclusive: inclusive, cmp: l.cmp}
}

// Equal compares value and inclusivity.
func (l Limit[T]) Equal(other Limit[T]) bool {
	if !l.IsSet() || !other.IsSet() {
		return l.IsSet() == other.IsSet()
	}
	return l.inclusive == other.inclusive && l.cmp(l.value, other.value) == 0
}

func (l Limit[T]) String() string {
	if l.inclusive {
		return fmt.Sprintf("%v inclusive", l.value)
	}
	return fmt.Sprintf("%v exclusive", l.value)
}

// tighterMin picks the more restrictive lower bound. On equal values the
// exclusive bound wins.
func tighterMin[T any](a, b Limit[T]) Limit[T] {
	c := a.cmp(a.value, b.value)
	switch {
	case c > 0:
		return a
	case c < 0:
		return b
	case !a.inclusive:
		return a
	default:
		return b
	}
}

// tighterMax picks the more restrictive upper bound. On equal values the
// exclusive bound wins.
func tighterMax[T any](a, b Limit[T]) Limit[T] {
	c := a.cmp(a.value, b.value)
	switch {
	case c < 0:
		return a
	case c > 0:
		return b
	case !a.inclusive:
		return a
	default:
		return b
	}
}

package restriction

import "rowsynth/internal/util"

// Granularity is the grid of permissible values for a linear type.
type Granularity[T any] interface {
	// IsCorrectScale reports whether v lies on the grid.
	IsCorrectScale(v T) bool
	// Trim returns the largest on-grid value <= v.
	Trim(v T) T
	// Next returns the smallest on-grid value > v.
	Next(v T) T
	// Previous returns the largest on-grid value < v.
	Previous(v T) T
	// Steps counts grid increments between two on-grid values, saturating.
	Steps(from, to T) uint64
	// Random returns an on-grid value in [min, max]; both ends are on grid.
	Random(min, max T, r util.RandomSource) T
	// Merge returns the grid whose points satisfy both grids.
	Merge(other Granularity[T]) Granularity[T]
	Equal(other Granularity[T]) bool
	String() string
}

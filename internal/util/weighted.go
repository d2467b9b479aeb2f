// Package util provides shared helper utilities.
//revive:disable:var-naming // Package name follows project convention.
package util

// RandomSource is the subset of *rand.Rand used by generators. Every
// consumer draws through it so a fixed seed reproduces identical output.
type RandomSource interface {
	Intn(n int) int
	Int63n(n int64) int64
	Float64() float64
}

// PickWeightedFloat selects an index based on fractional weights.
// Uniform weights fall back to a single Intn draw.
func PickWeightedFloat(r RandomSource, weights []float64) int {
	total := 0.0
	uniform := true
	for i, w := range weights {
		if w > 0 {
			total += w
		}
		if i > 0 && w != weights[0] {
			uniform = false
		}
	}
	if uniform || total <= 0 {
		return r.Intn(len(weights))
	}
	roll := r.Float64() * total
	sum := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		sum += w
		if roll < sum {
			return i
		}
	}
	return len(weights) - 1
}

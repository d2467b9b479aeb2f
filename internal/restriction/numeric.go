package restriction

import (
	"fmt"
	"math"
	"math/big"

	"rowsynth/internal/util"

	"github.com/shopspring/decimal"
)

// DefaultNumericScale is the number of decimal places of the finest numeric grid.
const DefaultNumericScale int32 = 20

var (
	// NumericMin stands in for an unbounded numeric low edge.
	NumericMin = decimal.New(-1, 20)
	// NumericMax stands in for an unbounded numeric high edge.
	NumericMax = decimal.New(1, 20)
)

// NumericRestriction is a linear range over decimals.
type NumericRestriction = Linear[decimal.Decimal]

// CompareDecimal orders decimals.
func CompareDecimal(a, b decimal.Decimal) int {
	return a.Cmp(b)
}

// NumericLimit builds a decimal limit.
func NumericLimit(v decimal.Decimal, inclusive bool) Limit[decimal.Decimal] {
	return NewLimit(v, inclusive, CompareDecimal)
}

// NumericGranularity is a grid of 10^-scale.
type NumericGranularity struct {
	scale int32
}

// NewNumericGranularity builds a grid with the given number of decimal places.
func NewNumericGranularity(scale int32) NumericGranularity {
	if scale < 0 {
		util.Invariantf("numeric granularity scale %d is negative", scale)
	}
	return NumericGranularity{scale: scale}
}

// GranularityFromStep derives the grid from a step such as 0.01 or 1.
// Only powers of ten are representable.
func GranularityFromStep(step decimal.Decimal) (NumericGranularity, error) {
	if step.Sign() <= 0 {
		return NumericGranularity{}, fmt.Errorf("granularity %s must be positive", step)
	}
	scale := -step.Exponent()
	coef := new(big.Int).Set(step.Coefficient())
	ten := big.NewInt(10)
	rem := new(big.Int)
	for coef.Cmp(big.NewInt(1)) > 0 {
		coef.QuoRem(coef, ten, rem)
		if rem.Sign() != 0 {
			return NumericGranularity{}, fmt.Errorf("granularity %s is not a power of ten", step)
		}
		scale--
	}
	if scale < 0 {
		return NumericGranularity{}, fmt.Errorf("granularity %s is coarser than 1", step)
	}
	return NewNumericGranularity(scale), nil
}

// Scale returns the number of decimal places.
func (g NumericGranularity) Scale() int32 {
	return g.scale
}

func (g NumericGranularity) step() decimal.Decimal {
	return decimal.New(1, -g.scale)
}

// IsCorrectScale implements Granularity.
func (g NumericGranularity) IsCorrectScale(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(g.scale))
}

// Trim implements Granularity.
func (g NumericGranularity) Trim(v decimal.Decimal) decimal.Decimal {
	return v.RoundFloor(g.scale)
}

// Next implements Granularity.
func (g NumericGranularity) Next(v decimal.Decimal) decimal.Decimal {
	c := v.RoundCeil(g.scale)
	if c.Equal(v) {
		return v.Add(g.step())
	}
	return c
}

// Previous implements Granularity.
func (g NumericGranularity) Previous(v decimal.Decimal) decimal.Decimal {
	f := v.RoundFloor(g.scale)
	if f.Equal(v) {
		return v.Sub(g.step())
	}
	return f
}

// Steps implements Granularity.
func (g NumericGranularity) Steps(from, to decimal.Decimal) uint64 {
	if to.Cmp(from) <= 0 {
		return 0
	}
	n := to.Sub(from).Shift(g.scale).BigInt()
	if !n.IsUint64() {
		return math.MaxUint64
	}
	return n.Uint64()
}

// Random implements Granularity.
func (g NumericGranularity) Random(min, max decimal.Decimal, r util.RandomSource) decimal.Decimal {
	steps := g.Steps(min, max)
	if steps == 0 {
		return min
	}
	if steps < math.MaxInt64 {
		k := r.Int63n(int64(steps) + 1)
		return min.Add(decimal.NewFromInt(k).Mul(g.step()))
	}
	span := max.Sub(min)
	v := min.Add(span.Mul(decimal.NewFromFloat(r.Float64()))).RoundFloor(g.scale)
	if v.Cmp(min) < 0 {
		return min
	}
	if v.Cmp(max) > 0 {
		return max
	}
	return v
}

// Merge keeps the coarser grid: its points are on both grids.
func (g NumericGranularity) Merge(other Granularity[decimal.Decimal]) Granularity[decimal.Decimal] {
	o, ok := other.(NumericGranularity)
	if !ok {
		util.Invariantf("cannot merge numeric granularity with %T", other)
	}
	if o.scale < g.scale {
		return o
	}
	return g
}

// Equal implements Granularity.
func (g NumericGranularity) Equal(other Granularity[decimal.Decimal]) bool {
	o, ok := other.(NumericGranularity)
	return ok && o.scale == g.scale
}

func (g NumericGranularity) String() string {
	return fmt.Sprintf("granularity=%s", g.step())
}

// NewNumericRestriction builds a numeric range.
func NewNumericRestriction(min, max Limit[decimal.Decimal], scale int32) *NumericRestriction {
	return NewLinear[decimal.Decimal](min, max, NewNumericGranularity(scale))
}

// UnboundedNumeric is the full numeric range at the given scale.
func UnboundedNumeric(scale int32) *NumericRestriction {
	return NewNumericRestriction(NumericLimit(NumericMin, true), NumericLimit(NumericMax, true), scale)
}

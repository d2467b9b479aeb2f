package restriction

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NormalizeValue converts Go scalars into the canonical value domain:
// decimal.Decimal for numbers, UTC time.Time for instants, string, or nil.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return decimal.NewFromInt(int64(x))
	case int32:
		return decimal.NewFromInt32(x)
	case int64:
		return decimal.NewFromInt(x)
	case uint32:
		return decimal.NewFromInt(int64(x))
	case float32:
		return decimal.NewFromFloat32(x)
	case float64:
		return decimal.NewFromFloat(x)
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return *x
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

// ValueKey is the canonical identity of a value. Numerically equal decimals
// with different exponents share a key.
func ValueKey(v any) string {
	switch x := NormalizeValue(v).(type) {
	case nil:
		return "null"
	case decimal.Decimal:
		return "n:" + x.String()
	case time.Time:
		return "t:" + x.Format(time.RFC3339Nano)
	case string:
		return "s:" + x
	default:
		return fmt.Sprintf("%T:%v", x, x)
	}
}

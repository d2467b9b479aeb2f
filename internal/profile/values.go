package profile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rowsynth/internal/schema"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime accepts RFC 3339 instants and the common zone-less layouts,
// which are read as UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("invalid datetime %q", s)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint64:
		return decimal.RequireFromString(strconv.FormatUint(x, 10)), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case decimal.Decimal:
		return x, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Decimal{}, errors.Errorf("invalid number %q", x)
		}
		return d, nil
	default:
		return decimal.Decimal{}, errors.Errorf("expected a number, got %T", v)
	}
}

func toDateTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		return ParseDateTime(x)
	default:
		return time.Time{}, errors.Errorf("expected a datetime, got %T", v)
	}
}

func toInt(v any) (int, error) {
	d, err := toDecimal(v)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, errors.Errorf("expected an integer, got %s", d)
	}
	return int(d.IntPart()), nil
}

// coerceValue converts a decoded profile value into the canonical value of
// the field's kind. A nil value stays nil.
func coerceValue(f schema.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type.Kind() {
	case schema.KindNumeric:
		d, err := toDecimal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Name)
		}
		return d, nil
	case schema.KindDatetime:
		t, err := toDateTime(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Name)
		}
		return t, nil
	default:
		switch x := v.(type) {
		case string:
			return x, nil
		case int, int64, uint64, float64, bool:
			return fmt.Sprint(x), nil
		default:
			return nil, errors.Errorf("field %s: expected a string, got %T", f.Name, v)
		}
	}
}

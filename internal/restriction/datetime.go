package restriction

import (
	"fmt"
	"math"
	"strings"
	"time"

	"rowsynth/internal/util"
)

var (
	// DateTimeMin stands in for an unbounded datetime low edge.
	DateTimeMin = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	// DateTimeMax stands in for an unbounded datetime high edge.
	DateTimeMax = time.Date(9999, time.December, 31, 23, 59, 59, 999_000_000, time.UTC)
)

// DateTimeRestriction is a linear range over UTC instants.
type DateTimeRestriction = Linear[time.Time]

// CompareTime orders instants.
func CompareTime(a, b time.Time) int {
	return a.Compare(b)
}

// DateTimeLimit builds a datetime limit. The value is normalized to UTC.
func DateTimeLimit(v time.Time, inclusive bool) Limit[time.Time] {
	return NewLimit(v.UTC(), inclusive, CompareTime)
}

// TimeUnit is a datetime grid step. Larger units are coarser.
type TimeUnit int

// TimeUnit constants, finest first.
const (
	Millis TimeUnit = iota
	Seconds
	Minutes
	Hours
	Days
	Months
	Years
)

var unitNames = map[TimeUnit]string{
	Millis:  "millis",
	Seconds: "seconds",
	Minutes: "minutes",
	Hours:   "hours",
	Days:    "days",
	Months:  "months",
	Years:   "years",
}

func (u TimeUnit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return fmt.Sprintf("TimeUnit(%d)", int(u))
}

// Add moves t by n units. Calendar units keep the day of month where the
// calendar allows.
func (u TimeUnit) Add(t time.Time, n int64) time.Time {
	return DateTimeGranularity{unit: u}.add(t.UTC(), n)
}

// ParseTimeUnit accepts plural or singular unit names.
func ParseTimeUnit(name string) (TimeUnit, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if !strings.HasSuffix(n, "s") {
		n += "s"
	}
	if n == "milliss" {
		n = "millis"
	}
	for u, s := range unitNames {
		if s == n {
			return u, true
		}
	}
	return 0, false
}

func (u TimeUnit) fixedMillis() (int64, bool) {
	switch u {
	case Millis:
		return 1, true
	case Seconds:
		return 1000, true
	case Minutes:
		return 60_000, true
	case Hours:
		return 3_600_000, true
	case Days:
		return 86_400_000, true
	default:
		return 0, false
	}
}

// DateTimeGranularity is a grid of one TimeUnit in UTC.
type DateTimeGranularity struct {
	unit TimeUnit
}

// NewDateTimeGranularity builds a datetime grid.
func NewDateTimeGranularity(unit TimeUnit) DateTimeGranularity {
	if _, ok := unitNames[unit]; !ok {
		util.Invariantf("unknown time unit %d", int(unit))
	}
	return DateTimeGranularity{unit: unit}
}

// Unit returns the grid step.
func (g DateTimeGranularity) Unit() TimeUnit {
	return g.unit
}

// Trim implements Granularity.
func (g DateTimeGranularity) Trim(v time.Time) time.Time {
	v = v.UTC()
	if ms, ok := g.unit.fixedMillis(); ok {
		unix := v.UnixMilli()
		rem := unix % ms
		if rem < 0 {
			rem += ms
		}
		return time.UnixMilli(unix - rem).UTC()
	}
	if g.unit == Months {
		return time.Date(v.Year(), v.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(v.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

func (g DateTimeGranularity) add(v time.Time, n int64) time.Time {
	if ms, ok := g.unit.fixedMillis(); ok {
		return time.UnixMilli(v.UnixMilli() + n*ms).UTC()
	}
	if g.unit == Months {
		return addMonths(v, n)
	}
	return addMonths(v, n*12)
}

// addMonths clamps the day to the length of the target month.
func addMonths(v time.Time, n int64) time.Time {
	total := int64(v.Year())*12 + int64(v.Month()-1) + n
	year, month := int(total/12), int(total%12)+1
	if month <= 0 {
		year--
		month += 12
	}
	day := min(v.Day(), util.DaysInMonth(year, month))
	return time.Date(year, time.Month(month), day, v.Hour(), v.Minute(), v.Second(), v.Nanosecond(), v.Location())
}

// IsCorrectScale implements Granularity.
func (g DateTimeGranularity) IsCorrectScale(v time.Time) bool {
	return g.Trim(v).Equal(v)
}

// Next implements Granularity.
func (g DateTimeGranularity) Next(v time.Time) time.Time {
	return g.add(g.Trim(v), 1)
}

// Previous implements Granularity.
func (g DateTimeGranularity) Previous(v time.Time) time.Time {
	t := g.Trim(v)
	if t.Equal(v.UTC()) {
		return g.add(t, -1)
	}
	return t
}

// Steps implements Granularity.
func (g DateTimeGranularity) Steps(from, to time.Time) uint64 {
	if !to.After(from) {
		return 0
	}
	from, to = from.UTC(), to.UTC()
	if ms, ok := g.unit.fixedMillis(); ok {
		return uint64((to.UnixMilli() - from.UnixMilli()) / ms)
	}
	if g.unit == Months {
		return uint64(util.MonthsBetween(from.Year(), int(from.Month()), to.Year(), int(to.Month())))
	}
	return uint64(to.Year() - from.Year())
}

// Random implements Granularity.
func (g DateTimeGranularity) Random(min, max time.Time, r util.RandomSource) time.Time {
	steps := g.Steps(min, max)
	if steps == 0 {
		return min
	}
	if steps >= math.MaxInt64 {
		steps = math.MaxInt64 - 1
	}
	return g.add(min, r.Int63n(int64(steps)+1))
}

// Merge keeps the coarser unit: its points are on both grids.
func (g DateTimeGranularity) Merge(other Granularity[time.Time]) Granularity[time.Time] {
	o, ok := other.(DateTimeGranularity)
	if !ok {
		util.Invariantf("cannot merge datetime granularity with %T", other)
	}
	if o.unit > g.unit {
		return o
	}
	return g
}

// Equal implements Granularity.
func (g DateTimeGranularity) Equal(other Granularity[time.Time]) bool {
	o, ok := other.(DateTimeGranularity)
	return ok && o.unit == g.unit
}

func (g DateTimeGranularity) String() string {
	return "granularity=" + g.unit.String()
}

// NewDateTimeRestriction builds a datetime range.
func NewDateTimeRestriction(min, max Limit[time.Time], unit TimeUnit) *DateTimeRestriction {
	return NewLinear[time.Time](min, max, NewDateTimeGranularity(unit))
}

// UnboundedDateTime is the full datetime range at the given unit.
func UnboundedDateTime(unit TimeUnit) *DateTimeRestriction {
	return NewDateTimeRestriction(DateTimeLimit(DateTimeMin, true), DateTimeLimit(DateTimeMax, true), unit)
}

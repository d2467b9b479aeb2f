package restriction

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"rowsynth/internal/util"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func numRange(lo string, loInc bool, hi string, hiInc bool, scale int32) *NumericRestriction {
	return NewNumericRestriction(NumericLimit(dec(lo), loInc), NumericLimit(dec(hi), hiInc), scale)
}

func expectInvariantPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		var inv *util.InvariantError
		if !ok || !errors.As(err, &inv) {
			t.Fatalf("expected invariant panic, got %v", r)
		}
	}()
	fn()
}

func TestLinearExclusiveBoundsMatch(t *testing.T) {
	r := numRange("10", false, "30", false, DefaultNumericScale)
	cases := []struct {
		in   string
		want bool
	}{
		{"10", false},
		{"30", false},
		{"20", true},
		{"10.00000000000000000001", true},
		{"29.99999999999999999999", true},
	}
	for _, c := range cases {
		if got := r.Matches(dec(c.in)); got != c.want {
			t.Fatalf("Matches(%s)=%v want %v", c.in, got, c.want)
		}
	}
	if got := r.First(); !got.Equal(dec("10.00000000000000000001")) {
		t.Fatalf("First=%s", got)
	}
	if got := r.Last(); !got.Equal(dec("29.99999999999999999999")) {
		t.Fatalf("Last=%s", got)
	}
}

func TestLinearGranularityMatch(t *testing.T) {
	r := numRange("0", true, "10", true, 0)
	if r.Matches(dec("1.5")) {
		t.Fatalf("expected off-grid value to be rejected")
	}
	if !r.Matches(dec("10")) || !r.Matches(dec("0")) {
		t.Fatalf("expected inclusive edges to match")
	}
	if r.Count() != 11 {
		t.Fatalf("Count=%d want 11", r.Count())
	}
}

func TestLinearMissingBoundPanics(t *testing.T) {
	expectInvariantPanic(t, func() {
		NewLinear[decimal.Decimal](Limit[decimal.Decimal]{}, NumericLimit(dec("1"), true), NewNumericGranularity(0))
	})
}

func TestLinearMerge(t *testing.T) {
	a := numRange("10", true, "20", true, DefaultNumericScale)
	b := numRange("15", true, "25", true, DefaultNumericScale)
	merged, ok := a.Merge(b)
	if !ok {
		t.Fatalf("expected overlap")
	}
	want := numRange("15", true, "20", true, DefaultNumericScale)
	if !merged.Equal(want) {
		t.Fatalf("merged=%s want %s", merged, want)
	}
	if _, ok := a.Merge(numRange("30", true, "40", true, DefaultNumericScale)); ok {
		t.Fatalf("expected disjoint ranges to contradict")
	}
}

func TestLinearMergeTieExclusiveWins(t *testing.T) {
	a := numRange("10", true, "20", true, 0)
	b := numRange("10", false, "20", false, 0)
	merged, ok := a.Merge(b)
	if !ok {
		t.Fatalf("expected overlap")
	}
	if merged.Min().Inclusive() || merged.Max().Inclusive() {
		t.Fatalf("expected exclusive limits, got %s", merged)
	}
	again, _ := b.Merge(a)
	if !merged.Equal(again) {
		t.Fatalf("merge not commutative: %s vs %s", merged, again)
	}
}

func TestLinearMergeEmptyOnGrid(t *testing.T) {
	a := numRange("1.2", true, "1.8", true, 1)
	if _, ok := a.Merge(numRange("0", true, "5", true, 0)); ok {
		t.Fatalf("expected no integer inside [1.2, 1.8]")
	}
}

func TestLinearMergeAssociative(t *testing.T) {
	a := numRange("0", true, "100", false, 2)
	b := numRange("5", false, "50", true, 0)
	c := numRange("10", true, "60", true, 1)
	ab, _ := a.Merge(b)
	left, ok1 := ab.Merge(c)
	bc, _ := b.Merge(c)
	right, ok2 := a.Merge(bc)
	if !ok1 || !ok2 || !left.Equal(right) {
		t.Fatalf("merge not associative: %s vs %s", left, right)
	}
}

func TestNumericGranularity(t *testing.T) {
	g := NewNumericGranularity(2)
	if got := g.Next(dec("1.234")); !got.Equal(dec("1.24")) {
		t.Fatalf("Next=%s", got)
	}
	if got := g.Previous(dec("1.20")); !got.Equal(dec("1.19")) {
		t.Fatalf("Previous=%s", got)
	}
	if got := g.Trim(dec("-1.234")); !got.Equal(dec("-1.24")) {
		t.Fatalf("Trim=%s", got)
	}
	if got := g.Steps(dec("1"), dec("2")); got != 100 {
		t.Fatalf("Steps=%d", got)
	}
	merged := g.Merge(NewNumericGranularity(5))
	if !merged.Equal(g) {
		t.Fatalf("expected coarser grid, got %s", merged)
	}
	r := rand.New(rand.NewSource(7))
	for range 50 {
		v := g.Random(dec("1"), dec("2"), r)
		if v.Cmp(dec("1")) < 0 || v.Cmp(dec("2")) > 0 || !g.IsCorrectScale(v) {
			t.Fatalf("Random produced %s", v)
		}
	}
}

func TestGranularityFromStep(t *testing.T) {
	g, err := GranularityFromStep(dec("0.01"))
	if err != nil || g.Scale() != 2 {
		t.Fatalf("GranularityFromStep(0.01)=%v,%v", g, err)
	}
	if _, err := GranularityFromStep(dec("0.25")); err == nil {
		t.Fatalf("expected non power of ten to fail")
	}
}

func TestDateTimeGranularity(t *testing.T) {
	g := NewDateTimeGranularity(Days)
	v := time.Date(2024, 2, 28, 13, 0, 0, 0, time.UTC)
	if got := g.Next(v); !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Next=%s", got)
	}
	if got := g.Previous(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)); !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Previous=%s", got)
	}
	months := NewDateTimeGranularity(Months)
	from := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if got := months.Steps(from, to); got != 3 {
		t.Fatalf("Steps=%d", got)
	}
	if !g.Merge(months).Equal(months) {
		t.Fatalf("expected coarser unit to win")
	}
	if u, ok := ParseTimeUnit("Hour"); !ok || u != Hours {
		t.Fatalf("ParseTimeUnit(Hour)=%v,%v", u, ok)
	}
}

func TestTimeUnitAddClampsDay(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 8, 15, 0, 0, time.UTC) }
	cases := []struct {
		unit TimeUnit
		from time.Time
		n    int64
		want time.Time
	}{
		{Months, day(2023, 1, 31), 1, day(2023, 2, 28)},
		{Months, day(2024, 1, 31), 1, day(2024, 2, 29)},
		{Months, day(2023, 3, 31), -1, day(2023, 2, 28)},
		{Months, day(2023, 12, 15), 1, day(2024, 1, 15)},
		{Months, day(2023, 1, 15), -13, day(2021, 12, 15)},
		{Years, day(2024, 2, 29), 1, day(2025, 2, 28)},
		{Years, day(2024, 2, 29), 4, day(2028, 2, 29)},
		{Days, day(2023, 1, 31), 1, day(2023, 2, 1)},
	}
	for _, c := range cases {
		if got := c.unit.Add(c.from, c.n); !got.Equal(c.want) {
			t.Fatalf("%s.Add(%s, %d)=%s want %s", c.unit, c.from, c.n, got, c.want)
		}
	}
}

func TestNumericGranularityMergeKeepsCoarserGrid(t *testing.T) {
	cents := numRange("0", true, "3", true, 2)
	whole := numRange("0", true, "3", true, 0)
	for _, m := range []*NumericRestriction{mustMerge(t, cents, whole), mustMerge(t, whole, cents)} {
		if m.Granularity().(NumericGranularity).Scale() != 0 || m.Count() != 4 {
			t.Fatalf("merged=%s count=%d", m, m.Count())
		}
		if m.Matches(dec("1.5")) || !m.Matches(dec("2")) {
			t.Fatalf("merged=%s admits off-grid values", m)
		}
	}
}

func mustMerge(t *testing.T, a, b *NumericRestriction) *NumericRestriction {
	t.Helper()
	m, ok := a.Merge(b)
	if !ok {
		t.Fatalf("unexpected contradiction merging %s and %s", a, b)
	}
	return m
}

func TestDateTimeRestrictionBoundaryStep(t *testing.T) {
	lo := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	r := NewDateTimeRestriction(DateTimeLimit(lo, false), DateTimeLimit(hi, false), Millis)
	if got := r.First(); !got.Equal(lo.Add(time.Millisecond)) {
		t.Fatalf("First=%s", got)
	}
	if got := r.Last(); !got.Equal(hi.Add(-time.Millisecond)) {
		t.Fatalf("Last=%s", got)
	}
	unbounded := UnboundedDateTime(Millis)
	if unbounded.Count() == 0 {
		t.Fatalf("expected unbounded range to be non-empty")
	}
}

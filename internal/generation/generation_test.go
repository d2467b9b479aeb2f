package generation

import (
	"context"
	"math/rand"
	"slices"
	"testing"
	"time"

	"rowsynth/internal/constraint"
	"rowsynth/internal/decisiontree"
	"rowsynth/internal/fieldspec"
	"rowsynth/internal/restriction"
	"rowsynth/internal/schema"
	"rowsynth/internal/walker"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// sequence is a RandomSource replaying fixed Intn results.
type sequence struct {
	ints []int
	pos  int
}

func (s *sequence) Intn(n int) int {
	v := s.ints[s.pos%len(s.ints)] % n
	s.pos++
	return v
}

func (s *sequence) Int63n(n int64) int64 { return int64(s.Intn(int(n))) }

func (s *sequence) Float64() float64 { return 0.5 }

func keysOf(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = restriction.ValueKey(v)
	}
	slices.Sort(out)
	return out
}

func specFor(field schema.Field, atomics ...constraint.Atomic) fieldspec.FieldSpec {
	fields := schema.MustProfileFields(field)
	rs, ok := fieldspec.Reduce(fields, atomics)
	if !ok {
		return fieldspec.Impossible(field.Type)
	}
	return rs.SpecFor(field.Name)
}

func TestExhaustiveOpenRangeWithNull(t *testing.T) {
	price := schema.Field{Name: "price", Type: schema.TypeDecimal, Nullable: true}
	spec := specFor(price,
		constraint.NumericBound{F: price, Op: constraint.GreaterThan, Value: dec("10")},
		constraint.NumericBound{F: price, Op: constraint.LessThan, Value: dec("30")},
	)
	g := FieldSpecValueGenerator{Strategy: FullSequential}
	var got []any
	for v := range g.Generate(price, spec) {
		got = append(got, v)
		if len(got) == 3 {
			break
		}
	}
	if len(got) != 3 {
		t.Fatalf("got %v", got)
	}
	if !got[0].(decimal.Decimal).Equal(dec("10.00000000000000000001")) ||
		!got[1].(decimal.Decimal).Equal(dec("29.99999999999999999999")) || got[2] != nil {
		t.Fatalf("got %v", got)
	}
}

func TestRandomWhitelistDraws(t *testing.T) {
	qty := schema.Field{Name: "qty", Type: schema.TypeInteger}
	spec := specFor(qty, constraint.InSetOf(qty, 10, 20, 30))
	g := FieldSpecValueGenerator{Strategy: Random, Rand: &sequence{ints: []int{0, 1, 2}}}
	var got []any
	for v := range g.Generate(qty, spec) {
		got = append(got, v)
		if len(got) == 3 {
			break
		}
	}
	if want := keysOf([]any{10, 20, 30}); !slices.Equal(keysOf(got), want) {
		t.Fatalf("got %v want %v", keysOf(got), want)
	}
}

func TestUniqueFieldEnumerates(t *testing.T) {
	id := schema.Field{Name: "id", Type: schema.TypeInteger, Unique: true}
	spec := specFor(id, constraint.InSetOf(id, 1, 2, 3))
	g := FieldSpecValueGenerator{Strategy: Random, Rand: rand.New(rand.NewSource(1))}
	var got []any
	for v := range g.Generate(id, spec) {
		got = append(got, v)
	}
	if len(got) != 3 || restriction.ValueKey(got[0]) != restriction.ValueKey(1) {
		t.Fatalf("got %v", got)
	}
}

var (
	fieldA = schema.Field{Name: "a", Type: schema.TypeInteger}
	fieldB = schema.Field{Name: "b", Type: schema.TypeInteger}
	fieldS = schema.Field{Name: "s", Type: schema.TypeString}
)

func rowSpec(t *testing.T, fields schema.ProfileFields, atomics ...constraint.Atomic) *fieldspec.RowSpec {
	t.Helper()
	rs, ok := fieldspec.Reduce(fields, atomics)
	if !ok {
		t.Fatalf("infeasible row spec")
	}
	return rs
}

func countRows(seq func(func(Row) bool)) int {
	n := 0
	for range seq {
		n++
	}
	return n
}

func TestRowGeneratorCombinations(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldS)
	rs := rowSpec(t, fields, constraint.InSetOf(fieldA, 1, 2), constraint.InSetOf(fieldS, "x", "y", "z"))
	exhaustive := RowGenerator{Values: FieldSpecValueGenerator{Strategy: FullSequential}}
	if got := countRows(exhaustive.Generate(rs)); got != 6 {
		t.Fatalf("exhaustive rows=%d want 6", got)
	}
	minimal := RowGenerator{Values: FieldSpecValueGenerator{Strategy: FullSequential}, Combination: Minimal}
	var rows []Row
	for row := range minimal.Generate(rs) {
		rows = append(rows, row)
	}
	if len(rows) != 3 {
		t.Fatalf("minimal rows=%d want 3", len(rows))
	}
	if last, _ := rows[2].Get("a"); restriction.ValueKey(last) != restriction.ValueKey(2) {
		t.Fatalf("expected exhausted column to repeat its last value, got %v", last)
	}
}

func TestRowGeneratorRelations(t *testing.T) {
	fields := schema.MustProfileFields(fieldB, fieldA)
	rs := rowSpec(t, fields,
		constraint.InSetOf(fieldA, 1, 2, 3),
		constraint.NumericBound{F: fieldB, Op: constraint.GreaterThanOrEqual, Value: dec("1")},
		constraint.NumericBound{F: fieldB, Op: constraint.LessThanOrEqual, Value: dec("5")},
		constraint.Relation{Main: fieldB, Other: fieldA, Kind: constraint.RelGreaterThan},
	)
	seq := RowGenerator{Values: FieldSpecValueGenerator{Strategy: FullSequential}}
	if got := countRows(seq.Generate(rs)); got != 9 {
		t.Fatalf("rows=%d want 9", got)
	}
	random := RowGenerator{Values: FieldSpecValueGenerator{Strategy: Random, Rand: rand.New(rand.NewSource(9))}}
	n := 0
	for row := range random.Generate(rs) {
		a, _ := row.Get("a")
		b, _ := row.Get("b")
		if b.(decimal.Decimal).Cmp(a.(decimal.Decimal)) <= 0 {
			t.Fatalf("row violates b > a: %v", row.Values)
		}
		if n++; n == 50 {
			break
		}
	}
}

func TestRelationOffset(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	rs := rowSpec(t, fields,
		constraint.InSetOf(fieldA, 1, 2),
		constraint.Relation{Main: fieldB, Other: fieldA, Kind: constraint.RelEqual, Offset: 10},
	)
	g := RowGenerator{Values: FieldSpecValueGenerator{Strategy: Random, Rand: rand.New(rand.NewSource(4))}}
	n := 0
	for row := range g.Generate(rs) {
		a, _ := row.Get("a")
		b, _ := row.Get("b")
		if !b.(decimal.Decimal).Equal(a.(decimal.Decimal).Add(dec("10"))) {
			t.Fatalf("row=%v", row.Values)
		}
		if n++; n == 10 {
			break
		}
	}
	if n != 10 {
		t.Fatalf("rows=%d want 10", n)
	}
}

func TestRelationMonthOffsetClampsDay(t *testing.T) {
	start := schema.Field{Name: "start", Type: schema.TypeDatetime}
	end := schema.Field{Name: "end", Type: schema.TypeDatetime}
	fields := schema.MustProfileFields(start, end)
	rs := rowSpec(t, fields,
		constraint.InSetOf(start, time.Date(2023, 1, 31, 9, 30, 0, 0, time.UTC), time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)),
		constraint.Relation{Main: end, Other: start, Kind: constraint.RelEqual, Offset: 1, Unit: restriction.Months},
	)
	g := RowGenerator{Values: FieldSpecValueGenerator{Strategy: FullSequential}}
	want := map[int]time.Time{
		2023: time.Date(2023, 2, 28, 9, 30, 0, 0, time.UTC),
		2024: time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC),
	}
	n := 0
	for row := range g.Generate(rs) {
		s, _ := row.Get("start")
		e, _ := row.Get("end")
		if got := e.(time.Time); !got.Equal(want[s.(time.Time).Year()]) {
			t.Fatalf("start=%v end=%v", s, got)
		}
		n++
	}
	if n != 2 {
		t.Fatalf("rows=%d want 2", n)
	}
}

func newTree(fields schema.ProfileFields, cs ...constraint.Constraint) *decisiontree.DecisionTree {
	return decisiontree.Build(fields, cs)
}

func TestDataGeneratorRandomMaxRows(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldS)
	tree := newTree(fields, constraint.AnyOf{Constraints: []constraint.Constraint{
		constraint.InSetOf(fieldS, "x"),
		constraint.InSetOf(fieldS, "y"),
	}})
	g := DataGenerator{
		Walker:  walker.CartesianProductWalker{},
		Rows:    RowGenerator{Values: FieldSpecValueGenerator{Strategy: Random, Rand: rand.New(rand.NewSource(2))}},
		MaxRows: 20,
	}
	seen := map[any]int{}
	stats, err := g.Generate(context.Background(), tree, func(r Row) error {
		s, _ := r.Get("s")
		seen[s]++
		return nil
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if stats.Rows != 20 || stats.RowSpecs != 2 {
		t.Fatalf("stats=%+v", stats)
	}
	if seen["x"] != 10 || seen["y"] != 10 {
		t.Fatalf("expected alternating row specs, got %v", seen)
	}
}

func TestDataGeneratorUniqueDeduplicates(t *testing.T) {
	id := schema.Field{Name: "id", Type: schema.TypeInteger, Unique: true}
	fields := schema.MustProfileFields(id)
	tree := newTree(fields, constraint.AnyOf{Constraints: []constraint.Constraint{
		constraint.InSetOf(id, 1, 2, 3),
		constraint.InSetOf(id, 2, 3, 4),
	}})
	g := DataGenerator{
		Walker: walker.CartesianProductWalker{},
		Rows:   RowGenerator{Values: FieldSpecValueGenerator{Strategy: FullSequential}},
	}
	stats, err := g.Generate(context.Background(), tree, func(Row) error { return nil })
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if stats.Rows != 4 || stats.Duplicates != 2 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestDataGeneratorUniqueLargeBoundedRange(t *testing.T) {
	id := schema.Field{Name: "id", Type: schema.TypeInteger, Unique: true}
	fields := schema.MustProfileFields(id)
	tree := newTree(fields,
		constraint.NumericBound{F: id, Op: constraint.GreaterThanOrEqual, Value: dec("1")},
		constraint.NumericBound{F: id, Op: constraint.LessThanOrEqual, Value: dec("100000")},
	)
	g := DataGenerator{
		Walker:  walker.CartesianProductWalker{},
		Rows:    RowGenerator{Values: FieldSpecValueGenerator{Strategy: Random, Rand: rand.New(rand.NewSource(3))}},
		MaxRows: 100,
	}
	seen := map[string]bool{}
	stats, err := g.Generate(context.Background(), tree, func(r Row) error {
		v, _ := r.Get("id")
		seen[restriction.ValueKey(v)] = true
		return nil
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if stats.Rows != 100 || len(seen) != 100 || stats.Duplicates != 0 {
		t.Fatalf("stats=%+v distinct=%d", stats, len(seen))
	}
}

func TestDataGeneratorInfeasibleIsEmpty(t *testing.T) {
	fields := schema.MustProfileFields(fieldA)
	tree := newTree(fields,
		constraint.NumericBound{F: fieldA, Op: constraint.GreaterThan, Value: dec("10")},
		constraint.NumericBound{F: fieldA, Op: constraint.LessThan, Value: dec("5")},
	)
	g := DataGenerator{
		Walker:  walker.RoutesWalker{Producer: walker.ExhaustiveRouteProducer{}},
		Rows:    RowGenerator{Values: FieldSpecValueGenerator{Strategy: Random, Rand: rand.New(rand.NewSource(1))}},
		MaxRows: 10,
	}
	stats, err := g.Generate(context.Background(), tree, func(Row) error {
		t.Fatalf("unexpected row")
		return nil
	})
	if err != nil || !stats.Infeasible || stats.Rows != 0 {
		t.Fatalf("stats=%+v err=%v", stats, err)
	}
}

func TestDataGeneratorCancelled(t *testing.T) {
	fields := schema.MustProfileFields(fieldA)
	tree := newTree(fields)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := DataGenerator{
		Walker:  walker.CartesianProductWalker{},
		Rows:    RowGenerator{Values: FieldSpecValueGenerator{Strategy: Random, Rand: rand.New(rand.NewSource(1))}},
		MaxRows: 10,
	}
	if _, err := g.Generate(ctx, tree, func(Row) error { return nil }); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

package fieldspec

import (
	"testing"

	"rowsynth/internal/constraint"
	"rowsynth/internal/schema"
)

func TestReduceAndMergeRowSpecs(t *testing.T) {
	fields := schema.MustProfileFields(price, name)
	a, ok := Reduce(fields, []constraint.Atomic{
		bound(price, constraint.GreaterThanOrEqual, 10),
		bound(price, constraint.LessThanOrEqual, 20),
	})
	if !ok {
		t.Fatalf("expected feasible reduction")
	}
	b, _ := Reduce(fields, []constraint.Atomic{
		bound(price, constraint.GreaterThanOrEqual, 15),
		bound(price, constraint.LessThanOrEqual, 25),
	})
	c, _ := Reduce(fields, []constraint.Atomic{
		bound(price, constraint.GreaterThanOrEqual, 30),
		bound(price, constraint.LessThanOrEqual, 40),
	})
	merged, ok := MergeRowSpecs(a, b)
	if !ok {
		t.Fatalf("expected overlap")
	}
	if !merged.SpecFor("price").Equal(between(price, 15, 20)) {
		t.Fatalf("merged price=%s", merged.SpecFor("price"))
	}
	if _, ok := MergeRowSpecs(a, c); ok {
		t.Fatalf("expected contradiction")
	}
	ba, _ := MergeRowSpecs(b, a)
	if !merged.Equal(ba) {
		t.Fatalf("row merge not commutative")
	}
}

func TestReduceContradiction(t *testing.T) {
	fields := schema.MustProfileFields(price)
	_, ok := Reduce(fields, []constraint.Atomic{
		bound(price, constraint.GreaterThan, 10),
		bound(price, constraint.LessThan, 5),
	})
	if ok {
		t.Fatalf("expected contradiction")
	}
}

func TestReduceCarriesRelations(t *testing.T) {
	fields := schema.MustProfileFields(price, qty)
	rel := constraint.Relation{Main: price, Other: qty, Kind: constraint.RelGreaterThan}
	spec, ok := Reduce(fields, []constraint.Atomic{rel, rel})
	if !ok || len(spec.Relations()) != 1 {
		t.Fatalf("relations=%v", spec.Relations())
	}
}

func TestReduceUnknownFieldPanics(t *testing.T) {
	fields := schema.MustProfileFields(price)
	expectInvariantPanic(t, func() {
		Reduce(fields, []constraint.Atomic{constraint.IsNull{F: name}})
	})
}

func TestMergeRowSpecsFieldMismatchPanics(t *testing.T) {
	a, _ := Reduce(schema.MustProfileFields(price), nil)
	b, _ := Reduce(schema.MustProfileFields(price, name), nil)
	expectInvariantPanic(t, func() {
		MergeRowSpecs(a, b)
	})
}

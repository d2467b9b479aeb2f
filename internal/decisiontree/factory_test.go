package decisiontree

import (
	"testing"

	"rowsynth/internal/constraint"
	"rowsynth/internal/schema"
)

func TestBuildAllOfMergesAtomics(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	tree := Build(fields, []constraint.Constraint{
		constraint.AllOf{Constraints: []constraint.Constraint{gt(1), eqB("x")}},
		gt(1),
	})
	if !tree.Root.IsLeaf() || len(tree.Root.Atomics()) != 2 {
		t.Fatalf("root=%s", tree.Root)
	}
}

func TestBuildNegatedAllOfIsDecision(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	tree := Build(fields, []constraint.Constraint{
		constraint.Not{Inner: constraint.AllOf{Constraints: []constraint.Constraint{gt(1), eqB("x")}}},
	})
	ds := tree.Root.Decisions()
	if len(ds) != 1 || len(ds[0].Options()) != 2 {
		t.Fatalf("root=%s", tree.Root)
	}
	if !ds[0].Options()[0].ContainsAtomic(constraint.Negate(gt(1))) {
		t.Fatalf("expected negated atomic in first option: %s", ds[0].Options()[0])
	}
}

func TestBuildConditional(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	tree := Build(fields, []constraint.Constraint{
		constraint.Conditional{If: gt(1), Then: eqB("x"), Else: eqB("y")},
	})
	options := tree.Root.Decisions()[0].Options()
	if len(options) != 2 {
		t.Fatalf("options=%d", len(options))
	}
	if !options[0].ContainsAtomic(gt(1)) || !options[0].ContainsAtomic(eqB("x")) {
		t.Fatalf("then branch=%s", options[0])
	}
	if !options[1].ContainsAtomic(constraint.Negate(gt(1))) || !options[1].ContainsAtomic(eqB("y")) {
		t.Fatalf("else branch=%s", options[1])
	}
}

func TestBuildNegatedConditionalWithoutElse(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	tree := Build(fields, []constraint.Constraint{
		constraint.Not{Inner: constraint.Conditional{If: gt(1), Then: eqB("x")}},
	})
	root := tree.Root
	if !root.IsLeaf() || !root.ContainsAtomic(gt(1)) || !root.ContainsAtomic(constraint.Negate(eqB("x"))) {
		t.Fatalf("root=%s", root)
	}
}

func TestOptimiserFactorsSharedAtomic(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	shared := gt(10)
	d := NewDecisionNode(
		Leaf(shared, eqB("x")),
		Leaf(shared, eqB("y")),
		Leaf(constraint.Negate(shared), eqB("z")),
	)
	tree := &DecisionTree{Root: NewConstraintNode(nil, []*DecisionNode{d}), Fields: fields}
	got := Optimiser{}.Optimise(tree)
	ds := got.Root.Decisions()
	if len(ds) != 1 {
		t.Fatalf("decisions=%d", len(ds))
	}
	options := ds[0].Options()
	if len(options) != 2 {
		t.Fatalf("options=%s", ds[0])
	}
	if !options[0].ContainsAtomic(shared) || len(options[0].Decisions()) != 1 {
		t.Fatalf("factored option=%s", options[0])
	}
	if !options[1].ContainsAtomic(constraint.Negate(shared)) || !options[1].ContainsAtomic(eqB("z")) {
		t.Fatalf("negated option=%s", options[1])
	}
	if !options[0].IsOptimised() {
		t.Fatalf("expected optimised marker")
	}
}

package decisiontree

import (
	"bytes"
	"strings"
	"testing"

	"rowsynth/internal/constraint"
	"rowsynth/internal/fieldspec"
	"rowsynth/internal/schema"

	"github.com/shopspring/decimal"
)

var (
	fieldA = schema.Field{Name: "a", Type: schema.TypeInteger}
	fieldB = schema.Field{Name: "b", Type: schema.TypeString}
)

func gt(v int64) constraint.Atomic {
	return constraint.NumericBound{F: fieldA, Op: constraint.GreaterThan, Value: decimal.NewFromInt(v)}
}

func eqB(v string) constraint.Atomic {
	return constraint.EqualTo(fieldB, v)
}

func TestSimplifyHoistsSingleOptionDecision(t *testing.T) {
	inner := NewDecisionNode(Leaf(eqB("x")), Leaf(eqB("y")))
	single := NewDecisionNode(NewConstraintNode([]constraint.Atomic{gt(1)}, []*DecisionNode{inner}))
	other := NewDecisionNode(Leaf(gt(5)), Leaf(gt(6)))
	root := NewConstraintNode([]constraint.Atomic{gt(0)}, []*DecisionNode{single, other})

	simplified := root.Simplify()
	if simplified == root {
		t.Fatalf("expected a new node")
	}
	if len(simplified.Atomics()) != 2 || !simplified.ContainsAtomic(gt(1)) {
		t.Fatalf("atomics=%v", simplified.Atomics())
	}
	decisions := simplified.Decisions()
	if len(decisions) != 2 || decisions[0] != other || decisions[1] != inner {
		t.Fatalf("decisions=%v", decisions)
	}
	if again := simplified.Simplify(); again != simplified {
		t.Fatalf("expected simplify to be a no-op")
	}
	if len(root.Decisions()) != 2 || len(root.Atomics()) != 1 {
		t.Fatalf("original node was modified")
	}
}

func TestSimplifyFullyNested(t *testing.T) {
	deepest := NewDecisionNode(Leaf(gt(3)))
	mid := NewDecisionNode(NewConstraintNode([]constraint.Atomic{gt(2)}, []*DecisionNode{deepest}))
	root := NewConstraintNode(nil, []*DecisionNode{mid})
	got := root.SimplifyFully()
	if !got.IsLeaf() || len(got.Atomics()) != 2 {
		t.Fatalf("got %s", got)
	}
}

func TestInsertDecisionAfter(t *testing.T) {
	d1 := NewDecisionNode(Leaf(gt(1)), Leaf(gt(2)))
	d2 := NewDecisionNode(Leaf(gt(3)), Leaf(gt(4)))
	d3 := NewDecisionNode(Leaf(gt(5)), Leaf(gt(6)))
	n := NewConstraintNode(nil, []*DecisionNode{d1, d2})
	got := n.InsertDecisionAfter(d3, d1)
	if ds := got.Decisions(); len(ds) != 3 || ds[1] != d3 {
		t.Fatalf("decisions=%v", ds)
	}
	appended := n.InsertDecisionAfter(d3, NewDecisionNode())
	if ds := appended.Decisions(); len(ds) != 3 || ds[2] != d3 {
		t.Fatalf("decisions=%v", ds)
	}
	if len(n.Decisions()) != 2 {
		t.Fatalf("original node was modified")
	}
}

func TestCloneWithoutAtomic(t *testing.T) {
	d := NewDecisionNode(Leaf(gt(1)), Leaf(gt(2)))
	n := NewConstraintNode([]constraint.Atomic{gt(0), eqB("x")}, []*DecisionNode{d})
	clone := n.CloneWithoutAtomic(gt(0))
	if clone.ContainsAtomic(gt(0)) || !clone.ContainsAtomic(eqB("x")) || !clone.IsOptimised() {
		t.Fatalf("clone=%s", clone)
	}
	if clone.Decisions()[0] != d {
		t.Fatalf("decisions should be shared")
	}
	if !n.ContainsAtomic(gt(0)) || n.IsOptimised() {
		t.Fatalf("original node was modified")
	}
}

func TestRowSpecMemoized(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	n := Leaf(gt(1))
	first, ok := n.RowSpec(fieldspec.Reducer{}, fields)
	if !ok {
		t.Fatalf("expected feasible node")
	}
	second, _ := n.RowSpec(fieldspec.Reducer{}, fields)
	if first != second {
		t.Fatalf("expected cached row spec")
	}
}

func TestWriteDOT(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	tree := Build(fields, []constraint.Constraint{
		constraint.AnyOf{Constraints: []constraint.Constraint{gt(1), eqB("x")}},
	})
	var buf bytes.Buffer
	if err := WriteDOT(&buf, tree, "demo"); err != nil {
		t.Fatalf("WriteDOT: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "digraph tree {") || !strings.Contains(out, "shape=circle") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

package walker

import (
	"errors"
	"iter"
	"math/rand"
	"testing"

	"rowsynth/internal/constraint"
	"rowsynth/internal/decisiontree"
	"rowsynth/internal/fieldspec"
	"rowsynth/internal/schema"
	"rowsynth/internal/util"

	"github.com/shopspring/decimal"
)

var (
	fieldA = schema.Field{Name: "a", Type: schema.TypeInteger}
	fieldB = schema.Field{Name: "b", Type: schema.TypeString}
)

func bound(op constraint.BoundOp, v int64) constraint.Atomic {
	return constraint.NumericBound{F: fieldA, Op: op, Value: decimal.NewFromInt(v)}
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

// twoByThree has decisions with 2 and 3 options; one pairing contradicts.
func twoByThree() *decisiontree.DecisionTree {
	fields := schema.MustProfileFields(fieldA, fieldB)
	d1 := decisiontree.NewDecisionNode(
		decisiontree.Leaf(bound(constraint.LessThan, 10)),
		decisiontree.Leaf(bound(constraint.GreaterThan, 100)),
	)
	d2 := decisiontree.NewDecisionNode(
		decisiontree.Leaf(constraint.EqualTo(fieldB, "x")),
		decisiontree.Leaf(constraint.EqualTo(fieldB, "y")),
		decisiontree.Leaf(bound(constraint.GreaterThan, 50)),
	)
	return &decisiontree.DecisionTree{
		Root:   decisiontree.NewConstraintNode(nil, []*decisiontree.DecisionNode{d1, d2}),
		Fields: fields,
	}
}

func count[T any](seq iter.Seq[T]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}

func TestCartesianWalkerPrunesContradictions(t *testing.T) {
	tree := twoByThree()
	got := count(CartesianProductWalker{}.Walk(tree))
	if got != 5 {
		t.Fatalf("walk produced %d specs, want 5", got)
	}
}

func TestCartesianWalkerUpperBound(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	d1 := decisiontree.NewDecisionNode(decisiontree.Leaf(), decisiontree.Leaf())
	d2 := decisiontree.NewDecisionNode(decisiontree.Leaf(), decisiontree.Leaf(), decisiontree.Leaf())
	tree := &decisiontree.DecisionTree{Root: decisiontree.NewConstraintNode(nil, []*decisiontree.DecisionNode{d1, d2}), Fields: fields}
	if got := count(CartesianProductWalker{}.Walk(tree)); got != 6 {
		t.Fatalf("walk produced %d specs, want 6", got)
	}
}

func TestCartesianWalkerNestedDecisions(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	inner := decisiontree.NewDecisionNode(
		decisiontree.Leaf(constraint.EqualTo(fieldB, "x")),
		decisiontree.Leaf(constraint.EqualTo(fieldB, "y")),
	)
	outer := decisiontree.NewDecisionNode(
		decisiontree.NewConstraintNode([]constraint.Atomic{bound(constraint.LessThan, 0)}, []*decisiontree.DecisionNode{inner}),
		decisiontree.Leaf(bound(constraint.GreaterThan, 0)),
	)
	tree := &decisiontree.DecisionTree{Root: decisiontree.NewConstraintNode(nil, []*decisiontree.DecisionNode{outer}), Fields: fields}
	if got := count(CartesianProductWalker{}.Walk(tree)); got != 3 {
		t.Fatalf("walk produced %d specs, want 3", got)
	}
}

func TestContradictoryRootYieldsNothing(t *testing.T) {
	tree := twoByThree()
	tree = tree.WithRoot(tree.Root.WithAtomics(bound(constraint.GreaterThan, 5), bound(constraint.LessThan, 1)))
	if got := count(CartesianProductWalker{}.Walk(tree)); got != 0 {
		t.Fatalf("cartesian produced %d specs", got)
	}
	w := RoutesWalker{Producer: ExhaustiveRouteProducer{}}
	if got := count(w.Walk(tree)); got != 0 {
		t.Fatalf("routes produced %d specs", got)
	}
}

func TestExhaustiveRoutesMatchCartesian(t *testing.T) {
	tree := twoByThree()
	routes := count(ExhaustiveRouteProducer{}.ProduceRoutes(tree))
	if routes != 6 {
		t.Fatalf("routes=%d want 6", routes)
	}
	w := RoutesWalker{Producer: ExhaustiveRouteProducer{}}
	if got := count(w.Walk(tree)); got != 5 {
		t.Fatalf("route walk produced %d specs, want 5", got)
	}
}

func TestRoutesWalkerOneResultPerRoute(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	d := decisiontree.NewDecisionNode(
		decisiontree.Leaf(constraint.EqualTo(fieldB, "x")),
		decisiontree.Leaf(constraint.EqualTo(fieldB, "y")),
	)
	tree := &decisiontree.DecisionTree{Root: decisiontree.NewConstraintNode(nil, []*decisiontree.DecisionNode{d}), Fields: fields}
	producer := RandomRouteProducer{Rand: rand.New(rand.NewSource(1)), Count: 25}
	if got := count(RoutesWalker{Producer: producer}.Walk(tree)); got != 25 {
		t.Fatalf("results=%d want 25", got)
	}
}

func TestRoutesWalkerParallelKeepsOrder(t *testing.T) {
	tree := twoByThree()
	serial := RoutesWalker{Producer: ExhaustiveRouteProducer{}}
	parallel := RoutesWalker{Producer: ExhaustiveRouteProducer{}, Workers: 3, BatchSize: 2}
	var want, got []*fieldspec.RowSpec
	for s := range serial.Walk(tree) {
		want = append(want, s)
	}
	for s := range parallel.Walk(tree) {
		got = append(got, s)
	}
	if len(got) != len(want) {
		t.Fatalf("parallel=%d serial=%d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("spec %d differs: %s vs %s", i, got[i], want[i])
		}
	}
}

func TestRoutesWalkerMismatchPanics(t *testing.T) {
	tree := twoByThree()
	w := RoutesWalker{}
	expectInvariantPanic(t, func() {
		w.Resolve(tree, Route{SubRoutes: []Route{{DecisionIndex: 0}}})
	})
	expectInvariantPanic(t, func() {
		w.Resolve(tree, Route{SubRoutes: []Route{{DecisionIndex: 0}, {DecisionIndex: 7}}})
	})
}

func TestRoutesWalkerNestedMismatchPanics(t *testing.T) {
	fields := schema.MustProfileFields(fieldA, fieldB)
	inner := decisiontree.NewDecisionNode(
		decisiontree.Leaf(constraint.EqualTo(fieldB, "x")),
		decisiontree.Leaf(constraint.EqualTo(fieldB, "y")),
	)
	outer := decisiontree.NewDecisionNode(
		decisiontree.NewConstraintNode([]constraint.Atomic{bound(constraint.LessThan, 10)}, []*decisiontree.DecisionNode{inner}),
		decisiontree.Leaf(bound(constraint.GreaterThan, 100)),
	)
	tree := &decisiontree.DecisionTree{Root: decisiontree.NewConstraintNode(nil, []*decisiontree.DecisionNode{outer}), Fields: fields}
	w := RoutesWalker{}
	valid := Route{SubRoutes: []Route{{DecisionIndex: 0, SubRoutes: []Route{{DecisionIndex: 1}}}}}
	if _, ok := w.Resolve(tree, valid); !ok {
		t.Fatalf("expected nested route to resolve")
	}
	expectInvariantPanic(t, func() {
		w.Resolve(tree, Route{SubRoutes: []Route{{DecisionIndex: 0}}})
	})
	expectInvariantPanic(t, func() {
		w.Resolve(tree, Route{SubRoutes: []Route{{DecisionIndex: 0, SubRoutes: []Route{{DecisionIndex: 2}}}}})
	})
	expectInvariantPanic(t, func() {
		w.Resolve(tree, Route{SubRoutes: []Route{{DecisionIndex: 1, SubRoutes: []Route{{DecisionIndex: 0}}}}})
	})
}

func TestRoutesWalkerParallelPanicPropagates(t *testing.T) {
	tree := twoByThree()
	bad := fixedProducer{routes: []Route{{SubRoutes: []Route{{DecisionIndex: 0}}}}}
	w := RoutesWalker{Producer: bad, Workers: 2}
	expectInvariantPanic(t, func() {
		for range w.Walk(tree) {
		}
	})
}

type fixedProducer struct {
	routes []Route
}

func (p fixedProducer) ProduceRoutes(*decisiontree.DecisionTree) iter.Seq[Route] {
	return func(yield func(Route) bool) {
		for _, r := range p.routes {
			if !yield(r) {
				return
			}
		}
	}
}

func TestEarlyStop(t *testing.T) {
	tree := twoByThree()
	n := 0
	for range (CartesianProductWalker{}).Walk(tree) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("n=%d", n)
	}
}

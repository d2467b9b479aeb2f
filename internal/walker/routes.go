package walker

import (
	"fmt"
	"iter"

	"rowsynth/internal/decisiontree"
	"rowsynth/internal/fieldspec"
	"rowsynth/internal/util"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// RoutesWalker resolves the routes of a producer, one row spec per route
// that survives pruning. With Workers > 1 routes are resolved in parallel
// batches and emitted in route order.
type RoutesWalker struct {
	Producer  RouteProducer
	Reducer   fieldspec.Reducer
	Workers   int
	BatchSize int
}

// Walk implements Walker.
func (w RoutesWalker) Walk(tree *decisiontree.DecisionTree) iter.Seq[*fieldspec.RowSpec] {
	return func(yield func(*fieldspec.RowSpec) bool) {
		if _, ok := tree.Root.RowSpec(w.Reducer, tree.Fields); !ok {
			return
		}
		if w.Workers <= 1 {
			for route := range w.Producer.ProduceRoutes(tree) {
				spec, ok := w.Resolve(tree, route)
				if !ok {
					continue
				}
				if !yield(spec) {
					return
				}
			}
			return
		}
		w.walkParallel(tree, yield)
	}
}

// Resolve merges the row specs of the options a route selects. It panics
// when the route does not fit the tree.
func (w RoutesWalker) Resolve(tree *decisiontree.DecisionTree, route Route) (*fieldspec.RowSpec, bool) {
	return w.resolve(tree, tree.Root, route)
}

func (w RoutesWalker) resolve(tree *decisiontree.DecisionTree, n *decisiontree.ConstraintNode, route Route) (*fieldspec.RowSpec, bool) {
	spec, ok := n.RowSpec(w.Reducer, tree.Fields)
	if !ok {
		return nil, false
	}
	ds := n.Decisions()
	if len(route.SubRoutes) != len(ds) {
		util.Invariantf("route has %d sub-routes for %d decisions", len(route.SubRoutes), len(ds))
	}
	for i, d := range ds {
		sub := route.SubRoutes[i]
		options := d.Options()
		if sub.DecisionIndex < 0 || sub.DecisionIndex >= len(options) {
			util.Invariantf("route picks option %d of %d", sub.DecisionIndex, len(options))
		}
		optSpec, ok := w.resolve(tree, options[sub.DecisionIndex], sub)
		if !ok {
			return nil, false
		}
		spec, ok = fieldspec.MergeRowSpecs(spec, optSpec)
		if !ok {
			return nil, false
		}
	}
	return spec, true
}

type resolved struct {
	spec *fieldspec.RowSpec
	ok   bool
}

func (w RoutesWalker) walkParallel(tree *decisiontree.DecisionTree, yield func(*fieldspec.RowSpec) bool) {
	batchSize := w.BatchSize
	if batchSize <= 0 {
		batchSize = w.Workers * 4
	}
	batch := make([]Route, 0, batchSize)
	flush := func() bool {
		results := w.resolveBatch(tree, batch)
		batch = batch[:0]
		for _, r := range results {
			if !r.ok {
				continue
			}
			if !yield(r.spec) {
				return false
			}
		}
		return true
	}
	for route := range w.Producer.ProduceRoutes(tree) {
		batch = append(batch, route)
		if len(batch) < batchSize {
			continue
		}
		if !flush() {
			return
		}
	}
	if len(batch) > 0 {
		flush()
	}
}

// workerPanic carries a value recovered in a resolving goroutine.
type workerPanic struct {
	value any
}

func (p workerPanic) Error() string {
	return fmt.Sprintf("route resolution panicked: %v", p.value)
}

// resolveBatch resolves routes concurrently. A panic in a worker is
// re-raised on the caller's goroutine.
func (w RoutesWalker) resolveBatch(tree *decisiontree.DecisionTree, routes []Route) []resolved {
	results := make([]resolved, len(routes))
	var g errgroup.Group
	g.SetLimit(w.Workers)
	for i, route := range routes {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = workerPanic{value: r}
				}
			}()
			spec, ok := w.resolve(tree, tree.Root, route)
			results[i] = resolved{spec: spec, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var p workerPanic
		if errors.As(err, &p) {
			panic(p.value)
		}
		panic(err)
	}
	return results
}

// Package walker turns a decision tree into a lazy sequence of feasible row
// specs, either by exhaustive depth-first search or by resolving routes.
package walker

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"rowsynth/internal/decisiontree"
	"rowsynth/internal/util"
)

// Route selects one option per decision. The root route's DecisionIndex is
// unused; its SubRoutes follow the root's decisions. Every other route names
// the chosen option and carries one sub-route per decision of that option.
type Route struct {
	DecisionIndex int
	SubRoutes     []Route
}

func (r Route) String() string {
	if len(r.SubRoutes) == 0 {
		return fmt.Sprint(r.DecisionIndex)
	}
	parts := make([]string, len(r.SubRoutes))
	for i, s := range r.SubRoutes {
		parts[i] = s.String()
	}
	return fmt.Sprintf("%d[%s]", r.DecisionIndex, strings.Join(parts, " "))
}

// RouteProducer yields routes through a tree. Producers are opaque to the
// walker.
type RouteProducer interface {
	ProduceRoutes(tree *decisiontree.DecisionTree) iter.Seq[Route]
}

// ExhaustiveRouteProducer enumerates every route lazily, first options first.
type ExhaustiveRouteProducer struct{}

// ProduceRoutes implements RouteProducer.
func (ExhaustiveRouteProducer) ProduceRoutes(tree *decisiontree.DecisionTree) iter.Seq[Route] {
	return func(yield func(Route) bool) {
		decisionRoutes(tree.Root.Decisions(), nil, func(subs []Route) bool {
			return yield(Route{SubRoutes: subs})
		})
	}
}

func nodeRoutes(n *decisiontree.ConstraintNode, yield func([]Route) bool) bool {
	return decisionRoutes(n.Decisions(), nil, yield)
}

func decisionRoutes(ds []*decisiontree.DecisionNode, acc []Route, yield func([]Route) bool) bool {
	if len(ds) == 0 {
		return yield(slices.Clone(acc))
	}
	for i, opt := range ds[0].Options() {
		cont := nodeRoutes(opt, func(subs []Route) bool {
			return decisionRoutes(ds[1:], append(slices.Clip(acc), Route{DecisionIndex: i, SubRoutes: subs}), yield)
		})
		if !cont {
			return false
		}
	}
	return true
}

// RandomRouteProducer draws routes uniformly per decision. Count bounds the
// number of routes; zero means unbounded.
type RandomRouteProducer struct {
	Rand  util.RandomSource
	Count int
}

// ProduceRoutes implements RouteProducer.
func (p RandomRouteProducer) ProduceRoutes(tree *decisiontree.DecisionTree) iter.Seq[Route] {
	return func(yield func(Route) bool) {
		for i := 0; p.Count <= 0 || i < p.Count; i++ {
			subs, ok := p.pick(tree.Root)
			if !ok {
				return
			}
			if !yield(Route{SubRoutes: subs}) {
				return
			}
		}
	}
}

// pick fails only when some decision has no options.
func (p RandomRouteProducer) pick(n *decisiontree.ConstraintNode) ([]Route, bool) {
	ds := n.Decisions()
	if len(ds) == 0 {
		return nil, true
	}
	out := make([]Route, len(ds))
	for i, d := range ds {
		options := d.Options()
		if len(options) == 0 {
			return nil, false
		}
		idx := p.Rand.Intn(len(options))
		subs, ok := p.pick(options[idx])
		if !ok {
			return nil, false
		}
		out[i] = Route{DecisionIndex: idx, SubRoutes: subs}
	}
	return out, true
}

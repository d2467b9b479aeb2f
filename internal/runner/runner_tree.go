package runner

import (
	"rowsynth/internal/config"
	"rowsynth/internal/decisiontree"
	"rowsynth/internal/fieldspec"
	"rowsynth/internal/generation"
	"rowsynth/internal/profile"
	"rowsynth/internal/walker"

	"github.com/pkg/errors"
)

const (
	walkerCartesian = "cartesian_product"
	walkerRoutes    = "routes"

	producerExhaustive = "exhaustive"
	producerRandom     = "random"

	// routeBatchSize is the number of routes resolved per worker batch.
	routeBatchSize = 64
)

// BuildTree compiles the profile into a simplified decision tree, optionally
// factoring shared atomics first. It reports whether the optimiser ran.
func BuildTree(p *profile.Profile, cfg config.Generation) (*decisiontree.DecisionTree, bool) {
	tree := decisiontree.Build(p.Fields, p.Constraints)
	if cfg.Optimise {
		tree = decisiontree.Optimiser{}.Optimise(tree)
	}
	return tree.WithRoot(tree.Root.SimplifyFully()), cfg.Optimise
}

// NewWalker selects the tree walker named by cfg.
func NewWalker(cfg config.Generation, reducer fieldspec.Reducer, seed int64) (walker.Walker, error) {
	switch cfg.Walker {
	case walkerCartesian:
		return walker.CartesianProductWalker{Reducer: reducer}, nil
	case walkerRoutes:
		var producer walker.RouteProducer
		switch cfg.RouteProducer {
		case producerExhaustive:
			producer = walker.ExhaustiveRouteProducer{}
		case producerRandom:
			producer = walker.RandomRouteProducer{Rand: newRand(seed ^ routeSeedSalt), Count: cfg.RandomRoutes}
		default:
			return nil, errors.Errorf("unknown route producer %q", cfg.RouteProducer)
		}
		return walker.RoutesWalker{Producer: producer, Reducer: reducer, Workers: cfg.Workers, BatchSize: routeBatchSize}, nil
	default:
		return nil, errors.Errorf("unknown walker %q", cfg.Walker)
	}
}

// NewDataGenerator wires the walker and value generators for a run.
func NewDataGenerator(cfg config.Config, seed int64) (generation.DataGenerator, error) {
	dataType, err := generation.ParseDataType(cfg.Generation.DataType)
	if err != nil {
		return generation.DataGenerator{}, err
	}
	combination, err := generation.ParseCombination(cfg.Generation.Combination)
	if err != nil {
		return generation.DataGenerator{}, err
	}
	factory := fieldspec.Factory{MaxStringLength: cfg.Generation.MaxStringLength}
	w, err := NewWalker(cfg.Generation, fieldspec.Reducer{Factory: factory}, seed)
	if err != nil {
		return generation.DataGenerator{}, err
	}
	return generation.DataGenerator{
		Walker: w,
		Rows: generation.RowGenerator{
			Values: generation.FieldSpecValueGenerator{
				Strategy:         dataType,
				Rand:             newRand(seed),
				EnumerationLimit: cfg.Generation.EnumerationLimit,
			},
			Combination: combination,
			Factory:     factory,
		},
		MaxRows:        cfg.MaxRows,
		ReportInterval: cfg.Logging.ReportIntervalRows,
	}, nil
}

package generation

import (
	"context"
	"iter"
	"time"

	"rowsynth/internal/decisiontree"
	"rowsynth/internal/fieldspec"
	"rowsynth/internal/restriction"
	"rowsynth/internal/util"
	"rowsynth/internal/walker"

	"github.com/pkg/errors"
)

// maxConsecutiveRejects stops generation when no new row has been accepted
// for this many attempts.
const maxConsecutiveRejects = 10_000

// Stats summarizes a generation run.
type Stats struct {
	Rows       int           `json:"rows"`
	RowSpecs   int           `json:"row_specs"`
	Duplicates int           `json:"duplicates"`
	Infeasible bool          `json:"infeasible"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// DataGenerator walks a tree and emits rows to a sink.
type DataGenerator struct {
	Walker walker.Walker
	Rows   RowGenerator
	// MaxRows bounds the output; zero means unbounded in full-sequential
	// mode. Random mode requires a positive bound.
	MaxRows int
	// ReportInterval logs progress every N rows when positive.
	ReportInterval int
}

// Generate emits rows until MaxRows, exhaustion or cancellation. A tree
// with no feasible row spec is an empty, successful run.
func (g DataGenerator) Generate(ctx context.Context, tree *decisiontree.DecisionTree, sink func(Row) error) (Stats, error) {
	start := time.Now()
	if g.Rows.Values.Strategy == Random && g.MaxRows <= 0 {
		return Stats{}, errors.New("random generation requires a positive max_rows")
	}
	run := &run{gen: g, sink: sink, seen: map[string]map[string]struct{}{}}
	for _, f := range tree.Fields.All() {
		if f.Unique {
			run.seen[f.Name] = map[string]struct{}{}
		}
	}
	var err error
	if g.Rows.Values.Strategy == Random {
		err = run.roundRobin(ctx, g.Walker.Walk(tree))
	} else {
		err = run.sequential(ctx, g.Walker.Walk(tree))
	}
	run.stats.Elapsed = time.Since(start)
	if err == errStop {
		err = nil
	}
	if err == nil && run.stats.RowSpecs == 0 {
		run.stats.Infeasible = true
		util.Warnf("profile has no feasible row spec; emitting an empty dataset")
	}
	return run.stats, err
}

var errStop = errors.New("stop")

type run struct {
	gen     DataGenerator
	sink    func(Row) error
	seen    map[string]map[string]struct{}
	stats   Stats
	rejects int
}

func (r *run) full() bool {
	return r.gen.MaxRows > 0 && r.stats.Rows >= r.gen.MaxRows
}

// emit returns errStop once generation should end.
func (r *run) emit(ctx context.Context, row Row) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "generation cancelled")
	}
	if !r.unique(row) {
		r.stats.Duplicates++
		r.rejects++
		if r.rejects >= maxConsecutiveRejects {
			util.Warnf("no new unique row after %d attempts; stopping at %d rows", r.rejects, r.stats.Rows)
			return errStop
		}
		return nil
	}
	r.rejects = 0
	if err := r.sink(row); err != nil {
		return errors.Wrapf(err, "write row %d", r.stats.Rows+1)
	}
	r.stats.Rows++
	if n := r.gen.ReportInterval; n > 0 && r.stats.Rows%n == 0 {
		util.Infof("generated %d rows from %d row specs", r.stats.Rows, r.stats.RowSpecs)
	}
	if r.full() {
		return errStop
	}
	return nil
}

func (r *run) unique(row Row) bool {
	if len(r.seen) == 0 {
		return true
	}
	keys := make(map[string]string, len(r.seen))
	for name, seen := range r.seen {
		v, _ := row.Get(name)
		if v == nil {
			continue
		}
		k := restriction.ValueKey(v)
		if _, dup := seen[k]; dup {
			return false
		}
		keys[name] = k
	}
	for name, k := range keys {
		r.seen[name][k] = struct{}{}
	}
	return true
}

// sequential drains each row spec in turn.
func (r *run) sequential(ctx context.Context, specs iter.Seq[*fieldspec.RowSpec]) error {
	for spec := range specs {
		r.stats.RowSpecs++
		util.Detailf("row spec %d: %s", r.stats.RowSpecs, spec)
		for row := range r.gen.Rows.Generate(spec) {
			if err := r.emit(ctx, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// roundRobin takes one row from each row spec in turn, pulling new specs
// from the walker first and cycling over the known ones once it is done.
func (r *run) roundRobin(ctx context.Context, specs iter.Seq[*fieldspec.RowSpec]) error {
	type source struct {
		next func() (Row, bool)
		stop func()
	}
	var sources []source
	defer func() {
		for _, s := range sources {
			s.stop()
		}
	}()
	nextSpec, stopSpecs := iter.Pull(specs)
	defer stopSpecs()
	walking := true
	cursor := 0
	for {
		if walking {
			spec, ok := nextSpec()
			if ok {
				r.stats.RowSpecs++
				util.Detailf("row spec %d: %s", r.stats.RowSpecs, spec)
				next, stop := iter.Pull(r.gen.Rows.Generate(spec))
				sources = append(sources, source{next: next, stop: stop})
				cursor = len(sources) - 1
			} else {
				walking = false
				cursor = 0
			}
		}
		if len(sources) == 0 {
			if walking {
				continue
			}
			return nil
		}
		if cursor >= len(sources) {
			cursor = 0
		}
		row, ok := sources[cursor].next()
		if !ok {
			sources[cursor].stop()
			sources = append(sources[:cursor], sources[cursor+1:]...)
			r.rejects++
			if r.rejects >= maxConsecutiveRejects {
				util.Warnf("no row produced after %d attempts; stopping at %d rows", r.rejects, r.stats.Rows)
				return nil
			}
			continue
		}
		if !walking {
			cursor++
		}
		if err := r.emit(ctx, row); err != nil {
			return err
		}
	}
}

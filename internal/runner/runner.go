// Package runner drives a generation run: profile loading, tree building,
// row generation into the configured outputs, and dataset reporting.
package runner

import (
	"context"
	"io"
	"math/rand"
	"os"
	"time"

	"rowsynth/internal/config"
	"rowsynth/internal/decisiontree"
	"rowsynth/internal/generation"
	"rowsynth/internal/profile"
	"rowsynth/internal/report"
	"rowsynth/internal/uploader"
	"rowsynth/internal/util"

	"github.com/pkg/errors"
)

// routeSeedSalt separates the route stream from the value stream so changing
// the walker does not shift generated values.
const routeSeedSalt = 0x5eed

// Runner orchestrates one generation run.
type Runner struct {
	cfg      config.Config
	reporter *report.Reporter
	uploader uploader.Uploader
	// Stdout receives rows when output.stdout is set.
	Stdout io.Writer
}

// Result is the outcome of a run.
type Result struct {
	Summary report.Summary
	Dataset report.Dataset
}

// New creates a runner. A nil uploader disables uploads.
func New(cfg config.Config, up uploader.Uploader) *Runner {
	if up == nil {
		up = uploader.NoopUploader{}
	}
	rep := report.New(cfg.Output.Dir)
	rep.UseUUIDPath = cfg.Output.UseUUIDPath
	return &Runner{cfg: cfg, reporter: rep, uploader: up, Stdout: os.Stdout}
}

// Run generates one dataset. The summary is written even when generation
// fails part way, with the error recorded in it.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	seed := r.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	util.Infof("runner start profile=%s seed=%d max_rows=%d", r.cfg.Profile, seed, r.cfg.MaxRows)

	p, err := r.loadProfile()
	if err != nil {
		return Result{}, err
	}
	tree, optimised := BuildTree(p, r.cfg.Generation)
	treeStats := tree.Stats()
	util.Infof("decision tree constraint_nodes=%d decision_nodes=%d atomics=%d depth=%d",
		treeStats.ConstraintNodes, treeStats.DecisionNodes, treeStats.Atomics, treeStats.MaxDepth)

	gen, err := NewDataGenerator(r.cfg, seed)
	if err != nil {
		return Result{}, err
	}

	summary := report.Summary{
		Profile:     r.cfg.Profile,
		Description: p.Description,
		Fields:      p.Fields.Names(),
		Format:      r.cfg.Output.Format,
		Table:       r.cfg.Output.Table,
		Seed:        seed,
		DataType:    r.cfg.Generation.DataType,
		Walker:      r.cfg.Generation.Walker,
		Tree: report.TreeSummary{
			ConstraintNodes: treeStats.ConstraintNodes,
			DecisionNodes:   treeStats.DecisionNodes,
			Atomics:         treeStats.Atomics,
			MaxDepth:        treeStats.MaxDepth,
			Optimised:       optimised,
		},
		Details:   r.details(),
		RunInfo:   r.cfg.RunInfo,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	var dataset report.Dataset
	if !r.cfg.Output.Stdout {
		dataset, err = r.reporter.NewDataset()
		if err != nil {
			return Result{}, err
		}
		summary.DatasetID = dataset.ID
		summary.DatasetDir = dataset.Dir
		if err := r.writeTree(dataset, tree); err != nil {
			util.Warnf("write decision tree dir=%s err=%v", dataset.Dir, err)
		}
	}

	out, err := r.openSinks(ctx, dataset, p)
	if err != nil {
		return r.finish(ctx, dataset, summary, err)
	}
	summary.DataFile = out.dataFile
	stats, genErr := gen.Generate(ctx, tree, func(row generation.Row) error {
		return out.write(ctx, row)
	})
	closeErr := out.close(ctx)
	summary.Rows = stats.Rows
	summary.RowSpecs = stats.RowSpecs
	summary.Duplicates = stats.Duplicates
	summary.Infeasible = stats.Infeasible
	summary.ElapsedMS = stats.Elapsed.Milliseconds()
	if out.mysql != nil {
		summary.SinkRows = out.mysql.Inserted
		summary.Details["sink_duplicates"] = out.mysql.Duplicates
	}
	if genErr == nil {
		genErr = closeErr
	}
	if genErr == nil {
		util.Infof("generated rows=%d row_specs=%d duplicates=%d elapsed=%s",
			stats.Rows, stats.RowSpecs, stats.Duplicates, stats.Elapsed.Round(time.Millisecond))
	}
	return r.finish(ctx, dataset, summary, errors.Wrap(genErr, "generate"))
}

func (r *Runner) loadProfile() (*profile.Profile, error) {
	var table *profile.Table
	if r.cfg.DDL != "" {
		t, err := profile.LoadDDL(r.cfg.DDL, "")
		if err != nil {
			return nil, err
		}
		util.Infof("imported table %s", t)
		table = t
	}
	if r.cfg.Profile == "" {
		if table == nil {
			return nil, errors.New("profile or ddl is required")
		}
		return profile.Parse(nil, table)
	}
	return profile.Load(r.cfg.Profile, table)
}

func (r *Runner) details() map[string]any {
	g := r.cfg.Generation
	details := map[string]any{
		"combination":       g.Combination,
		"max_rows":          r.cfg.MaxRows,
		"max_string_length": g.MaxStringLength,
	}
	if g.Walker == walkerRoutes {
		details["route_producer"] = g.RouteProducer
		details["workers"] = g.Workers
		if g.RouteProducer == producerRandom {
			details["random_routes"] = g.RandomRoutes
		}
	}
	if r.cfg.DDL != "" {
		details["ddl"] = r.cfg.DDL
	}
	return details
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// treeFileName holds the Graphviz rendering of the resolved tree.
const treeFileName = "tree.dot"

func (r *Runner) writeTree(d report.Dataset, tree *decisiontree.DecisionTree) error {
	f, err := r.reporter.Create(d, treeFileName)
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "tree output")
	return decisiontree.WriteDOT(f, tree, r.cfg.Profile)
}

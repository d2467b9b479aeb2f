package runner

import (
	"context"
	"io"

	"rowsynth/internal/db"
	"rowsynth/internal/generation"
	"rowsynth/internal/output"
	"rowsynth/internal/profile"
	"rowsynth/internal/report"
	"rowsynth/internal/util"

	"github.com/pkg/errors"
)

// sinks fans each row out to the formatted output and the optional
// database sink.
type sinks struct {
	writer   output.Writer
	file     io.Closer
	dataFile string
	conn     *db.DB
	mysql    *db.Sink
}

func (r *Runner) openSinks(ctx context.Context, d report.Dataset, p *profile.Profile) (s *sinks, err error) {
	s = &sinks{}
	defer func() {
		if err != nil {
			_ = s.close(ctx)
		}
	}()
	format, err := output.ParseFormat(r.cfg.Output.Format)
	if err != nil {
		return s, err
	}
	opts := output.Options{Table: r.cfg.Output.Table, CreateTable: true}
	var w io.Writer = r.Stdout
	if !r.cfg.Output.Stdout {
		s.dataFile = "data." + format.Extension()
		f, err := r.reporter.Create(d, s.dataFile)
		if err != nil {
			return s, errors.Wrap(err, "create data file")
		}
		s.file = f
		w = f
	}
	s.writer, err = output.New(format, w, p.Fields, opts)
	if err != nil {
		return s, err
	}

	mysqlCfg := r.cfg.Sink.MySQL
	if !mysqlCfg.Enabled {
		return s, nil
	}
	if err := db.EnsureDatabase(ctx, mysqlCfg.DSN, mysqlCfg.Database); err != nil {
		return s, err
	}
	s.conn, err = db.Open(ctx, mysqlCfg.DSN)
	if err != nil {
		return s, err
	}
	s.mysql, err = db.NewSink(ctx, s.conn, r.cfg.Output.Table, p.Fields, mysqlCfg.BatchSize, mysqlCfg.CreateTable)
	if err != nil {
		return s, err
	}
	util.Infof("mysql sink database=%s table=%s batch=%d", s.conn.Database, r.cfg.Output.Table, mysqlCfg.BatchSize)
	return s, nil
}

func (s *sinks) write(ctx context.Context, row generation.Row) error {
	if err := s.writer.WriteRow(row); err != nil {
		return errors.Wrap(err, "write row")
	}
	if s.mysql != nil {
		return s.mysql.Write(ctx, row)
	}
	return nil
}

// close flushes and releases every sink, returning the first error.
func (s *sinks) close(ctx context.Context) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if s.writer != nil {
		keep(s.writer.Close())
		s.writer = nil
	}
	if s.file != nil {
		keep(s.file.Close())
		s.file = nil
	}
	if s.mysql != nil {
		keep(s.mysql.Flush(ctx))
	}
	if s.conn != nil {
		keep(s.conn.Close())
		s.conn = nil
	}
	return first
}

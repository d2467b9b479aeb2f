// Package replay loads a generated SQL dataset into a database.
package replay

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"rowsynth/internal/config"
	"rowsynth/internal/db"
	"rowsynth/internal/output"
	"rowsynth/internal/report"
	"rowsynth/internal/util"
	"rowsynth/internal/validator"

	"github.com/pkg/errors"
)

// Options configures a replay run.
type Options struct {
	DatasetDir string
	DSN        string
	Database   string
}

// Result counts what a replay executed.
type Result struct {
	Statements int
	Rows       int64
}

// Run loads the dataset's SQL file into opts.Database.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.DatasetDir == "" {
		return Result{}, errors.New("dataset_dir is required")
	}
	if opts.DSN == "" {
		return Result{}, errors.New("dsn is required")
	}
	if opts.Database == "" {
		opts.Database = "rowsynth_replay"
	}
	path, err := DataFile(opts.DatasetDir)
	if err != nil {
		return Result{}, err
	}
	if err := db.EnsureDatabase(ctx, opts.DSN, opts.Database); err != nil {
		return Result{}, err
	}
	conn, err := db.Open(ctx, withDatabase(opts.DSN, opts.Database))
	if err != nil {
		return Result{}, err
	}
	defer util.CloseWithErr(conn, "replay db")
	logVersion(ctx, conn)
	return ExecFile(ctx, conn, path)
}

// DataFile returns the SQL data file recorded in a dataset summary.
func DataFile(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, report.SummaryName))
	if err != nil {
		return "", errors.Wrap(err, "read summary")
	}
	summary, err := report.ReadSummary(data)
	if err != nil {
		return "", err
	}
	format, err := output.ParseFormat(summary.Format)
	if err != nil {
		return "", err
	}
	if format != output.SQL || summary.DataFile == "" {
		return "", errors.Errorf("dataset %s has format %s; only sql datasets can be replayed", dir, summary.Format)
	}
	return filepath.Join(dir, summary.DataFile), nil
}

// ExecFile runs every statement of a SQL file in order.
func ExecFile(ctx context.Context, exec db.Execer, path string) (Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Result{}, errors.Wrapf(err, "read %s", path)
	}
	statements, err := validator.New().Split(string(content))
	if err != nil {
		return Result{}, errors.Wrap(err, path)
	}
	util.Infof("exec_file=%s statements=%d", path, len(statements))
	var res Result
	for idx, stmt := range statements {
		out, err := exec.ExecContext(ctx, stmt)
		if err != nil {
			return res, errors.Wrapf(err, "stmt=%d", idx+1)
		}
		res.Statements++
		if out != nil {
			if n, err := out.RowsAffected(); err == nil {
				res.Rows += n
			}
		}
	}
	return res, nil
}

func withDatabase(dsn, database string) string {
	admin := config.AdminDSN(dsn)
	if q := strings.Index(admin, "?"); q >= 0 {
		return admin[:q] + database + admin[q:]
	}
	return admin + database
}

func logVersion(ctx context.Context, conn *db.DB) {
	var v string
	if err := conn.QueryRowContext(ctx, "SELECT tidb_version()").Scan(&v); err == nil && strings.TrimSpace(v) != "" {
		util.Infof("tidb_version=%s", strings.ReplaceAll(v, "\n", " "))
		return
	}
	if err := conn.QueryRowContext(ctx, "SELECT VERSION()").Scan(&v); err == nil {
		util.Infof("version=%s", v)
	}
}

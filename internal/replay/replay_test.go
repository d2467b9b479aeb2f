package replay

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"rowsynth/internal/report"

	"github.com/pkg/errors"
)

type rowsResult int64

func (r rowsResult) LastInsertId() (int64, error) { return 0, errors.New("unsupported") }
func (r rowsResult) RowsAffected() (int64, error) { return int64(r), nil }

type scriptExec struct {
	statements []string
	failAt     int
}

func (s *scriptExec) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	s.statements = append(s.statements, query)
	if len(s.statements) == s.failAt {
		return nil, errors.New("boom")
	}
	return rowsResult(strings.Count(query, "),") + 1), nil
}

func writeSQLDataset(t *testing.T, format string) string {
	t.Helper()
	rep := report.New(t.TempDir())
	d, err := rep.NewDataset()
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	script := "CREATE TABLE IF NOT EXISTS `t` (`a` BIGINT NOT NULL);\nINSERT INTO `t` (`a`) VALUES (1), (2);\nINSERT INTO `t` (`a`) VALUES (3);\n"
	if err := rep.WriteText(d, "data.sql", script); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if err := rep.WriteSummary(d, report.Summary{Format: format, DataFile: "data.sql"}); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	return d.Dir
}

func TestExecFile(t *testing.T) {
	dir := writeSQLDataset(t, "sql")
	path, err := DataFile(dir)
	if err != nil {
		t.Fatalf("DataFile: %v", err)
	}
	exec := &scriptExec{}
	res, err := ExecFile(context.Background(), exec, path)
	if err != nil {
		t.Fatalf("ExecFile: %v", err)
	}
	if res.Statements != 3 || len(exec.statements) != 3 {
		t.Fatalf("statements=%v", exec.statements)
	}
	if res.Rows != 1+2+1 {
		t.Fatalf("rows=%d", res.Rows)
	}

	failing := &scriptExec{failAt: 2}
	res, err = ExecFile(context.Background(), failing, path)
	if err == nil || !strings.Contains(err.Error(), "stmt=2") || res.Statements != 1 {
		t.Fatalf("expected failure at statement 2, got %+v %v", res, err)
	}
}

func TestDataFileRejectsOtherFormats(t *testing.T) {
	if _, err := DataFile(writeSQLDataset(t, "csv")); err == nil {
		t.Fatalf("expected csv dataset to be rejected")
	}
	if _, err := DataFile(t.TempDir()); err == nil {
		t.Fatalf("expected missing summary error")
	}
}

func TestRunRequiresOptions(t *testing.T) {
	if _, err := Run(context.Background(), Options{DSN: "x"}); err == nil {
		t.Fatalf("expected dataset_dir error")
	}
	if _, err := Run(context.Background(), Options{DatasetDir: "x"}); err == nil {
		t.Fatalf("expected dsn error")
	}
}

func TestWithDatabase(t *testing.T) {
	cases := map[string]string{
		"root@tcp(h:4000)/":            "root@tcp(h:4000)/replay",
		"root@tcp(h:4000)/old?tls=true": "root@tcp(h:4000)/replay?tls=true",
	}
	for in, want := range cases {
		if got := withDatabase(in, "replay"); got != want {
			t.Fatalf("withDatabase(%q)=%q want %q", in, got, want)
		}
	}
}

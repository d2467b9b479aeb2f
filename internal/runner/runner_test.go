package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rowsynth/internal/config"
	"rowsynth/internal/report"
)

const conditionalProfile = `description: conditional
fields:
  - {name: a, type: integer, nullable: false}
  - {name: b, type: string, nullable: false}
constraints:
  - {field: a, greaterThanOrEqualTo: 1}
  - {field: a, lessThanOrEqualTo: 3}
  - {field: b, inSet: [x, y]}
  - if: {field: a, equalTo: 1}
    then: {field: b, equalTo: x}
`

type recordingUploader struct {
	dirs []string
}

func (u *recordingUploader) Enabled() bool { return true }

func (u *recordingUploader) UploadDir(_ context.Context, dir string) (string, error) {
	u.dirs = append(u.dirs, dir)
	return "mem://datasets/" + filepath.Base(dir), nil
}

func testConfig(t *testing.T, profileDoc string, overrides string) config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	if err := os.WriteFile(path, []byte(profileDoc), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	cfg, err := config.Parse([]byte(overrides))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Profile = path
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Sink.MySQL.Enabled = false
	return cfg
}

func TestRunWritesDataset(t *testing.T) {
	cfg := testConfig(t, conditionalProfile, `
seed: 7
generation:
  data_type: full_sequential
output:
  archive: true
`)
	up := &recordingUploader{}
	res, err := New(cfg, up).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(res.Dataset.Dir, "data.csv"))
	if err != nil {
		t.Fatalf("read data: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 || lines[0] != "a,b" {
		t.Fatalf("unexpected csv:\n%s", data)
	}
	for _, line := range lines[1:] {
		if line == "1,y" {
			t.Fatalf("row violates conditional: %s", line)
		}
	}

	raw, err := os.ReadFile(filepath.Join(res.Dataset.Dir, report.SummaryName))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	summary, err := report.ReadSummary(raw)
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if summary.Rows != 5 || summary.Seed != 7 || summary.DataFile != "data.csv" || summary.Infeasible {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.ArchiveName != report.ArchiveName || !strings.HasPrefix(summary.UploadLocation, "mem://") {
		t.Fatalf("artifacts missing from summary: %+v", summary)
	}
	if summary.Tree.ConstraintNodes == 0 || strings.Join(summary.Fields, ",") != "a,b" {
		t.Fatalf("unexpected tree/fields: %+v", summary)
	}
	if len(up.dirs) != 1 || up.dirs[0] != res.Dataset.Dir {
		t.Fatalf("uploaded %v", up.dirs)
	}

	f, err := os.Open(filepath.Join(res.Dataset.Dir, report.ArchiveName))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()
	entries, err := report.ReadArchive(f)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	for _, name := range []string{"data.csv", report.SummaryName, treeFileName} {
		if _, ok := entries[name]; !ok {
			t.Fatalf("archive lacks %s: %v", name, entries)
		}
	}
}

func TestRunStdoutJSON(t *testing.T) {
	cfg := testConfig(t, conditionalProfile, `
seed: 3
max_rows: 4
output:
  format: json
  stdout: true
generation:
  walker: routes
  route_producer: random
  random_routes: 10
  workers: 2
`)
	var buf bytes.Buffer
	r := New(cfg, nil)
	r.Stdout = &buf
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Dataset.Dir != "" {
		t.Fatalf("stdout run created dataset %s", res.Dataset.Dir)
	}
	if got := strings.Count(buf.String(), "\n"); got != 4 || res.Summary.Rows != 4 {
		t.Fatalf("rows=%d summary=%d:\n%s", got, res.Summary.Rows, buf.String())
	}
	if _, err := os.Stat(cfg.Output.Dir); !os.IsNotExist(err) {
		t.Fatalf("output dir should not exist: %v", err)
	}
}

func TestRunIsReproducible(t *testing.T) {
	render := func() string {
		cfg := testConfig(t, conditionalProfile, "seed: 11\nmax_rows: 20\noutput: {stdout: true}\n")
		var buf bytes.Buffer
		r := New(cfg, nil)
		r.Stdout = &buf
		if _, err := r.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return buf.String()
	}
	if first, second := render(), render(); first != second {
		t.Fatalf("same seed produced different output:\n%s\n---\n%s", first, second)
	}
}

func TestRunInfeasibleProfile(t *testing.T) {
	doc := `fields:
  - {name: a, type: integer, nullable: false}
constraints:
  - {field: a, greaterThan: 5}
  - {field: a, lessThan: 2}
`
	cfg := testConfig(t, doc, "seed: 1\n")
	res, err := New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Summary.Infeasible || res.Summary.Rows != 0 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	data, err := os.ReadFile(filepath.Join(res.Dataset.Dir, "data.csv"))
	if err != nil {
		t.Fatalf("read data: %v", err)
	}
	if strings.TrimSpace(string(data)) != "" && strings.TrimSpace(string(data)) != "a" {
		t.Fatalf("expected empty dataset, got %q", data)
	}
}

func TestRunRejectsBadGeneration(t *testing.T) {
	cases := map[string]string{
		"walker":   "generation: {walker: spiral}\n",
		"producer": "generation: {walker: routes, route_producer: psychic}\n",
		"format":   "output: {format: xml}\n",
		"datatype": "generation: {data_type: fuzzy}\n",
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t, conditionalProfile, overrides)
			if _, err := New(cfg, nil).Run(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRunFromDDLOnly(t *testing.T) {
	dir := t.TempDir()
	ddl := filepath.Join(dir, "t.sql")
	if err := os.WriteFile(ddl, []byte("CREATE TABLE t (id TINYINT UNSIGNED PRIMARY KEY, tag ENUM('a','b') NOT NULL)"), 0o644); err != nil {
		t.Fatalf("write ddl: %v", err)
	}
	cfg, err := config.Parse([]byte("seed: 5\nmax_rows: 50\n"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.DDL = ddl
	cfg.Output.Dir = filepath.Join(dir, "out")
	res, err := New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary.Rows != 50 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	data, err := os.ReadFile(filepath.Join(res.Dataset.Dir, "data.csv"))
	if err != nil {
		t.Fatalf("read data: %v", err)
	}
	seen := map[string]bool{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n")[1:] {
		id := strings.SplitN(line, ",", 2)[0]
		if seen[id] {
			t.Fatalf("duplicate primary key %s", id)
		}
		seen[id] = true
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return tmp.Name()
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MaxRows != defaultMaxRows {
		t.Fatalf("unexpected max rows: %d", cfg.MaxRows)
	}
	if cfg.Generation.DataType != "random" || cfg.Generation.Walker != "cartesian_product" {
		t.Fatalf("unexpected generation defaults: %+v", cfg.Generation)
	}
	if !cfg.Generation.Optimise {
		t.Fatalf("expected optimiser enabled by default")
	}
	if cfg.Output.Format != "csv" || cfg.Output.Table != "dataset" {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	if cfg.Sink.MySQL.DSN != "root:@tcp(127.0.0.1:4000)/rowsynth" {
		t.Fatalf("unexpected sink dsn: %s", cfg.Sink.MySQL.DSN)
	}
	if cfg.Logging.LogFile != "logs/rowsynth.log" {
		t.Fatalf("unexpected log file: %s", cfg.Logging.LogFile)
	}
	if cfg.RunInfo == nil {
		t.Fatalf("expected run info")
	}
}

func TestLoadOverrides(t *testing.T) {
	content := `profile: profiles/orders.yaml
max_rows: 25
generation:
  data_type: Full-Sequential
  walker: routes
  route_producer: random
  workers: 0
  max_string_length: -1
output:
  format: JSON
  table: "  "
sink:
  mysql:
    dsn: "u:p@tcp(db:3306)/?timeout=5s"
    database: synth
`
	path := writeConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if want := filepath.Join(filepath.Dir(path), "profiles/orders.yaml"); cfg.Profile != want {
		t.Fatalf("profile=%s want %s", cfg.Profile, want)
	}
	if cfg.MaxRows != 25 {
		t.Fatalf("unexpected max rows: %d", cfg.MaxRows)
	}
	if cfg.Generation.DataType != "full_sequential" || cfg.Generation.RouteProducer != "random" {
		t.Fatalf("unexpected generation: %+v", cfg.Generation)
	}
	if cfg.Generation.Workers != 1 || cfg.Generation.MaxStringLength != defaultMaxStringLength {
		t.Fatalf("expected normalized workers and string length: %+v", cfg.Generation)
	}
	if cfg.Output.Format != "json" || cfg.Output.Table != "dataset" {
		t.Fatalf("unexpected output: %+v", cfg.Output)
	}
	if cfg.Sink.MySQL.DSN != "u:p@tcp(db:3306)/synth?timeout=5s" {
		t.Fatalf("unexpected dsn: %s", cfg.Sink.MySQL.DSN)
	}
}

func TestLoadAbsoluteProfile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "profile: /etc/rowsynth/p.yaml\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Profile != "/etc/rowsynth/p.yaml" {
		t.Fatalf("unexpected profile: %s", cfg.Profile)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "max_rows: [")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestYAMLMasksSecrets(t *testing.T) {
	cfg, err := Parse([]byte(`sink:
  mysql:
    dsn: "root:hunter2@tcp(db:4000)/x"
storage:
  s3:
    secret_access_key: topsecret
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if strings.Contains(out, "hunter2") || strings.Contains(out, "topsecret") {
		t.Fatalf("secrets leaked:\n%s", out)
	}
	if !strings.Contains(out, "max_rows: 1000") {
		t.Fatalf("expected resolved fields in echo:\n%s", out)
	}
}

func TestDSNHelpers(t *testing.T) {
	cases := []struct {
		in, db, ensured, admin string
	}{
		{"root@tcp(h:4000)/", "d", "root@tcp(h:4000)/d", "root@tcp(h:4000)/"},
		{"root@tcp(h:4000)/x", "d", "root@tcp(h:4000)/x", "root@tcp(h:4000)/"},
		{"root@tcp(h:4000)/?a=1", "d", "root@tcp(h:4000)/d?a=1", "root@tcp(h:4000)/?a=1"},
		{"", "d", "", ""},
	}
	for _, c := range cases {
		if got := ensureDatabaseInDSN(c.in, c.db); got != c.ensured {
			t.Fatalf("ensureDatabaseInDSN(%q)=%q want %q", c.in, got, c.ensured)
		}
		if got := AdminDSN(c.ensured); got != c.admin {
			t.Fatalf("AdminDSN(%q)=%q want %q", c.ensured, got, c.admin)
		}
	}
}

package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDatasetNaming(t *testing.T) {
	r := New(t.TempDir())
	first, err := r.NewDataset()
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(first.Dir), "dataset_0001_") || !strings.HasSuffix(first.Dir, first.ID) {
		t.Fatalf("unexpected dir: %s", first.Dir)
	}
	r.UseUUIDPath = true
	second, err := r.NewDataset()
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	if filepath.Base(second.Dir) != second.ID || second.ID == first.ID {
		t.Fatalf("unexpected uuid dir: %s", second.Dir)
	}
}

func TestWriteSummaryOrdersDetails(t *testing.T) {
	r := New(t.TempDir())
	d, err := r.NewDataset()
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	summary := Summary{
		DatasetID: d.ID,
		Rows:      12,
		Details: map[string]any{
			"zeta":  1,
			"alpha": map[string]any{"y": []any{"b", "a"}, "x": true},
		},
	}
	if err := r.WriteSummary(d, summary); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(d.Dir, SummaryName))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	text := string(data)
	before := func(a, b string) bool {
		i, j := strings.Index(text, a), strings.Index(text, b)
		return i >= 0 && j >= 0 && i < j
	}
	if !before(`"alpha"`, `"zeta"`) || !before(`"x"`, `"y"`) || !before(`"b"`, `"a"`) {
		t.Fatalf("details not ordered:\n%s", data)
	}
	got, err := ReadSummary(data)
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if got.DatasetID != d.ID || got.Rows != 12 {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestWriteArchive(t *testing.T) {
	r := New(t.TempDir())
	d, err := r.NewDataset()
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	if err := r.WriteText(d, "data.csv", "a,b\n1,2\n"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if err := r.WriteText(d, "tree/tree.dot", "digraph {}\n"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	for range 2 {
		name, codec, err := r.WriteArchive(d)
		if err != nil {
			t.Fatalf("WriteArchive: %v", err)
		}
		if name != ArchiveName || codec != ArchiveCodec {
			t.Fatalf("unexpected archive %s %s", name, codec)
		}
	}
	f, err := os.Open(filepath.Join(d.Dir, ArchiveName))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()
	entries, err := ReadArchive(f)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if len(entries) != 2 || string(entries["data.csv"]) != "a,b\n1,2\n" || string(entries["tree/tree.dot"]) != "digraph {}\n" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

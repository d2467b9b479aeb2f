package report

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rowsynth/internal/runinfo"
	"rowsynth/internal/util"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Reporter writes dataset artifacts to disk.
type Reporter struct {
	OutputDir   string
	UseUUIDPath bool
	seq         int
}

// Dataset describes a dataset directory.
type Dataset struct {
	ID  string
	Dir string
}

// Summary captures the persisted metadata for a dataset.
type Summary struct {
	DatasetID      string             `json:"dataset_id"`
	DatasetDir     string             `json:"dataset_dir"`
	Profile        string             `json:"profile"`
	Description    string             `json:"description"`
	Fields         []string           `json:"fields"`
	Format         string             `json:"format"`
	DataFile       string             `json:"data_file"`
	Table          string             `json:"table"`
	Seed           int64              `json:"seed"`
	DataType       string             `json:"data_type"`
	Walker         string             `json:"walker"`
	Rows           int                `json:"rows"`
	RowSpecs       int                `json:"row_specs"`
	Duplicates     int                `json:"duplicates"`
	Infeasible     bool               `json:"infeasible"`
	ElapsedMS      int64              `json:"elapsed_ms"`
	Tree           TreeSummary        `json:"tree"`
	ArchiveName    string             `json:"archive_name"`
	ArchiveCodec   string             `json:"archive_codec"`
	UploadLocation string             `json:"upload_location"`
	SinkRows       int                `json:"sink_rows"`
	Error          string             `json:"error"`
	Details        map[string]any     `json:"details"`
	RunInfo        *runinfo.BasicInfo `json:"run_info,omitempty"`
	Timestamp      string             `json:"timestamp"`
}

// TreeSummary records the shape of the decision tree before and after
// optimisation.
type TreeSummary struct {
	ConstraintNodes int  `json:"constraint_nodes"`
	DecisionNodes   int  `json:"decision_nodes"`
	Atomics         int  `json:"atomics"`
	MaxDepth        int  `json:"max_depth"`
	Optimised       bool `json:"optimised"`
}

const (
	SummaryName  = "summary.json"
	ArchiveName  = "dataset.tar.zst"
	ArchiveCodec = "zstd"
)

// New creates a reporter that writes to outputDir.
func New(outputDir string) *Reporter {
	return &Reporter{OutputDir: outputDir}
}

// NewDataset allocates a new dataset directory.
func (r *Reporter) NewDataset() (Dataset, error) {
	r.seq++
	id := uuid.New().String()
	if v7, err := uuid.NewV7(); err == nil {
		id = v7.String()
	}
	name := fmt.Sprintf("dataset_%04d_%s", r.seq, id)
	if r.UseUUIDPath {
		name = id
	}
	dir := filepath.Join(r.OutputDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Dataset{}, errors.Wrapf(err, "create dataset dir %s", dir)
	}
	return Dataset{ID: id, Dir: dir}, nil
}

// Create opens a file in the dataset directory for writing.
func (r *Reporter) Create(d Dataset, name string) (*os.File, error) {
	path := filepath.Join(d.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// WriteText writes raw text content into the dataset directory.
func (r *Reporter) WriteText(d Dataset, name string, content string) error {
	f, err := r.Create(d, name)
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "text output")
	_, err = io.WriteString(f, content)
	return err
}

// WriteSummary writes summary.json into the dataset directory. Detail keys
// are written in sorted order so summaries diff cleanly.
func (r *Reporter) WriteSummary(d Dataset, summary Summary) error {
	f, err := r.Create(d, SummaryName)
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "summary output")
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return encodeSummaryStable(enc, summary)
}

// ReadSummary loads a summary.json file.
func ReadSummary(data []byte) (Summary, error) {
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, errors.Wrap(err, "decode summary")
	}
	return s, nil
}

// WriteArchive creates a compressed tarball of the dataset directory,
// excluding the archive itself.
func (r *Reporter) WriteArchive(d Dataset) (name string, codec string, err error) {
	archivePath := filepath.Join(d.Dir, ArchiveName)
	if removeErr := os.Remove(archivePath); removeErr != nil && !os.IsNotExist(removeErr) {
		return "", "", removeErr
	}
	defer func() {
		if err != nil {
			_ = os.Remove(archivePath)
		}
	}()
	file, err := os.Create(archivePath)
	if err != nil {
		return "", "", err
	}
	defer util.CloseWithErr(file, "archive output")

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return "", "", err
	}
	defer func() {
		if closeErr := zw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	tw := tar.NewWriter(zw)
	defer func() {
		if closeErr := tw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	walkErr := filepath.WalkDir(d.Dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || path == archivePath {
			return nil
		}
		rel, err := filepath.Rel(d.Dir, path)
		if err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer util.CloseWithErr(src, "archive source")
		_, err = io.Copy(tw, src)
		return err
	})
	if walkErr != nil {
		return "", "", errors.Wrap(walkErr, "archive dataset")
	}
	return ArchiveName, ArchiveCodec, nil
}

// ReadArchive lists the entries of a dataset archive with their contents.
func ReadArchive(r io.Reader) (map[string][]byte, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	tr := tar.NewReader(zr)
	out := map[string][]byte{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read archive")
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return nil, errors.Wrapf(err, "read %s", header.Name)
		}
		out[header.Name] = buf.Bytes()
	}
}

func encodeSummaryStable(enc *json.Encoder, summary Summary) error {
	type summaryAlias Summary
	alias := summaryAlias(summary)
	rawDetails, err := encodeOrderedValue(alias.Details)
	if err != nil {
		return err
	}
	alias.Details = nil
	payload := struct {
		summaryAlias
		Details json.RawMessage `json:"details"`
	}{
		summaryAlias: alias,
		Details:      rawDetails,
	}
	return enc.Encode(payload)
}

func encodeOrderedValue(v map[string]any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	buf := &strings.Builder{}
	if err := writeOrderedJSON(buf, v); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.String()), nil
}

func writeOrderedJSON(w io.Writer, v any) error {
	switch val := v.(type) {
	case nil:
		_, err := io.WriteString(w, "null")
		return err
	case map[string]any:
		return writeOrderedMap(w, val)
	case []any:
		if _, err := io.WriteString(w, "["); err != nil {
			return err
		}
		for i, item := range val {
			if i > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			if err := writeOrderedJSON(w, item); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "]")
		return err
	}
	return writeScalarJSON(w, v)
}

func writeOrderedMap(w io.Writer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, err := io.WriteString(w, "{"); err != nil {
		return err
	}
	for i, k := range keys {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if err := writeScalarJSON(w, k); err != nil {
			return err
		}
		if _, err := io.WriteString(w, ":"); err != nil {
			return err
		}
		if err := writeOrderedJSON(w, m[k]); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}")
	return err
}

func writeScalarJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")
	_, err := w.Write(data)
	return err
}

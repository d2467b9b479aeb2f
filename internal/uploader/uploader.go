package uploader

import (
	"context"
	"io/fs"
	"mime"
	"path/filepath"
	"strings"

	"rowsynth/internal/config"
)

// Uploader copies a dataset directory to external storage.
type Uploader interface {
	Enabled() bool
	UploadDir(ctx context.Context, dir string) (string, error)
}

// NoopUploader is used when no storage backend is configured.
type NoopUploader struct{}

func (n NoopUploader) Enabled() bool {
	return false
}

func (n NoopUploader) UploadDir(ctx context.Context, dir string) (string, error) {
	return "", nil
}

// New returns the configured uploader. GCS wins when both backends are
// enabled.
func New(ctx context.Context, storage config.StorageConfig) (Uploader, error) {
	switch {
	case storage.GCS.Enabled:
		return NewGCS(ctx, storage.GCS)
	case storage.S3.Enabled:
		return NewS3(ctx, storage.S3)
	default:
		return NoopUploader{}, nil
	}
}

// object is one file to upload.
type object struct {
	path string
	key  string
}

// datasetObjects lists the files under dir, recursively, keyed as
// prefix/<dir base>/<relative path>. It also returns the key prefix.
func datasetObjects(dir string, prefix string) ([]object, string, error) {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	base := prefix + filepath.Base(dir) + "/"
	var out []object
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, object{path: path, key: base + filepath.ToSlash(rel)})
		return nil
	})
	return out, base, err
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl":
		return "application/x-ndjson"
	case ".sql", ".dot", ".yaml", ".yml":
		return "text/plain; charset=utf-8"
	case ".zst":
		return "application/zstd"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

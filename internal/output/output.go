// Package output writes generated rows as CSV, JSON lines or SQL INSERTs.
package output

import (
	"bufio"
	"io"
	"strings"

	"rowsynth/internal/generation"
	"rowsynth/internal/schema"

	"github.com/pkg/errors"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	CSV  Format = "csv"
	JSON Format = "json"
	SQL  Format = "sql"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case CSV, JSON, SQL:
		return f, nil
	case "jsonl":
		return JSON, nil
	default:
		return "", errors.Errorf("unknown output format %q", name)
	}
}

// Extension is the data file suffix for the format.
func (f Format) Extension() string {
	if f == JSON {
		return "jsonl"
	}
	return string(f)
}

// Writer encodes rows. Close flushes buffered output but does not close the
// underlying io.Writer.
type Writer interface {
	WriteRow(row generation.Row) error
	Close() error
}

// Options tune the writers.
type Options struct {
	// Table is the INSERT target for SQL output.
	Table string
	// BatchSize is the number of rows per INSERT statement.
	BatchSize int
	// CreateTable emits a CREATE TABLE statement before the first INSERT.
	CreateTable bool
}

// New returns a writer for format over w.
func New(format Format, w io.Writer, fields schema.ProfileFields, opts Options) (Writer, error) {
	buf := bufio.NewWriter(w)
	switch format {
	case CSV:
		return newCSVWriter(buf, fields)
	case JSON:
		return &jsonWriter{w: buf, fields: fields}, nil
	case SQL:
		if opts.Table == "" {
			return nil, errors.New("sql output requires a table name")
		}
		if opts.BatchSize <= 0 {
			opts.BatchSize = 100
		}
		return &sqlWriter{w: buf, fields: fields, opts: opts}, nil
	default:
		return nil, errors.Errorf("unknown output format %q", format)
	}
}

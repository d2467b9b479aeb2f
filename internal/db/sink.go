package db

import (
	"context"
	"database/sql"

	"rowsynth/internal/generation"
	"rowsynth/internal/output"
	"rowsynth/internal/schema"
	"rowsynth/internal/util"

	"github.com/pkg/errors"
)

// Execer runs a statement. *sql.DB and *DB satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Sink batches rows into multi-row INSERT statements. A batch rejected for
// a duplicate key is retried row by row and the duplicates are skipped.
type Sink struct {
	exec      Execer
	table     string
	fields    schema.ProfileFields
	batchSize int
	pending   [][]any

	Inserted   int
	Duplicates int
}

// NewSink prepares a sink, creating the table first when createTable is set.
func NewSink(ctx context.Context, exec Execer, table string, fields schema.ProfileFields, batchSize int, createTable bool) (*Sink, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	if createTable {
		if _, err := exec.ExecContext(ctx, output.CreateTableSQL(table, fields)); err != nil {
			return nil, errors.Wrapf(err, "create table %s", table)
		}
	}
	return &Sink{exec: exec, table: table, fields: fields, batchSize: batchSize}, nil
}

// Write queues a row and flushes a full batch.
func (s *Sink) Write(ctx context.Context, row generation.Row) error {
	s.pending = append(s.pending, append([]any(nil), row.Values...))
	if len(s.pending) >= s.batchSize {
		return s.Flush(ctx)
	}
	return nil
}

// Flush inserts queued rows.
func (s *Sink) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	rows := s.pending
	s.pending = nil
	_, err := s.exec.ExecContext(ctx, output.InsertSQL(s.table, s.fields, rows))
	if err == nil {
		s.Inserted += len(rows)
		return nil
	}
	if !IsDuplicateKey(err) || len(rows) == 1 {
		if IsDuplicateKey(err) {
			s.Duplicates++
			return nil
		}
		return errors.Wrapf(err, "insert into %s", s.table)
	}
	util.Detailf("batch insert hit duplicate key, retrying %d rows individually", len(rows))
	for _, row := range rows {
		_, err := s.exec.ExecContext(ctx, output.InsertSQL(s.table, s.fields, [][]any{row}))
		switch {
		case err == nil:
			s.Inserted++
		case IsDuplicateKey(err):
			s.Duplicates++
		default:
			return errors.Wrapf(err, "insert into %s", s.table)
		}
	}
	return nil
}

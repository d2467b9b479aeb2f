package output

import (
	"bufio"
	"strings"

	"rowsynth/internal/generation"
	"rowsynth/internal/schema"
)

type sqlWriter struct {
	w       *bufio.Writer
	fields  schema.ProfileFields
	opts    Options
	pending [][]any
	started bool
}

func (s *sqlWriter) WriteRow(row generation.Row) error {
	if !s.started {
		s.started = true
		if s.opts.CreateTable {
			if _, err := s.w.WriteString(CreateTableSQL(s.opts.Table, s.fields) + ";\n"); err != nil {
				return err
			}
		}
	}
	s.pending = append(s.pending, append([]any(nil), row.Values...))
	if len(s.pending) >= s.opts.BatchSize {
		return s.flush()
	}
	return nil
}

func (s *sqlWriter) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	stmt := InsertSQL(s.opts.Table, s.fields, s.pending)
	s.pending = s.pending[:0]
	_, err := s.w.WriteString(stmt + ";\n")
	return err
}

func (s *sqlWriter) Close() error {
	if err := s.flush(); err != nil {
		return err
	}
	return s.w.Flush()
}

// InsertSQL builds a multi-row INSERT statement without a trailing semicolon.
func InsertSQL(table string, fields schema.ProfileFields, rows [][]any) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(QuoteIdent(table))
	b.WriteString(" (")
	for i, f := range fields.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdent(f.Name))
	}
	b.WriteString(") VALUES ")
	for r, row := range rows {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for i, v := range row {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(SQLLiteral(fields.At(i), v))
		}
		b.WriteByte(')')
	}
	return b.String()
}

// CreateTableSQL builds a CREATE TABLE statement for the fields. Unique
// fields get a unique key.
func CreateTableSQL(table string, fields schema.ProfileFields) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(QuoteIdent(table))
	b.WriteString(" (")
	var unique []schema.Field
	for i, f := range fields.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdent(f.Name))
		b.WriteByte(' ')
		b.WriteString(f.SQLType())
		if !f.Nullable {
			b.WriteString(" NOT NULL")
		}
		if f.Unique {
			unique = append(unique, f)
		}
	}
	for _, f := range unique {
		b.WriteString(", UNIQUE KEY ")
		b.WriteString(QuoteIdent("uk_" + f.Name))
		b.WriteString(" (")
		b.WriteString(QuoteIdent(f.Name))
		if f.Type == schema.TypeString {
			// utf8mb4 keys are limited to 3072 bytes.
			b.WriteString("(768)")
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String()
}

package output

import (
	"bufio"
	"encoding/csv"

	"rowsynth/internal/generation"
	"rowsynth/internal/schema"

	"github.com/pkg/errors"
)

type csvWriter struct {
	buf    *bufio.Writer
	w      *csv.Writer
	fields schema.ProfileFields
	record []string
}

func newCSVWriter(buf *bufio.Writer, fields schema.ProfileFields) (*csvWriter, error) {
	w := csv.NewWriter(buf)
	if err := w.Write(fields.Names()); err != nil {
		return nil, errors.Wrap(err, "write csv header")
	}
	return &csvWriter{buf: buf, w: w, fields: fields, record: make([]string, fields.Len())}, nil
}

func (c *csvWriter) WriteRow(row generation.Row) error {
	for i, v := range row.Values {
		if v == nil {
			c.record[i] = ""
			continue
		}
		c.record[i] = FormatValue(c.fields.At(i), v)
	}
	return c.w.Write(c.record)
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}
	return c.buf.Flush()
}

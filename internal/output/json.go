package output

import (
	"bufio"
	"encoding/json"
	"time"

	"rowsynth/internal/generation"
	"rowsynth/internal/schema"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// jsonWriter emits one object per line with keys in field order.
type jsonWriter struct {
	w      *bufio.Writer
	fields schema.ProfileFields
	line   []byte
}

func (j *jsonWriter) WriteRow(row generation.Row) error {
	j.line = append(j.line[:0], '{')
	for i, v := range row.Values {
		f := j.fields.At(i)
		if i > 0 {
			j.line = append(j.line, ',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return errors.Wrapf(err, "encode key %s", f.Name)
		}
		j.line = append(j.line, key...)
		j.line = append(j.line, ':')
		val, err := jsonValue(f, v)
		if err != nil {
			return errors.Wrapf(err, "encode %s", f.Name)
		}
		j.line = append(j.line, val...)
	}
	j.line = append(j.line, '}', '\n')
	_, err := j.w.Write(j.line)
	return err
}

func jsonValue(f schema.Field, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return []byte("null"), nil
	case decimal.Decimal:
		if f.Format == "" {
			return []byte(x.String()), nil
		}
	case time.Time:
	case string:
	default:
		return json.Marshal(x)
	}
	return json.Marshal(FormatValue(f, v))
}

func (j *jsonWriter) Close() error {
	return j.w.Flush()
}

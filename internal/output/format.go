package output

import (
	"fmt"
	"strings"
	"time"

	"rowsynth/internal/schema"

	"github.com/shopspring/decimal"
)

const (
	dateLayout        = "2006-01-02"
	dateTimeLayout    = "2006-01-02T15:04:05.000Z07:00"
	sqlDateTimeLayout = "2006-01-02 15:04:05.000"
)

// FormatValue renders a non-null value as text. The field's Format hint is
// a fmt verb for numbers and strings, and a Go time layout for datetimes.
func FormatValue(f schema.Field, v any) string {
	switch x := v.(type) {
	case decimal.Decimal:
		return formatDecimal(f, x)
	case time.Time:
		layout := f.Format
		if layout == "" {
			layout = dateTimeLayout
			if f.Type == schema.TypeDate {
				layout = dateLayout
			}
		}
		return x.UTC().Format(layout)
	case string:
		if f.Format != "" {
			return fmt.Sprintf(f.Format, x)
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatDecimal(f schema.Field, d decimal.Decimal) string {
	if f.Format == "" {
		return d.String()
	}
	if strings.ContainsAny(verb(f.Format), "dxXob") {
		return fmt.Sprintf(f.Format, d.IntPart())
	}
	if strings.ContainsAny(verb(f.Format), "s") {
		return fmt.Sprintf(f.Format, d.String())
	}
	return fmt.Sprintf(f.Format, d.InexactFloat64())
}

// verb returns the conversion character of the first directive in format.
func verb(format string) string {
	i := strings.IndexByte(format, '%')
	if i < 0 {
		return ""
	}
	for _, r := range format[i+1:] {
		if strings.ContainsRune("+-# 0123456789.*", r) {
			continue
		}
		return string(r)
	}
	return ""
}

// SQLLiteral renders a value as a MySQL literal. Numbers and datetimes keep
// full precision; the Format hint applies only to strings.
func SQLLiteral(f schema.Field, v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case decimal.Decimal:
		return x.String()
	case time.Time:
		if f.Type == schema.TypeDate {
			return "'" + x.UTC().Format(dateLayout) + "'"
		}
		return "'" + x.UTC().Format(sqlDateTimeLayout) + "'"
	default:
		return quoteString(FormatValue(f, v))
	}
}

var sqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `''`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

func quoteString(s string) string {
	return "'" + sqlEscaper.Replace(s) + "'"
}

// QuoteIdent quotes a MySQL identifier.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

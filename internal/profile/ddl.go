package profile

import (
	"fmt"
	"os"
	"strings"

	"rowsynth/internal/schema"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	_ "github.com/pingcap/tidb/pkg/types/parser_driver" // Register TiDB parser driver.
	"github.com/pkg/errors"
)

// Table is a CREATE TABLE statement read as profile fields. Column types
// imply constraints (string lengths, enum members, integer ranges, decimal
// places) that are added to every profile using the table.
type Table struct {
	Name    string
	Fields  []schema.Field
	implied []constraintDoc
}

var integerRanges = map[byte][2]string{
	mysql.TypeTiny:     {"-128", "127"},
	mysql.TypeShort:    {"-32768", "32767"},
	mysql.TypeInt24:    {"-8388608", "8388607"},
	mysql.TypeLong:     {"-2147483648", "2147483647"},
	mysql.TypeLonglong: {"-9223372036854775808", "9223372036854775807"},
}

var unsignedMax = map[byte]string{
	mysql.TypeTiny:     "255",
	mysql.TypeShort:    "65535",
	mysql.TypeInt24:    "16777215",
	mysql.TypeLong:     "4294967295",
	mysql.TypeLonglong: "18446744073709551615",
}

// LoadDDL reads and imports a DDL file.
func LoadDDL(path string, table string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read ddl %s", path)
	}
	t, err := ImportDDL(string(data), table)
	if err != nil {
		return nil, errors.Wrapf(err, "ddl %s", path)
	}
	return t, nil
}

// ImportDDL parses SQL and imports the CREATE TABLE statement named table,
// or the first one when table is empty.
func ImportDDL(sql string, table string) (*Table, error) {
	p := parser.New()
	stmts, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, errors.Wrap(err, "parse ddl")
	}
	for _, stmt := range stmts {
		create, ok := stmt.(*ast.CreateTableStmt)
		if !ok || create.Table == nil {
			continue
		}
		if table != "" && !strings.EqualFold(create.Table.Name.O, table) {
			continue
		}
		return importTable(create)
	}
	if table != "" {
		return nil, errors.Errorf("no CREATE TABLE statement for %s", table)
	}
	return nil, errors.New("no CREATE TABLE statement")
}

func importTable(stmt *ast.CreateTableStmt) (*Table, error) {
	out := &Table{Name: stmt.Table.Name.O}
	unique := map[string]bool{}
	notNull := map[string]bool{}
	for _, c := range stmt.Constraints {
		switch c.Tp {
		case ast.ConstraintPrimaryKey, ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		default:
			continue
		}
		if len(c.Keys) != 1 || c.Keys[0].Column == nil {
			continue
		}
		name := c.Keys[0].Column.Name.L
		unique[name] = true
		if c.Tp == ast.ConstraintPrimaryKey {
			notNull[name] = true
		}
	}
	for _, col := range stmt.Cols {
		f, implied, err := importColumn(col)
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", col.Name.Name.O)
		}
		lower := col.Name.Name.L
		if unique[lower] {
			f.Unique = true
		}
		if notNull[lower] {
			f.Nullable = false
		}
		out.Fields = append(out.Fields, f)
		out.implied = append(out.implied, implied...)
	}
	return out, nil
}

func importColumn(col *ast.ColumnDef) (schema.Field, []constraintDoc, error) {
	name := col.Name.Name.O
	f := schema.Field{Name: name, Nullable: true}
	var implied []constraintDoc
	tp := col.Tp.GetType()
	switch tp {
	case mysql.TypeTiny, mysql.TypeShort, mysql.TypeInt24, mysql.TypeLong, mysql.TypeLonglong:
		f.Type = schema.TypeInteger
		lo, hi := integerRanges[tp][0], integerRanges[tp][1]
		if mysql.HasUnsignedFlag(col.Tp.GetFlag()) {
			lo, hi = "0", unsignedMax[tp]
		}
		implied = append(implied,
			constraintDoc{Field: name, GreaterThanOrEqualTo: lo},
			constraintDoc{Field: name, LessThanOrEqualTo: hi})
	case mysql.TypeYear:
		f.Type = schema.TypeInteger
		implied = append(implied,
			constraintDoc{Field: name, GreaterThanOrEqualTo: "1901"},
			constraintDoc{Field: name, LessThanOrEqualTo: "2155"})
	case mysql.TypeNewDecimal:
		f.Type = schema.TypeDecimal
		precision, scale := col.Tp.GetFlen(), col.Tp.GetDecimal()
		if precision <= 0 {
			precision = 10
		}
		if scale < 0 {
			scale = 0
		}
		bound := "1" + strings.Repeat("0", precision-scale)
		implied = append(implied,
			constraintDoc{Field: name, GreaterThan: "-" + bound},
			constraintDoc{Field: name, LessThan: bound},
			constraintDoc{Field: name, GranularTo: granularityStep(scale)})
		if mysql.HasUnsignedFlag(col.Tp.GetFlag()) {
			implied = append(implied, constraintDoc{Field: name, GreaterThanOrEqualTo: "0"})
		}
	case mysql.TypeFloat, mysql.TypeDouble:
		f.Type = schema.TypeDecimal
	case mysql.TypeDate:
		f.Type = schema.TypeDate
	case mysql.TypeDatetime:
		f.Type = schema.TypeDatetime
		implied = append(implied, constraintDoc{Field: name, GranularTo: dateTimeUnit(col.Tp.GetDecimal())})
	case mysql.TypeTimestamp:
		f.Type = schema.TypeDatetime
		implied = append(implied,
			constraintDoc{Field: name, AfterOrAt: "1970-01-01T00:00:01Z"},
			constraintDoc{Field: name, BeforeOrAt: "2038-01-19T03:14:07Z"},
			constraintDoc{Field: name, GranularTo: dateTimeUnit(col.Tp.GetDecimal())})
	case mysql.TypeVarchar, mysql.TypeVarString, mysql.TypeString:
		f.Type = schema.TypeString
		if n := col.Tp.GetFlen(); n > 0 {
			implied = append(implied, constraintDoc{Field: name, ShorterThan: n + 1})
		}
	case mysql.TypeTinyBlob, mysql.TypeBlob, mysql.TypeMediumBlob, mysql.TypeLongBlob:
		f.Type = schema.TypeString
	case mysql.TypeEnum:
		f.Type = schema.TypeString
		elems := col.Tp.GetElems()
		members := make([]any, 0, len(elems))
		for _, e := range elems {
			members = append(members, e)
		}
		if len(members) > 0 {
			implied = append(implied, constraintDoc{Field: name, InSet: members})
		}
	default:
		return schema.Field{}, nil, errors.Errorf("unsupported column type %s", col.Tp.String())
	}
	for _, opt := range col.Options {
		switch opt.Tp {
		case ast.ColumnOptionNotNull:
			f.Nullable = false
		case ast.ColumnOptionNull:
			f.Nullable = true
		case ast.ColumnOptionPrimaryKey:
			f.Nullable = false
			f.Unique = true
		case ast.ColumnOptionUniqKey:
			f.Unique = true
		}
	}
	return f, implied, nil
}

func granularityStep(scale int) string {
	if scale <= 0 {
		return "1"
	}
	return "0." + strings.Repeat("0", scale-1) + "1"
}

func dateTimeUnit(fsp int) string {
	if fsp > 0 {
		return "millis"
	}
	return "seconds"
}

// impliedFor returns the type-implied constraints, minus those on columns
// the profile redeclares with a different type.
func (t *Table) impliedFor(overrides []fieldDoc) []constraintDoc {
	retyped := map[string]bool{}
	for _, d := range overrides {
		if d.Type != "" {
			retyped[strings.TrimSpace(d.Name)] = true
		}
	}
	out := make([]constraintDoc, 0, len(t.implied))
	for _, d := range t.implied {
		if !retyped[d.Field] {
			out = append(out, d)
		}
	}
	return out
}

func (t *Table) String() string {
	return fmt.Sprintf("%s(%d columns)", t.Name, len(t.Fields))
}

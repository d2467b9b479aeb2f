package validator

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/types/parser_driver" // Register TiDB parser driver.
	"github.com/pkg/errors"
)

// Validator wraps the TiDB parser for SQL validation.
type Validator struct {
	parser *parser.Parser
}

// New returns a Validator instance.
func New() *Validator {
	return &Validator{parser: parser.New()}
}

// Validate parses a SQL statement and returns any syntax error.
func (v *Validator) Validate(sql string) error {
	_, _, err := v.parser.Parse(sql, "", "")
	return err
}

// ValidateInsert checks that sql is a single INSERT into table with one
// value list of width columns per row. It returns the number of rows.
func (v *Validator) ValidateInsert(sql string, table string, columns int) (int, error) {
	node, err := v.parser.ParseOneStmt(sql, "", "")
	if err != nil {
		return 0, errors.Wrap(err, "parse insert")
	}
	ins, ok := node.(*ast.InsertStmt)
	if !ok {
		return 0, errors.Errorf("expected INSERT, got %T", node)
	}
	if ins.Table == nil || ins.Table.TableRefs == nil {
		return 0, errors.New("insert without target table")
	}
	name, ok := ins.Table.TableRefs.Left.(*ast.TableSource)
	if !ok {
		return 0, errors.New("insert target is not a table")
	}
	tn, ok := name.Source.(*ast.TableName)
	if !ok || tn.Name.O != table {
		return 0, errors.Errorf("insert targets %v, want %s", name.Source, table)
	}
	if len(ins.Columns) != columns {
		return 0, errors.Errorf("insert names %d columns, want %d", len(ins.Columns), columns)
	}
	for i, row := range ins.Lists {
		if len(row) != columns {
			return 0, errors.Errorf("row %d has %d values, want %d", i, len(row), columns)
		}
	}
	return len(ins.Lists), nil
}

// Split parses a script and returns the text of each statement.
func (v *Validator) Split(sql string) ([]string, error) {
	stmts, _, err := v.parser.Parse(sql, "", "")
	if err != nil {
		return nil, errors.Wrap(err, "parse script")
	}
	out := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		if text := strings.TrimSuffix(strings.TrimSpace(stmt.Text()), ";"); text != "" {
			out = append(out, text)
		}
	}
	return out, nil
}

package executor

import (
	"fmt"

	"github.com/tidesql/tidesql/internal/sql/parser"
	"github.com/tidesql/tidesql/internal/sql/sqlerr"
	"github.com/tidesql/tidesql/internal/sql/types"
)

// colID identifies one column of an operator's output: the name plus
// the table it came from. Computed columns (aggregates, aliases) carry
// an empty table.
type colID struct {
	table string
	name  string
}

// env is one row together with the column layout it conforms to.
type env struct {
	cols []colID
	row  types.Row
}

// resolve finds the position of a column reference. Unqualified names
// match the first column with that name in layout order.
func (e *env) resolve(c *parser.ColumnExpr) (int, error) {
	for i, id := range e.cols {
		if id.name != c.Name {
			continue
		}
		if c.Table == "" || c.Table == id.table {
			return i, nil
		}
	}
	return -1, sqlerr.ColumnNotFound(c.String())
}

// evaluate computes a scalar expression against the current row.
// Aggregates never reach here; the aggregate operator consumes them
// before its output flows downstream.
func evaluate(expr parser.Expr, e *env) (types.Value, error) {
	switch x := expr.(type) {
	case *parser.LiteralExpr:
		return x.Value, nil
	case *parser.ColumnExpr:
		if e == nil {
			return types.Value{}, sqlerr.Integrityf("column %s is not allowed here", x.String())
		}
		i, err := e.resolve(x)
		if err != nil {
			return types.Value{}, err
		}
		return e.row[i], nil
	default:
		return types.Value{}, fmt.Errorf("executor: cannot evaluate %T in scalar context", expr)
	}
}

// evalCompare evaluates a predicate. A comparison against NULL is
// false, never an error.
func evalCompare(cmp *parser.CompareExpr, e *env) (bool, error) {
	lv, err := evaluate(cmp.Left, e)
	if err != nil {
		return false, err
	}
	rv, err := evaluate(cmp.Right, e)
	if err != nil {
		return false, err
	}
	if lv.IsNull() || rv.IsNull() {
		return false, nil
	}
	switch cmp.Op {
	case parser.CompareEq:
		return types.Equal(lv, rv)
	case parser.CompareLt:
		c, err := types.Compare(lv, rv)
		if err != nil {
			return false, err
		}
		return c < 0, nil
	case parser.CompareGt:
		c, err := types.Compare(lv, rv)
		if err != nil {
			return false, err
		}
		return c > 0, nil
	default:
		return false, fmt.Errorf("executor: unknown comparison operator %v", cmp.Op)
	}
}

package executor

import (
	"fmt"

	"github.com/tidesql/tidesql/internal/catalog"
	"github.com/tidesql/tidesql/internal/sql/parser"
	"github.com/tidesql/tidesql/internal/sql/planner"
	"github.com/tidesql/tidesql/internal/sql/sqlerr"
	"github.com/tidesql/tidesql/internal/sql/types"
)

func (e *Executor) execCreateTable(p *planner.CreateTablePlan) (*Result, error) {
	if err := e.txn.CreateTable(p.Table); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("created table %s", p.Table.Name)}, nil
}

func (e *Executor) execDropTable(p *planner.DropTablePlan) (*Result, error) {
	if err := e.txn.DropTable(p.TableName); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("dropped table %s", p.TableName)}, nil
}

func (e *Executor) execShowTables() (*Result, error) {
	names, err := e.txn.ListTables()
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: []string{"table"}}
	for _, name := range names {
		res.Rows = append(res.Rows, types.Row{types.StringValue(name)})
	}
	return res, nil
}

func (e *Executor) execShowTable(p *planner.ShowTablePlan) (*Result, error) {
	res := &Result{Columns: []string{"column", "type", "nullable", "default", "indexed"}}
	for _, c := range p.Table.Columns {
		def := types.NullValue()
		if c.Default != nil {
			def = *c.Default
		}
		res.Rows = append(res.Rows, types.Row{
			types.StringValue(c.Name),
			types.StringValue(c.Type.String()),
			types.BoolValue(c.Nullable),
			def,
			types.BoolValue(c.Indexed),
		})
	}
	return res, nil
}

func (e *Executor) execInsert(p *planner.InsertPlan) (*Result, error) {
	var n int64
	for _, exprs := range p.Rows {
		row, err := buildInsertRow(p.Table, p.Columns, exprs)
		if err != nil {
			return nil, err
		}
		if err := e.txn.Insert(p.Table, row); err != nil {
			return nil, err
		}
		n++
	}
	return &Result{AffectedRows: n}, nil
}

// buildInsertRow widens one VALUES tuple to the table's full column
// list. Without an explicit column list the values bind positionally
// and trailing columns fall back to their defaults.
func buildInsertRow(tbl *catalog.Table, columns []string, exprs []parser.Expr) (types.Row, error) {
	vals := make([]types.Value, len(exprs))
	for i, expr := range exprs {
		v, err := evaluate(expr, nil)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	set := make(map[string]types.Value, len(vals))
	if len(columns) == 0 {
		if len(vals) > len(tbl.Columns) {
			return nil, sqlerr.Integrityf("table %s expects at most %d values, got %d", tbl.Name, len(tbl.Columns), len(vals))
		}
		for i, v := range vals {
			set[tbl.Columns[i].Name] = v
		}
	} else {
		if len(columns) != len(vals) {
			return nil, sqlerr.Integrityf("%d columns named but %d values given", len(columns), len(vals))
		}
		for i, name := range columns {
			if _, c := tbl.Column(name); c == nil {
				return nil, sqlerr.ColumnNotFound(name)
			}
			if _, dup := set[name]; dup {
				return nil, sqlerr.Integrityf("column %s named twice", name)
			}
			set[name] = vals[i]
		}
	}

	row := make(types.Row, len(tbl.Columns))
	for i, c := range tbl.Columns {
		if v, ok := set[c.Name]; ok {
			row[i] = v
			continue
		}
		if c.Default == nil {
			return nil, sqlerr.Integrityf("column %s has no default value", c.Name)
		}
		row[i] = *c.Default
	}
	return row, nil
}

func (e *Executor) execUpdate(p *planner.UpdatePlan) (*Result, error) {
	setIdx := make([]int, len(p.Set))
	seen := make(map[string]struct{}, len(p.Set))
	for i, a := range p.Set {
		idx, c := p.Table.Column(a.Column)
		if c == nil {
			return nil, sqlerr.ColumnNotFound(a.Column)
		}
		if _, dup := seen[a.Column]; dup {
			return nil, sqlerr.Integrityf("column %s assigned twice", a.Column)
		}
		seen[a.Column] = struct{}{}
		setIdx[i] = idx
	}

	it, err := e.txn.Scan(p.Table)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	ev := &env{cols: tableCols(p.Table)}

	// Updates are buffered so the scan never observes its own writes.
	type pending struct {
		rowID uint64
		row   types.Row
	}
	var todo []pending
	for it.Next() {
		ev.row = it.Row()
		if p.Where != nil {
			ok, err := evalCompare(p.Where, ev)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		row := make(types.Row, len(ev.row))
		copy(row, ev.row)
		for i, a := range p.Set {
			v, err := evaluate(a.Value, ev)
			if err != nil {
				return nil, err
			}
			row[setIdx[i]] = v
		}
		todo = append(todo, pending{rowID: it.RowID(), row: row})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	for _, u := range todo {
		if err := e.txn.UpdateRow(p.Table, u.rowID, u.row); err != nil {
			return nil, err
		}
	}
	return &Result{AffectedRows: int64(len(todo))}, nil
}

func (e *Executor) execDelete(p *planner.DeletePlan) (*Result, error) {
	it, err := e.txn.Scan(p.Table)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	ev := &env{cols: tableCols(p.Table)}

	var ids []uint64
	for it.Next() {
		if p.Where != nil {
			ev.row = it.Row()
			ok, err := evalCompare(p.Where, ev)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		ids = append(ids, it.RowID())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if err := e.txn.DeleteRow(p.Table, id); err != nil {
			return nil, err
		}
	}
	return &Result{AffectedRows: int64(len(ids))}, nil
}

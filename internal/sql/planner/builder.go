package planner

import (
	"fmt"

	"github.com/tidesql/tidesql/internal/catalog"
	"github.com/tidesql/tidesql/internal/sql/parser"
	"github.com/tidesql/tidesql/internal/sql/sqlerr"
	"github.com/tidesql/tidesql/internal/sql/types"
)

// Catalog is the schema lookup the planner needs. *engine.Txn satisfies
// it, so plans resolve tables inside the calling transaction.
type Catalog interface {
	GetTable(name string) (*catalog.Table, error)
}

// BuildPlan lowers an AST statement to an executable plan, resolving
// table names through cat. BEGIN/COMMIT/ROLLBACK never reach the
// planner outside EXPLAIN; the session executes them directly.
func BuildPlan(stmt parser.Statement, cat Catalog) (Plan, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return buildCreateTable(s)
	case *parser.DropTableStmt:
		return &DropTablePlan{TableName: s.TableName}, nil
	case *parser.ShowTablesStmt:
		return &ShowTablesPlan{}, nil
	case *parser.ShowTableStmt:
		tbl, err := cat.GetTable(s.TableName)
		if err != nil {
			return nil, err
		}
		return &ShowTablePlan{Table: tbl}, nil
	case *parser.InsertStmt:
		tbl, err := cat.GetTable(s.TableName)
		if err != nil {
			return nil, err
		}
		return &InsertPlan{Table: tbl, Columns: s.Columns, Rows: s.Rows}, nil
	case *parser.SelectStmt:
		return buildSelect(s, cat)
	case *parser.UpdateStmt:
		return buildUpdate(s, cat)
	case *parser.DeleteStmt:
		return buildDelete(s, cat)
	case *parser.ExplainStmt:
		return buildExplain(s, cat)
	case *parser.BeginStmt, *parser.CommitStmt, *parser.RollbackStmt:
		return nil, sqlerr.Unsupportedf("EXPLAIN of transaction control statements")
	default:
		return nil, fmt.Errorf("planner: unsupported statement type %T", stmt)
	}
}

// buildCreateTable normalizes column definitions into a catalog schema:
// nullable is the absence of NOT NULL, and nullable columns without an
// explicit default get an implicit NULL default.
func buildCreateTable(s *parser.CreateTableStmt) (Plan, error) {
	tbl := catalog.Table{Name: s.TableName}
	for _, def := range s.Columns {
		col := catalog.Column{
			Name:     def.Name,
			Type:     def.Type,
			Nullable: !def.NotNull,
			Indexed:  def.Indexed,
		}
		if def.Default != nil {
			v := def.Default.(*parser.LiteralExpr).Value
			col.Default = &v
		} else if col.Nullable {
			null := types.NullValue()
			col.Default = &null
		}
		tbl.Columns = append(tbl.Columns, col)
	}
	if err := tbl.Validate(); err != nil {
		return nil, err
	}
	return &CreateTablePlan{Table: tbl}, nil
}

func buildUpdate(s *parser.UpdateStmt, cat Catalog) (Plan, error) {
	tbl, err := cat.GetTable(s.TableName)
	if err != nil {
		return nil, err
	}
	for _, a := range s.Set {
		if _, ok := a.Value.(*parser.AggregateExpr); ok {
			return nil, sqlerr.Integrityf("aggregate functions are not allowed in SET")
		}
	}
	if s.Where != nil && containsAggregate(s.Where) {
		return nil, sqlerr.Integrityf("aggregate functions are not allowed in WHERE")
	}
	return &UpdatePlan{Table: tbl, Set: s.Set, Where: s.Where}, nil
}

func buildDelete(s *parser.DeleteStmt, cat Catalog) (Plan, error) {
	tbl, err := cat.GetTable(s.TableName)
	if err != nil {
		return nil, err
	}
	if s.Where != nil && containsAggregate(s.Where) {
		return nil, sqlerr.Integrityf("aggregate functions are not allowed in WHERE")
	}
	return &DeletePlan{Table: tbl, Where: s.Where}, nil
}

func buildExplain(s *parser.ExplainStmt, cat Catalog) (Plan, error) {
	if _, ok := s.Stmt.(*parser.ExplainStmt); ok {
		return nil, sqlerr.Syntaxf("cannot nest EXPLAIN statements")
	}
	inner, err := BuildPlan(s.Stmt, cat)
	if err != nil {
		return nil, err
	}
	return &ExplainPlan{Inner: inner}, nil
}

// buildSelect composes the fixed pipeline Scan/Join -> Filter ->
// Aggregate -> Having-Filter -> Sort -> Offset -> Limit -> Project.
func buildSelect(s *parser.SelectStmt, cat Catalog) (Plan, error) {
	src, err := buildFrom(s.From, cat)
	if err != nil {
		return nil, err
	}

	if s.Where != nil {
		if containsAggregate(s.Where) {
			return nil, sqlerr.Integrityf("aggregate functions are not allowed in WHERE")
		}
		src = &FilterPlan{Source: src, Cond: s.Where}
	}

	star := false
	hasAgg := false
	for _, it := range s.Items {
		if it.Star {
			star = true
			continue
		}
		if _, ok := it.Expr.(*parser.AggregateExpr); ok {
			hasAgg = true
		}
	}
	if star && len(s.Items) > 1 {
		return nil, sqlerr.Unsupportedf("* mixed with other select items")
	}

	if hasAgg || s.GroupBy != "" {
		return buildAggregateSelect(s, src, star)
	}

	if s.Having != nil {
		return nil, sqlerr.Integrityf("HAVING requires an aggregated SELECT")
	}

	var proj []ProjectItem
	if !star {
		for _, it := range s.Items {
			name := it.Alias
			if name == "" {
				name = outputName(it.Expr)
			}
			proj = append(proj, ProjectItem{Name: name, Expr: it.Expr})
		}
	}
	plan, err := applyOrderAndPage(src, s)
	if err != nil {
		return nil, err
	}
	return &ProjectPlan{Source: plan, Items: proj}, nil
}

func buildAggregateSelect(s *parser.SelectStmt, src Plan, star bool) (Plan, error) {
	if star {
		return nil, sqlerr.Integrityf("SELECT * cannot be used with GROUP BY")
	}

	var groupCol *parser.ColumnExpr
	if s.GroupBy != "" {
		groupCol = &parser.ColumnExpr{Name: s.GroupBy}
	}

	var items []AggregateItem
	for _, it := range s.Items {
		name := it.Alias
		switch e := it.Expr.(type) {
		case *parser.AggregateExpr:
			if name == "" {
				name = e.Func
			}
			items = append(items, AggregateItem{Name: name, Agg: e})
		case *parser.ColumnExpr:
			if s.GroupBy == "" || e.Name != s.GroupBy {
				return nil, sqlerr.Integrityf("column %s must appear in the GROUP BY clause", e.String())
			}
			if name == "" {
				name = e.Name
			}
			items = append(items, AggregateItem{Name: name, Col: e})
		default:
			return nil, sqlerr.Integrityf("select item %s must be an aggregate or the grouping column", it.Expr.String())
		}
	}

	var plan Plan = &AggregatePlan{Source: src, GroupBy: groupCol, Items: items}

	if s.Having != nil {
		cond, err := rewriteHaving(s.Having, items)
		if err != nil {
			return nil, err
		}
		plan = &FilterPlan{Source: plan, Cond: cond}
	}

	plan, err := applyOrderAndPage(plan, s)
	if err != nil {
		return nil, err
	}

	// Downstream nodes see the aggregate's output columns, so the final
	// projection selects them back by name.
	proj := make([]ProjectItem, 0, len(items))
	for _, it := range items {
		proj = append(proj, ProjectItem{Name: it.Name, Expr: &parser.ColumnExpr{Name: it.Name}})
	}
	return &ProjectPlan{Source: plan, Items: proj}, nil
}

func buildFrom(f parser.From, cat Catalog) (Plan, error) {
	left, err := cat.GetTable(f.Table)
	if err != nil {
		return nil, err
	}
	if f.Join == parser.JoinNone {
		return &ScanPlan{Table: left}, nil
	}
	right, err := cat.GetTable(f.JoinTable)
	if err != nil {
		return nil, err
	}
	return &JoinPlan{
		Kind:  f.Join,
		Left:  &ScanPlan{Table: left},
		Right: &ScanPlan{Table: right},
		On:    f.On,
	}, nil
}

func applyOrderAndPage(src Plan, s *parser.SelectStmt) (Plan, error) {
	if len(s.OrderBy) > 0 {
		src = &SortPlan{Source: src, Keys: s.OrderBy}
	}
	if n, ok, err := pageCount(s.Offset, "OFFSET"); err != nil {
		return nil, err
	} else if ok {
		src = &OffsetPlan{Source: src, Count: n}
	}
	if n, ok, err := pageCount(s.Limit, "LIMIT"); err != nil {
		return nil, err
	} else if ok {
		src = &LimitPlan{Source: src, Count: n}
	}
	return src, nil
}

// pageCount evaluates a LIMIT/OFFSET operand. A negative count means
// unbounded and drops the node.
func pageCount(e parser.Expr, what string) (int64, bool, error) {
	if e == nil {
		return 0, false, nil
	}
	lit, ok := e.(*parser.LiteralExpr)
	if !ok {
		return 0, false, sqlerr.Syntaxf("%s must be a constant", what)
	}
	if lit.Value.Kind != types.KindInteger {
		return 0, false, sqlerr.TypeMismatchf("%s must be an integer, got %s", what, lit.Value.Kind)
	}
	if lit.Value.Int < 0 {
		return 0, false, nil
	}
	return lit.Value.Int, true, nil
}

func containsAggregate(cmp *parser.CompareExpr) bool {
	if _, ok := cmp.Left.(*parser.AggregateExpr); ok {
		return true
	}
	_, ok := cmp.Right.(*parser.AggregateExpr)
	return ok
}

// rewriteHaving replaces aggregate calls in a HAVING predicate with
// references to the matching aggregate output column.
func rewriteHaving(cmp *parser.CompareExpr, items []AggregateItem) (*parser.CompareExpr, error) {
	left, err := rewriteHavingSide(cmp.Left, items)
	if err != nil {
		return nil, err
	}
	right, err := rewriteHavingSide(cmp.Right, items)
	if err != nil {
		return nil, err
	}
	return &parser.CompareExpr{Op: cmp.Op, Left: left, Right: right}, nil
}

func rewriteHavingSide(e parser.Expr, items []AggregateItem) (parser.Expr, error) {
	agg, ok := e.(*parser.AggregateExpr)
	if !ok {
		return e, nil
	}
	for _, it := range items {
		if it.Agg != nil && sameAggregate(it.Agg, agg) {
			return &parser.ColumnExpr{Name: it.Name}, nil
		}
	}
	return nil, sqlerr.Integrityf("HAVING aggregate %s must appear in the SELECT list", agg.String())
}

func sameAggregate(a, b *parser.AggregateExpr) bool {
	if a.Func != b.Func || a.Star != b.Star {
		return false
	}
	if a.Column == nil || b.Column == nil {
		return a.Column == b.Column
	}
	return a.Column.Table == b.Column.Table && a.Column.Name == b.Column.Name
}

func outputName(e parser.Expr) string {
	switch x := e.(type) {
	case *parser.ColumnExpr:
		return x.Name
	case *parser.AggregateExpr:
		return x.Func
	default:
		return "?"
	}
}

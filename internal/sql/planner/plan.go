package planner

import (
	"fmt"
	"strings"

	"github.com/tidesql/tidesql/internal/catalog"
	"github.com/tidesql/tidesql/internal/sql/parser"
)

// Plan is the interface for executable plans.
type Plan interface {
	planNode()
}

// ----- Read pipeline nodes -----

// ScanPlan reads every visible row of one table.
type ScanPlan struct {
	Table *catalog.Table
}

func (*ScanPlan) planNode() {}

// JoinPlan combines two sources. On is nil exactly for cross joins.
type JoinPlan struct {
	Kind  parser.JoinKind
	Left  Plan
	Right Plan
	On    *parser.CompareExpr
}

func (*JoinPlan) planNode() {}

type FilterPlan struct {
	Source Plan
	Cond   *parser.CompareExpr
}

func (*FilterPlan) planNode() {}

// AggregateItem is one output column of an AggregatePlan: an aggregate
// call, or the grouping column passed through when Agg is nil.
type AggregateItem struct {
	Name string
	Agg  *parser.AggregateExpr
	Col  *parser.ColumnExpr
}

// AggregatePlan folds its source into one output row per group. With no
// grouping column the whole input forms a single group.
type AggregatePlan struct {
	Source  Plan
	GroupBy *parser.ColumnExpr
	Items   []AggregateItem
}

func (*AggregatePlan) planNode() {}

type SortPlan struct {
	Source Plan
	Keys   []parser.OrderItem
}

func (*SortPlan) planNode() {}

type OffsetPlan struct {
	Source Plan
	Count  int64
}

func (*OffsetPlan) planNode() {}

type LimitPlan struct {
	Source Plan
	Count  int64
}

func (*LimitPlan) planNode() {}

// ProjectItem names one output column of a projection.
type ProjectItem struct {
	Name string
	Expr parser.Expr
}

// ProjectPlan sits on top of every SELECT pipeline so ORDER BY below it
// may reference un-projected columns. Empty Items means SELECT *: all
// source columns pass through.
type ProjectPlan struct {
	Source Plan
	Items  []ProjectItem
}

func (*ProjectPlan) planNode() {}

// ----- DDL / DML nodes -----

type CreateTablePlan struct {
	Table catalog.Table // ID assigned at execution
}

func (*CreateTablePlan) planNode() {}

type DropTablePlan struct {
	TableName string
}

func (*DropTablePlan) planNode() {}

type InsertPlan struct {
	Table   *catalog.Table
	Columns []string        // empty means full-width rows
	Rows    [][]parser.Expr // literals, evaluated at execution
}

func (*InsertPlan) planNode() {}

type UpdatePlan struct {
	Table *catalog.Table
	Set   []parser.Assignment
	Where *parser.CompareExpr
}

func (*UpdatePlan) planNode() {}

type DeletePlan struct {
	Table *catalog.Table
	Where *parser.CompareExpr
}

func (*DeletePlan) planNode() {}

type ShowTablesPlan struct{}

func (*ShowTablesPlan) planNode() {}

type ShowTablePlan struct {
	Table *catalog.Table
}

func (*ShowTablePlan) planNode() {}

// ExplainPlan renders Inner instead of executing it.
type ExplainPlan struct {
	Inner Plan
}

func (*ExplainPlan) planNode() {}

// ----- Rendering -----

// Format renders a plan tree for EXPLAIN: a header line, then one line
// per node with children indented under their parent.
func Format(p Plan) string {
	var sb strings.Builder
	sb.WriteString("SQL PLAN")
	formatNode(&sb, p, 0)
	return sb.String()
}

func formatNode(sb *strings.Builder, p Plan, depth int) {
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat("   ", depth))
	sb.WriteString("-> ")
	sb.WriteString(describeNode(p))
	for _, child := range children(p) {
		formatNode(sb, child, depth+1)
	}
}

func describeNode(p Plan) string {
	switch n := p.(type) {
	case *ScanPlan:
		return "Scan: " + n.Table.Name
	case *JoinPlan:
		if n.On == nil {
			return fmt.Sprintf("Join(%s)", n.Kind)
		}
		return fmt.Sprintf("Join(%s): %s", n.Kind, n.On)
	case *FilterPlan:
		return "Filter: " + n.Cond.String()
	case *AggregatePlan:
		parts := make([]string, 0, len(n.Items))
		for _, it := range n.Items {
			if it.Agg != nil {
				parts = append(parts, it.Agg.String())
			} else {
				parts = append(parts, it.Col.String())
			}
		}
		s := "Aggregate: " + strings.Join(parts, ", ")
		if n.GroupBy != nil {
			s += " group by " + n.GroupBy.String()
		}
		return s
	case *SortPlan:
		parts := make([]string, 0, len(n.Keys))
		for _, k := range n.Keys {
			dir := "asc"
			if k.Desc {
				dir = "desc"
			}
			parts = append(parts, k.Column.String()+" "+dir)
		}
		return "Sort: " + strings.Join(parts, ", ")
	case *OffsetPlan:
		return fmt.Sprintf("Offset: %d", n.Count)
	case *LimitPlan:
		return fmt.Sprintf("Limit: %d", n.Count)
	case *ProjectPlan:
		if len(n.Items) == 0 {
			return "Project: *"
		}
		parts := make([]string, 0, len(n.Items))
		for _, it := range n.Items {
			parts = append(parts, it.Expr.String())
		}
		return "Project: " + strings.Join(parts, ", ")
	case *CreateTablePlan:
		return "Create Table: " + n.Table.Name
	case *DropTablePlan:
		return "Drop Table: " + n.TableName
	case *InsertPlan:
		return fmt.Sprintf("Insert: %s (%d rows)", n.Table.Name, len(n.Rows))
	case *UpdatePlan:
		if n.Where == nil {
			return "Update: " + n.Table.Name
		}
		return fmt.Sprintf("Update: %s where %s", n.Table.Name, n.Where)
	case *DeletePlan:
		if n.Where == nil {
			return "Delete: " + n.Table.Name
		}
		return fmt.Sprintf("Delete: %s where %s", n.Table.Name, n.Where)
	case *ShowTablesPlan:
		return "Show Tables"
	case *ShowTablePlan:
		return "Show Table: " + n.Table.Name
	case *ExplainPlan:
		return "Explain"
	default:
		return fmt.Sprintf("%T", p)
	}
}

func children(p Plan) []Plan {
	switch n := p.(type) {
	case *JoinPlan:
		return []Plan{n.Left, n.Right}
	case *FilterPlan:
		return []Plan{n.Source}
	case *AggregatePlan:
		return []Plan{n.Source}
	case *SortPlan:
		return []Plan{n.Source}
	case *OffsetPlan:
		return []Plan{n.Source}
	case *LimitPlan:
		return []Plan{n.Source}
	case *ProjectPlan:
		return []Plan{n.Source}
	case *ExplainPlan:
		return []Plan{n.Inner}
	default:
		return nil
	}
}

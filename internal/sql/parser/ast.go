package parser

import (
	"strings"

	"github.com/tidesql/tidesql/internal/sql/types"
)

// Statement is the root interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// ----- CREATE TABLE -----

type ColumnDef struct {
	Name    string
	Type    types.DataType
	NotNull bool
	Default Expr // folded literal, nil when absent
	Indexed bool
}

type CreateTableStmt struct {
	TableName string
	Columns   []ColumnDef
}

func (*CreateTableStmt) stmtNode() {}

// ----- DROP TABLE -----

type DropTableStmt struct {
	TableName string
}

func (*DropTableStmt) stmtNode() {}

// ----- SHOW -----

type ShowTablesStmt struct{}

func (*ShowTablesStmt) stmtNode() {}

// ShowTableStmt describes one table's columns.
type ShowTableStmt struct {
	TableName string
}

func (*ShowTableStmt) stmtNode() {}

// ----- transactions -----

type BeginStmt struct{}

func (*BeginStmt) stmtNode() {}

type CommitStmt struct{}

func (*CommitStmt) stmtNode() {}

type RollbackStmt struct{}

func (*RollbackStmt) stmtNode() {}

// ----- EXPLAIN -----

type ExplainStmt struct {
	Stmt Statement
}

func (*ExplainStmt) stmtNode() {}

// ----- INSERT -----

type InsertStmt struct {
	TableName string
	Columns   []string // optional explicit column list
	Rows      [][]Expr // one value list per row
}

func (*InsertStmt) stmtNode() {}

// ----- UPDATE -----

type Assignment struct {
	Column string
	Value  Expr
}

type UpdateStmt struct {
	TableName string
	Set       []Assignment
	Where     *CompareExpr // single equality, nil means all rows
}

func (*UpdateStmt) stmtNode() {}

// ----- DELETE -----

type DeleteStmt struct {
	TableName string
	Where     *CompareExpr
}

func (*DeleteStmt) stmtNode() {}

// ----- SELECT -----

type JoinKind uint8

const (
	JoinNone JoinKind = iota
	JoinInner
	JoinLeft
	JoinRight
	JoinCross
)

func (k JoinKind) String() string {
	switch k {
	case JoinNone:
		return "none"
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinCross:
		return "cross"
	default:
		return "unknown"
	}
}

// From is the FROM clause: a bare table or one two-table join.
type From struct {
	Table     string
	Join      JoinKind
	JoinTable string
	On        *CompareExpr // column equality, nil for cross joins
}

type SelectItem struct {
	Star  bool
	Expr  Expr
	Alias string
}

type OrderItem struct {
	Column *ColumnExpr
	Desc   bool
}

type SelectStmt struct {
	Items   []SelectItem
	From    From
	Where   *CompareExpr
	GroupBy string // single grouping column, "" when absent
	Having  *CompareExpr
	OrderBy []OrderItem
	Limit   Expr // folded literal, nil when absent
	Offset  Expr
}

func (*SelectStmt) stmtNode() {}

// ----- Expressions -----

// Expr is a scalar expression. After parsing only four forms remain:
// literals, column references, aggregate calls, and comparisons.
// Arithmetic over constants is folded away by the parser.
type Expr interface {
	exprNode()
	String() string
}

type LiteralExpr struct {
	Value types.Value
}

func (*LiteralExpr) exprNode() {}

func (e *LiteralExpr) String() string {
	if e.Value.Kind == types.KindString {
		return "'" + strings.ReplaceAll(e.Value.Str, "'", "''") + "'"
	}
	return e.Value.String()
}

// ColumnExpr references a column, optionally table-qualified.
type ColumnExpr struct {
	Table string
	Name  string
}

func (*ColumnExpr) exprNode() {}

func (e *ColumnExpr) String() string {
	if e.Table != "" {
		return e.Table + "." + e.Name
	}
	return e.Name
}

type CompareOp uint8

const (
	CompareEq CompareOp = iota
	CompareLt
	CompareGt
)

func (op CompareOp) String() string {
	switch op {
	case CompareEq:
		return "="
	case CompareLt:
		return "<"
	case CompareGt:
		return ">"
	default:
		return "?"
	}
}

type CompareExpr struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (*CompareExpr) exprNode() {}

func (e *CompareExpr) String() string {
	return e.Left.String() + " " + e.Op.String() + " " + e.Right.String()
}

// AggregateExpr is one of count/min/max/sum/avg over a column, or
// count(*).
type AggregateExpr struct {
	Func   string // lower-cased function name
	Star   bool
	Column *ColumnExpr // nil when Star
}

func (*AggregateExpr) exprNode() {}

func (e *AggregateExpr) String() string {
	if e.Star {
		return e.Func + "(*)"
	}
	return e.Func + "(" + e.Column.String() + ")"
}

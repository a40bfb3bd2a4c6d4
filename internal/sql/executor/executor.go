// Package executor runs planner output against a transaction. Query
// plans become a pull pipeline of row iterators; DDL and DML plans call
// the transaction directly.
package executor

import (
	"fmt"
	"strings"

	"github.com/tidesql/tidesql/internal/catalog"
	"github.com/tidesql/tidesql/internal/sql/planner"
	"github.com/tidesql/tidesql/internal/sql/types"
)

// Txn is the transaction surface the executor needs. The engine's
// transaction satisfies it through a thin adapter in the root package.
type Txn interface {
	CreateTable(tbl catalog.Table) error
	DropTable(name string) error
	GetTable(name string) (*catalog.Table, error)
	ListTables() ([]string, error)
	Insert(tbl *catalog.Table, row types.Row) error
	UpdateRow(tbl *catalog.Table, rowID uint64, row types.Row) error
	DeleteRow(tbl *catalog.Table, rowID uint64) error
	Scan(tbl *catalog.Table) (RowIter, error)
}

// RowIter walks the visible rows of one table.
type RowIter interface {
	Next() bool
	Row() types.Row
	RowID() uint64
	Err() error
	Close() error
}

type Executor struct {
	txn Txn
}

func NewExecutor(txn Txn) *Executor {
	return &Executor{txn: txn}
}

// Execute runs one plan to completion and returns its result. Query
// plans are drained eagerly so the result is independent of later
// writes in the same transaction.
func (e *Executor) Execute(p planner.Plan) (*Result, error) {
	switch p := p.(type) {
	case *planner.CreateTablePlan:
		return e.execCreateTable(p)
	case *planner.DropTablePlan:
		return e.execDropTable(p)
	case *planner.InsertPlan:
		return e.execInsert(p)
	case *planner.UpdatePlan:
		return e.execUpdate(p)
	case *planner.DeletePlan:
		return e.execDelete(p)
	case *planner.ShowTablesPlan:
		return e.execShowTables()
	case *planner.ShowTablePlan:
		return e.execShowTable(p)
	case *planner.ExplainPlan:
		return e.execExplain(p)
	case *planner.ScanPlan, *planner.JoinPlan, *planner.FilterPlan,
		*planner.AggregatePlan, *planner.SortPlan, *planner.OffsetPlan,
		*planner.LimitPlan, *planner.ProjectPlan:
		return e.execQuery(p)
	default:
		return nil, fmt.Errorf("executor: unsupported plan type %T", p)
	}
}

func (e *Executor) execQuery(p planner.Plan) (*Result, error) {
	it, err := e.build(p)
	if err != nil {
		return nil, err
	}
	cols := it.Columns()
	rows, err := drain(it)
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: make([]string, len(cols)), Rows: rows}
	for i, c := range cols {
		res.Columns[i] = c.name
	}
	return res, nil
}

func (e *Executor) execExplain(p *planner.ExplainPlan) (*Result, error) {
	res := &Result{Columns: []string{"plan"}}
	for _, line := range strings.Split(planner.Format(p.Inner), "\n") {
		res.Rows = append(res.Rows, types.Row{types.StringValue(line)})
	}
	return res, nil
}

// build assembles the iterator pipeline for a query plan.
func (e *Executor) build(p planner.Plan) (rowIter, error) {
	switch p := p.(type) {
	case *planner.ScanPlan:
		return newScanIter(e.txn, p.Table)
	case *planner.JoinPlan:
		return newJoinIter(e, p)
	case *planner.FilterPlan:
		src, err := e.build(p.Source)
		if err != nil {
			return nil, err
		}
		return &filterIter{src: src, cond: p.Cond}, nil
	case *planner.AggregatePlan:
		return newAggregateIter(e, p)
	case *planner.SortPlan:
		src, err := e.build(p.Source)
		if err != nil {
			return nil, err
		}
		return &sortIter{src: src, keys: p.Keys}, nil
	case *planner.OffsetPlan:
		src, err := e.build(p.Source)
		if err != nil {
			return nil, err
		}
		return &offsetIter{src: src, skip: p.Count}, nil
	case *planner.LimitPlan:
		src, err := e.build(p.Source)
		if err != nil {
			return nil, err
		}
		return &limitIter{src: src, remaining: p.Count}, nil
	case *planner.ProjectPlan:
		src, err := e.build(p.Source)
		if err != nil {
			return nil, err
		}
		if len(p.Items) == 0 {
			return src, nil
		}
		return newProjectIter(src, p.Items), nil
	default:
		return nil, fmt.Errorf("executor: unsupported plan type %T", p)
	}
}

package executor

import (
	"fmt"

	"github.com/tidesql/tidesql/internal/sql/parser"
	"github.com/tidesql/tidesql/internal/sql/planner"
	"github.com/tidesql/tidesql/internal/sql/types"
)

// joinIter is a nested-loop join over two materialized sides. Output
// columns are always left-then-right; outer joins pad the non-driving
// side with NULLs for unmatched rows.
type joinIter struct {
	cols     []colID
	kind     parser.JoinKind
	onL, onR int // ON column positions in combined layout, -1 for cross
	left     []types.Row
	right    []types.Row
	lw, rw   int
	oi, ii   int // outer/inner cursors
	matched  bool
}

func newJoinIter(e *Executor, p *planner.JoinPlan) (*joinIter, error) {
	lsrc, err := e.build(p.Left)
	if err != nil {
		return nil, err
	}
	lcols := lsrc.Columns()
	lrows, err := drain(lsrc)
	if err != nil {
		return nil, err
	}
	rsrc, err := e.build(p.Right)
	if err != nil {
		return nil, err
	}
	rcols := rsrc.Columns()
	rrows, err := drain(rsrc)
	if err != nil {
		return nil, err
	}

	cols := make([]colID, 0, len(lcols)+len(rcols))
	cols = append(cols, lcols...)
	cols = append(cols, rcols...)

	j := &joinIter{
		cols:  cols,
		kind:  p.Kind,
		onL:   -1,
		onR:   -1,
		left:  lrows,
		right: rrows,
		lw:    len(lcols),
		rw:    len(rcols),
	}
	if p.On != nil {
		e := env{cols: cols}
		l, ok := p.On.Left.(*parser.ColumnExpr)
		if !ok {
			return nil, fmt.Errorf("executor: join predicate is not a column equality")
		}
		r, ok := p.On.Right.(*parser.ColumnExpr)
		if !ok {
			return nil, fmt.Errorf("executor: join predicate is not a column equality")
		}
		if j.onL, err = e.resolve(l); err != nil {
			return nil, err
		}
		if j.onR, err = e.resolve(r); err != nil {
			return nil, err
		}
	}
	return j, nil
}

func (j *joinIter) Columns() []colID { return j.cols }

func (j *joinIter) Next() (types.Row, bool, error) {
	if j.kind == parser.JoinRight {
		return j.nextDriven(j.right, j.left, false)
	}
	return j.nextDriven(j.left, j.right, true)
}

// nextDriven advances the nested loop with outer as the driving side.
// leftDrives tells which physical side drives so output column order
// stays left-then-right either way.
func (j *joinIter) nextDriven(outer, inner []types.Row, leftDrives bool) (types.Row, bool, error) {
	for j.oi < len(outer) {
		for j.ii < len(inner) {
			o, i := outer[j.oi], inner[j.ii]
			j.ii++
			ok, err := j.matches(o, i, leftDrives)
			if err != nil {
				return nil, false, err
			}
			if ok {
				j.matched = true
				if leftDrives {
					return combineRows(o, i), true, nil
				}
				return combineRows(i, o), true, nil
			}
		}
		oi := j.oi
		j.oi, j.ii = j.oi+1, 0
		wasMatched := j.matched
		j.matched = false
		if !wasMatched && j.padUnmatched() {
			if leftDrives {
				return combineRows(outer[oi], nullRow(j.rw)), true, nil
			}
			return combineRows(nullRow(j.lw), outer[oi]), true, nil
		}
	}
	return nil, false, nil
}

// padUnmatched reports whether the driving side keeps rows with no
// partner.
func (j *joinIter) padUnmatched() bool {
	return j.kind == parser.JoinLeft || j.kind == parser.JoinRight
}

func (j *joinIter) matches(o, i types.Row, leftDrives bool) (bool, error) {
	if j.onL < 0 {
		return true, nil
	}
	l, r := o, i
	if !leftDrives {
		l, r = i, o
	}
	return types.Equal(j.at(l, r, j.onL), j.at(l, r, j.onR))
}

func (j *joinIter) at(l, r types.Row, idx int) types.Value {
	if idx < j.lw {
		return l[idx]
	}
	return r[idx-j.lw]
}

func (j *joinIter) Close() error { return nil }

func combineRows(l, r types.Row) types.Row {
	out := make(types.Row, 0, len(l)+len(r))
	out = append(out, l...)
	return append(out, r...)
}

func nullRow(n int) types.Row {
	row := make(types.Row, n)
	for i := range row {
		row[i] = types.NullValue()
	}
	return row
}

package executor

import (
	"sort"

	"github.com/tidesql/tidesql/internal/catalog"
	"github.com/tidesql/tidesql/internal/sql/parser"
	"github.com/tidesql/tidesql/internal/sql/planner"
	"github.com/tidesql/tidesql/internal/sql/types"
)

// rowIter is the pull-based row stream flowing between operators.
// Next returns false with a nil error when the stream is done.
type rowIter interface {
	Columns() []colID
	Next() (types.Row, bool, error)
	Close() error
}

// drain pulls every remaining row, then closes the source.
func drain(src rowIter) ([]types.Row, error) {
	defer src.Close()
	var rows []types.Row
	for {
		row, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// tableCols is the column layout of a table scan: every column
// qualified by its table name.
func tableCols(tbl *catalog.Table) []colID {
	cols := make([]colID, len(tbl.Columns))
	for i, c := range tbl.Columns {
		cols[i] = colID{table: tbl.Name, name: c.Name}
	}
	return cols
}

// ----- Scan -----

type scanIter struct {
	cols []colID
	it   RowIter
}

func newScanIter(txn Txn, tbl *catalog.Table) (*scanIter, error) {
	it, err := txn.Scan(tbl)
	if err != nil {
		return nil, err
	}
	return &scanIter{cols: tableCols(tbl), it: it}, nil
}

func (s *scanIter) Columns() []colID { return s.cols }

func (s *scanIter) Next() (types.Row, bool, error) {
	if !s.it.Next() {
		return nil, false, s.it.Err()
	}
	return s.it.Row(), true, nil
}

func (s *scanIter) Close() error { return s.it.Close() }

// ----- Filter -----

type filterIter struct {
	src  rowIter
	cond *parser.CompareExpr
}

func (f *filterIter) Columns() []colID { return f.src.Columns() }

func (f *filterIter) Next() (types.Row, bool, error) {
	for {
		row, ok, err := f.src.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		keep, err := evalCompare(f.cond, &env{cols: f.src.Columns(), row: row})
		if err != nil {
			return nil, false, err
		}
		if keep {
			return row, true, nil
		}
	}
}

func (f *filterIter) Close() error { return f.src.Close() }

// ----- Project -----

type projectIter struct {
	src   rowIter
	cols  []colID
	items []planner.ProjectItem
}

func newProjectIter(src rowIter, items []planner.ProjectItem) *projectIter {
	cols := make([]colID, len(items))
	for i, it := range items {
		cols[i] = colID{name: it.Name}
	}
	return &projectIter{src: src, cols: cols, items: items}
}

func (p *projectIter) Columns() []colID { return p.cols }

func (p *projectIter) Next() (types.Row, bool, error) {
	row, ok, err := p.src.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	e := &env{cols: p.src.Columns(), row: row}
	out := make(types.Row, len(p.items))
	for i, it := range p.items {
		v, err := evaluate(it.Expr, e)
		if err != nil {
			return nil, false, err
		}
		out[i] = v
	}
	return out, true, nil
}

func (p *projectIter) Close() error { return p.src.Close() }

// ----- Sort -----

type sortIter struct {
	src    rowIter
	keys   []parser.OrderItem
	rows   []types.Row
	pos    int
	loaded bool
}

func (s *sortIter) Columns() []colID { return s.src.Columns() }

func (s *sortIter) Next() (types.Row, bool, error) {
	if !s.loaded {
		if err := s.load(); err != nil {
			return nil, false, err
		}
	}
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

// load materializes and orders the input. The sort is stable, so rows
// with equal keys keep their source order; NULLs always order last.
func (s *sortIter) load() error {
	cols := s.src.Columns()
	idx := make([]int, len(s.keys))
	for i, k := range s.keys {
		p, err := (&env{cols: cols}).resolve(k.Column)
		if err != nil {
			return err
		}
		idx[i] = p
	}
	rows, err := drain(s.src)
	if err != nil {
		return err
	}
	var sortErr error
	sort.SliceStable(rows, func(a, b int) bool {
		if sortErr != nil {
			return false
		}
		for ki, p := range idx {
			av, bv := rows[a][p], rows[b][p]
			if av.IsNull() || bv.IsNull() {
				if av.IsNull() == bv.IsNull() {
					continue
				}
				return bv.IsNull()
			}
			c, err := types.Compare(av, bv)
			if err != nil {
				sortErr = err
				return false
			}
			if c == 0 {
				continue
			}
			if s.keys[ki].Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if sortErr != nil {
		return sortErr
	}
	s.rows = rows
	s.loaded = true
	return nil
}

func (s *sortIter) Close() error {
	if s.loaded {
		return nil // drain already closed the source
	}
	return s.src.Close()
}

// ----- Offset / Limit -----

type offsetIter struct {
	src  rowIter
	skip int64
}

func (o *offsetIter) Columns() []colID { return o.src.Columns() }

func (o *offsetIter) Next() (types.Row, bool, error) {
	for o.skip > 0 {
		_, ok, err := o.src.Next()
		if err != nil || !ok {
			o.skip = 0
			return nil, false, err
		}
		o.skip--
	}
	return o.src.Next()
}

func (o *offsetIter) Close() error { return o.src.Close() }

type limitIter struct {
	src       rowIter
	remaining int64
}

func (l *limitIter) Columns() []colID { return l.src.Columns() }

func (l *limitIter) Next() (types.Row, bool, error) {
	if l.remaining <= 0 {
		return nil, false, nil
	}
	row, ok, err := l.src.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	l.remaining--
	return row, true, nil
}

func (l *limitIter) Close() error { return l.src.Close() }

package executor

import (
	"fmt"

	"github.com/tidesql/tidesql/internal/sql/planner"
	"github.com/tidesql/tidesql/internal/sql/sqlerr"
	"github.com/tidesql/tidesql/internal/sql/types"
)

// aggregateIter folds its source into one output row per group in a
// single pass. Groups surface in first-seen order, which is what the
// caller gets when no ORDER BY reorders them.
type aggregateIter struct {
	cols []colID
	rows []types.Row
	pos  int
}

func newAggregateIter(e *Executor, p *planner.AggregatePlan) (*aggregateIter, error) {
	src, err := e.build(p.Source)
	if err != nil {
		return nil, err
	}
	srcCols := src.Columns()

	groupIdx := -1
	if p.GroupBy != nil {
		if groupIdx, err = (&env{cols: srcCols}).resolve(p.GroupBy); err != nil {
			src.Close()
			return nil, err
		}
	}
	argIdx := make([]int, len(p.Items))
	for i, it := range p.Items {
		argIdx[i] = -1
		if it.Agg != nil && it.Agg.Column != nil {
			if argIdx[i], err = (&env{cols: srcCols}).resolve(it.Agg.Column); err != nil {
				src.Close()
				return nil, err
			}
		}
	}

	type group struct {
		key  types.Value
		accs []*accumulator
	}
	newGroup := func(key types.Value) *group {
		g := &group{key: key, accs: make([]*accumulator, len(p.Items))}
		for i, it := range p.Items {
			if it.Agg != nil {
				g.accs[i] = &accumulator{fn: it.Agg.Func, star: it.Agg.Star}
			}
		}
		return g
	}

	var groups []*group
	index := make(map[types.Value]int)

	rows, err := drain(src)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		key := types.NullValue()
		if groupIdx >= 0 {
			key = row[groupIdx]
		}
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, newGroup(key))
		}
		g := groups[gi]
		for i := range p.Items {
			if g.accs[i] == nil {
				continue
			}
			var v types.Value
			if argIdx[i] >= 0 {
				v = row[argIdx[i]]
			}
			if err := g.accs[i].add(v); err != nil {
				return nil, err
			}
		}
	}

	// A whole-table aggregate over no rows still yields one row
	// (count(*) of an empty table is 0).
	if groupIdx < 0 && len(groups) == 0 {
		groups = append(groups, newGroup(types.NullValue()))
	}

	cols := make([]colID, len(p.Items))
	for i, it := range p.Items {
		cols[i] = colID{name: it.Name}
	}
	out := make([]types.Row, len(groups))
	for gi, g := range groups {
		row := make(types.Row, len(p.Items))
		for i := range p.Items {
			if g.accs[i] == nil {
				row[i] = g.key
			} else {
				row[i] = g.accs[i].result()
			}
		}
		out[gi] = row
	}
	return &aggregateIter{cols: cols, rows: out}, nil
}

func (a *aggregateIter) Columns() []colID { return a.cols }

func (a *aggregateIter) Next() (types.Row, bool, error) {
	if a.pos >= len(a.rows) {
		return nil, false, nil
	}
	row := a.rows[a.pos]
	a.pos++
	return row, true, nil
}

func (a *aggregateIter) Close() error { return nil }

// accumulator folds one aggregate function over one group. count(*)
// counts every row; the other forms skip NULL inputs.
type accumulator struct {
	fn    string
	star  bool
	count int64
	sum   float64
	best  types.Value
}

func (a *accumulator) add(v types.Value) error {
	if a.star {
		a.count++
		return nil
	}
	if v.IsNull() {
		return nil
	}
	switch a.fn {
	case "count":
		a.count++
	case "sum", "avg":
		switch v.Kind {
		case types.KindInteger:
			a.sum += float64(v.Int)
		case types.KindFloat:
			a.sum += v.Float
		default:
			return sqlerr.TypeMismatchf("cannot %s %s values", a.fn, v.Kind)
		}
		a.count++
	case "min", "max":
		if a.best.IsNull() {
			a.best = v
			return nil
		}
		c, err := types.Compare(v, a.best)
		if err != nil {
			return err
		}
		if (a.fn == "min" && c < 0) || (a.fn == "max" && c > 0) {
			a.best = v
		}
	default:
		return fmt.Errorf("executor: unknown aggregate %q", a.fn)
	}
	return nil
}

// result finishes the fold. sum and avg return Float, or NULL when no
// non-NULL input arrived; min/max likewise return NULL for an empty
// input.
func (a *accumulator) result() types.Value {
	switch a.fn {
	case "count":
		return types.IntValue(a.count)
	case "sum":
		if a.count == 0 {
			return types.NullValue()
		}
		return types.FloatValue(a.sum)
	case "avg":
		if a.count == 0 {
			return types.NullValue()
		}
		return types.FloatValue(a.sum / float64(a.count))
	default: // min, max
		return a.best
	}
}

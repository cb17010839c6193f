package steps

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leengari/tabflow/internal/eval"
	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// Step-level aggregations on top of the shared kernels: pick the value of one
// expression at the row extremizing another.
const (
	AggMaxBy expr.AggFunc = "max_by"
	AggMinBy expr.AggFunc = "min_by"
)

// Aggregation is one named output of an aggregate step.
type Aggregation struct {
	Name       string
	Func       expr.AggFunc
	Expression expr.Expr
	// By orders the group for max_by/min_by; unused otherwise.
	By expr.Expr
}

// AggregateStep groups the input rows by the evaluated key expressions and
// emits one output row per distinct key tuple: the key columns followed by
// the named aggregations. No group keys means one group spanning the table.
type AggregateStep struct {
	InputTable   string
	OutputTable  string
	GroupBy      []SelectColumn
	Aggregations []Aggregation
}

func (*AggregateStep) Kind() string { return "aggregate" }

func (s *AggregateStep) Execute(ctx context.Context, env *Env) error {
	in, err := env.TS.Get(s.InputTable)
	if err != nil {
		return err
	}

	keyCols := make([]*table.Column, len(s.GroupBy))
	for i, gk := range s.GroupBy {
		if gk.Expression == nil {
			if keyCols[i], err = in.Column(gk.Name); err != nil {
				return err
			}
		} else if keyCols[i], err = eval.Evaluate(gk.Expression, in); err != nil {
			return err
		}
	}

	groups := groupRows(keyCols, in.NumRows())
	slog.Debug("Grouped rows",
		slog.String("input_table", s.InputTable),
		slog.Int("input_rows", in.NumRows()),
		slog.Int("groups", len(groups)),
	)

	out := table.New(s.OutputTable)
	for i, gk := range s.GroupBy {
		kc := table.NewColumn(gk.Name, keyCols[i].Type, len(groups))
		for _, g := range groups {
			kc.AppendMaybe(keyCols[i].Value(g[0]))
		}
		if err := out.AddColumn(kc); err != nil {
			return err
		}
	}
	for _, agg := range s.Aggregations {
		c, err := s.aggregateColumn(agg, in, groups)
		if err != nil {
			return err
		}
		if err := out.AddColumn(c); err != nil {
			return err
		}
	}

	slog.Info("Aggregation completed",
		slog.String("output_table", s.OutputTable),
		slog.Int("result_rows", out.NumRows()),
	)
	env.TS.Put(s.OutputTable, out)
	return nil
}

// groupRows buckets row positions by their key tuple, groups ordered by first
// appearance. Empty keys yield a single group over all rows.
func groupRows(keyCols []*table.Column, rows int) [][]int {
	if len(keyCols) == 0 {
		all := make([]int, rows)
		for i := range all {
			all[i] = i
		}
		return [][]int{all}
	}
	index := make(map[string]int)
	var groups [][]int
	cells := make([]any, len(keyCols))
	nulls := make([]bool, len(keyCols))
	for i := 0; i < rows; i++ {
		for j, c := range keyCols {
			cells[j] = c.Values[i]
			nulls[j] = c.IsNull(i)
		}
		key := table.EncodeKey(cells, nulls)
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func (s *AggregateStep) aggregateColumn(agg Aggregation, in *table.Table, groups [][]int) (*table.Column, error) {
	valueCol, err := eval.Evaluate(agg.Expression, in)
	if err != nil {
		return nil, err
	}
	if agg.Func == AggMaxBy || agg.Func == AggMinBy {
		return extremeByColumn(agg, valueCol, in, groups)
	}
	out := table.NewColumn(agg.Name, eval.AggResultType(agg.Func, valueCol.Type), len(groups))
	for _, g := range groups {
		v, _, err := eval.Aggregate(agg.Func, valueCol, g)
		if err != nil {
			return nil, fmt.Errorf("aggregation %q: %w", agg.Name, err)
		}
		out.AppendMaybe(v)
	}
	return out, nil
}

// extremeByColumn picks, per group, the value at the row achieving the
// extreme of the By expression. Null By rows are skipped; ties keep the first
// row in input order.
func extremeByColumn(agg Aggregation, valueCol *table.Column, in *table.Table, groups [][]int) (*table.Column, error) {
	if agg.By == nil {
		return nil, fmt.Errorf("aggregation %q: %s needs a by expression", agg.Name, agg.Func)
	}
	byCol, err := eval.Evaluate(agg.By, in)
	if err != nil {
		return nil, err
	}
	wantMax := agg.Func == AggMaxBy
	out := table.NewColumn(agg.Name, valueCol.Type, len(groups))
	for _, g := range groups {
		best := -1
		for _, r := range g {
			if byCol.IsNull(r) {
				continue
			}
			if best < 0 {
				best = r
				continue
			}
			cmp, err := table.Compare(byCol.Values[r], byCol.Values[best])
			if err != nil {
				return nil, fmt.Errorf("aggregation %q: %w", agg.Name, err)
			}
			if (wantMax && cmp > 0) || (!wantMax && cmp < 0) {
				best = r
			}
		}
		if best < 0 {
			out.AppendNull()
			continue
		}
		out.AppendMaybe(valueCol.Value(best))
	}
	return out, nil
}

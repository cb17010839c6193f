package steps

import (
	"context"
	"log/slog"
	"sort"

	"github.com/leengari/tabflow/internal/eval"
	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// SortKey is one sort criterion. Nulls sort lowest ascending and highest
// descending; NullsLast forces them to the end regardless of direction.
type SortKey struct {
	Expression expr.Expr
	Descending bool
	NullsLast  bool
}

// SortStep produces a stably sorted copy of the input table: rows comparing
// equal on every key keep their original relative order.
type SortStep struct {
	InputTable  string
	OutputTable string
	By          []SortKey
}

func (*SortStep) Kind() string { return "sort" }

func (s *SortStep) Execute(ctx context.Context, env *Env) error {
	in, err := env.TS.Get(s.InputTable)
	if err != nil {
		return err
	}
	keyCols := make([]*table.Column, len(s.By))
	for i, k := range s.By {
		if keyCols[i], err = eval.Evaluate(k.Expression, in); err != nil {
			return err
		}
	}

	positions := make([]int, in.NumRows())
	for i := range positions {
		positions[i] = i
	}
	var sortErr error
	sort.SliceStable(positions, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		a, b := positions[i], positions[j]
		for k, c := range keyCols {
			cmp, err := compareSortKey(c, a, b, s.By[k])
			if err != nil {
				sortErr = err
				return false
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	if sortErr != nil {
		return sortErr
	}

	out := in.Gather(s.OutputTable, positions)
	slog.Debug("Sort completed",
		slog.String("input_table", s.InputTable),
		slog.String("output_table", s.OutputTable),
		slog.Int("rows", out.NumRows()),
		slog.Int("keys", len(s.By)),
	)
	env.TS.Put(s.OutputTable, out)
	return nil
}

// compareSortKey orders two rows on one key, already adjusted for direction.
func compareSortKey(c *table.Column, a, b int, key SortKey) (int, error) {
	an, bn := c.IsNull(a), c.IsNull(b)
	switch {
	case an && bn:
		return 0, nil
	case an || bn:
		// Nulls place first by default (lowest value ascending, highest
		// descending); nullsLast pins them to the end instead. Direction does
		// not apply to null placement.
		nullCmp := -1
		if key.NullsLast {
			nullCmp = 1
		}
		if an {
			return nullCmp, nil
		}
		return -nullCmp, nil
	}
	cmp, err := table.Compare(c.Values[a], c.Values[b])
	if err != nil {
		return 0, err
	}
	return applyDirection(cmp, key.Descending), nil
}

func applyDirection(cmp int, descending bool) int {
	if descending {
		return -cmp
	}
	return cmp
}

package steps

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leengari/tabflow/internal/eval"
	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// JoinHow enumerates the join flavors.
type JoinHow string

const (
	JoinInner JoinHow = "inner"
	JoinLeft  JoinHow = "left"
	JoinRight JoinHow = "right"
	JoinFull  JoinHow = "outer"
	JoinCross JoinHow = "cross"
)

// JoinStep joins two tables using a hash join. Non-cross joins match rows by
// equality of the key-expression tuples; duplicate keys on either side
// multiply output rows. Left/right/outer additionally emit unmatched rows
// from the retained side(s) with the other side null-filled.
type JoinStep struct {
	LeftTable   string
	RightTable  string
	OutputTable string
	How         JoinHow
	LeftOn      []expr.Expr
	RightOn     []expr.Expr
	// LeftColumns/RightColumns select and rename the columns kept from each
	// side (original name to output name). Nil keeps every column.
	LeftColumns  map[string]string
	RightColumns map[string]string
}

func (*JoinStep) Kind() string { return "join" }

func (s *JoinStep) Execute(ctx context.Context, env *Env) error {
	left, err := env.TS.Get(s.LeftTable)
	if err != nil {
		return err
	}
	right, err := env.TS.Get(s.RightTable)
	if err != nil {
		return err
	}

	slog.Debug("Starting join",
		slog.String("how", string(s.How)),
		slog.String("left_table", s.LeftTable),
		slog.String("right_table", s.RightTable),
		slog.Int("left_rows", left.NumRows()),
		slog.Int("right_rows", right.NumRows()),
	)

	var lpos, rpos []int
	var leftKeys, rightKeys []*table.Column
	if s.How == JoinCross {
		lpos, rpos = crossPairs(left.NumRows(), right.NumRows())
	} else {
		if len(s.LeftOn) == 0 || len(s.RightOn) == 0 {
			return fmt.Errorf("join %q needs leftOn and rightOn keys", s.How)
		}
		if len(s.LeftOn) != len(s.RightOn) {
			return fmt.Errorf("join has %d left keys but %d right keys",
				len(s.LeftOn), len(s.RightOn))
		}
		if leftKeys, err = evalKeyColumns(s.LeftOn, left); err != nil {
			return err
		}
		if rightKeys, err = evalKeyColumns(s.RightOn, right); err != nil {
			return err
		}
		lpos, rpos = hashJoinPairs(s.How, leftKeys, rightKeys, left.NumRows(), right.NumRows())
	}

	out, err := s.assemble(left, right, leftKeys, rightKeys, lpos, rpos)
	if err != nil {
		return err
	}

	slog.Info("Join completed",
		slog.String("how", string(s.How)),
		slog.String("output_table", s.OutputTable),
		slog.Int("result_rows", out.NumRows()),
	)
	env.TS.Put(s.OutputTable, out)
	return nil
}

func evalKeyColumns(keys []expr.Expr, t *table.Table) ([]*table.Column, error) {
	cols := make([]*table.Column, len(keys))
	for i, k := range keys {
		c, err := eval.Evaluate(k, t)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

// hashJoinPairs builds the matched row-position pairs for a non-cross join.
// A -1 position marks the null-filled side of an unmatched row. Rows whose
// key tuple contains a null never match, per SQL equality semantics.
func hashJoinPairs(how JoinHow, leftKeys, rightKeys []*table.Column, leftRows, rightRows int) (lpos, rpos []int) {
	// Build phase: index the right side's key tuples.
	index := make(map[string][]int, rightRows)
	rightNullKey := make([]bool, rightRows)
	cells := make([]any, len(rightKeys))
	nulls := make([]bool, len(rightKeys))
	for i := 0; i < rightRows; i++ {
		hasNull := false
		for j, c := range rightKeys {
			cells[j] = c.Values[i]
			nulls[j] = c.IsNull(i)
			hasNull = hasNull || nulls[j]
		}
		if hasNull {
			rightNullKey[i] = true
			continue
		}
		key := table.EncodeKey(cells, nulls)
		index[key] = append(index[key], i)
	}
	slog.Debug("Built hash index", slog.Int("distinct_keys", len(index)))

	// Probe phase: scan the left side against the index.
	rightMatched := make([]bool, rightRows)
	cells = make([]any, len(leftKeys))
	nulls = make([]bool, len(leftKeys))
	for i := 0; i < leftRows; i++ {
		hasNull := false
		for j, c := range leftKeys {
			cells[j] = c.Values[i]
			nulls[j] = c.IsNull(i)
			hasNull = hasNull || nulls[j]
		}
		var matches []int
		if !hasNull {
			matches = index[table.EncodeKey(cells, nulls)]
		}
		if len(matches) == 0 {
			if how == JoinLeft || how == JoinFull {
				lpos = append(lpos, i)
				rpos = append(rpos, -1)
			}
			continue
		}
		for _, r := range matches {
			rightMatched[r] = true
			lpos = append(lpos, i)
			rpos = append(rpos, r)
		}
	}
	if how == JoinRight || how == JoinFull {
		for i := 0; i < rightRows; i++ {
			if !rightMatched[i] {
				lpos = append(lpos, -1)
				rpos = append(rpos, i)
			}
		}
	}
	return lpos, rpos
}

func crossPairs(leftRows, rightRows int) (lpos, rpos []int) {
	lpos = make([]int, 0, leftRows*rightRows)
	rpos = make([]int, 0, leftRows*rightRows)
	for i := 0; i < leftRows; i++ {
		for j := 0; j < rightRows; j++ {
			lpos = append(lpos, i)
			rpos = append(rpos, j)
		}
	}
	return lpos, rpos
}

// assemble builds the output table from the matched position pairs. Same-named
// key columns from both sides collapse into a single coalesced column; other
// right-side name collisions get a _right suffix.
func (s *JoinStep) assemble(left, right *table.Table, leftKeys, rightKeys []*table.Column, lpos, rpos []int) (*table.Table, error) {
	coalesceWith := make(map[string]*table.Column) // left column name -> right key column
	skipRight := make(map[string]bool)
	if s.How != JoinCross {
		for k := range s.LeftOn {
			lref, lok := s.LeftOn[k].(*expr.ColumnRef)
			rref, rok := s.RightOn[k].(*expr.ColumnRef)
			if !lok || !rok {
				continue
			}
			lname, lvis := outputName(left, s.LeftColumns, lref.Name)
			rname, rvis := outputName(right, s.RightColumns, rref.Name)
			if lvis && rvis && lname == rname {
				coalesceWith[lref.Name] = rightKeys[k]
				skipRight[rref.Name] = true
			}
		}
	}

	out := table.New(s.OutputTable)
	for _, c := range left.Columns {
		name, visible := outputName(left, s.LeftColumns, c.Name)
		if !visible {
			continue
		}
		var col *table.Column
		if rk, ok := coalesceWith[c.Name]; ok {
			col = coalesceColumn(name, c, rk, lpos, rpos)
		} else {
			col = c.Gather(lpos).Rename(name)
		}
		if err := out.AddColumn(col); err != nil {
			return nil, err
		}
	}
	for _, c := range right.Columns {
		name, visible := outputName(right, s.RightColumns, c.Name)
		if !visible || skipRight[c.Name] {
			continue
		}
		for out.HasColumn(name) {
			name += "_right"
		}
		if err := out.AddColumn(c.Gather(rpos).Rename(name)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// outputName maps a source column to its output name under the side's column
// mapping. With a non-empty mapping, unmapped columns are not visible; an
// empty mapping keeps every column, same as no mapping at all.
func outputName(t *table.Table, mapping map[string]string, col string) (string, bool) {
	if len(mapping) == 0 {
		return col, true
	}
	name, ok := mapping[col]
	return name, ok
}

// coalesceColumn unifies a same-named join-key pair: matched and left-retained
// rows take the left value, right-unmatched rows take the right key value.
func coalesceColumn(name string, leftCol, rightKey *table.Column, lpos, rpos []int) *table.Column {
	typ := leftCol.Type
	if p, ok := table.Promote(leftCol.Type, rightKey.Type); ok {
		typ = p
	}
	out := table.NewColumn(name, typ, len(lpos))
	widen := func(v any) any {
		if n, ok := v.(int64); ok && typ.IsFloat() {
			return float64(n)
		}
		return v
	}
	for i, lp := range lpos {
		if lp >= 0 {
			out.AppendMaybe(widen(leftCol.Value(lp)))
			continue
		}
		out.AppendMaybe(widen(rightKey.Value(rpos[i])))
	}
	return out
}

package eval

import (
	"sort"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// partition is one group of row positions sharing a partition key, in
// original row order.
type partition struct {
	key  string
	rows []int
}

// partitionRows splits the table's rows by the partition-by key tuple,
// keeping partitions in first-appearance order. An empty partitionBy list
// yields a single partition spanning the table.
func partitionRows(partitionBy []expr.Expr, t *table.Table) ([]partition, error) {
	n := t.NumRows()
	if len(partitionBy) == 0 {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return []partition{{rows: rows}}, nil
	}
	cols, err := evalOperands(partitionBy, t)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var parts []partition
	cells := make([]any, len(cols))
	nulls := make([]bool, len(cols))
	for i := 0; i < n; i++ {
		for j, c := range cols {
			cells[j] = c.Values[i]
			nulls[j] = c.IsNull(i)
		}
		key := table.EncodeKey(cells, nulls)
		p, ok := index[key]
		if !ok {
			p = len(parts)
			index[key] = p
			parts = append(parts, partition{key: key})
		}
		parts[p].rows = append(parts[p].rows, i)
	}
	return parts, nil
}

// compareOrdered compares two rows over a set of order columns. Nulls order
// lowest; descending flips every key. Rows comparing equal on all keys
// return 0, leaving the final order to the stable sort.
func compareOrdered(cols []*table.Column, a, b int, descending bool) (int, error) {
	for _, c := range cols {
		an, bn := c.IsNull(a), c.IsNull(b)
		var cmp int
		switch {
		case an && bn:
			cmp = 0
		case an:
			cmp = -1
		case bn:
			cmp = 1
		default:
			var err error
			cmp, err = table.Compare(c.Values[a], c.Values[b])
			if err != nil {
				return 0, err
			}
		}
		if descending {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	return 0, nil
}

// sortRowsBy stably sorts row positions by the given order columns.
func sortRowsBy(rows []int, cols []*table.Column, descending bool) ([]int, error) {
	sorted := make([]int, len(rows))
	copy(sorted, rows)
	var sortErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		cmp, err := compareOrdered(cols, sorted[i], sorted[j], descending)
		if err != nil {
			sortErr = err
			return false
		}
		return cmp < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return sorted, nil
}

// evalRank assigns competition ranks within each partition: rows tied on the
// full order-key tuple share a rank, and the rank after a tie group skips by
// the group size.
func evalRank(n *expr.Rank, t *table.Table) (*table.Column, error) {
	orderCols, err := evalOperands(n.OrderBy, t)
	if err != nil {
		return nil, err
	}
	parts, err := partitionRows(n.PartitionBy, t)
	if err != nil {
		return nil, err
	}
	ranks := make([]int64, t.NumRows())
	for _, p := range parts {
		sorted, err := sortRowsBy(p.rows, orderCols, n.Descending)
		if err != nil {
			return nil, err
		}
		current := int64(0)
		for i, row := range sorted {
			if i == 0 {
				current = 1
			} else {
				cmp, err := compareOrdered(orderCols, sorted[i-1], row, n.Descending)
				if err != nil {
					return nil, err
				}
				if cmp != 0 {
					current = int64(i + 1)
				}
			}
			ranks[row] = current
		}
	}
	out := table.NewColumn("", table.TypeInt64, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		out.Append(ranks[i])
	}
	return out, nil
}

// evalCumsum accumulates the value within each partition, visiting rows
// ordered by the value itself with the additional order keys breaking ties,
// then writes each running total back to its source row.
func evalCumsum(n *expr.Cumsum, t *table.Table) (*table.Column, error) {
	valueCol, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	if !valueCol.Type.IsNumeric() {
		return nil, numericAggErr("cumsum", valueCol.Type)
	}
	additional, err := evalOperands(n.AdditionalOrderBy, t)
	if err != nil {
		return nil, err
	}
	orderCols := append([]*table.Column{valueCol}, additional...)
	parts, err := partitionRows(n.PartitionBy, t)
	if err != nil {
		return nil, err
	}
	intPath := valueCol.Type.IsInteger()
	outType := table.TypeFloat64
	if intPath {
		outType = table.TypeInt64
	}
	values := make([]any, t.NumRows())
	for _, p := range parts {
		sorted, err := sortRowsBy(p.rows, orderCols, n.Descending)
		if err != nil {
			return nil, err
		}
		var sumI int64
		var sumF float64
		for _, row := range sorted {
			if valueCol.IsNull(row) {
				values[row] = nil
				continue
			}
			if intPath {
				sumI += valueCol.Values[row].(int64)
				values[row] = sumI
			} else {
				sumF += numericAt(valueCol, row)
				values[row] = sumF
			}
		}
	}
	out := table.NewColumn("", outType, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		out.AppendMaybe(values[i])
	}
	return out, nil
}

// evalWindowAgg computes one aggregate per partition and broadcasts it to
// every row of that partition.
func evalWindowAgg(n *expr.WindowAgg, t *table.Table) (*table.Column, error) {
	valueCol, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	parts, err := partitionRows(n.PartitionBy, t)
	if err != nil {
		return nil, err
	}
	outType := AggResultType(n.Func, valueCol.Type)
	values := make([]any, t.NumRows())
	for _, p := range parts {
		v, _, err := Aggregate(n.Func, valueCol, p.rows)
		if err != nil {
			return nil, err
		}
		for _, row := range p.rows {
			values[row] = v
		}
	}
	out := table.NewColumn("", outType, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		out.AppendMaybe(values[i])
	}
	return out, nil
}

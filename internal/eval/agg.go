package eval

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// Aggregate computes one aggregation function over the given row positions
// of a column. Nulls are excluded from the computation; count counts the
// non-null values. A nil result value means the aggregate is null (e.g. the
// mean of an all-null group, or the sample std of a single value).
func Aggregate(fn expr.AggFunc, c *table.Column, rows []int) (any, table.Type, error) {
	switch fn {
	case expr.AggSum:
		return aggSum(c, rows)
	case expr.AggMean, expr.AggMedian, expr.AggStd, expr.AggVar:
		return aggStat(fn, c, rows)
	case expr.AggMin, expr.AggMax:
		return aggExtreme(fn, c, rows)
	case expr.AggCount:
		n := int64(0)
		for _, r := range rows {
			if !c.IsNull(r) {
				n++
			}
		}
		return n, table.TypeInt64, nil
	case expr.AggFirst:
		for _, r := range rows {
			if !c.IsNull(r) {
				return c.Values[r], c.Type, nil
			}
		}
		return nil, c.Type, nil
	case expr.AggLast:
		for i := len(rows) - 1; i >= 0; i-- {
			if !c.IsNull(rows[i]) {
				return c.Values[rows[i]], c.Type, nil
			}
		}
		return nil, c.Type, nil
	case expr.AggNUnique:
		seen := make(map[string]struct{})
		for _, r := range rows {
			if c.IsNull(r) {
				continue
			}
			key := table.EncodeKey([]any{c.Values[r]}, []bool{false})
			seen[key] = struct{}{}
		}
		return int64(len(seen)), table.TypeInt64, nil
	}
	return nil, "", fmt.Errorf("unknown aggregation %q", fn)
}

// AggResultType reports the column type an aggregation produces without
// computing it, used to type empty outputs.
func AggResultType(fn expr.AggFunc, input table.Type) table.Type {
	switch fn {
	case expr.AggSum, expr.AggMin, expr.AggMax, expr.AggFirst, expr.AggLast:
		return input
	case expr.AggCount, expr.AggNUnique:
		return table.TypeInt64
	}
	return table.TypeFloat64
}

func aggSum(c *table.Column, rows []int) (any, table.Type, error) {
	if !c.Type.IsNumeric() {
		return nil, "", numericAggErr("sum", c.Type)
	}
	if c.Type.IsInteger() {
		var s int64
		for _, r := range rows {
			if !c.IsNull(r) {
				s += c.Values[r].(int64)
			}
		}
		return s, table.TypeInt64, nil
	}
	var s float64
	for _, r := range rows {
		if !c.IsNull(r) {
			s += numericAt(c, r)
		}
	}
	return s, table.TypeFloat64, nil
}

func aggStat(fn expr.AggFunc, c *table.Column, rows []int) (any, table.Type, error) {
	if !c.Type.IsNumeric() {
		return nil, "", numericAggErr(string(fn), c.Type)
	}
	xs := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !c.IsNull(r) {
			xs = append(xs, numericAt(c, r))
		}
	}
	if len(xs) == 0 {
		return nil, table.TypeFloat64, nil
	}
	switch fn {
	case expr.AggMean:
		return stat.Mean(xs, nil), table.TypeFloat64, nil
	case expr.AggMedian:
		sort.Float64s(xs)
		mid := len(xs) / 2
		if len(xs)%2 == 1 {
			return xs[mid], table.TypeFloat64, nil
		}
		return (xs[mid-1] + xs[mid]) / 2, table.TypeFloat64, nil
	case expr.AggStd:
		if len(xs) < 2 {
			return nil, table.TypeFloat64, nil
		}
		return stat.StdDev(xs, nil), table.TypeFloat64, nil
	case expr.AggVar:
		if len(xs) < 2 {
			return nil, table.TypeFloat64, nil
		}
		return stat.Variance(xs, nil), table.TypeFloat64, nil
	}
	return nil, table.TypeFloat64, nil
}

func aggExtreme(fn expr.AggFunc, c *table.Column, rows []int) (any, table.Type, error) {
	var best any
	for _, r := range rows {
		if c.IsNull(r) {
			continue
		}
		v := c.Values[r]
		if best == nil {
			best = v
			continue
		}
		cmp, err := table.Compare(v, best)
		if err != nil {
			return nil, "", err
		}
		if (fn == expr.AggMin && cmp < 0) || (fn == expr.AggMax && cmp > 0) {
			best = v
		}
	}
	return best, c.Type, nil
}

func numericAggErr(fn string, t table.Type) error {
	return &table.UnsupportedOperandError{
		Op:     fn,
		Reason: fmt.Sprintf("requires a numeric column, got %s", t),
	}
}

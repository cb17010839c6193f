package eval

import (
	"fmt"
	"math"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

func evalComparison(n *expr.Comparison, t *table.Table) (*table.Column, error) {
	lhs, err := Evaluate(n.LHS, t)
	if err != nil {
		return nil, err
	}
	rhs, err := Evaluate(n.RHS, t)
	if err != nil {
		return nil, err
	}
	out := table.NewColumn("", table.TypeBoolean, lhs.Len())
	for i := 0; i < lhs.Len(); i++ {
		if lhs.IsNull(i) || rhs.IsNull(i) {
			out.AppendNull()
			continue
		}
		cmp, err := table.Compare(lhs.Values[i], rhs.Values[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n.Op, err)
		}
		out.Append(applyCompareOp(n.Op, cmp))
	}
	return out, nil
}

func applyCompareOp(op expr.CompareOp, cmp int) bool {
	switch op {
	case expr.CmpGt:
		return cmp > 0
	case expr.CmpGe:
		return cmp >= 0
	case expr.CmpEq:
		return cmp == 0
	case expr.CmpLt:
		return cmp < 0
	case expr.CmpLe:
		return cmp <= 0
	case expr.CmpNeq:
		return cmp != 0
	}
	return false
}

func evalArithmetic(n *expr.Arithmetic, t *table.Table) (*table.Column, error) {
	lhs, err := Evaluate(n.LHS, t)
	if err != nil {
		return nil, err
	}
	rhs, err := Evaluate(n.RHS, t)
	if err != nil {
		return nil, err
	}
	outType, intPath, err := arithmeticType(n.Op, lhs.Type, rhs.Type)
	if err != nil {
		return nil, err
	}
	out := table.NewColumn("", outType, lhs.Len())
	for i := 0; i < lhs.Len(); i++ {
		if lhs.IsNull(i) || rhs.IsNull(i) {
			out.AppendNull()
			continue
		}
		if intPath {
			a := lhs.Values[i].(int64)
			b := rhs.Values[i].(int64)
			v, null := applyIntOp(n.Op, a, b)
			if null {
				out.AppendNull()
			} else {
				out.Append(v)
			}
			continue
		}
		a := numericAt(lhs, i)
		b := numericAt(rhs, i)
		out.Append(applyFloatOp(n.Op, a, b))
	}
	return out, nil
}

// arithmeticType resolves the result type and whether the integer fast path
// applies. Truediv always produces Float64.
func arithmeticType(op expr.ArithmeticOp, a, b table.Type) (table.Type, bool, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return "", false, &table.UnsupportedOperandError{
			Op:     string(op),
			Reason: fmt.Sprintf("operands must be numeric, got %s and %s", a, b),
		}
	}
	if op == expr.OpTrueDiv {
		return table.TypeFloat64, false, nil
	}
	promoted, _ := table.Promote(a, b)
	if promoted.IsInteger() {
		return promoted, true, nil
	}
	return table.TypeFloat64, false, nil
}

// applyIntOp computes an integer operation; division by zero yields null.
func applyIntOp(op expr.ArithmeticOp, a, b int64) (int64, bool) {
	switch op {
	case expr.OpPlus:
		return a + b, false
	case expr.OpMinus:
		return a - b, false
	case expr.OpMultiply:
		return a * b, false
	case expr.OpFloorDiv:
		if b == 0 {
			return 0, true
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return q, false
	}
	return 0, true
}

func applyFloatOp(op expr.ArithmeticOp, a, b float64) float64 {
	switch op {
	case expr.OpPlus:
		return a + b
	case expr.OpMinus:
		return a - b
	case expr.OpMultiply:
		return a * b
	case expr.OpTrueDiv:
		return a / b
	case expr.OpFloorDiv:
		return math.Floor(a / b)
	}
	return math.NaN()
}

func numericAt(c *table.Column, i int) float64 {
	switch v := c.Values[i].(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return math.NaN()
}

func evalUnary(n *expr.UnaryArithmetic, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	if !in.Type.IsNumeric() {
		return nil, &table.UnsupportedOperandError{
			Op:     string(n.Op),
			Reason: fmt.Sprintf("operand must be numeric, got %s", in.Type),
		}
	}
	// abs and negate keep the integer domain; the logs and sqrt are floats.
	keepInt := (n.Op == expr.OpAbs || n.Op == expr.OpNegate) && in.Type.IsInteger()
	outType := table.TypeFloat64
	if keepInt {
		outType = table.TypeInt64
	}
	out := table.NewColumn("", outType, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) {
			out.AppendNull()
			continue
		}
		if keepInt {
			v := in.Values[i].(int64)
			if n.Op == expr.OpNegate {
				v = -v
			} else if v < 0 {
				v = -v
			}
			out.Append(v)
			continue
		}
		v := numericAt(in, i)
		switch n.Op {
		case expr.OpLog10:
			v = math.Log10(v)
		case expr.OpLog:
			v = math.Log(v)
		case expr.OpLog2:
			v = math.Log2(v)
		case expr.OpAbs:
			v = math.Abs(v)
		case expr.OpSqrt:
			v = math.Sqrt(v)
		case expr.OpNegate:
			v = -v
		}
		out.Append(v)
	}
	return out, nil
}

// evalHorizontal picks the per-row extreme across operands. dir is -1 for
// min, 1 for max. A null operand nulls the row; no operands means an all-null
// column.
func evalHorizontal(operands []expr.Expr, t *table.Table, dir int, op string) (*table.Column, error) {
	if len(operands) == 0 {
		out := table.NewColumn("", table.TypeFloat64, t.NumRows())
		for i := 0; i < t.NumRows(); i++ {
			out.AppendNull()
		}
		return out, nil
	}
	cols, err := evalOperands(operands, t)
	if err != nil {
		return nil, err
	}
	outType := cols[0].Type
	for _, c := range cols[1:] {
		if p, ok := table.Promote(outType, c.Type); ok {
			outType = p
		}
	}
	out := table.NewColumn("", outType, t.NumRows())
	for i := 0; i < cols[0].Len(); i++ {
		var best any
		null := false
		for _, c := range cols {
			if c.IsNull(i) {
				null = true
				break
			}
			v := c.Values[i]
			if best == nil {
				best = v
				continue
			}
			cmp, err := table.Compare(v, best)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if cmp*dir > 0 {
				best = v
			}
		}
		if null {
			out.AppendNull()
		} else {
			out.Append(normalizeTo(best, outType))
		}
	}
	return out, nil
}

// normalizeTo widens an int64 cell to float64 when the result column is a
// float type, so mixed-operand columns stay uniformly typed.
func normalizeTo(v any, t table.Type) any {
	if t.IsFloat() {
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	}
	return v
}

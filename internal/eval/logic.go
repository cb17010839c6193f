package eval

import (
	"fmt"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// evalAnd folds operands with SQL three-valued AND: false dominates, then
// null, then true. No operands means true at every row.
func evalAnd(n *expr.And, t *table.Table) (*table.Column, error) {
	cols, err := evalBoolOperands(n.Operands, t, "and")
	if err != nil {
		return nil, err
	}
	out := table.NewColumn("", table.TypeBoolean, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		result := true
		null := false
		for _, c := range cols {
			if c.IsNull(i) {
				null = true
				continue
			}
			if !c.Values[i].(bool) {
				result = false
				null = false
				break
			}
		}
		switch {
		case !result:
			out.Append(false)
		case null:
			out.AppendNull()
		default:
			out.Append(true)
		}
	}
	return out, nil
}

// evalOr folds operands with SQL three-valued OR: true dominates, then null,
// then false. No operands means false at every row.
func evalOr(n *expr.Or, t *table.Table) (*table.Column, error) {
	cols, err := evalBoolOperands(n.Operands, t, "or")
	if err != nil {
		return nil, err
	}
	out := table.NewColumn("", table.TypeBoolean, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		result := false
		null := false
		for _, c := range cols {
			if c.IsNull(i) {
				null = true
				continue
			}
			if c.Values[i].(bool) {
				result = true
				null = false
				break
			}
		}
		switch {
		case result:
			out.Append(true)
		case null:
			out.AppendNull()
		default:
			out.Append(false)
		}
	}
	return out, nil
}

func evalBoolOperands(operands []expr.Expr, t *table.Table, op string) ([]*table.Column, error) {
	cols, err := evalOperands(operands, t)
	if err != nil {
		return nil, err
	}
	for i, c := range cols {
		if c.Type != table.TypeBoolean {
			return nil, &table.UnsupportedOperandError{
				Op:     op,
				Reason: fmt.Sprintf("operand %d must be boolean, got %s", i, c.Type),
			}
		}
	}
	return cols, nil
}

func evalNot(n *expr.Not, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	if in.Type != table.TypeBoolean {
		return nil, &table.UnsupportedOperandError{
			Op:     "not",
			Reason: fmt.Sprintf("operand must be boolean, got %s", in.Type),
		}
	}
	out := table.NewColumn("", table.TypeBoolean, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) {
			out.AppendNull()
			continue
		}
		out.Append(!in.Values[i].(bool))
	}
	return out, nil
}

// evalIsNA tests null markers; the result never carries nulls itself.
func evalIsNA(value expr.Expr, t *table.Table, wantNull bool) (*table.Column, error) {
	in, err := Evaluate(value, t)
	if err != nil {
		return nil, err
	}
	out := table.NewColumn("", table.TypeBoolean, in.Len())
	for i := 0; i < in.Len(); i++ {
		out.Append(in.IsNull(i) == wantNull)
	}
	return out, nil
}

func evalFillNA(n *expr.FillNA, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	fill, err := Evaluate(n.Fill, t)
	if err != nil {
		return nil, err
	}
	outType := in.Type
	if p, ok := table.Promote(in.Type, fill.Type); ok {
		outType = p
	}
	out := table.NewColumn("", outType, in.Len())
	for i := 0; i < in.Len(); i++ {
		if !in.IsNull(i) {
			out.Append(normalizeTo(in.Values[i], outType))
			continue
		}
		if fill.IsNull(i) {
			out.AppendNull()
			continue
		}
		out.Append(normalizeTo(fill.Values[i], outType))
	}
	return out, nil
}

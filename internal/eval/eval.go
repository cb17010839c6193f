// Package eval evaluates expression trees into columns against an in-memory
// table. Evaluation is deterministic and side-effect free; every operator
// propagates nulls row-wise except the null-aware operators and boolean
// AND/OR, which follow SQL three-valued logic.
package eval

import (
	"fmt"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// Evaluate computes one expression against a table and returns the resulting
// column. The column is unnamed; callers alias it.
func Evaluate(e expr.Expr, t *table.Table) (*table.Column, error) {
	switch n := e.(type) {
	case *expr.ColumnRef:
		c, err := t.Column(n.Name)
		if err != nil {
			return nil, err
		}
		return c, nil

	case *expr.Const:
		return constColumn(n.Value, t.NumRows()), nil

	case *expr.Comparison:
		return evalComparison(n, t)

	case *expr.Arithmetic:
		return evalArithmetic(n, t)

	case *expr.UnaryArithmetic:
		return evalUnary(n, t)

	case *expr.And:
		return evalAnd(n, t)

	case *expr.Or:
		return evalOr(n, t)

	case *expr.Not:
		return evalNot(n, t)

	case *expr.IsNA:
		return evalIsNA(n.Value, t, true)

	case *expr.IsNotNA:
		return evalIsNA(n.Value, t, false)

	case *expr.FillNA:
		return evalFillNA(n, t)

	case *expr.MinHorizontal:
		return evalHorizontal(n.Operands, t, -1, "min")

	case *expr.MaxHorizontal:
		return evalHorizontal(n.Operands, t, 1, "max")

	case *expr.Cast:
		return evalCast(n, t)

	case *expr.StringJoin:
		return evalStringJoin(n, t)

	case *expr.ToUpper:
		return evalStringUnary(n.Value, t, "to_upper")

	case *expr.ToLower:
		return evalStringUnary(n.Value, t, "to_lower")

	case *expr.StrLen:
		return evalStrLen(n, t)

	case *expr.Substring:
		return evalSubstring(n, t)

	case *expr.StringReplace:
		return evalReplace(n, t)

	case *expr.StrContains:
		return evalContains(n, t)

	case *expr.StartsWith:
		return evalAffix(n.Value, n.Prefix, t, true)

	case *expr.EndsWith:
		return evalAffix(n.Value, n.Suffix, t, false)

	case *expr.CountMatches:
		return evalCountMatches(n, t)

	case *expr.StrExtract:
		return evalExtract(n, t)

	case *expr.ContainsAny:
		return evalContainsAny(n, t)

	case *expr.Hash:
		return evalHash(n, t)

	case *expr.WhenThenOtherwise:
		return evalConditional(n, t)

	case *expr.Rank:
		return evalRank(n, t)

	case *expr.Cumsum:
		return evalCumsum(n, t)

	case *expr.WindowAgg:
		return evalWindowAgg(n, t)

	case *expr.StructField:
		return evalStructField(n, t)

	case *expr.StringDistance:
		return evalStringDistance(n, t)

	case *expr.FuzzyStringFilter:
		return evalFuzzyFilter(n, t)
	}

	return nil, fmt.Errorf("unhandled expression node %T", e)
}

// EvaluateBool evaluates a predicate expression and checks the result is
// boolean-typed, as required by filter conditions and join predicates.
func EvaluateBool(e expr.Expr, t *table.Table) (*table.Column, error) {
	c, err := Evaluate(e, t)
	if err != nil {
		return nil, err
	}
	if c.Type != table.TypeBoolean {
		return nil, &table.UnsupportedOperandError{
			Op:     e.Kind(),
			Reason: fmt.Sprintf("condition must be boolean, got %s", c.Type),
		}
	}
	return c, nil
}

// constColumn broadcasts a literal to a column of n rows.
func constColumn(v any, n int) *table.Column {
	c := table.NewColumn("", constType(v), n)
	for i := 0; i < n; i++ {
		c.AppendMaybe(v)
	}
	return c
}

func constType(v any) table.Type {
	switch v.(type) {
	case int64:
		return table.TypeInt64
	case float64:
		return table.TypeFloat64
	case bool:
		return table.TypeBoolean
	case string:
		return table.TypeString
	case map[string]any:
		return table.TypeStruct
	}
	// Untyped null literal; the type only matters when the column carries
	// values.
	return table.TypeString
}

// evalOperands evaluates a list of sub-expressions against the same table.
func evalOperands(operands []expr.Expr, t *table.Table) ([]*table.Column, error) {
	cols := make([]*table.Column, len(operands))
	for i, op := range operands {
		c, err := Evaluate(op, t)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

package eval

import (
	"fmt"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// evalConditional walks the when/then clauses in declared order per row; the
// first clause whose condition is true wins. A null condition counts as
// false, letting the row fall through. Rows matching no clause take the
// otherwise value, or null when none was given.
func evalConditional(n *expr.WhenThenOtherwise, t *table.Table) (*table.Column, error) {
	whens := make([]*table.Column, len(n.Clauses))
	thens := make([]*table.Column, len(n.Clauses))
	for i, clause := range n.Clauses {
		w, err := Evaluate(clause.When, t)
		if err != nil {
			return nil, err
		}
		if w.Type != table.TypeBoolean {
			return nil, &table.UnsupportedOperandError{
				Op:     "when_then_otherwise",
				Reason: fmt.Sprintf("when clause %d must be boolean, got %s", i, w.Type),
			}
		}
		th, err := Evaluate(clause.Then, t)
		if err != nil {
			return nil, err
		}
		whens[i] = w
		thens[i] = th
	}
	var otherwise *table.Column
	if n.Otherwise != nil {
		var err error
		if otherwise, err = Evaluate(n.Otherwise, t); err != nil {
			return nil, err
		}
	}

	outType := conditionalType(thens, otherwise)
	out := table.NewColumn("", outType, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		matched := false
		for j := range n.Clauses {
			if whens[j].IsNull(i) || !whens[j].Values[i].(bool) {
				continue
			}
			if thens[j].IsNull(i) {
				out.AppendNull()
			} else {
				out.Append(normalizeTo(thens[j].Values[i], outType))
			}
			matched = true
			break
		}
		if matched {
			continue
		}
		if otherwise == nil || otherwise.IsNull(i) {
			out.AppendNull()
			continue
		}
		out.Append(normalizeTo(otherwise.Values[i], outType))
	}
	return out, nil
}

// conditionalType resolves the output type across all branches, widening
// numerics when they disagree.
func conditionalType(thens []*table.Column, otherwise *table.Column) table.Type {
	var outType table.Type
	consider := func(t table.Type) {
		if outType == "" {
			outType = t
			return
		}
		if p, ok := table.Promote(outType, t); ok {
			outType = p
		}
	}
	for _, th := range thens {
		consider(th.Type)
	}
	if otherwise != nil {
		consider(otherwise.Type)
	}
	if outType == "" {
		outType = table.TypeString
	}
	return outType
}

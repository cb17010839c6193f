package steps

import (
	"context"
	"log/slog"

	"github.com/leengari/tabflow/internal/table"
)

// ConcatenateStep vertically stacks the input tables, in the order listed,
// into one output table. The tables must share an identical column-name set;
// columns of the same name with different numeric types are promoted to a
// common type, any other type disagreement is a schema mismatch.
type ConcatenateStep struct {
	InputTables []string
	OutputTable string
}

func (*ConcatenateStep) Kind() string { return "concatenate" }

func (s *ConcatenateStep) Execute(ctx context.Context, env *Env) error {
	inputs := make([]*table.Table, len(s.InputTables))
	for i, name := range s.InputTables {
		t, err := env.TS.Get(name)
		if err != nil {
			return err
		}
		inputs[i] = t
	}
	if len(inputs) == 0 {
		env.TS.Put(s.OutputTable, table.New(s.OutputTable))
		return nil
	}

	first := inputs[0]
	types := make(map[string]table.Type, first.NumColumns())
	for _, c := range first.Columns {
		types[c.Name] = c.Type
	}
	for i, t := range inputs[1:] {
		if err := checkConcatSchema(s.InputTables[i+1], t, types); err != nil {
			return err
		}
	}

	out := table.New(s.OutputTable)
	totalRows := 0
	for _, t := range inputs {
		totalRows += t.NumRows()
	}
	for _, c := range first.Columns {
		merged := table.NewColumn(c.Name, types[c.Name], totalRows)
		for _, t := range inputs {
			src, err := t.Column(c.Name)
			if err != nil {
				return err
			}
			appendPromoted(merged, src)
		}
		if err := out.AddColumn(merged); err != nil {
			return err
		}
	}

	slog.Debug("Concatenation completed",
		slog.String("output_table", s.OutputTable),
		slog.Int("input_tables", len(inputs)),
		slog.Int("rows", out.NumRows()),
	)
	env.TS.Put(s.OutputTable, out)
	return nil
}

// checkConcatSchema verifies the table's column-name set matches the
// reference exactly and widens the recorded type where numeric promotion
// permits.
func checkConcatSchema(name string, t *table.Table, types map[string]table.Type) error {
	if t.NumColumns() != len(types) {
		return table.NewSchemaMismatch(name, "column sets differ")
	}
	for _, c := range t.Columns {
		want, ok := types[c.Name]
		if !ok {
			return table.NewSchemaMismatch(name, "unexpected column "+c.Name)
		}
		if want == c.Type {
			continue
		}
		p, ok := table.Promote(want, c.Type)
		if !ok {
			return table.NewSchemaMismatch(name,
				"column "+c.Name+" has type "+string(c.Type)+", want "+string(want))
		}
		types[c.Name] = p
	}
	return nil
}

// appendPromoted appends src's cells to dst, widening integers when the
// merged column promoted to a float type.
func appendPromoted(dst, src *table.Column) {
	for i := 0; i < src.Len(); i++ {
		if src.IsNull(i) {
			dst.AppendNull()
			continue
		}
		v := src.Values[i]
		if n, ok := v.(int64); ok && dst.Type.IsFloat() {
			v = float64(n)
		}
		dst.Append(v)
	}
}

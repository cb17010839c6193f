package steps

import (
	"context"
	"log/slog"

	"github.com/leengari/tabflow/internal/eval"
	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// ColumnDefinition names one computed column.
type ColumnDefinition struct {
	Name       string
	Expression expr.Expr
}

// FilterStep keeps the rows of the input table where the condition is true.
// Null condition rows are dropped, like SQL WHERE.
type FilterStep struct {
	InputTable  string
	OutputTable string
	Condition   expr.Expr
}

func (*FilterStep) Kind() string { return "filter" }

func (s *FilterStep) Execute(ctx context.Context, env *Env) error {
	in, err := env.TS.Get(s.InputTable)
	if err != nil {
		return err
	}
	cond, err := eval.EvaluateBool(s.Condition, in)
	if err != nil {
		return err
	}
	keep := make([]int, 0, in.NumRows())
	for i := 0; i < in.NumRows(); i++ {
		if !cond.IsNull(i) && cond.Values[i].(bool) {
			keep = append(keep, i)
		}
	}
	out := in.Gather(s.OutputTable, keep)
	slog.Debug("Filter applied",
		slog.String("input_table", s.InputTable),
		slog.String("output_table", s.OutputTable),
		slog.Int("input_rows", in.NumRows()),
		slog.Int("output_rows", out.NumRows()),
	)
	env.TS.Put(s.OutputTable, out)
	return nil
}

// AddColumnsStep computes new columns and adds them to the named table in
// place, the only in-place step family. Either every column is added or the
// table is left as it was.
type AddColumnsStep struct {
	Table   string
	Columns []ColumnDefinition
}

func (*AddColumnsStep) Kind() string { return "add_columns" }

func (s *AddColumnsStep) Execute(ctx context.Context, env *Env) error {
	return env.TS.Mutate(s.Table, func(t *table.Table) error {
		for _, def := range s.Columns {
			c, err := eval.Evaluate(def.Expression, t)
			if err != nil {
				return err
			}
			if err := t.ReplaceColumn(c.Rename(def.Name)); err != nil {
				return err
			}
		}
		slog.Debug("Columns added",
			slog.String("table", s.Table),
			slog.Int("columns", len(s.Columns)),
		)
		return nil
	})
}

// WithColumnsStep copies the input table and adds the computed columns to the
// copy, leaving the input untouched.
type WithColumnsStep struct {
	InputTable  string
	OutputTable string
	Columns     []ColumnDefinition
}

func (*WithColumnsStep) Kind() string { return "with_columns" }

func (s *WithColumnsStep) Execute(ctx context.Context, env *Env) error {
	in, err := env.TS.Get(s.InputTable)
	if err != nil {
		return err
	}
	out := in.Clone(s.OutputTable)
	for _, def := range s.Columns {
		c, err := eval.Evaluate(def.Expression, out)
		if err != nil {
			return err
		}
		if err := out.ReplaceColumn(c.Rename(def.Name)); err != nil {
			return err
		}
	}
	env.TS.Put(s.OutputTable, out)
	return nil
}

// SelectColumn is one output column of a select step: either an existing
// column kept by name, or a computed expression under a new name.
type SelectColumn struct {
	Name       string
	Expression expr.Expr // nil keeps the existing column Name
}

// SelectStep builds the output table from the listed columns only, in the
// listed order.
type SelectStep struct {
	InputTable  string
	OutputTable string
	Columns     []SelectColumn
}

func (*SelectStep) Kind() string { return "select" }

func (s *SelectStep) Execute(ctx context.Context, env *Env) error {
	in, err := env.TS.Get(s.InputTable)
	if err != nil {
		return err
	}
	out := table.New(s.OutputTable)
	for _, sc := range s.Columns {
		var c *table.Column
		if sc.Expression == nil {
			if c, err = in.Column(sc.Name); err != nil {
				return err
			}
		} else if c, err = eval.Evaluate(sc.Expression, in); err != nil {
			return err
		}
		if err := out.AddColumn(c.Rename(sc.Name)); err != nil {
			return err
		}
	}
	env.TS.Put(s.OutputTable, out)
	return nil
}

// WithoutColumnsStep copies the input table minus the named columns.
type WithoutColumnsStep struct {
	InputTable  string
	OutputTable string
	Columns     []string
}

func (*WithoutColumnsStep) Kind() string { return "without_columns" }

func (s *WithoutColumnsStep) Execute(ctx context.Context, env *Env) error {
	in, err := env.TS.Get(s.InputTable)
	if err != nil {
		return err
	}
	out, err := in.Drop(s.OutputTable, s.Columns)
	if err != nil {
		return err
	}
	env.TS.Put(s.OutputTable, out)
	return nil
}

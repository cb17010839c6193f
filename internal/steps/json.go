package steps

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// DecodeStep parses one workflow step from its document form: an object with
// a "type" discriminator and camelCase, tag-specific fields.
func DecodeStep(data []byte) (Step, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("step is not an object: %w", err)
	}
	tagRaw, ok := raw["type"]
	if !ok {
		return nil, fmt.Errorf("step has no \"type\" field")
	}
	var tag string
	if err := json.Unmarshal(tagRaw, &tag); err != nil {
		return nil, fmt.Errorf("step \"type\" is not a string: %w", err)
	}
	step, err := decodeStepTagged(tag, raw)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", tag, err)
	}
	return step, nil
}

func decodeStepTagged(tag string, raw map[string]json.RawMessage) (Step, error) {
	switch tag {
	case "read_csv":
		return decodeReadCSV(raw)
	case "read_ndjson":
		return decodeReadNDJSON(raw)
	case "write_csv":
		return decodeWriteCSV(raw)
	case "write_json", "write_ndjson":
		return decodeWriteNDJSON(tag, raw)
	case "filter":
		return decodeFilter(raw)
	case "add_columns":
		return decodeAddColumns(raw)
	case "with_columns":
		return decodeWithColumns(raw)
	case "select":
		return decodeSelect(raw)
	case "without_columns":
		return decodeWithoutColumns(raw)
	case "aggregate":
		return decodeAggregate(raw)
	case "join":
		return decodeJoin(raw)
	case "concatenate":
		return decodeConcatenate(raw)
	case "sort":
		return decodeSort(raw)
	}
	return nil, fmt.Errorf("unknown step type")
}

func decodeReadCSV(raw map[string]json.RawMessage) (Step, error) {
	s := &ReadCSVStep{}
	var err error
	if s.File, err = stepString(raw, "file"); err != nil {
		return nil, err
	}
	if s.Name, err = stepString(raw, "name"); err != nil {
		return nil, err
	}
	if err := stepOptInto(raw, "delimiter", &s.Options.Delimiter); err != nil {
		return nil, err
	}
	if err := stepOptInto(raw, "columns", &s.Options.Columns); err != nil {
		return nil, err
	}
	if err := stepOptInto(raw, "schema", &s.Options.Schema); err != nil {
		return nil, err
	}
	for i, cs := range s.Options.Schema {
		if cs.Type == "" {
			continue
		}
		t, ok := table.ParseType(string(cs.Type))
		if !ok {
			return nil, fmt.Errorf("schema column %q: unknown type %q", cs.Column, cs.Type)
		}
		s.Options.Schema[i].Type = t
	}
	// header defaults to true; inferSchema defaults to true.
	if header, present, err := stepOptBool(raw, "header"); err != nil {
		return nil, err
	} else if present {
		s.Options.NoHeader = !header
	}
	if infer, present, err := stepOptBool(raw, "inferSchema"); err != nil {
		return nil, err
	} else if present {
		s.Options.NoInference = !infer
	}
	if err := stepOptInto(raw, "nRows", &s.Options.NRows); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeReadNDJSON(raw map[string]json.RawMessage) (Step, error) {
	s := &ReadNDJSONStep{}
	var err error
	if s.File, err = stepString(raw, "file"); err != nil {
		return nil, err
	}
	if s.Name, err = stepString(raw, "name"); err != nil {
		return nil, err
	}
	if err := stepOptInto(raw, "nRows", &s.Options.NRows); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeWriteCSV(raw map[string]json.RawMessage) (Step, error) {
	s := &WriteCSVStep{}
	var err error
	if s.Table, err = stepString(raw, "table"); err != nil {
		return nil, err
	}
	if s.File, err = stepString(raw, "file"); err != nil {
		return nil, err
	}
	if err := stepOptInto(raw, "columns", &s.Options.Columns); err != nil {
		return nil, err
	}
	if err := stepOptInto(raw, "delimiter", &s.Options.Delimiter); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeWriteNDJSON(tag string, raw map[string]json.RawMessage) (Step, error) {
	s := &WriteNDJSONStep{Tag: tag}
	var err error
	if s.Table, err = stepString(raw, "table"); err != nil {
		return nil, err
	}
	if s.File, err = stepString(raw, "file"); err != nil {
		return nil, err
	}
	if err := stepOptInto(raw, "columns", &s.Options.Columns); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeFilter(raw map[string]json.RawMessage) (Step, error) {
	s := &FilterStep{}
	var err error
	if s.InputTable, err = stepString(raw, "inputTable"); err != nil {
		return nil, err
	}
	if s.OutputTable, err = stepString(raw, "outputTable"); err != nil {
		return nil, err
	}
	if s.Condition, err = stepExpr(raw, "condition"); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeAddColumns(raw map[string]json.RawMessage) (Step, error) {
	s := &AddColumnsStep{}
	var err error
	if s.Table, err = stepString(raw, "table"); err != nil {
		return nil, err
	}
	if s.Columns, err = stepColumnDefs(raw, "columns"); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeWithColumns(raw map[string]json.RawMessage) (Step, error) {
	s := &WithColumnsStep{}
	var err error
	if s.InputTable, err = stepString(raw, "inputTable"); err != nil {
		return nil, err
	}
	if s.OutputTable, err = stepString(raw, "outputTable"); err != nil {
		return nil, err
	}
	if s.Columns, err = stepColumnDefs(raw, "columns"); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeSelect(raw map[string]json.RawMessage) (Step, error) {
	s := &SelectStep{}
	var err error
	if s.InputTable, err = stepString(raw, "inputTable"); err != nil {
		return nil, err
	}
	if s.OutputTable, err = stepString(raw, "outputTable"); err != nil {
		return nil, err
	}
	if s.Columns, err = stepSelectColumns(raw, "columns"); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeWithoutColumns(raw map[string]json.RawMessage) (Step, error) {
	s := &WithoutColumnsStep{}
	var err error
	if s.InputTable, err = stepString(raw, "inputTable"); err != nil {
		return nil, err
	}
	if s.OutputTable, err = stepString(raw, "outputTable"); err != nil {
		return nil, err
	}
	if err := stepOptInto(raw, "columns", &s.Columns); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeAggregate(raw map[string]json.RawMessage) (Step, error) {
	s := &AggregateStep{}
	var err error
	if s.InputTable, err = stepString(raw, "inputTable"); err != nil {
		return nil, err
	}
	if s.OutputTable, err = stepString(raw, "outputTable"); err != nil {
		return nil, err
	}
	if _, ok := raw["groupBy"]; ok {
		if s.GroupBy, err = stepSelectColumns(raw, "groupBy"); err != nil {
			return nil, err
		}
	}
	var aggsRaw []map[string]json.RawMessage
	if err := stepOptInto(raw, "aggregations", &aggsRaw); err != nil {
		return nil, err
	}
	for i, ar := range aggsRaw {
		var agg Aggregation
		if agg.Name, err = stepString(ar, "name"); err != nil {
			return nil, fmt.Errorf("aggregation %d: %w", i, err)
		}
		fn, err := stepString(ar, "aggregation")
		if err != nil {
			return nil, fmt.Errorf("aggregation %d: %w", i, err)
		}
		agg.Func = expr.AggFunc(fn)
		if agg.Expression, err = stepExpr(ar, "expression"); err != nil {
			return nil, fmt.Errorf("aggregation %q: %w", agg.Name, err)
		}
		if _, ok := ar["by"]; ok {
			if agg.By, err = stepExpr(ar, "by"); err != nil {
				return nil, fmt.Errorf("aggregation %q: %w", agg.Name, err)
			}
		}
		s.Aggregations = append(s.Aggregations, agg)
	}
	return s, nil
}

func decodeJoin(raw map[string]json.RawMessage) (Step, error) {
	s := &JoinStep{}
	var err error
	if s.LeftTable, err = stepString(raw, "leftTable"); err != nil {
		return nil, err
	}
	if s.RightTable, err = stepString(raw, "rightTable"); err != nil {
		return nil, err
	}
	if s.OutputTable, err = stepString(raw, "outputTable"); err != nil {
		return nil, err
	}
	how, err := stepString(raw, "how")
	if err != nil {
		return nil, err
	}
	switch JoinHow(how) {
	case JoinInner, JoinLeft, JoinRight, JoinFull, JoinCross:
		s.How = JoinHow(how)
	case "full":
		// Accepted alias for outer.
		s.How = JoinFull
	default:
		return nil, fmt.Errorf("unknown join flavor %q", how)
	}
	if s.LeftOn, err = stepKeyList(raw, "leftOn"); err != nil {
		return nil, err
	}
	if s.RightOn, err = stepKeyList(raw, "rightOn"); err != nil {
		return nil, err
	}
	if err := stepOptInto(raw, "leftColumns", &s.LeftColumns); err != nil {
		return nil, err
	}
	if err := stepOptInto(raw, "rightColumns", &s.RightColumns); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeConcatenate(raw map[string]json.RawMessage) (Step, error) {
	s := &ConcatenateStep{}
	if err := stepOptInto(raw, "inputTables", &s.InputTables); err != nil {
		return nil, err
	}
	var err error
	if s.OutputTable, err = stepString(raw, "outputTable"); err != nil {
		return nil, err
	}
	if len(s.InputTables) == 0 {
		return nil, fmt.Errorf("needs at least one input table")
	}
	return s, nil
}

func decodeSort(raw map[string]json.RawMessage) (Step, error) {
	s := &SortStep{}
	var err error
	if s.InputTable, err = stepString(raw, "inputTable"); err != nil {
		return nil, err
	}
	if s.OutputTable, err = stepString(raw, "outputTable"); err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := stepOptInto(raw, "by", &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("needs at least one sort key")
	}
	for i, item := range items {
		key, err := decodeSortKey(item)
		if err != nil {
			return nil, fmt.Errorf("sort key %d: %w", i, err)
		}
		s.By = append(s.By, key)
	}
	return s, nil
}

// decodeSortKey accepts a bare column name or a {value, descending,
// nullsLast} object.
func decodeSortKey(data json.RawMessage) (SortKey, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("\"")) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return SortKey{}, err
		}
		return SortKey{Expression: &expr.ColumnRef{Name: name}}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return SortKey{}, err
	}
	key := SortKey{}
	var err error
	if key.Expression, err = stepKey(raw, "value"); err != nil {
		return SortKey{}, err
	}
	if key.Descending, _, err = stepOptBool(raw, "descending"); err != nil {
		return SortKey{}, err
	}
	if key.NullsLast, _, err = stepOptBool(raw, "nullsLast"); err != nil {
		return SortKey{}, err
	}
	return key, nil
}

// --- field helpers ---

func stepString(raw map[string]json.RawMessage, key string) (string, error) {
	r, ok := raw[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	var s string
	if err := json.Unmarshal(r, &s); err != nil {
		return "", fmt.Errorf("field %q: %w", key, err)
	}
	return s, nil
}

func stepOptInto(raw map[string]json.RawMessage, key string, out any) error {
	r, ok := raw[key]
	if !ok || string(bytes.TrimSpace(r)) == "null" {
		return nil
	}
	if err := json.Unmarshal(r, out); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

func stepOptBool(raw map[string]json.RawMessage, key string) (value, present bool, err error) {
	r, ok := raw[key]
	if !ok || string(bytes.TrimSpace(r)) == "null" {
		return false, false, nil
	}
	if err := json.Unmarshal(r, &value); err != nil {
		return false, false, fmt.Errorf("field %q: %w", key, err)
	}
	return value, true, nil
}

func stepExpr(raw map[string]json.RawMessage, key string) (expr.Expr, error) {
	r, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	e, err := expr.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return e, nil
}

// stepKey accepts a bare column name or a nested expression.
func stepKey(raw map[string]json.RawMessage, key string) (expr.Expr, error) {
	r, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	return decodeKey(r)
}

func decodeKey(data json.RawMessage) (expr.Expr, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("\"")) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return nil, err
		}
		return &expr.ColumnRef{Name: name}, nil
	}
	return expr.Decode(data)
}

// stepKeyList accepts a list of column names or expressions.
func stepKeyList(raw map[string]json.RawMessage, key string) ([]expr.Expr, error) {
	r, ok := raw[key]
	if !ok || string(bytes.TrimSpace(r)) == "null" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(r, &items); err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	out := make([]expr.Expr, 0, len(items))
	for i, item := range items {
		e, err := decodeKey(item)
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func stepColumnDefs(raw map[string]json.RawMessage, key string) ([]ColumnDefinition, error) {
	var items []map[string]json.RawMessage
	if err := stepOptInto(raw, key, &items); err != nil {
		return nil, err
	}
	defs := make([]ColumnDefinition, 0, len(items))
	for i, item := range items {
		name, err := stepString(item, "name")
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		e, err := stepExpr(item, "expression")
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		defs = append(defs, ColumnDefinition{Name: name, Expression: e})
	}
	return defs, nil
}

// stepSelectColumns accepts a list mixing bare column names and {name,
// expression} objects.
func stepSelectColumns(raw map[string]json.RawMessage, key string) ([]SelectColumn, error) {
	var items []json.RawMessage
	if err := stepOptInto(raw, key, &items); err != nil {
		return nil, err
	}
	cols := make([]SelectColumn, 0, len(items))
	for i, item := range items {
		trimmed := bytes.TrimSpace(item)
		if bytes.HasPrefix(trimmed, []byte("\"")) {
			var name string
			if err := json.Unmarshal(item, &name); err != nil {
				return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
			}
			cols = append(cols, SelectColumn{Name: name})
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
		}
		name, err := stepString(obj, "name")
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
		}
		sc := SelectColumn{Name: name}
		if _, ok := obj["expression"]; ok {
			if sc.Expression, err = stepExpr(obj, "expression"); err != nil {
				return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
			}
		}
		cols = append(cols, sc)
	}
	return cols, nil
}

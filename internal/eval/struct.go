package eval

import (
	"encoding/json"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// evalStructField descends into struct cells along the field path. A missing
// intermediate structure or leaf yields null (or the per-row default), never
// an error. The optional target type applies a non-strict cast to the
// extracted value.
func evalStructField(n *expr.StructField, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Struct, t)
	if err != nil {
		return nil, err
	}
	var def *table.Column
	if n.Default != nil {
		if def, err = Evaluate(n.Default, t); err != nil {
			return nil, err
		}
	}
	values := make([]any, in.Len())
	for i := 0; i < in.Len(); i++ {
		v, ok := descend(in.Value(i), n.Fields)
		if !ok || v == nil {
			if def != nil && !def.IsNull(i) {
				values[i] = def.Values[i]
			}
			continue
		}
		v = normalizeJSONValue(v)
		if n.To != "" {
			cast, err := CastValue(v, n.To)
			if err != nil {
				continue
			}
			v = cast
		}
		values[i] = v
	}
	out := table.NewColumn("", structFieldType(n, def, values), in.Len())
	for _, v := range values {
		out.AppendMaybe(normalizeTo(v, out.Type))
	}
	return out, nil
}

// structFieldType resolves the output type: the requested cast type when
// given, else the default's type, else the type of the first extracted
// value, else String for an all-null result.
func structFieldType(n *expr.StructField, def *table.Column, values []any) table.Type {
	if n.To != "" {
		return n.To
	}
	var out table.Type
	for _, v := range values {
		if v == nil {
			continue
		}
		t := constType(v)
		if out == "" {
			out = t
			continue
		}
		if p, ok := table.Promote(out, t); ok {
			out = p
		}
	}
	if out != "" {
		return out
	}
	if def != nil {
		return def.Type
	}
	return table.TypeString
}

// descend walks nested maps along the field path.
func descend(v any, fields []string) (any, bool) {
	for _, f := range fields {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = m[f]; !ok {
			return nil, false
		}
	}
	return v, true
}

// normalizeJSONValue maps values that arrived through JSON decoding onto the
// runtime cell representation.
func normalizeJSONValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case float64:
		// Integral JSON numbers stay integers, matching the CSV reader's
		// inference.
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	}
	return v
}

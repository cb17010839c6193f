package expr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leengari/tabflow/internal/table"
)

// Decode parses one expression node from its workflow-document form: an
// object with a "type" discriminator and camelCase, tag-specific fields.
func Decode(data []byte) (Expr, error) {
	var raw map[string]json.RawMessage
	if err := unmarshalStrictNumbers(data, &raw); err != nil {
		return nil, fmt.Errorf("expression is not an object: %w", err)
	}
	tagRaw, ok := raw["type"]
	if !ok {
		return nil, fmt.Errorf("expression has no \"type\" field")
	}
	var tag string
	if err := json.Unmarshal(tagRaw, &tag); err != nil {
		return nil, fmt.Errorf("expression \"type\" is not a string: %w", err)
	}
	node, err := decodeTagged(tag, raw)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", tag, err)
	}
	return node, nil
}

func decodeTagged(tag string, raw map[string]json.RawMessage) (Expr, error) {
	switch tag {
	case "col":
		name, err := fieldString(raw, "name")
		if err != nil {
			return nil, err
		}
		return &ColumnRef{Name: name}, nil

	case "const":
		v, err := fieldConst(raw, "value")
		if err != nil {
			return nil, err
		}
		return &Const{Value: v}, nil

	case "gt", "ge", "eq", "lt", "le", "neq":
		lhs, rhs, err := fieldPair(raw)
		if err != nil {
			return nil, err
		}
		return &Comparison{Op: CompareOp(tag), LHS: lhs, RHS: rhs}, nil

	case "plus", "multiply", "truediv", "floordiv":
		lhs, rhs, err := fieldPair(raw)
		if err != nil {
			return nil, err
		}
		return &Arithmetic{Op: ArithmeticOp(tag), LHS: lhs, RHS: rhs}, nil

	case "minus":
		// The document tags binary and unary minus identically; the payload
		// disambiguates.
		if _, hasLHS := raw["lhs"]; hasLHS {
			lhs, rhs, err := fieldPair(raw)
			if err != nil {
				return nil, err
			}
			return &Arithmetic{Op: OpMinus, LHS: lhs, RHS: rhs}, nil
		}
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		return &UnaryArithmetic{Op: OpNegate, Value: v}, nil

	case "log10", "log", "log2", "abs", "sqrt":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		return &UnaryArithmetic{Op: UnaryOp(tag), Value: v}, nil

	case "and":
		ops, err := fieldExprList(raw, "operands")
		if err != nil {
			return nil, err
		}
		return &And{Operands: ops}, nil

	case "or":
		ops, err := fieldExprList(raw, "operands")
		if err != nil {
			return nil, err
		}
		return &Or{Operands: ops}, nil

	case "not":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		return &Not{Value: v}, nil

	case "is_na":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		return &IsNA{Value: v}, nil

	case "is_not_na":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		return &IsNotNA{Value: v}, nil

	case "fill_na":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		fill, err := fieldExpr(raw, "fill")
		if err != nil {
			return nil, err
		}
		return &FillNA{Value: v, Fill: fill}, nil

	case "min":
		ops, err := fieldExprList(raw, "operands")
		if err != nil {
			return nil, err
		}
		return &MinHorizontal{Operands: ops}, nil

	case "max":
		ops, err := fieldExprList(raw, "operands")
		if err != nil {
			return nil, err
		}
		return &MaxHorizontal{Operands: ops}, nil

	case "str_join":
		ops, err := fieldExprList(raw, "operands")
		if err != nil {
			return nil, err
		}
		delim, _, err := optString(raw, "delimiter")
		if err != nil {
			return nil, err
		}
		return &StringJoin{Operands: ops, Delimiter: delim}, nil

	case "to_upper":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		return &ToUpper{Value: v}, nil

	case "to_lower":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		return &ToLower{Value: v}, nil

	case "str_len":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		return &StrLen{Value: v}, nil

	case "substring":
		return decodeSubstring(raw)

	case "str_replace":
		return decodeReplace(raw)

	case "str_contains":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		pat, err := fieldExprOrString(raw, "pattern")
		if err != nil {
			return nil, err
		}
		literal, err := optBool(raw, "literal")
		if err != nil {
			return nil, err
		}
		return &StrContains{Value: v, Pattern: pat, Literal: literal}, nil

	case "starts_with":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		prefix, err := fieldExprOrString(raw, "prefix")
		if err != nil {
			return nil, err
		}
		return &StartsWith{Value: v, Prefix: prefix}, nil

	case "ends_with":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		suffix, err := fieldExprOrString(raw, "suffix")
		if err != nil {
			return nil, err
		}
		return &EndsWith{Value: v, Suffix: suffix}, nil

	case "count_matches":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		pat, err := fieldExprOrString(raw, "pattern")
		if err != nil {
			return nil, err
		}
		literal, err := optBool(raw, "literal")
		if err != nil {
			return nil, err
		}
		return &CountMatches{Value: v, Pattern: pat, Literal: literal}, nil

	case "str_extract":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		pat, err := fieldString(raw, "pattern")
		if err != nil {
			return nil, err
		}
		group, err := optInt(raw, "group")
		if err != nil {
			return nil, err
		}
		return &StrExtract{Value: v, Pattern: pat, Group: group}, nil

	case "contains_any":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		var patterns []string
		if err := fieldInto(raw, "patterns", &patterns); err != nil {
			return nil, err
		}
		return &ContainsAny{Value: v, Patterns: patterns}, nil

	case "hash":
		return decodeHash(raw)

	case "cast":
		return decodeCast(raw)

	case "when_then_otherwise":
		return decodeConditional(raw)

	case "rank":
		orderBy, err := fieldExprList(raw, "orderBy")
		if err != nil {
			return nil, err
		}
		partitionBy, err := optExprList(raw, "partitionBy")
		if err != nil {
			return nil, err
		}
		desc, err := optBool(raw, "descending")
		if err != nil {
			return nil, err
		}
		if len(orderBy) == 0 {
			return nil, fmt.Errorf("requires at least one orderBy expression")
		}
		return &Rank{OrderBy: orderBy, PartitionBy: partitionBy, Descending: desc}, nil

	case "cumsum":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		additional, err := optExprList(raw, "additionalOrderBy")
		if err != nil {
			return nil, err
		}
		partitionBy, err := optExprList(raw, "partitionBy")
		if err != nil {
			return nil, err
		}
		desc, err := optBool(raw, "descending")
		if err != nil {
			return nil, err
		}
		return &Cumsum{Value: v, AdditionalOrderBy: additional, PartitionBy: partitionBy, Descending: desc}, nil

	case "window":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		partitionBy, err := optExprList(raw, "partitionBy")
		if err != nil {
			return nil, err
		}
		fn, err := fieldString(raw, "aggregation")
		if err != nil {
			return nil, err
		}
		return &WindowAgg{Value: v, PartitionBy: partitionBy, Func: AggFunc(fn)}, nil

	case "struct_field":
		return decodeStructField(raw)

	case "string_distance":
		s1, err := fieldExpr(raw, "string1")
		if err != nil {
			return nil, err
		}
		s2, err := fieldExpr(raw, "string2")
		if err != nil {
			return nil, err
		}
		metric, err := fieldString(raw, "metric")
		if err != nil {
			return nil, err
		}
		sim, err := optBool(raw, "returnSimilarity")
		if err != nil {
			return nil, err
		}
		return &StringDistance{Metric: DistanceMetric(metric), String1: s1, String2: s2, ReturnSimilarity: sim}, nil

	case "fuzzy_string_filter":
		v, err := fieldExpr(raw, "value")
		if err != nil {
			return nil, err
		}
		pat, err := fieldExpr(raw, "pattern")
		if err != nil {
			return nil, err
		}
		metric, err := fieldString(raw, "metric")
		if err != nil {
			return nil, err
		}
		bound, err := optInt(raw, "bound")
		if err != nil {
			return nil, err
		}
		return &FuzzyStringFilter{Metric: DistanceMetric(metric), Value: v, Pattern: pat, Bound: bound}, nil
	}

	return nil, fmt.Errorf("unknown expression type")
}

func decodeSubstring(raw map[string]json.RawMessage) (Expr, error) {
	v, err := fieldExpr(raw, "value")
	if err != nil {
		return nil, err
	}
	start, err := fieldExprOrInt(raw, "start")
	if err != nil {
		return nil, err
	}
	var length, end Expr
	if _, ok := raw["length"]; ok {
		if length, err = fieldExprOrInt(raw, "length"); err != nil {
			return nil, err
		}
	}
	if _, ok := raw["end"]; ok {
		if end, err = fieldExprOrInt(raw, "end"); err != nil {
			return nil, err
		}
	}
	if length != nil && end != nil {
		return nil, fmt.Errorf("cannot have both \"length\" and \"end\"")
	}
	return &Substring{Value: v, Start: start, Length: length, End: end}, nil
}

func decodeReplace(raw map[string]json.RawMessage) (Expr, error) {
	v, err := fieldExpr(raw, "value")
	if err != nil {
		return nil, err
	}
	pat, err := fieldExprOrString(raw, "pattern")
	if err != nil {
		return nil, err
	}
	repl, err := fieldExprOrString(raw, "replacement")
	if err != nil {
		return nil, err
	}
	all, err := optBool(raw, "replaceAll")
	if err != nil {
		return nil, err
	}
	literal, err := optBool(raw, "literal")
	if err != nil {
		return nil, err
	}
	return &StringReplace{Value: v, Pattern: pat, Replacement: repl, ReplaceAll: all, Literal: literal}, nil
}

func decodeHash(raw map[string]json.RawMessage) (Expr, error) {
	v, err := fieldExpr(raw, "value")
	if err != nil {
		return nil, err
	}
	algo, err := fieldString(raw, "hashType")
	if err != nil {
		return nil, err
	}
	encoding, err := fieldString(raw, "encoding")
	if err != nil {
		return nil, err
	}
	bits, err := optInt(raw, "bits")
	if err != nil {
		return nil, err
	}
	switch HashAlgo(algo) {
	case HashSHA256, HashSHA512, HashMD5, HashBlake3, HashWyhash, HashXXH3, HashXXH64:
	default:
		return nil, fmt.Errorf("unknown hash type %q", algo)
	}
	switch HashEncoding(encoding) {
	case EncodingHex, EncodingB64, EncodingB64Alnum, EncodingB64AlnumUpper:
	default:
		return nil, fmt.Errorf("unknown hash encoding %q", encoding)
	}
	return &Hash{Algo: HashAlgo(algo), Encoding: HashEncoding(encoding), Bits: bits, Value: v}, nil
}

func decodeCast(raw map[string]json.RawMessage) (Expr, error) {
	v, err := fieldExpr(raw, "value")
	if err != nil {
		return nil, err
	}
	typeName, err := fieldString(raw, "dtype")
	if err != nil {
		return nil, err
	}
	to, ok := table.ParseType(typeName)
	if !ok {
		return nil, fmt.Errorf("unknown target type %q", typeName)
	}
	strict, err := optBool(raw, "strict")
	if err != nil {
		return nil, err
	}
	return &Cast{Value: v, To: to, Strict: strict}, nil
}

func decodeConditional(raw map[string]json.RawMessage) (Expr, error) {
	var clausesRaw []map[string]json.RawMessage
	if err := fieldInto(raw, "conditions", &clausesRaw); err != nil {
		return nil, err
	}
	clauses := make([]WhenThen, 0, len(clausesRaw))
	for i, cr := range clausesRaw {
		when, err := fieldExpr(cr, "when")
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		then, err := fieldExpr(cr, "then")
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		clauses = append(clauses, WhenThen{When: when, Then: then})
	}
	var otherwise Expr
	if _, ok := raw["otherwise"]; ok {
		var err error
		if otherwise, err = fieldExpr(raw, "otherwise"); err != nil {
			return nil, err
		}
	}
	return &WhenThenOtherwise{Clauses: clauses, Otherwise: otherwise}, nil
}

func decodeStructField(raw map[string]json.RawMessage) (Expr, error) {
	st, err := fieldExpr(raw, "struct")
	if err != nil {
		return nil, err
	}
	// "fields" is a single name or a path of names.
	var fields []string
	if fr, ok := raw["fields"]; ok {
		if bytes.HasPrefix(bytes.TrimSpace(fr), []byte("[")) {
			if err := json.Unmarshal(fr, &fields); err != nil {
				return nil, fmt.Errorf("field \"fields\": %w", err)
			}
		} else {
			var single string
			if err := json.Unmarshal(fr, &single); err != nil {
				return nil, fmt.Errorf("field \"fields\": %w", err)
			}
			fields = []string{single}
		}
	} else {
		return nil, fmt.Errorf("missing field \"fields\"")
	}
	var def Expr
	if _, ok := raw["default"]; ok {
		if def, err = fieldExpr(raw, "default"); err != nil {
			return nil, err
		}
	}
	var to table.Type
	if name, ok, err := optString(raw, "dtype"); err != nil {
		return nil, err
	} else if ok {
		t, valid := table.ParseType(name)
		if !valid {
			return nil, fmt.Errorf("unknown target type %q", name)
		}
		to = t
	}
	return &StructField{Struct: st, Fields: fields, Default: def, To: to}, nil
}

// --- field helpers ---

func unmarshalStrictNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func fieldInto(raw map[string]json.RawMessage, key string, out any) error {
	r, ok := raw[key]
	if !ok {
		return fmt.Errorf("missing field %q", key)
	}
	if err := json.Unmarshal(r, out); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

func fieldString(raw map[string]json.RawMessage, key string) (string, error) {
	var s string
	if err := fieldInto(raw, key, &s); err != nil {
		return "", err
	}
	return s, nil
}

func optString(raw map[string]json.RawMessage, key string) (string, bool, error) {
	r, ok := raw[key]
	if !ok || string(bytes.TrimSpace(r)) == "null" {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(r, &s); err != nil {
		return "", false, fmt.Errorf("field %q: %w", key, err)
	}
	return s, true, nil
}

func optBool(raw map[string]json.RawMessage, key string) (bool, error) {
	r, ok := raw[key]
	if !ok || string(bytes.TrimSpace(r)) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(r, &b); err != nil {
		return false, fmt.Errorf("field %q: %w", key, err)
	}
	return b, nil
}

func optInt(raw map[string]json.RawMessage, key string) (int, error) {
	r, ok := raw[key]
	if !ok || string(bytes.TrimSpace(r)) == "null" {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(r, &n); err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return n, nil
}

func fieldExpr(raw map[string]json.RawMessage, key string) (Expr, error) {
	r, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	e, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return e, nil
}

func fieldPair(raw map[string]json.RawMessage) (Expr, Expr, error) {
	lhs, err := fieldExpr(raw, "lhs")
	if err != nil {
		return nil, nil, err
	}
	rhs, err := fieldExpr(raw, "rhs")
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

func fieldExprList(raw map[string]json.RawMessage, key string) ([]Expr, error) {
	r, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	return decodeExprList(r, key)
}

func optExprList(raw map[string]json.RawMessage, key string) ([]Expr, error) {
	r, ok := raw[key]
	if !ok || string(bytes.TrimSpace(r)) == "null" {
		return nil, nil
	}
	return decodeExprList(r, key)
}

func decodeExprList(r json.RawMessage, key string) ([]Expr, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(r, &items); err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	out := make([]Expr, 0, len(items))
	for i, item := range items {
		e, err := Decode(item)
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// fieldExprOrString accepts either a nested expression object or a bare
// string literal, which decodes as a Const.
func fieldExprOrString(raw map[string]json.RawMessage, key string) (Expr, error) {
	r, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	trimmed := bytes.TrimSpace(r)
	if bytes.HasPrefix(trimmed, []byte("\"")) {
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		return &Const{Value: s}, nil
	}
	return fieldExpr(raw, key)
}

// fieldExprOrInt accepts either a nested expression object or a bare integer
// literal.
func fieldExprOrInt(raw map[string]json.RawMessage, key string) (Expr, error) {
	r, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	trimmed := bytes.TrimSpace(r)
	if len(trimmed) > 0 && (trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9')) {
		var n int64
		if err := json.Unmarshal(r, &n); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		return &Const{Value: n}, nil
	}
	return fieldExpr(raw, key)
}

func fieldConst(raw map[string]json.RawMessage, key string) (any, error) {
	r, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	trimmed := bytes.TrimSpace(r)
	if string(trimmed) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	switch n := v.(type) {
	case json.Number:
		if !strings.ContainsAny(n.String(), ".eE") {
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		return f, nil
	case string, bool:
		return v, nil
	}
	return nil, fmt.Errorf("field %q: constants must be scalar, got %T", key, v)
}

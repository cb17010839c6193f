package fileio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leengari/tabflow/internal/table"
)

// NDJSONReadOptions configures ReadNDJSON.
type NDJSONReadOptions struct {
	// NRows, when positive, caps the number of lines read.
	NRows int
}

// ReadNDJSON reads a newline-delimited JSON file into a table named name.
// Column order follows first appearance across the file; rows missing a key
// get null there. Nested JSON objects become Struct cells.
func ReadNDJSON(path, name string, opts NDJSONReadOptions) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read ndjson: %w", err)
	}
	defer f.Close()

	var (
		keys []string
		seen = make(map[string]bool)
		rows []map[string]any
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if opts.NRows > 0 && len(rows) >= opts.NRows {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("read ndjson %s: line %d: %w", path, len(rows)+1, err)
		}
		row := make(map[string]any, len(obj))
		for k, v := range obj {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
			row[k] = normalizeJSON(v)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ndjson %s: %w", path, err)
	}

	cols := make([]*table.Column, 0, len(keys))
	for _, k := range keys {
		cols = append(cols, buildJSONColumn(k, rows))
	}
	t, err := table.FromColumns(name, cols)
	if err != nil {
		return nil, fmt.Errorf("read ndjson %s: %w", path, err)
	}
	return t, nil
}

// buildJSONColumn assembles one column from decoded rows. The column type is
// the promotion over all cell kinds; when the cells do not agree on a numeric
// or single kind, everything is rendered to String.
func buildJSONColumn(key string, rows []map[string]any) *table.Column {
	typ := jsonColumnType(key, rows)
	out := table.NewColumn(key, typ, len(rows))
	for _, row := range rows {
		v, ok := row[key]
		if !ok || v == nil {
			out.AppendNull()
			continue
		}
		switch typ {
		case table.TypeFloat64:
			if n, isInt := v.(int64); isInt {
				out.Append(float64(n))
				continue
			}
			out.Append(v)
		case table.TypeString:
			if _, isStr := v.(string); !isStr {
				out.Append(table.FormatValue(v))
				continue
			}
			out.Append(v)
		default:
			out.Append(v)
		}
	}
	return out
}

func jsonColumnType(key string, rows []map[string]any) table.Type {
	var typ table.Type
	for _, row := range rows {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		t := cellType(v)
		if typ == "" {
			typ = t
			continue
		}
		if typ == t {
			continue
		}
		if p, ok := table.Promote(typ, t); ok {
			typ = p
			continue
		}
		return table.TypeString
	}
	if typ == "" {
		return table.TypeString
	}
	return typ
}

func cellType(v any) table.Type {
	switch v.(type) {
	case int64:
		return table.TypeInt64
	case float64:
		return table.TypeFloat64
	case bool:
		return table.TypeBoolean
	case map[string]any:
		return table.TypeStruct
	}
	return table.TypeString
}

// normalizeJSON maps decoded JSON values onto runtime cells: numbers become
// int64 when integral, nested objects are normalized recursively, and arrays,
// which have no column type of their own, keep their JSON text form.
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = normalizeJSON(e)
		}
		return m
	case []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
	return v
}

// NDJSONWriteOptions configures WriteNDJSON.
type NDJSONWriteOptions struct {
	// Columns, when non-empty, writes only the named columns.
	Columns []string
}

// WriteNDJSON writes a table to path as newline-delimited JSON, one object
// per row. Nulls are written as JSON null; temporals as their text form.
func WriteNDJSON(path string, t *table.Table, opts NDJSONWriteOptions) error {
	if len(opts.Columns) > 0 {
		var err error
		if t, err = t.Project(t.Name, opts.Columns); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write ndjson: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write ndjson: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < t.NumRows(); i++ {
		row := make(map[string]any, t.NumColumns())
		for _, c := range t.Columns {
			if c.IsNull(i) {
				row[c.Name] = nil
				continue
			}
			row[c.Name] = jsonCell(c.Values[i])
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("write ndjson %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write ndjson %s: %w", path, err)
	}
	return f.Close()
}

func jsonCell(v any) any {
	if ts, ok := v.(time.Time); ok {
		return table.FormatValue(ts)
	}
	return v
}

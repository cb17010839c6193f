// Package fileio reads and writes tables as CSV and NDJSON files. Readers
// produce fully materialized tables; writers render the runtime cell
// representation back to text. Both sides share the engine's formatting so a
// written file reads back to the same values.
package fileio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leengari/tabflow/internal/eval"
	"github.com/leengari/tabflow/internal/table"
)

// ColumnSchema overrides reading behavior for one CSV column: a declared type
// disables inference for it, and NullValue names the exact string to read as
// null instead of the default empty string.
type ColumnSchema struct {
	Column    string     `json:"column"`
	Type      table.Type `json:"type,omitempty"`
	NullValue *string    `json:"nullValue,omitempty"`
}

// CSVReadOptions configures ReadCSV. The zero value reads a comma-delimited
// file with a header row, infers column types, and reads every row.
type CSVReadOptions struct {
	// Delimiter is the field separator; empty means comma. Must be one rune.
	Delimiter string
	// Columns, when non-empty, keeps only the named columns, in this order.
	Columns []string
	// Schema holds per-column overrides.
	Schema []ColumnSchema
	// NoHeader marks the file as headerless; the Schema then supplies the
	// column names in file order and must cover every field.
	NoHeader bool
	// NoInference disables type inference: undeclared columns stay String.
	NoInference bool
	// NRows, when positive, caps the number of data rows read.
	NRows int
}

// ReadCSV reads a CSV file into a table named name.
func ReadCSV(path, name string, opts CSVReadOptions) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if r.Comma, err = delimiterRune(opts.Delimiter); err != nil {
		return nil, err
	}

	var header []string
	if opts.NoHeader {
		if len(opts.Schema) == 0 {
			return nil, fmt.Errorf("read csv %s: headerless file needs a schema naming the columns", path)
		}
		header = make([]string, len(opts.Schema))
		for i, cs := range opts.Schema {
			header[i] = cs.Column
		}
		r.FieldsPerRecord = len(header)
	} else {
		if header, err = r.Read(); err != nil {
			return nil, fmt.Errorf("read csv %s: reading header: %w", path, err)
		}
	}

	var records [][]string
	for opts.NRows <= 0 || len(records) < opts.NRows {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		records = append(records, rec)
	}

	schema := make(map[string]ColumnSchema, len(opts.Schema))
	for _, cs := range opts.Schema {
		schema[cs.Column] = cs
	}

	cols := make([]*table.Column, 0, len(header))
	for fi, colName := range header {
		cs := schema[colName]
		raw := make([]string, len(records))
		nulls := make([]bool, len(records))
		for i, rec := range records {
			if fi >= len(rec) {
				return nil, fmt.Errorf("read csv %s: row %d has %d fields, header has %d",
					path, i+1, len(rec), len(header))
			}
			raw[i] = rec[fi]
			if cs.NullValue != nil {
				nulls[i] = rec[fi] == *cs.NullValue
			} else {
				nulls[i] = rec[fi] == ""
			}
		}
		c, err := buildCSVColumn(colName, raw, nulls, cs.Type, opts.NoInference)
		if err != nil {
			return nil, fmt.Errorf("read csv %s: column %q: %w", path, colName, err)
		}
		cols = append(cols, c)
	}

	t, err := table.FromColumns(name, cols)
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(opts.Columns) > 0 {
		return t.Project(name, opts.Columns)
	}
	return t, nil
}

// buildCSVColumn converts one column of raw text fields into a typed column.
// A declared type makes conversion failures hard errors; inference falls back
// through int, float, bool to string.
func buildCSVColumn(name string, raw []string, nulls []bool, declared table.Type, noInference bool) (*table.Column, error) {
	if declared != "" {
		out := table.NewColumn(name, declared, len(raw))
		for i, s := range raw {
			if nulls[i] {
				out.AppendNull()
				continue
			}
			v, err := eval.CastValue(s, declared)
			if err != nil {
				return nil, table.NewCastError(s, declared, i, err.Error())
			}
			out.Append(v)
		}
		return out, nil
	}

	typ := table.TypeString
	if !noInference {
		typ = inferCSVType(raw, nulls)
	}
	out := table.NewColumn(name, typ, len(raw))
	for i, s := range raw {
		if nulls[i] {
			out.AppendNull()
			continue
		}
		switch typ {
		case table.TypeInt64:
			n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			out.Append(n)
		case table.TypeFloat64:
			f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
			out.Append(f)
		case table.TypeBoolean:
			out.Append(strings.EqualFold(strings.TrimSpace(s), "true"))
		default:
			out.Append(s)
		}
	}
	return out, nil
}

// inferCSVType picks the narrowest type every non-null field of the column
// parses as, trying int, then float, then bool, else string.
func inferCSVType(raw []string, nulls []bool) table.Type {
	allInt, allFloat, allBool := true, true, true
	sawValue := false
	for i, s := range raw {
		if nulls[i] {
			continue
		}
		sawValue = true
		s = strings.TrimSpace(s)
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if !strings.EqualFold(s, "true") && !strings.EqualFold(s, "false") {
				allBool = false
			}
		}
		if !allInt && !allFloat && !allBool {
			return table.TypeString
		}
	}
	if !sawValue {
		return table.TypeString
	}
	switch {
	case allInt:
		return table.TypeInt64
	case allFloat:
		return table.TypeFloat64
	case allBool:
		return table.TypeBoolean
	}
	return table.TypeString
}

// CSVWriteOptions configures WriteCSV.
type CSVWriteOptions struct {
	// Columns, when non-empty, writes only the named columns, in this order.
	Columns []string
	// Delimiter is the field separator; empty means comma.
	Delimiter string
}

// WriteCSV writes a table to path as CSV with a header row. Nulls render as
// empty fields. Parent directories are created as needed.
func WriteCSV(path string, t *table.Table, opts CSVWriteOptions) error {
	if len(opts.Columns) > 0 {
		var err error
		if t, err = t.Project(t.Name, opts.Columns); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if w.Comma, err = delimiterRune(opts.Delimiter); err != nil {
		return err
	}
	if err := w.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	row := make([]string, t.NumColumns())
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.Columns {
			if c.IsNull(i) {
				row[j] = ""
				continue
			}
			row[j] = table.FormatValue(c.Values[i])
		}
		if len(row) == 1 && row[0] == "" {
			// A lone empty field would render as a blank line, which CSV
			// readers skip. Quote it so the row survives a read back.
			w.Flush()
			if err := w.Error(); err != nil {
				return fmt.Errorf("write csv %s: %w", path, err)
			}
			if _, err := io.WriteString(f, "\"\"\n"); err != nil {
				return fmt.Errorf("write csv %s: %w", path, err)
			}
			continue
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	return f.Close()
}

func delimiterRune(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return runes[0], nil
}

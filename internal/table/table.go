package table

import "fmt"

// Table is an ordered collection of equally sized columns with unique,
// case-sensitive names. Identity within a run is by name in the TableSpace,
// not by pointer.
type Table struct {
	Name    string
	Columns []*Column

	byName map[string]int
}

// New returns an empty table with the given name.
func New(name string) *Table {
	return &Table{Name: name, byName: make(map[string]int)}
}

// FromColumns builds a table from pre-built columns, validating name
// uniqueness and equal row counts.
func FromColumns(name string, cols []*Column) (*Table, error) {
	t := New(name)
	for _, c := range cols {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NumRows returns the table's row count.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.Columns) }

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column resolves a column by name.
func (t *Table) Column(name string) (*Column, error) {
	if i, ok := t.byName[name]; ok {
		return t.Columns[i], nil
	}
	return nil, NewColumnNotFound(t.Name, name)
}

// HasColumn reports whether the table holds a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// AddColumn appends a column. The column's row count must match the table's;
// duplicate names are rejected.
func (t *Table) AddColumn(c *Column) error {
	if _, exists := t.byName[c.Name]; exists {
		return fmt.Errorf("duplicate column %q in table %q", c.Name, t.Name)
	}
	if len(t.Columns) > 0 && c.Len() != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table %q has %d",
			c.Name, c.Len(), t.Name, t.NumRows())
	}
	if t.byName == nil {
		t.byName = make(map[string]int)
	}
	t.byName[c.Name] = len(t.Columns)
	t.Columns = append(t.Columns, c)
	return nil
}

// ReplaceColumn swaps an existing column of the same name, or appends when
// absent. Used by the in-place add-columns step.
func (t *Table) ReplaceColumn(c *Column) error {
	if i, ok := t.byName[c.Name]; ok {
		if len(t.Columns) > 1 && c.Len() != t.NumRows() {
			return fmt.Errorf("column %q has %d rows, table %q has %d",
				c.Name, c.Len(), t.Name, t.NumRows())
		}
		t.Columns[i] = c
		return nil
	}
	return t.AddColumn(c)
}

// Project returns a new table holding only the named columns, in the given
// order.
func (t *Table) Project(name string, columns []string) (*Table, error) {
	out := New(name)
	for _, cn := range columns {
		c, err := t.Column(cn)
		if err != nil {
			return nil, err
		}
		if err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Drop returns a new table without the named columns. Naming an absent
// column is an error.
func (t *Table) Drop(name string, columns []string) (*Table, error) {
	dropped := make(map[string]bool, len(columns))
	for _, cn := range columns {
		if !t.HasColumn(cn) {
			return nil, NewColumnNotFound(t.Name, cn)
		}
		dropped[cn] = true
	}
	out := New(name)
	for _, c := range t.Columns {
		if dropped[c.Name] {
			continue
		}
		if err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Gather returns a new table holding the rows at the given positions.
func (t *Table) Gather(name string, positions []int) *Table {
	out := New(name)
	for _, c := range t.Columns {
		// gathered columns keep their source shape, AddColumn cannot fail
		_ = out.AddColumn(c.Gather(positions))
	}
	return out
}

// Clone returns a deep copy of the table under a new name.
func (t *Table) Clone(name string) *Table {
	out := New(name)
	for _, c := range t.Columns {
		_ = out.AddColumn(c.Clone())
	}
	return out
}

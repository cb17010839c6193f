package table

// Column is one named, typed sequence of values. Values and Nulls always have
// the same length; a null position carries a nil value and a true marker.
type Column struct {
	Name   string
	Type   Type
	Values []any
	Nulls  []bool
}

// NewColumn returns an empty column with capacity for n rows.
func NewColumn(name string, typ Type, n int) *Column {
	return &Column{
		Name:   name,
		Type:   typ,
		Values: make([]any, 0, n),
		Nulls:  make([]bool, 0, n),
	}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int { return len(c.Values) }

// Append adds one non-null value.
func (c *Column) Append(v any) {
	c.Values = append(c.Values, v)
	c.Nulls = append(c.Nulls, false)
}

// AppendNull adds one null position.
func (c *Column) AppendNull() {
	c.Values = append(c.Values, nil)
	c.Nulls = append(c.Nulls, true)
}

// AppendMaybe adds v, treating a nil value as null.
func (c *Column) AppendMaybe(v any) {
	if v == nil {
		c.AppendNull()
		return
	}
	c.Append(v)
}

// IsNull reports whether position i holds a null.
func (c *Column) IsNull(i int) bool { return c.Nulls[i] }

// Value returns the value at position i, nil when null.
func (c *Column) Value(i int) any {
	if c.Nulls[i] {
		return nil
	}
	return c.Values[i]
}

// Rename returns a shallow copy of the column under a new name. The value
// slices are shared; columns are treated as immutable once published.
func (c *Column) Rename(name string) *Column {
	return &Column{Name: name, Type: c.Type, Values: c.Values, Nulls: c.Nulls}
}

// Clone returns a deep copy of the column's slices.
func (c *Column) Clone() *Column {
	out := &Column{
		Name:   c.Name,
		Type:   c.Type,
		Values: make([]any, len(c.Values)),
		Nulls:  make([]bool, len(c.Nulls)),
	}
	copy(out.Values, c.Values)
	copy(out.Nulls, c.Nulls)
	return out
}

// Gather returns a new column holding the rows at the given positions, in
// order. A negative position emits a null, which join engines use for the
// unmatched side.
func (c *Column) Gather(positions []int) *Column {
	out := NewColumn(c.Name, c.Type, len(positions))
	for _, p := range positions {
		if p < 0 || c.Nulls[p] {
			out.AppendNull()
			continue
		}
		out.Append(c.Values[p])
	}
	return out
}

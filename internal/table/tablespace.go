package table

import "sort"

// TableSpace is the named registry of live tables. It is owned exclusively by
// the workflow runner for the duration of a run; steps read tables by name
// and publish whole tables back, so the registry itself needs no locking.
type TableSpace struct {
	tables map[string]*Table
}

// NewTableSpace returns an empty tablespace.
func NewTableSpace() *TableSpace {
	return &TableSpace{tables: make(map[string]*Table)}
}

// Get resolves a table by name.
func (ts *TableSpace) Get(name string) (*Table, error) {
	if t, ok := ts.tables[name]; ok {
		return t, nil
	}
	return nil, NewTableNotFound(name, ts.Names())
}

// Put registers a table under the given name, replacing any previous entry.
func (ts *TableSpace) Put(name string, t *Table) {
	t.Name = name
	ts.tables[name] = t
}

// Mutate applies fn to the named table with exclusive access. This is the
// only in-place access path; the add-columns step uses it so that either the
// whole mutation is applied or, on error, the previous table is restored.
func (ts *TableSpace) Mutate(name string, fn func(*Table) error) error {
	t, err := ts.Get(name)
	if err != nil {
		return err
	}
	snapshot := t.Clone(name)
	if err := fn(t); err != nil {
		ts.tables[name] = snapshot
		return err
	}
	return nil
}

// Len returns the number of registered tables.
func (ts *TableSpace) Len() int { return len(ts.tables) }

// Names returns the registered table names, sorted for stable reporting.
func (ts *TableSpace) Names() []string {
	names := make([]string, 0, len(ts.tables))
	for n := range ts.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

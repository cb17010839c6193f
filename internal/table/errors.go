package table

import (
	"fmt"
	"strings"
)

// TableNotFoundError reports a lookup of a name the tablespace does not hold.
type TableNotFoundError struct {
	Name      string
	Available []string
}

func (e *TableNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("table %q not found in tablespace (tablespace is empty)", e.Name)
	}
	return fmt.Sprintf("table %q not found in tablespace, available: %s",
		e.Name, strings.Join(e.Available, ", "))
}

// ColumnNotFoundError reports a column reference that the current table does
// not resolve.
type ColumnNotFoundError struct {
	Table  string
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("column %q not found", e.Column)
	}
	return fmt.Sprintf("column %q not found in table %q", e.Column, e.Table)
}

// CastError reports a strict-mode cast failure at a single row.
type CastError struct {
	Value  any
	Target Type
	Row    int
	Reason string
}

func (e *CastError) Error() string {
	msg := fmt.Sprintf("cannot cast %v to %s", e.Value, e.Target)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Row >= 0 {
		msg += fmt.Sprintf(" (row %d)", e.Row)
	}
	return msg
}

// SchemaMismatchError reports incompatible column sets or column types,
// raised by concatenation.
type SchemaMismatchError struct {
	Table  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("schema mismatch: %s", e.Reason)
	}
	return fmt.Sprintf("schema mismatch in table %q: %s", e.Table, e.Reason)
}

// UnsupportedOperandError reports an operand whose runtime type an operator
// cannot accept, e.g. a numeric column passed to a string function.
type UnsupportedOperandError struct {
	Op     string
	Value  any
	Reason string
}

func (e *UnsupportedOperandError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported operand for %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("unsupported operand for %s: %T(%v)", e.Op, e.Value, e.Value)
}

func NewTableNotFound(name string, available []string) *TableNotFoundError {
	return &TableNotFoundError{Name: name, Available: available}
}

func NewColumnNotFound(tableName, column string) *ColumnNotFoundError {
	return &ColumnNotFoundError{Table: tableName, Column: column}
}

func NewCastError(value any, target Type, row int, reason string) *CastError {
	return &CastError{Value: value, Target: target, Row: row, Reason: reason}
}

func NewSchemaMismatch(tableName, reason string) *SchemaMismatchError {
	return &SchemaMismatchError{Table: tableName, Reason: reason}
}

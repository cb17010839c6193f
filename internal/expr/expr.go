// Package expr defines the closed set of expression-tree nodes a workflow
// document can carry. Nodes are immutable after decoding and are evaluated
// per-row against a table by the eval package.
package expr

// Expr is one node of an expression tree. The node set is closed: the
// evaluator dispatches over the concrete types exhaustively.
type Expr interface {
	// Kind returns the node's document tag, used in error messages.
	Kind() string
}

// ColumnRef resolves a column by name against the table the expression is
// currently evaluated on, not against the workflow-global tablespace.
type ColumnRef struct {
	Name string
}

func (*ColumnRef) Kind() string { return "col" }

// Const is a literal value: string, int64, float64, bool, or nil.
type Const struct {
	Value any
}

func (*Const) Kind() string { return "const" }

// CompareOp enumerates the comparison operators.
type CompareOp string

const (
	CmpGt  CompareOp = "gt"
	CmpGe  CompareOp = "ge"
	CmpEq  CompareOp = "eq"
	CmpLt  CompareOp = "lt"
	CmpLe  CompareOp = "le"
	CmpNeq CompareOp = "neq"
)

// Comparison applies a binary comparison per row. A null operand yields null.
type Comparison struct {
	Op  CompareOp
	LHS Expr
	RHS Expr
}

func (c *Comparison) Kind() string { return string(c.Op) }

// ArithmeticOp enumerates the binary arithmetic operators. Truediv always
// produces a float; floordiv rounds toward negative infinity and keeps the
// integer domain for integer inputs.
type ArithmeticOp string

const (
	OpPlus     ArithmeticOp = "plus"
	OpMinus    ArithmeticOp = "minus"
	OpMultiply ArithmeticOp = "multiply"
	OpTrueDiv  ArithmeticOp = "truediv"
	OpFloorDiv ArithmeticOp = "floordiv"
)

// Arithmetic applies a binary arithmetic operator per row.
type Arithmetic struct {
	Op  ArithmeticOp
	LHS Expr
	RHS Expr
}

func (a *Arithmetic) Kind() string { return string(a.Op) }

// UnaryOp enumerates the unary arithmetic operators.
type UnaryOp string

const (
	OpLog10  UnaryOp = "log10"
	OpLog    UnaryOp = "log"
	OpLog2   UnaryOp = "log2"
	OpAbs    UnaryOp = "abs"
	OpSqrt   UnaryOp = "sqrt"
	OpNegate UnaryOp = "minus"
)

// UnaryArithmetic applies a unary arithmetic operator per row.
type UnaryArithmetic struct {
	Op    UnaryOp
	Value Expr
}

func (u *UnaryArithmetic) Kind() string { return string(u.Op) }

// And is the n-ary boolean conjunction with SQL three-valued semantics:
// any false operand wins, otherwise any null makes the result null.
// An empty operand list evaluates to true.
type And struct {
	Operands []Expr
}

func (*And) Kind() string { return "and" }

// Or is the n-ary boolean disjunction with SQL three-valued semantics:
// any true operand wins, otherwise any null makes the result null.
// An empty operand list evaluates to false.
type Or struct {
	Operands []Expr
}

func (*Or) Kind() string { return "or" }

// Not negates a boolean per row; null stays null.
type Not struct {
	Value Expr
}

func (*Not) Kind() string { return "not" }

// IsNA tests for null, producing a non-null boolean at every row.
type IsNA struct {
	Value Expr
}

func (*IsNA) Kind() string { return "is_na" }

// IsNotNA tests for non-null, producing a non-null boolean at every row.
type IsNotNA struct {
	Value Expr
}

func (*IsNotNA) Kind() string { return "is_not_na" }

// FillNA replaces nulls in Value with the per-row result of Fill.
type FillNA struct {
	Value Expr
	Fill  Expr
}

func (*FillNA) Kind() string { return "fill_na" }

// MinHorizontal takes the per-row minimum of its operands. A null operand
// makes the row null; an empty operand list yields an all-null column.
type MinHorizontal struct {
	Operands []Expr
}

func (*MinHorizontal) Kind() string { return "min" }

// MaxHorizontal takes the per-row maximum of its operands, with the same
// null behavior as MinHorizontal.
type MaxHorizontal struct {
	Operands []Expr
}

func (*MaxHorizontal) Kind() string { return "max" }

package expr

// AggFunc enumerates the aggregation functions shared by the aggregate step
// and the generic window expression.
type AggFunc string

const (
	AggSum     AggFunc = "sum"
	AggMean    AggFunc = "mean"
	AggMedian  AggFunc = "median"
	AggMin     AggFunc = "min"
	AggMax     AggFunc = "max"
	AggStd     AggFunc = "std"
	AggVar     AggFunc = "var"
	AggCount   AggFunc = "count"
	AggFirst   AggFunc = "first"
	AggLast    AggFunc = "last"
	AggNUnique AggFunc = "n_unique"
)

// Rank assigns competition ranks within each partition: tied rows share a
// rank and the next distinct value skips ahead by the size of the tie group.
// Descending flips the order of every OrderBy key.
type Rank struct {
	OrderBy     []Expr
	PartitionBy []Expr
	Descending  bool
}

func (*Rank) Kind() string { return "rank" }

// Cumsum accumulates Value within each partition, visiting rows in the order
// of Value itself with AdditionalOrderBy breaking ties, and writes each
// running total back to its source row.
type Cumsum struct {
	Value             Expr
	AdditionalOrderBy []Expr
	PartitionBy       []Expr
	Descending        bool
}

func (*Cumsum) Kind() string { return "cumsum" }

// WindowAgg computes one aggregation function over each partition and
// broadcasts the result to every row of that partition.
type WindowAgg struct {
	Value       Expr
	PartitionBy []Expr
	Func        AggFunc
}

func (*WindowAgg) Kind() string { return "window" }

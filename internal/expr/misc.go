package expr

import "github.com/leengari/tabflow/internal/table"

// Cast converts Value to a target type. Strict mode escalates a row-level
// conversion failure to a step failure; non-strict mode yields null at the
// failing row and never aborts.
type Cast struct {
	Value  Expr
	To     table.Type
	Strict bool
}

func (*Cast) Kind() string { return "cast" }

// WhenThen is one branch of a conditional.
type WhenThen struct {
	When Expr
	Then Expr
}

// WhenThenOtherwise evaluates clauses in declared order per row; the first
// clause whose condition is true wins. A null condition counts as false.
// Rows matching no clause take Otherwise, or null when Otherwise is nil.
type WhenThenOtherwise struct {
	Clauses   []WhenThen
	Otherwise Expr
}

func (*WhenThenOtherwise) Kind() string { return "when_then_otherwise" }

// StructField descends into a struct-typed value along Fields. A missing
// intermediate structure or leaf yields null, or Default when supplied,
// never an error. To, when set, casts the extracted value (non-strict).
type StructField struct {
	Struct  Expr
	Fields  []string
	Default Expr
	To      table.Type // "" when no cast requested
}

func (*StructField) Kind() string { return "struct_field" }

// DistanceMetric enumerates the string distance metrics.
type DistanceMetric string

const (
	MetricLevenshtein DistanceMetric = "levenshtein"
	MetricOSA         DistanceMetric = "optimal_string_alignment"
	MetricJaroWinkler DistanceMetric = "jaro_winkler"
	MetricHamming     DistanceMetric = "hamming"
)

// StringDistance computes the distance between two string expressions.
// With ReturnSimilarity set, the result is a normalized similarity in [0,1]
// instead of a raw edit distance; Jaro-Winkler is inherently a similarity
// and reports 1-similarity as its distance form.
type StringDistance struct {
	Metric           DistanceMetric
	String1          Expr
	String2          Expr
	ReturnSimilarity bool
}

func (*StringDistance) Kind() string { return "string_distance" }

// FuzzyStringFilter is true where the distance between Value and Pattern is
// at or below Bound. Supported metrics: levenshtein and hamming.
type FuzzyStringFilter struct {
	Metric  DistanceMetric
	Value   Expr
	Pattern Expr
	Bound   int
}

func (*FuzzyStringFilter) Kind() string { return "fuzzy_string_filter" }

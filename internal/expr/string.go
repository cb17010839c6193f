package expr

// StringJoin concatenates the string representations of its operands per
// row, inserting Delimiter between elements.
type StringJoin struct {
	Operands  []Expr
	Delimiter string
}

func (*StringJoin) Kind() string { return "str_join" }

// ToUpper upper-cases a string per row.
type ToUpper struct {
	Value Expr
}

func (*ToUpper) Kind() string { return "to_upper" }

// ToLower lower-cases a string per row.
type ToLower struct {
	Value Expr
}

func (*ToLower) Kind() string { return "to_lower" }

// StrLen counts characters (runes, not bytes) per row.
type StrLen struct {
	Value Expr
}

func (*StrLen) Kind() string { return "str_len" }

// Substring extracts [Start, Start+Length) or [Start, End) from a string.
// Exactly one of Length/End may be set; neither means "to the end of the
// string". A range overflowing the actual string clamps to the string's end.
// Start, Length and End are expressions so they can vary per row.
type Substring struct {
	Value  Expr
	Start  Expr
	Length Expr // nil when absent
	End    Expr // nil when absent; mutually exclusive with Length
}

func (*Substring) Kind() string { return "substring" }

// StringReplace substitutes Pattern with Replacement in Value. With Literal
// set the pattern is matched verbatim; otherwise it is a regular expression
// and the replacement may reference capture groups as $1 or ${name}.
// ReplaceAll switches between first-match and all-match substitution.
type StringReplace struct {
	Value       Expr
	Pattern     Expr
	Replacement Expr
	ReplaceAll  bool
	Literal     bool
}

func (*StringReplace) Kind() string { return "str_replace" }

// StrContains tests whether Value contains Pattern (literal or regex).
type StrContains struct {
	Value   Expr
	Pattern Expr
	Literal bool
}

func (*StrContains) Kind() string { return "str_contains" }

// StartsWith tests a literal prefix.
type StartsWith struct {
	Value  Expr
	Prefix Expr
}

func (*StartsWith) Kind() string { return "starts_with" }

// EndsWith tests a literal suffix.
type EndsWith struct {
	Value  Expr
	Suffix Expr
}

func (*EndsWith) Kind() string { return "ends_with" }

// CountMatches counts non-overlapping occurrences of Pattern in Value.
type CountMatches struct {
	Value   Expr
	Pattern Expr
	Literal bool
}

func (*CountMatches) Kind() string { return "count_matches" }

// StrExtract pulls the given regex capture group (0 = whole match) out of
// Value. No match yields null.
type StrExtract struct {
	Value   Expr
	Pattern string
	Group   int
}

func (*StrExtract) Kind() string { return "str_extract" }

// ContainsAny tests Value against a fixed set of literal patterns using a
// multi-pattern automaton, so matching cost does not grow with the size of
// the pattern set.
type ContainsAny struct {
	Value    Expr
	Patterns []string
}

func (*ContainsAny) Kind() string { return "contains_any" }

package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

func col(name string, typ table.Type, values ...any) *table.Column {
	c := table.NewColumn(name, typ, len(values))
	for _, v := range values {
		c.AppendMaybe(v)
	}
	return c
}

func testTable(t *testing.T, cols ...*table.Column) *table.Table {
	t.Helper()
	tbl, err := table.FromColumns("t", cols)
	require.NoError(t, err)
	return tbl
}

func TestComparisonPropagatesNulls(t *testing.T) {
	tbl := testTable(t,
		col("a", table.TypeInt64, int64(1), nil, int64(3)),
		col("b", table.TypeInt64, int64(2), int64(2), nil),
	)
	c, err := Evaluate(&expr.Comparison{
		Op:  expr.CmpGt,
		LHS: &expr.ColumnRef{Name: "a"},
		RHS: &expr.ColumnRef{Name: "b"},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, false, c.Values[0])
	assert.True(t, c.IsNull(1))
	assert.True(t, c.IsNull(2))
}

func TestThreeValuedLogic(t *testing.T) {
	tbl := testTable(t,
		col("t", table.TypeBoolean, true),
		col("f", table.TypeBoolean, false),
		col("n", table.TypeBoolean, nil),
	)
	ref := func(name string) expr.Expr { return &expr.ColumnRef{Name: name} }

	cases := []struct {
		name string
		e    expr.Expr
		want any // nil means null
	}{
		{"null AND false = false", &expr.And{Operands: []expr.Expr{ref("n"), ref("f")}}, false},
		{"null AND true = null", &expr.And{Operands: []expr.Expr{ref("n"), ref("t")}}, nil},
		{"null OR true = true", &expr.Or{Operands: []expr.Expr{ref("n"), ref("t")}}, true},
		{"null OR false = null", &expr.Or{Operands: []expr.Expr{ref("n"), ref("f")}}, nil},
		{"empty AND = true", &expr.And{}, true},
		{"empty OR = false", &expr.Or{}, false},
		{"NOT null = null", &expr.Not{Value: ref("n")}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Evaluate(tc.e, tbl)
			require.NoError(t, err)
			if tc.want == nil {
				assert.True(t, c.IsNull(0))
			} else {
				require.False(t, c.IsNull(0))
				assert.Equal(t, tc.want, c.Values[0])
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	tbl := testTable(t,
		col("a", table.TypeInt64, int64(5), int64(-7), int64(4)),
		col("b", table.TypeInt64, int64(2), int64(2), int64(0)),
	)
	bin := func(op expr.ArithmeticOp) expr.Expr {
		return &expr.Arithmetic{Op: op, LHS: &expr.ColumnRef{Name: "a"}, RHS: &expr.ColumnRef{Name: "b"}}
	}

	sum, err := Evaluate(bin(expr.OpPlus), tbl)
	require.NoError(t, err)
	assert.Equal(t, table.TypeInt64, sum.Type)
	assert.Equal(t, int64(7), sum.Values[0])

	div, err := Evaluate(bin(expr.OpTrueDiv), tbl)
	require.NoError(t, err)
	assert.Equal(t, table.TypeFloat64, div.Type)
	assert.Equal(t, 2.5, div.Values[0])

	floor, err := Evaluate(bin(expr.OpFloorDiv), tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(2), floor.Values[0])
	assert.Equal(t, int64(-4), floor.Values[1], "floordiv rounds toward negative infinity")

	// Integer floor division by zero yields null; float true division
	// follows IEEE semantics.
	assert.True(t, floor.IsNull(2))
	assert.True(t, math.IsInf(div.Values[2].(float64), 1))
}

func TestCastStrictVersusNonStrict(t *testing.T) {
	tbl := testTable(t, col("s", table.TypeString, "42", "abc"))

	strict := &expr.Cast{Value: &expr.ColumnRef{Name: "s"}, To: table.TypeInt64, Strict: true}
	_, err := Evaluate(strict, tbl)
	var castErr *table.CastError
	require.ErrorAs(t, err, &castErr)

	lenient := &expr.Cast{Value: &expr.ColumnRef{Name: "s"}, To: table.TypeInt64}
	c, err := Evaluate(lenient, tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.Values[0])
	assert.True(t, c.IsNull(1))
}

func TestCastOverflowChecksDeclaredWidth(t *testing.T) {
	tbl := testTable(t, col("n", table.TypeInt64, int64(300)))
	_, err := Evaluate(&expr.Cast{Value: &expr.ColumnRef{Name: "n"}, To: table.TypeInt8, Strict: true}, tbl)
	var castErr *table.CastError
	require.ErrorAs(t, err, &castErr)
}

func TestSubstringClampsAndCountsFromEnd(t *testing.T) {
	tbl := testTable(t, col("s", table.TypeString, "hello"))
	c, err := Evaluate(&expr.Substring{
		Value:  &expr.ColumnRef{Name: "s"},
		Start:  &expr.Const{Value: int64(1)},
		Length: &expr.Const{Value: int64(100)},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "ello", c.Values[0])

	c, err = Evaluate(&expr.Substring{
		Value: &expr.ColumnRef{Name: "s"},
		Start: &expr.Const{Value: int64(-3)},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "llo", c.Values[0])
}

func TestStrLenCountsRunes(t *testing.T) {
	tbl := testTable(t, col("s", table.TypeString, "héllo"))
	c, err := Evaluate(&expr.StrLen{Value: &expr.ColumnRef{Name: "s"}}, tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.Values[0])
}

func TestReplaceLiteralAndRegex(t *testing.T) {
	tbl := testTable(t, col("s", table.TypeString, "a-b-c"))

	lit, err := Evaluate(&expr.StringReplace{
		Value:       &expr.ColumnRef{Name: "s"},
		Pattern:     &expr.Const{Value: "-"},
		Replacement: &expr.Const{Value: "+"},
		Literal:     true,
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "a+b-c", lit.Values[0], "literal replace defaults to first match")

	all, err := Evaluate(&expr.StringReplace{
		Value:       &expr.ColumnRef{Name: "s"},
		Pattern:     &expr.Const{Value: `(\w)-`},
		Replacement: &expr.Const{Value: "$1_"},
		ReplaceAll:  true,
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "a_b_c", all.Values[0])

	// A positional reference followed by a word character still reads as the
	// group number on the first-match path.
	first, err := Evaluate(&expr.StringReplace{
		Value:       &expr.ColumnRef{Name: "s"},
		Pattern:     &expr.Const{Value: `(\w)-`},
		Replacement: &expr.Const{Value: "$1_"},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "a_b-c", first.Values[0])
}

func TestStringJoinNullsRowOnNullOperand(t *testing.T) {
	tbl := testTable(t,
		col("a", table.TypeString, "x", "x"),
		col("b", table.TypeString, "y", nil),
	)
	c, err := Evaluate(&expr.StringJoin{
		Operands:  []expr.Expr{&expr.ColumnRef{Name: "a"}, &expr.ColumnRef{Name: "b"}},
		Delimiter: "-",
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "x-y", c.Values[0])
	assert.True(t, c.IsNull(1))
}

func TestContainsAny(t *testing.T) {
	tbl := testTable(t, col("s", table.TypeString, "the quick fox", "nothing here"))
	c, err := Evaluate(&expr.ContainsAny{
		Value:    &expr.ColumnRef{Name: "s"},
		Patterns: []string{"quick", "slow"},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, true, c.Values[0])
	assert.Equal(t, false, c.Values[1])
}

func TestHashSHA256Hex(t *testing.T) {
	tbl := testTable(t, col("s", table.TypeString, "abc"))
	c, err := Evaluate(&expr.Hash{
		Algo:     expr.HashSHA256,
		Encoding: expr.EncodingHex,
		Value:    &expr.ColumnRef{Name: "s"},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		c.Values[0])
}

func TestHashBitsTruncation(t *testing.T) {
	tbl := testTable(t, col("s", table.TypeString, "abc"))
	c, err := Evaluate(&expr.Hash{
		Algo:     expr.HashSHA256,
		Encoding: expr.EncodingHex,
		Bits:     32,
		Value:    &expr.ColumnRef{Name: "s"},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf", c.Values[0], "32 bits of entropy is 8 hex characters")

	// Requesting more entropy than the digest holds keeps the full output.
	c, err = Evaluate(&expr.Hash{
		Algo:     expr.HashSHA256,
		Encoding: expr.EncodingHex,
		Bits:     100000,
		Value:    &expr.ColumnRef{Name: "s"},
	}, tbl)
	require.NoError(t, err)
	assert.Len(t, c.Values[0], 64)
}

func TestRankCompetitionTies(t *testing.T) {
	tbl := testTable(t, col("v", table.TypeInt64, int64(10), int64(10), int64(20)))
	c, err := Evaluate(&expr.Rank{OrderBy: []expr.Expr{&expr.ColumnRef{Name: "v"}}}, tbl)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(1), int64(3)}, c.Values)
}

func TestRankPartitioned(t *testing.T) {
	tbl := testTable(t,
		col("g", table.TypeString, "a", "a", "b"),
		col("v", table.TypeInt64, int64(2), int64(1), int64(5)),
	)
	c, err := Evaluate(&expr.Rank{
		OrderBy:     []expr.Expr{&expr.ColumnRef{Name: "v"}},
		PartitionBy: []expr.Expr{&expr.ColumnRef{Name: "g"}},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(1), int64(1)}, c.Values)
}

func TestCumsumOrdersByValue(t *testing.T) {
	tbl := testTable(t, col("v", table.TypeInt64, int64(3), int64(1), int64(2)))
	c, err := Evaluate(&expr.Cumsum{Value: &expr.ColumnRef{Name: "v"}}, tbl)
	require.NoError(t, err)
	// Accumulation visits rows in value order: 1, 2, 3.
	assert.Equal(t, []any{int64(6), int64(1), int64(3)}, c.Values)
}

func TestWindowAggBroadcasts(t *testing.T) {
	tbl := testTable(t,
		col("g", table.TypeString, "a", "b", "a"),
		col("v", table.TypeInt64, int64(1), int64(10), int64(2)),
	)
	c, err := Evaluate(&expr.WindowAgg{
		Value:       &expr.ColumnRef{Name: "v"},
		PartitionBy: []expr.Expr{&expr.ColumnRef{Name: "g"}},
		Func:        expr.AggSum,
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3), int64(10), int64(3)}, c.Values)
}

func TestConditionalFirstTrueWins(t *testing.T) {
	tbl := testTable(t, col("v", table.TypeInt64, int64(5), int64(15), nil))
	e := &expr.WhenThenOtherwise{
		Clauses: []expr.WhenThen{
			{
				When: &expr.Comparison{Op: expr.CmpGt, LHS: &expr.ColumnRef{Name: "v"}, RHS: &expr.Const{Value: int64(10)}},
				Then: &expr.Const{Value: "big"},
			},
			{
				When: &expr.Comparison{Op: expr.CmpGt, LHS: &expr.ColumnRef{Name: "v"}, RHS: &expr.Const{Value: int64(0)}},
				Then: &expr.Const{Value: "small"},
			},
		},
		Otherwise: &expr.Const{Value: "other"},
	}
	c, err := Evaluate(e, tbl)
	require.NoError(t, err)
	// A null condition falls through to the next clause, then otherwise.
	assert.Equal(t, []any{"small", "big", "other"}, c.Values)
}

func TestFillNA(t *testing.T) {
	tbl := testTable(t, col("v", table.TypeInt64, int64(1), nil))
	c, err := Evaluate(&expr.FillNA{
		Value: &expr.ColumnRef{Name: "v"},
		Fill:  &expr.Const{Value: int64(0)},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(0)}, c.Values)
}

func TestIsNAProducesNonNullBooleans(t *testing.T) {
	tbl := testTable(t, col("v", table.TypeInt64, int64(1), nil))
	c, err := Evaluate(&expr.IsNA{Value: &expr.ColumnRef{Name: "v"}}, tbl)
	require.NoError(t, err)
	assert.Equal(t, []any{false, true}, c.Values)
	assert.False(t, c.IsNull(1))
}

func TestMinHorizontal(t *testing.T) {
	tbl := testTable(t,
		col("a", table.TypeInt64, int64(3), int64(1)),
		col("b", table.TypeInt64, int64(2), nil),
	)
	c, err := Evaluate(&expr.MinHorizontal{
		Operands: []expr.Expr{&expr.ColumnRef{Name: "a"}, &expr.ColumnRef{Name: "b"}},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Values[0])
	assert.True(t, c.IsNull(1), "a null operand nulls the row")
}

func TestStructFieldDescentAndDefault(t *testing.T) {
	tbl := testTable(t, col("s", table.TypeStruct,
		map[string]any{"a": map[string]any{"b": int64(7)}},
		map[string]any{"a": map[string]any{}},
	))
	c, err := Evaluate(&expr.StructField{
		Struct: &expr.ColumnRef{Name: "s"},
		Fields: []string{"a", "b"},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.Values[0])
	assert.True(t, c.IsNull(1))

	c, err = Evaluate(&expr.StructField{
		Struct:  &expr.ColumnRef{Name: "s"},
		Fields:  []string{"a", "b"},
		Default: &expr.Const{Value: int64(-1)},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), c.Values[1])
}

func TestStringDistanceLevenshtein(t *testing.T) {
	tbl := testTable(t,
		col("a", table.TypeString, "kitten"),
		col("b", table.TypeString, "sitting"),
	)
	c, err := Evaluate(&expr.StringDistance{
		Metric:  expr.MetricLevenshtein,
		String1: &expr.ColumnRef{Name: "a"},
		String2: &expr.ColumnRef{Name: "b"},
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.Values[0])

	sim, err := Evaluate(&expr.StringDistance{
		Metric:           expr.MetricLevenshtein,
		String1:          &expr.ColumnRef{Name: "a"},
		String2:          &expr.ColumnRef{Name: "b"},
		ReturnSimilarity: true,
	}, tbl)
	require.NoError(t, err)
	assert.InDelta(t, 1.0-3.0/7.0, sim.Values[0], 1e-9)
}

func TestFuzzyStringFilter(t *testing.T) {
	tbl := testTable(t, col("s", table.TypeString, "color", "colossal"))
	c, err := Evaluate(&expr.FuzzyStringFilter{
		Metric:  expr.MetricLevenshtein,
		Value:   &expr.ColumnRef{Name: "s"},
		Pattern: &expr.Const{Value: "colour"},
		Bound:   1,
	}, tbl)
	require.NoError(t, err)
	assert.Equal(t, true, c.Values[0])
	assert.Equal(t, false, c.Values[1])
}

func TestAggregateKernels(t *testing.T) {
	c := col("v", table.TypeInt64, int64(1), int64(2), int64(3), int64(4), nil)
	rows := []int{0, 1, 2, 3, 4}

	sum, typ, err := Aggregate(expr.AggSum, c, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum)
	assert.Equal(t, table.TypeInt64, typ)

	mean, _, err := Aggregate(expr.AggMean, c, rows)
	require.NoError(t, err)
	assert.Equal(t, 2.5, mean)

	median, _, err := Aggregate(expr.AggMedian, c, rows)
	require.NoError(t, err)
	assert.Equal(t, 2.5, median, "even count medians average the middle pair")

	count, _, err := Aggregate(expr.AggCount, c, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count, "count counts non-null values")

	nunique, _, err := Aggregate(expr.AggNUnique, c, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(4), nunique)

	first, _, err := Aggregate(expr.AggFirst, c, []int{4, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first, "first skips leading nulls")
}

func TestSampleStdNeedsTwoValues(t *testing.T) {
	c := col("v", table.TypeFloat64, 2.0, 4.0)
	std, _, err := Aggregate(expr.AggStd, c, []int{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.4142135623730951, std.(float64), 1e-12)

	single, _, err := Aggregate(expr.AggStd, c, []int{0})
	require.NoError(t, err)
	assert.Nil(t, single, "sample std of one value is null")
}

func TestEvaluateBoolRejectsNonBoolean(t *testing.T) {
	tbl := testTable(t, col("v", table.TypeInt64, int64(1)))
	_, err := EvaluateBool(&expr.ColumnRef{Name: "v"}, tbl)
	var opErr *table.UnsupportedOperandError
	require.ErrorAs(t, err, &opErr)
}

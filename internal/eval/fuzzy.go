package eval

import (
	"fmt"

	"github.com/hbollon/go-edlib"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// evalStringDistance computes a per-row distance (or normalized similarity)
// between two string operands. Edit-distance metrics normalize similarity as
// 1 - distance/max(len); Jaro-Winkler is natively a similarity and reports
// 1-similarity as its distance form.
func evalStringDistance(n *expr.StringDistance, t *table.Table) (*table.Column, error) {
	a, err := evalStringOperand(n.String1, t, "string_distance")
	if err != nil {
		return nil, err
	}
	b, err := evalStringOperand(n.String2, t, "string_distance")
	if err != nil {
		return nil, err
	}
	outType := table.TypeFloat64
	if !n.ReturnSimilarity && n.Metric != expr.MetricJaroWinkler {
		outType = table.TypeInt64
	}
	out := table.NewColumn("", outType, a.Len())
	for i := 0; i < a.Len(); i++ {
		if a.IsNull(i) || b.IsNull(i) {
			out.AppendNull()
			continue
		}
		s1 := a.Values[i].(string)
		s2 := b.Values[i].(string)
		switch n.Metric {
		case expr.MetricJaroWinkler:
			sim := float64(edlib.JaroWinklerSimilarity(s1, s2))
			if n.ReturnSimilarity {
				out.Append(sim)
			} else {
				out.Append(1 - sim)
			}
		default:
			dist, err := editDistance(n.Metric, s1, s2)
			if err != nil {
				return nil, err
			}
			if dist < 0 {
				// Hamming over unequal lengths has no defined distance.
				out.AppendNull()
				continue
			}
			if n.ReturnSimilarity {
				out.Append(normalizedSimilarity(dist, s1, s2))
			} else {
				out.Append(int64(dist))
			}
		}
	}
	return out, nil
}

// evalFuzzyFilter is true where the edit distance between the value and the
// pattern is at or below the bound. Hamming rows with unequal lengths can
// never be within any bound and come back false.
func evalFuzzyFilter(n *expr.FuzzyStringFilter, t *table.Table) (*table.Column, error) {
	in, err := evalStringOperand(n.Value, t, "fuzzy_string_filter")
	if err != nil {
		return nil, err
	}
	pat, err := evalStringOperand(n.Pattern, t, "fuzzy_string_filter pattern")
	if err != nil {
		return nil, err
	}
	if n.Metric != expr.MetricLevenshtein && n.Metric != expr.MetricHamming {
		return nil, &table.UnsupportedOperandError{
			Op:     "fuzzy_string_filter",
			Reason: fmt.Sprintf("metric %q not supported, want levenshtein or hamming", n.Metric),
		}
	}
	out := table.NewColumn("", table.TypeBoolean, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) || pat.IsNull(i) {
			out.AppendNull()
			continue
		}
		dist, err := editDistance(n.Metric, in.Values[i].(string), pat.Values[i].(string))
		if err != nil {
			return nil, err
		}
		out.Append(dist >= 0 && dist <= n.Bound)
	}
	return out, nil
}

// editDistance dispatches to the metric implementation. A negative result
// means the metric is undefined for the pair (hamming over unequal lengths).
func editDistance(metric expr.DistanceMetric, a, b string) (int, error) {
	switch metric {
	case expr.MetricLevenshtein:
		return edlib.LevenshteinDistance(a, b), nil
	case expr.MetricOSA:
		return edlib.OSADamerauLevenshteinDistance(a, b), nil
	case expr.MetricHamming:
		d, err := edlib.HammingDistance(a, b)
		if err != nil {
			return -1, nil
		}
		return d, nil
	}
	return 0, &table.UnsupportedOperandError{
		Op:     "string_distance",
		Reason: fmt.Sprintf("unknown metric %q", metric),
	}
}

// normalizedSimilarity maps an edit distance into [0,1], with 1 meaning the
// strings are identical. Two empty strings are identical by definition.
func normalizedSimilarity(dist int, a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

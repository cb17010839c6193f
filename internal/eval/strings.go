package eval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

func requireString(c *table.Column, op string) error {
	if c.Type != table.TypeString {
		return &table.UnsupportedOperandError{
			Op:     op,
			Reason: fmt.Sprintf("operand must be a string, got %s", c.Type),
		}
	}
	return nil
}

func evalStringUnary(value expr.Expr, t *table.Table, op string) (*table.Column, error) {
	in, err := Evaluate(value, t)
	if err != nil {
		return nil, err
	}
	if err := requireString(in, op); err != nil {
		return nil, err
	}
	out := table.NewColumn("", table.TypeString, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) {
			out.AppendNull()
			continue
		}
		s := in.Values[i].(string)
		if op == "to_upper" {
			out.Append(strings.ToUpper(s))
		} else {
			out.Append(strings.ToLower(s))
		}
	}
	return out, nil
}

func evalStrLen(n *expr.StrLen, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	if err := requireString(in, "str_len"); err != nil {
		return nil, err
	}
	out := table.NewColumn("", table.TypeInt64, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) {
			out.AppendNull()
			continue
		}
		out.Append(int64(len([]rune(in.Values[i].(string)))))
	}
	return out, nil
}

// evalStringJoin concatenates the string forms of all operands. Any null
// operand nulls the row.
func evalStringJoin(n *expr.StringJoin, t *table.Table) (*table.Column, error) {
	cols, err := evalOperands(n.Operands, t)
	if err != nil {
		return nil, err
	}
	out := table.NewColumn("", table.TypeString, t.NumRows())
	parts := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		null := false
		for j, c := range cols {
			if c.IsNull(i) {
				null = true
				break
			}
			parts[j] = table.FormatValue(c.Values[i])
		}
		if null {
			out.AppendNull()
			continue
		}
		out.Append(strings.Join(parts, n.Delimiter))
	}
	return out, nil
}

// evalSubstring extracts a rune range. A negative start counts from the end
// of the string; ranges overflowing the string clamp to its actual end.
func evalSubstring(n *expr.Substring, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	if err := requireString(in, "substring"); err != nil {
		return nil, err
	}
	start, err := evalIntOperand(n.Start, t, "substring start")
	if err != nil {
		return nil, err
	}
	var length, end *table.Column
	if n.Length != nil {
		if length, err = evalIntOperand(n.Length, t, "substring length"); err != nil {
			return nil, err
		}
	}
	if n.End != nil {
		if end, err = evalIntOperand(n.End, t, "substring end"); err != nil {
			return nil, err
		}
	}
	out := table.NewColumn("", table.TypeString, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) || start.IsNull(i) ||
			(length != nil && length.IsNull(i)) || (end != nil && end.IsNull(i)) {
			out.AppendNull()
			continue
		}
		runes := []rune(in.Values[i].(string))
		from := int(start.Values[i].(int64))
		if from < 0 {
			from += len(runes)
			if from < 0 {
				from = 0
			}
		}
		if from > len(runes) {
			from = len(runes)
		}
		to := len(runes)
		switch {
		case length != nil:
			l := int(length.Values[i].(int64))
			if l < 0 {
				return nil, fmt.Errorf("substring length cannot be negative (row %d)", i)
			}
			to = from + l
		case end != nil:
			to = int(end.Values[i].(int64))
			if to < from {
				to = from
			}
		}
		if to > len(runes) {
			to = len(runes)
		}
		out.Append(string(runes[from:to]))
	}
	return out, nil
}

func evalIntOperand(e expr.Expr, t *table.Table, what string) (*table.Column, error) {
	c, err := Evaluate(e, t)
	if err != nil {
		return nil, err
	}
	if !c.Type.IsInteger() {
		return nil, &table.UnsupportedOperandError{
			Op:     what,
			Reason: fmt.Sprintf("must be an integer, got %s", c.Type),
		}
	}
	return c, nil
}

// regexpCache memoizes compilation when a pattern operand varies per row.
// Expressions are evaluated single-threaded within a step, so a plain map is
// fine here.
type regexpCache map[string]*regexp.Regexp

func (rc regexpCache) get(pattern string) (*regexp.Regexp, error) {
	if re, ok := rc[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	rc[pattern] = re
	return re, nil
}

func evalReplace(n *expr.StringReplace, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	if err := requireString(in, "str_replace"); err != nil {
		return nil, err
	}
	pattern, err := evalStringOperand(n.Pattern, t, "str_replace pattern")
	if err != nil {
		return nil, err
	}
	replacement, err := evalStringOperand(n.Replacement, t, "str_replace replacement")
	if err != nil {
		return nil, err
	}
	cache := regexpCache{}
	out := table.NewColumn("", table.TypeString, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) || pattern.IsNull(i) || replacement.IsNull(i) {
			out.AppendNull()
			continue
		}
		s := in.Values[i].(string)
		pat := pattern.Values[i].(string)
		repl := replacement.Values[i].(string)
		if n.Literal {
			count := 1
			if n.ReplaceAll {
				count = -1
			}
			out.Append(strings.Replace(s, pat, repl, count))
			continue
		}
		repl = bracePositionalRefs(repl)
		re, err := cache.get(pat)
		if err != nil {
			return nil, err
		}
		if n.ReplaceAll {
			out.Append(re.ReplaceAllString(s, repl))
			continue
		}
		// First-match-only substitution with capture group expansion.
		loc := re.FindStringSubmatchIndex(s)
		if loc == nil {
			out.Append(s)
			continue
		}
		expanded := re.ExpandString(nil, repl, s, loc)
		out.Append(s[:loc[0]] + string(expanded) + s[loc[1]:])
	}
	return out, nil
}

var positionalRef = regexp.MustCompile(`\$\$|\$(\d+)`)

// bracePositionalRefs rewrites $n to ${n} so a reference followed by a word
// character ("$1_") expands as group n rather than a group named "1_".
// Escaped dollars ($$) pass through untouched.
func bracePositionalRefs(repl string) string {
	return positionalRef.ReplaceAllStringFunc(repl, func(m string) string {
		if m == "$$" {
			return m
		}
		return "${" + m[1:] + "}"
	})
}

func evalStringOperand(e expr.Expr, t *table.Table, what string) (*table.Column, error) {
	c, err := Evaluate(e, t)
	if err != nil {
		return nil, err
	}
	if c.Type != table.TypeString {
		return nil, &table.UnsupportedOperandError{
			Op:     what,
			Reason: fmt.Sprintf("must be a string, got %s", c.Type),
		}
	}
	return c, nil
}

func evalContains(n *expr.StrContains, t *table.Table) (*table.Column, error) {
	return evalPatternMatch(n.Value, n.Pattern, t, n.Literal, "str_contains",
		func(s, pat string, re *regexp.Regexp) (any, error) {
			if re != nil {
				return re.MatchString(s), nil
			}
			return strings.Contains(s, pat), nil
		}, table.TypeBoolean)
}

func evalCountMatches(n *expr.CountMatches, t *table.Table) (*table.Column, error) {
	return evalPatternMatch(n.Value, n.Pattern, t, n.Literal, "count_matches",
		func(s, pat string, re *regexp.Regexp) (any, error) {
			if re != nil {
				return int64(len(re.FindAllStringIndex(s, -1))), nil
			}
			if pat == "" {
				return int64(0), nil
			}
			return int64(strings.Count(s, pat)), nil
		}, table.TypeInt64)
}

// evalPatternMatch runs a per-row match function over a value/pattern pair,
// handling null propagation and regex compilation.
func evalPatternMatch(
	value, pattern expr.Expr,
	t *table.Table,
	literal bool,
	op string,
	fn func(s, pat string, re *regexp.Regexp) (any, error),
	outType table.Type,
) (*table.Column, error) {
	in, err := Evaluate(value, t)
	if err != nil {
		return nil, err
	}
	if err := requireString(in, op); err != nil {
		return nil, err
	}
	pat, err := evalStringOperand(pattern, t, op+" pattern")
	if err != nil {
		return nil, err
	}
	cache := regexpCache{}
	out := table.NewColumn("", outType, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) || pat.IsNull(i) {
			out.AppendNull()
			continue
		}
		p := pat.Values[i].(string)
		var re *regexp.Regexp
		if !literal {
			if re, err = cache.get(p); err != nil {
				return nil, err
			}
		}
		v, err := fn(in.Values[i].(string), p, re)
		if err != nil {
			return nil, err
		}
		out.Append(v)
	}
	return out, nil
}

func evalAffix(value, affix expr.Expr, t *table.Table, prefix bool) (*table.Column, error) {
	op := "ends_with"
	if prefix {
		op = "starts_with"
	}
	in, err := Evaluate(value, t)
	if err != nil {
		return nil, err
	}
	if err := requireString(in, op); err != nil {
		return nil, err
	}
	af, err := evalStringOperand(affix, t, op)
	if err != nil {
		return nil, err
	}
	out := table.NewColumn("", table.TypeBoolean, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) || af.IsNull(i) {
			out.AppendNull()
			continue
		}
		s := in.Values[i].(string)
		a := af.Values[i].(string)
		if prefix {
			out.Append(strings.HasPrefix(s, a))
		} else {
			out.Append(strings.HasSuffix(s, a))
		}
	}
	return out, nil
}

func evalExtract(n *expr.StrExtract, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	if err := requireString(in, "str_extract"); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(n.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", n.Pattern, err)
	}
	if n.Group < 0 || n.Group > re.NumSubexp() {
		return nil, fmt.Errorf("str_extract group %d out of range (pattern has %d groups)",
			n.Group, re.NumSubexp())
	}
	out := table.NewColumn("", table.TypeString, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) {
			out.AppendNull()
			continue
		}
		m := re.FindStringSubmatch(in.Values[i].(string))
		if m == nil {
			out.AppendNull()
			continue
		}
		out.Append(m[n.Group])
	}
	return out, nil
}

// evalContainsAny matches each row against the full pattern set with one
// Aho-Corasick automaton, so cost per row does not depend on how many
// patterns there are.
func evalContainsAny(n *expr.ContainsAny, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	if err := requireString(in, "contains_any"); err != nil {
		return nil, err
	}
	matcher := ahocorasick.NewStringMatcher(n.Patterns)
	out := table.NewColumn("", table.TypeBoolean, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) {
			out.AppendNull()
			continue
		}
		hits := matcher.Match([]byte(in.Values[i].(string)))
		out.Append(len(hits) > 0)
	}
	return out, nil
}

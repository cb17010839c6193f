package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatValue renders a runtime cell the way the CSV writer and string
// operators present it. Null cells must be handled by the caller.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if math.IsInf(x, 1) {
			return "inf"
		}
		if math.IsInf(x, -1) {
			return "-inf"
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

// Compare orders two non-null cells. Numeric cells compare across int/float;
// strings, booleans (false < true) and temporals compare within their kind.
// Cells of incomparable kinds produce an error.
func Compare(a, b any) (int, error) {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			// Exact integer comparison when both sides are ints.
			ai, aInt := a.(int64)
			bi, bInt := b.(int64)
			if aInt && bInt {
				switch {
				case ai < bi:
					return -1, nil
				case ai > bi:
					return 1, nil
				}
				return 0, nil
			}
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			}
			return 0, nil
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case !x && y:
				return -1, nil
			case x && !y:
				return 1, nil
			}
			return 0, nil
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			switch {
			case x.Before(y):
				return -1, nil
			case x.After(y):
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, &UnsupportedOperandError{
		Op:     "compare",
		Reason: fmt.Sprintf("cannot compare %T with %T", a, b),
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// EncodeKey builds a collision-free string key from a tuple of cells, used
// for grouping, join matching and window partitioning. Values are length- and
// type-prefixed so that ("a","b") and ("ab","") encode differently and 1 and
// "1" encode differently.
func EncodeKey(cells []any, nulls []bool) string {
	var sb strings.Builder
	for i, v := range cells {
		if nulls[i] {
			sb.WriteString("n;")
			continue
		}
		var kind byte
		var s string
		switch x := v.(type) {
		case int64:
			kind, s = 'i', strconv.FormatInt(x, 10)
		case float64:
			// Integral floats share keys with ints so equi-joins across
			// numeric types behave like numeric equality.
			if x == math.Trunc(x) && !math.IsInf(x, 0) && math.Abs(x) < 1e15 {
				kind, s = 'i', strconv.FormatInt(int64(x), 10)
			} else {
				kind, s = 'f', strconv.FormatFloat(x, 'g', -1, 64)
			}
		case string:
			kind, s = 's', x
		case bool:
			kind, s = 'b', FormatValue(x)
		case time.Time:
			kind, s = 't', strconv.FormatInt(x.UnixNano(), 10)
		default:
			kind, s = 'x', FormatValue(v)
		}
		sb.WriteByte(kind)
		sb.WriteString(strconv.Itoa(len(s)))
		sb.WriteByte(':')
		sb.WriteString(s)
		sb.WriteByte(';')
	}
	return sb.String()
}

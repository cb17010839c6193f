package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

func evalCast(n *expr.Cast, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	out := table.NewColumn("", n.To, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) {
			out.AppendNull()
			continue
		}
		v, err := CastValue(in.Values[i], n.To)
		if err != nil {
			if n.Strict {
				return nil, table.NewCastError(in.Values[i], n.To, i, err.Error())
			}
			out.AppendNull()
			continue
		}
		out.Append(v)
	}
	return out, nil
}

// CastValue converts one non-null runtime cell to the target type. The error
// carries the reason only; callers decide between strict escalation and
// null-producing non-strict behavior.
func CastValue(v any, to table.Type) (any, error) {
	switch {
	case to.IsInteger():
		return castToInt(v, to)
	case to.IsFloat():
		return castToFloat(v)
	case to == table.TypeBoolean:
		return castToBool(v)
	case to == table.TypeString:
		return table.FormatValue(v), nil
	case to.IsTemporal():
		return castToTemporal(v, to)
	case to == table.TypeStruct:
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
		return nil, fmt.Errorf("value is not a struct")
	}
	return nil, fmt.Errorf("unknown target type %s", to)
}

func castToInt(v any, to table.Type) (any, error) {
	var n int64
	switch x := v.(type) {
	case int64:
		n = x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("not a finite number")
		}
		n = int64(math.Trunc(x))
	case bool:
		if x {
			n = 1
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal")
		}
		n = parsed
	case time.Time:
		return nil, fmt.Errorf("cannot cast temporal to integer")
	default:
		return nil, fmt.Errorf("cannot cast %T to integer", v)
	}
	min, max, _ := to.IntegerRange()
	if n < min || n > max {
		return nil, fmt.Errorf("value %d overflows %s", n, to)
	}
	return n, nil
}

func castToFloat(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal")
		}
		return f, nil
	}
	return nil, fmt.Errorf("cannot cast %T to float", v)
}

func castToBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean literal")
	}
	return nil, fmt.Errorf("cannot cast %T to boolean", v)
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func castToTemporal(v any, to table.Type) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if to == table.TypeTime {
			for _, layout := range []string{"15:04:05.999999999", "15:04:05", "15:04"} {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts, nil
				}
			}
			return nil, fmt.Errorf("invalid time literal")
		}
		for _, layout := range datetimeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				if to == table.TypeDate {
					y, m, d := ts.Date()
					return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
				}
				return ts, nil
			}
		}
		return nil, fmt.Errorf("invalid %s literal", strings.ToLower(string(to)))
	}
	return nil, fmt.Errorf("cannot cast %T to %s", v, to)
}

package mapper

import (
	"fmt"
	"strings"
)

func registerBuiltins(r *Registry) {
	r.Register("math.add", opAdd)
	r.Register("math.sub", opSub)
	r.Register("reduce.sum", opAdd)
	r.Register("string.concat", opConcat)
	r.Register("string.upper", opUpper)
	r.Register("string.lower", opLower)
	r.Register("bool.not", opNot)
	r.Register("list.len", opLen)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func opAdd(args ...any) (any, error) {
	var sum float64
	for _, a := range args {
		f, ok := toFloat(a)
		if !ok {
			return nil, fmt.Errorf("math.add: non-numeric argument %v", a)
		}
		sum += f
	}
	return sum, nil
}

func opSub(args ...any) (any, error) {
	if len(args) == 0 {
		return 0.0, nil
	}
	first, ok := toFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("math.sub: non-numeric argument %v", args[0])
	}
	for _, a := range args[1:] {
		f, ok := toFloat(a)
		if !ok {
			return nil, fmt.Errorf("math.sub: non-numeric argument %v", a)
		}
		first -= f
	}
	return first, nil
}

func opConcat(args ...any) (any, error) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(fmt.Sprint(a))
	}
	return sb.String(), nil
}

func opUpper(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("string.upper: expected 1 argument, got %d", len(args))
	}
	return strings.ToUpper(fmt.Sprint(args[0])), nil
}

func opLower(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("string.lower: expected 1 argument, got %d", len(args))
	}
	return strings.ToLower(fmt.Sprint(args[0])), nil
}

func opNot(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("bool.not: expected 1 argument, got %d", len(args))
	}
	b, ok := args[0].(bool)
	if !ok {
		return nil, fmt.Errorf("bool.not: non-boolean argument %v", args[0])
	}
	return !b, nil
}

func opLen(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("list.len: expected 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case []any:
		return float64(len(v)), nil
	case string:
		return float64(len(v)), nil
	default:
		return nil, fmt.Errorf("list.len: unsupported type %T", args[0])
	}
}

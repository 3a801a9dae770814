package operation

import (
	"fmt"
	"math"
	"strings"

	"github.com/hoppxi/adjust-brightness/pkg/displayinfo"
	"github.com/knetic/govaluate"
)

// EvalLevel evaluates a level expression such as "7", "level+2" or "+2"
// against the current level. A leading sign makes the expression relative.
// The result is rounded and clamped to [minLevel, Steps].
func EvalLevel(expr string, current, minLevel int) (int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty level expression")
	}
	if expr[0] == '+' || expr[0] == '-' {
		expr = "level" + expr
	}

	functions := map[string]govaluate.ExpressionFunction{
		"min": binary("min", math.Min),
		"max": binary("max", math.Max),
	}

	expression, err := govaluate.NewEvaluableExpressionWithFunctions(expr, functions)
	if err != nil {
		return 0, fmt.Errorf("invalid level expression %q: %w", expr, err)
	}

	result, err := expression.Evaluate(map[string]any{"level": float64(current)})
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate %q: %w", expr, err)
	}

	f, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("level expression %q is not numeric: %v", expr, result)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("level expression %q has no finite value", expr)
	}

	return clamp(int(math.Round(f)), minLevel, displayinfo.Steps), nil
}

// NeedsCurrent reports whether expr refers to the current level.
func NeedsCurrent(expr string) bool {
	expr = strings.TrimSpace(expr)
	return strings.HasPrefix(expr, "+") || strings.HasPrefix(expr, "-") || strings.Contains(expr, "level")
}

func clamp(v, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func binary(name string, fn func(a, b float64) float64) govaluate.ExpressionFunction {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s expects 2 arguments, got %d", name, len(args))
		}
		return fn(toFloat64(args[0]), toFloat64(args[1])), nil
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

package rules

import (
	"strings"

	"bnpl-financing-engine/internal/services/profile"
)

// Evaluate reports whether value satisfies cond against operand.
//
// Both sides compare numerically when both parse as numbers and as trimmed,
// case-insensitive strings otherwise. A null value only satisfies
// ConditionIsEmpty. Evaluate never panics; anything it cannot compare is false.
func Evaluate(value profile.Value, cond Condition, operand string) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
		}
	}()

	switch cond {
	case ConditionIsEmpty:
		return isEmpty(value)
	case ConditionIsNotEmpty:
		return !isEmpty(value)
	}

	if value.IsNull() {
		return false
	}

	switch cond {
	case ConditionEquals:
		return equals(value, operand)
	case ConditionNotEquals:
		return !equals(value, operand)
	case ConditionGreaterThan:
		c, ok := compareOK(value, operand)
		return ok && c > 0
	case ConditionGreaterThanOrEqual:
		c, ok := compareOK(value, operand)
		return ok && c >= 0
	case ConditionLessThan:
		c, ok := compareOK(value, operand)
		return ok && c < 0
	case ConditionLessThanOrEqual:
		c, ok := compareOK(value, operand)
		return ok && c <= 0
	case ConditionBetween:
		return between(value, operand)
	case ConditionContains:
		return strings.Contains(fold(value.String()), fold(operand))
	case ConditionNotContains:
		return !strings.Contains(fold(value.String()), fold(operand))
	case ConditionStartsWith:
		return strings.HasPrefix(fold(value.String()), fold(operand))
	case ConditionEndsWith:
		return strings.HasSuffix(fold(value.String()), fold(operand))
	case ConditionIn:
		return inList(value, operand)
	case ConditionNotIn:
		return !inList(value, operand)
	default:
		return false
	}
}

// Match parses a configured operator and evaluates it against the named
// profile field.
func Match(p *profile.Profile, field, condition, operand string) bool {
	value, _ := p.Get(field)
	return Evaluate(value, ParseCondition(condition), operand)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isEmpty(v profile.Value) bool {
	return v.IsNull() || strings.TrimSpace(v.String()) == ""
}

func equals(v profile.Value, operand string) bool {
	if a, ok := v.Number(); ok {
		if b, ok := profile.ParseNumber(operand); ok {
			return a == b
		}
	}
	return fold(v.String()) == fold(operand)
}

// compareOK orders v against operand. It reports false when either side is
// blank and the two cannot be ordered.
func compareOK(v profile.Value, operand string) (int, bool) {
	if a, ok := v.Number(); ok {
		if b, ok := profile.ParseNumber(operand); ok {
			return cmpFloat(a, b), true
		}
	}
	left, right := fold(v.String()), fold(operand)
	if left == "" || right == "" {
		return 0, false
	}
	return strings.Compare(left, right), true
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func between(v profile.Value, operand string) bool {
	low, high, ok := splitRange(operand)
	if !ok {
		return false
	}
	lo, okLo := compareOK(v, low)
	hi, okHi := compareOK(v, high)
	return okLo && okHi && lo >= 0 && hi <= 0
}

// splitRange accepts "min,max" and the numeric form "min-max"; a leading
// minus sign belongs to the lower bound.
func splitRange(operand string) (string, string, bool) {
	if parts := strings.Split(operand, ","); len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
	}
	s := strings.TrimSpace(operand)
	for i := 1; i < len(s); i++ {
		if s[i] != '-' {
			continue
		}
		low, high := strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
		_, okLo := profile.ParseNumber(low)
		_, okHi := profile.ParseNumber(high)
		if okLo && okHi {
			return low, high, true
		}
	}
	return "", "", false
}

func inList(v profile.Value, operand string) bool {
	for _, item := range strings.Split(operand, ",") {
		if equals(v, item) {
			return true
		}
	}
	return false
}

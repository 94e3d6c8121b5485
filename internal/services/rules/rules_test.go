package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bnpl-financing-engine/internal/services/profile"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		raw      string
		expected Condition
	}{
		{"equals", ConditionEquals},
		{"==", ConditionEquals},
		{"notEquals", ConditionNotEquals},
		{"!=", ConditionNotEquals},
		{"greaterThan", ConditionGreaterThan},
		{"greater_than", ConditionGreaterThan},
		{"Greater Than", ConditionGreaterThan},
		{">", ConditionGreaterThan},
		{">=", ConditionGreaterThanOrEqual},
		{"greaterThanOrEqual", ConditionGreaterThanOrEqual},
		{"lessThan", ConditionLessThan},
		{" < ", ConditionLessThan},
		{"<=", ConditionLessThanOrEqual},
		{"between", ConditionBetween},
		{"contains", ConditionContains},
		{"not_contains", ConditionNotContains},
		{"startsWith", ConditionStartsWith},
		{"ends-with", ConditionEndsWith},
		{"in", ConditionIn},
		{"notIn", ConditionNotIn},
		{"isEmpty", ConditionIsEmpty},
		{"is_not_empty", ConditionIsNotEmpty},
		{"approximately", ConditionUnknown},
		{"", ConditionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCondition(tt.raw))
		})
	}
}

func TestCondition_String(t *testing.T) {
	assert.Equal(t, "greaterThan", ConditionGreaterThan.String())
	assert.Equal(t, "unknown", Condition(999).String())
	for c := range conditionNames {
		assert.Equal(t, c, ParseCondition(c.String()), c.String())
	}
}

func TestEvaluate(t *testing.T) {
	num := profile.IntValue(1500)
	numText := profile.StringValue("1500")
	str := profile.StringValue("  Employed ")
	yes := profile.BoolValue(true)
	null := profile.Null()

	tests := []struct {
		name     string
		value    profile.Value
		cond     Condition
		operand  string
		expected bool
	}{
		{"equals numeric", num, ConditionEquals, "1500.00", true},
		{"equals numeric text", numText, ConditionEquals, "1500", true},
		{"equals string case-insensitive", str, ConditionEquals, "employed", true},
		{"equals bool", yes, ConditionEquals, "TRUE", true},
		{"equals mismatch", str, ConditionEquals, "unemployed", false},
		{"not equals", str, ConditionNotEquals, "unemployed", true},
		{"greater than", num, ConditionGreaterThan, "1000", true},
		{"greater than equal values", num, ConditionGreaterThan, "1500", false},
		{"greater than or equal", num, ConditionGreaterThanOrEqual, "1500", true},
		{"less than", num, ConditionLessThan, "2000", true},
		{"less than or equal", num, ConditionLessThanOrEqual, "1499", false},
		{"numeric beats lexicographic", profile.IntValue(9), ConditionLessThan, "10", true},
		{"string ordering", profile.StringValue("b"), ConditionGreaterThan, "A", true},
		{"greater than against blank", str, ConditionGreaterThan, "", false},
		{"between comma", num, ConditionBetween, "1000,2000", true},
		{"between dash", num, ConditionBetween, "1000-1500", true},
		{"between negative bound", profile.IntValue(-5), ConditionBetween, "-10-0", true},
		{"between outside", num, ConditionBetween, "0,100", false},
		{"between malformed", num, ConditionBetween, "lots", false},
		{"contains", str, ConditionContains, "PLOY", true},
		{"not contains", str, ConditionNotContains, "self", true},
		{"starts with", str, ConditionStartsWith, "emp", true},
		{"ends with", str, ConditionEndsWith, "yed", true},
		{"in list", str, ConditionIn, "self-employed, employed", true},
		{"in numeric list", num, ConditionIn, "1000,1500.0", true},
		{"not in list", str, ConditionNotIn, "retired,student", true},
		{"is empty null", null, ConditionIsEmpty, "", true},
		{"is empty blank", profile.StringValue("  "), ConditionIsEmpty, "", true},
		{"is empty zero", profile.IntValue(0), ConditionIsEmpty, "", false},
		{"is not empty", str, ConditionIsNotEmpty, "", true},
		{"unknown operator", num, ConditionUnknown, "1500", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Evaluate(tt.value, tt.cond, tt.operand))
		})
	}
}

func TestEvaluate_NullIsFalseExceptIsEmpty(t *testing.T) {
	for c := range conditionNames {
		expected := c == ConditionIsEmpty
		assert.Equal(t, expected, Evaluate(profile.Null(), c, "x"), c.String())
	}
}

func TestMatch(t *testing.T) {
	p := profile.New()
	p.Set(profile.NormalizeFieldName("income"), profile.IntValue(1500))

	assert.True(t, Match(p, "Income", "greaterThan", "1000"))
	assert.False(t, Match(p, "missing_field", "greaterThan", "1000"))
	assert.True(t, Match(p, "missing_field", "isEmpty", ""))
	assert.False(t, Match(p, "income", "bogus", "1000"))
}

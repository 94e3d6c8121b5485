// Package rules evaluates provider-configured predicates against profile values.
package rules

import (
	"strings"

	"bnpl-financing-engine/internal/services/profile"
)

// Condition is the closed set of comparison operators a rule may use.
type Condition int

const (
	ConditionUnknown Condition = iota
	ConditionEquals
	ConditionNotEquals
	ConditionGreaterThan
	ConditionGreaterThanOrEqual
	ConditionLessThan
	ConditionLessThanOrEqual
	ConditionBetween
	ConditionContains
	ConditionNotContains
	ConditionStartsWith
	ConditionEndsWith
	ConditionIn
	ConditionNotIn
	ConditionIsEmpty
	ConditionIsNotEmpty
)

var conditionNames = map[Condition]string{
	ConditionUnknown:            "unknown",
	ConditionEquals:             "equals",
	ConditionNotEquals:          "notEquals",
	ConditionGreaterThan:        "greaterThan",
	ConditionGreaterThanOrEqual: "greaterThanOrEqual",
	ConditionLessThan:           "lessThan",
	ConditionLessThanOrEqual:    "lessThanOrEqual",
	ConditionBetween:            "between",
	ConditionContains:           "contains",
	ConditionNotContains:        "notContains",
	ConditionStartsWith:         "startsWith",
	ConditionEndsWith:           "endsWith",
	ConditionIn:                 "in",
	ConditionNotIn:              "notIn",
	ConditionIsEmpty:            "isEmpty",
	ConditionIsNotEmpty:         "isNotEmpty",
}

func (c Condition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return conditionNames[ConditionUnknown]
}

var symbolAliases = map[string]Condition{
	"=":   ConditionEquals,
	"==":  ConditionEquals,
	"===": ConditionEquals,
	"!=":  ConditionNotEquals,
	"!==": ConditionNotEquals,
	"<>":  ConditionNotEquals,
	">":   ConditionGreaterThan,
	">=":  ConditionGreaterThanOrEqual,
	"<":   ConditionLessThan,
	"<=":  ConditionLessThanOrEqual,
}

// Word aliases are matched after NormalizeFieldName, so "greater_than",
// "Greater Than" and "greaterThan" all resolve to the same operator.
var wordAliases = map[profile.FieldName]Condition{
	"equals": ConditionEquals, "equal": ConditionEquals, "eq": ConditionEquals, "is": ConditionEquals,
	"notequals": ConditionNotEquals, "notequal": ConditionNotEquals, "ne": ConditionNotEquals,
	"neq": ConditionNotEquals, "isnot": ConditionNotEquals,
	"greaterthan": ConditionGreaterThan, "gt": ConditionGreaterThan, "above": ConditionGreaterThan,
	"greaterthanorequal": ConditionGreaterThanOrEqual, "greaterthanorequalto": ConditionGreaterThanOrEqual,
	"gte": ConditionGreaterThanOrEqual, "ge": ConditionGreaterThanOrEqual, "atleast": ConditionGreaterThanOrEqual,
	"lessthan": ConditionLessThan, "lt": ConditionLessThan, "below": ConditionLessThan,
	"lessthanorequal": ConditionLessThanOrEqual, "lessthanorequalto": ConditionLessThanOrEqual,
	"lte": ConditionLessThanOrEqual, "le": ConditionLessThanOrEqual, "atmost": ConditionLessThanOrEqual,
	"between": ConditionBetween, "range": ConditionBetween, "inrange": ConditionBetween,
	"contains": ConditionContains, "includes": ConditionContains,
	"notcontains": ConditionNotContains, "doesnotcontain": ConditionNotContains, "excludes": ConditionNotContains,
	"startswith": ConditionStartsWith, "beginswith": ConditionStartsWith,
	"endswith": ConditionEndsWith,
	"in": ConditionIn, "oneof": ConditionIn, "isoneof": ConditionIn, "isin": ConditionIn,
	"notin": ConditionNotIn, "notoneof": ConditionNotIn, "isnotin": ConditionNotIn,
	"isempty": ConditionIsEmpty, "empty": ConditionIsEmpty, "isnull": ConditionIsEmpty, "missing": ConditionIsEmpty,
	"isnotempty": ConditionIsNotEmpty, "notempty": ConditionIsNotEmpty, "isnotnull": ConditionIsNotEmpty,
	"exists": ConditionIsNotEmpty, "present": ConditionIsNotEmpty,
}

// ParseCondition resolves a configured operator. Unrecognized operators yield
// ConditionUnknown, which never matches.
func ParseCondition(raw string) Condition {
	trimmed := strings.TrimSpace(raw)
	if c, ok := symbolAliases[trimmed]; ok {
		return c
	}
	if c, ok := wordAliases[profile.NormalizeFieldName(trimmed)]; ok {
		return c
	}
	return ConditionUnknown
}

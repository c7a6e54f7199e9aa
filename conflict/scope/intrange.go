package scope

import (
	"strconv"
	"strings"
)

// RangeSymbol separates the two ends of an integer range scope.
const RangeSymbol = "-"

// IntegerRange interprets scopes as either an exact integer ("2") or an
// inclusive range ("0-123"). Candidates are single integers.
type IntegerRange struct{}

var _ Interpreter = IntegerRange{}

// IsInScope reports whether scopeToCheck (an integer) falls inside scope.
// Either side being empty matches; any unparsable input does not match. An
// incomplete range such as "12-" never matches.
func (IntegerRange) IsInScope(scopeToCheck, scope string) bool {
	if scopeToCheck == "" || scope == "" {
		return true
	}

	candidate, err := strconv.Atoi(strings.TrimSpace(scopeToCheck))
	if err != nil {
		return false
	}

	idx := strings.Index(scope, RangeSymbol)
	if idx < 0 {
		exact, err := strconv.Atoi(strings.TrimSpace(scope))
		if err != nil {
			return false
		}
		return candidate == exact
	}

	start, err := strconv.Atoi(strings.TrimSpace(scope[:idx]))
	if err != nil {
		return false
	}
	end, err := strconv.Atoi(strings.TrimSpace(scope[idx+1:]))
	if err != nil {
		return false
	}
	return start <= candidate && candidate <= end
}

func (IntegerRange) RuleScopeComparer() Comparer { return CompareStrings }

func (IntegerRange) ScopeSyntaxHint() string {
	return "An integer range scope:\n" +
		"  1. 0-123 - any integer from 0 to 123 inclusively.\n" +
		"  2. 2 - an exact match of integer 2"
}

func (r IntegerRange) ValidateRuleScope(ruleScope string) (bool, string) {
	if ruleScope == "" {
		return true, ScopeIsValid
	}

	idx := strings.Index(ruleScope, RangeSymbol)
	if idx < 0 {
		if _, err := strconv.Atoi(strings.TrimSpace(ruleScope)); err != nil {
			return false, r.ScopeSyntaxHint()
		}
		return true, ScopeIsValid
	}

	if _, err := strconv.Atoi(strings.TrimSpace(ruleScope[:idx])); err != nil {
		return false, r.ScopeSyntaxHint()
	}
	if _, err := strconv.Atoi(strings.TrimSpace(ruleScope[idx+1:])); err != nil {
		return false, r.ScopeSyntaxHint()
	}
	return true, ScopeIsValid
}

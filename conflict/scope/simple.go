package scope

import (
	"fmt"
	"strconv"
	"strings"
)

// Global matches everything. Used by conflict types whose instances are
// indistinguishable by location, e.g. runtime-error conflicts resolved by a
// blanket rule.
type Global struct{}

var _ Interpreter = Global{}

func (Global) IsInScope(scopeToCheck, scope string) bool { return true }

func (Global) RuleScopeComparer() Comparer { return CompareStrings }

func (Global) ScopeSyntaxHint() string {
	return "Any string is acceptable - this scope is always evaluated to be true."
}

func (Global) ValidateRuleScope(ruleScope string) (bool, string) {
	return true, ScopeIsValid
}

// ExactString requires an exact (case-insensitive) string match. The wildcard
// "*" matches everything, and an empty candidate or scope always matches.
type ExactString struct{}

var _ Interpreter = ExactString{}

func (ExactString) IsInScope(scopeToCheck, scope string) bool {
	if scopeToCheck == "" || scope == "" {
		return true
	}
	if scope == "*" {
		return true
	}
	return strings.EqualFold(scopeToCheck, scope)
}

func (ExactString) RuleScopeComparer() Comparer { return CompareStrings }

func (ExactString) ScopeSyntaxHint() string {
	return "This is a scope interpreter that requires an exact string match."
}

func (ExactString) ValidateRuleScope(ruleScope string) (bool, string) {
	// Any string is valid.
	return true, ScopeIsValid
}

// ChangeGroupID requires an exact integer match against a change group id.
type ChangeGroupID struct{}

var _ Interpreter = ChangeGroupID{}

func (ChangeGroupID) IsInScope(scopeToCheck, scope string) bool {
	if scopeToCheck == "" || scope == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(scopeToCheck), strings.TrimSpace(scope))
}

func (ChangeGroupID) RuleScopeComparer() Comparer { return CompareStrings }

func (ChangeGroupID) ScopeSyntaxHint() string {
	return "A change group id, e.g. 1523. The id must match exactly."
}

func (c ChangeGroupID) ValidateRuleScope(ruleScope string) (bool, string) {
	ruleScope = strings.TrimSpace(ruleScope)
	if ruleScope == "" {
		return true, ScopeIsValid
	}
	if _, err := strconv.Atoi(ruleScope); err != nil {
		return false, fmt.Sprintf("%q is not a valid scope: an integer value is expected", ruleScope)
	}
	return true, ScopeIsValid
}

// Label never matches: label conflicts are always resolved individually.
type Label struct{}

var _ Interpreter = Label{}

func (Label) IsInScope(scopeToCheck, scope string) bool { return false }

func (Label) RuleScopeComparer() Comparer { return CompareStrings }

func (Label) ScopeSyntaxHint() string {
	return "Any string is acceptable - this scope is always evaluated to be false."
}

func (Label) ValidateRuleScope(ruleScope string) (bool, string) {
	return true, ScopeIsValid
}

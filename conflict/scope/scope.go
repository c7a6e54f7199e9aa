// Package scope implements the pluggable scope-matching strategies used to
// decide whether a conflict falls inside the applicability scope of a
// resolution rule. Each conflict type binds exactly one Interpreter; the
// interpreter also supplies the ordering used to evaluate rules from most
// specific to least specific.
package scope

import "strings"

// ScopeIsValid is the hint returned for scopes that pass validation.
const ScopeIsValid = "The scope is valid."

// Interpreter answers "does scope A fall inside scope B" for one scope
// syntax, orders rule scopes by specificity, and validates rule scopes
// entered by an operator.
type Interpreter interface {
	// IsInScope reports whether scopeToCheck falls within scope. A malformed
	// input never panics; it simply does not match.
	IsInScope(scopeToCheck, scope string) bool

	// RuleScopeComparer orders two rule scopes. A negative result means a
	// sorts before b (a is evaluated first).
	RuleScopeComparer() Comparer

	// ScopeSyntaxHint describes the accepted scope syntax.
	ScopeSyntaxHint() string

	// ValidateRuleScope checks a candidate rule scope and returns a
	// human-readable hint describing the outcome.
	ValidateRuleScope(ruleScope string) (bool, string)
}

// Comparer orders two scope strings for rule evaluation.
type Comparer func(a, b string) int

// CompareStrings is the default scope ordering used by interpreters whose
// scopes have no structural notion of specificity: case-insensitive lexical
// comparison, empty scopes last.
func CompareStrings(a, b string) int {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" && b == "" {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	switch {
	case la < lb:
		return -1
	case la > lb:
		return 1
	default:
		return 0
	}
}

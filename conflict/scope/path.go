package scope

import "strings"

// PathSeparator separates the elements of a basic path scope.
const PathSeparator = "/"

// BasicPath is the default interpreter: scopes are Unix-like paths and a
// candidate is in scope when the rule scope is a per-element prefix of it.
// Comparison is case-insensitive, matching how the migration endpoints treat
// server paths.
type BasicPath struct{}

var _ Interpreter = BasicPath{}

// IsInScope reports whether scopeToCheck falls under scope. An empty scope or
// the bare separator matches everything; an empty candidate matches nothing.
// Malformed inputs (not starting with the separator) never match.
func (BasicPath) IsInScope(scopeToCheck, scope string) bool {
	scopeToCheck = strings.TrimSpace(scopeToCheck)
	scope = strings.TrimSpace(scope)

	if !pathScopeWellFormed(scopeToCheck) || !pathScopeWellFormed(scope) {
		return false
	}

	if scope == "" || strings.EqualFold(scope, PathSeparator) {
		return true
	}
	if scopeToCheck == "" {
		return false
	}

	checkParts := strings.Split(scopeToCheck, PathSeparator)
	scopeParts := strings.Split(scope, PathSeparator)

	if len(scopeParts) > len(checkParts) {
		return false
	}
	for i := range scopeParts {
		if !strings.EqualFold(checkParts[i], scopeParts[i]) {
			return false
		}
	}
	return true
}

// RuleScopeComparer orders deeper paths first so the most specific rule is
// evaluated before its ancestors.
func (BasicPath) RuleScopeComparer() Comparer {
	return comparePathScopes
}

func (BasicPath) ScopeSyntaxHint() string {
	return "UNIX-style path, e.g. /a/b/c"
}

func (p BasicPath) ValidateRuleScope(ruleScope string) (bool, string) {
	if pathScopeWellFormed(strings.TrimSpace(ruleScope)) {
		return true, ScopeIsValid
	}
	return false, p.ScopeSyntaxHint()
}

// pathScopeWellFormed accepts the empty scope and any scope starting with the
// path separator.
func pathScopeWellFormed(s string) bool {
	if s == "" {
		return true
	}
	return strings.HasPrefix(s, PathSeparator)
}

func comparePathScopes(a, b string) int {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)

	if a == "" {
		if b == "" {
			return 0
		}
		return 1
	}
	if b == "" {
		return -1
	}

	aParts := strings.Split(a, PathSeparator)
	bParts := strings.Split(b, PathSeparator)

	// Deeper scope sorts first.
	if len(aParts) < len(bParts) {
		return 1
	}
	if len(aParts) > len(bParts) {
		return -1
	}

	for i := range aParts {
		la, lb := strings.ToLower(aParts[i]), strings.ToLower(bParts[i])
		if la < lb {
			return -1
		}
		if la > lb {
			return 1
		}
	}
	return 0
}

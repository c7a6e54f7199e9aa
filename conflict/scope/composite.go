package scope

import "strings"

// PathAndRange combines a path scope with an optional integer-range postfix,
// separated by a semicolon: "/team/folder;112-200". The path part uses the
// BasicPath containment rules; the postfix, when present on the rule scope,
// must also match.
type PathAndRange struct {
	path BasicPath
	rng  IntegerRange
}

var _ Interpreter = PathAndRange{}

func (p PathAndRange) IsInScope(scopeToCheck, scope string) bool {
	if scopeToCheck == "" || scope == "" {
		return false
	}

	scopeToCheck = strings.TrimRight(scopeToCheck, ";")
	scope = strings.TrimRight(scope, ";")

	scopeSep := strings.LastIndex(scope, ";")
	checkSep := strings.LastIndex(scopeToCheck, ";")

	if scopeSep < 0 {
		// Rule scope is path only; ignore any postfix on the candidate.
		checkPath := scopeToCheck
		if checkSep >= 0 {
			checkPath = scopeToCheck[:checkSep]
		}
		return p.path.IsInScope(checkPath, scope)
	}

	if checkSep < 0 {
		// Rule scope is more specific than the candidate.
		return false
	}

	if !p.path.IsInScope(scopeToCheck[:checkSep], scope[:scopeSep]) {
		return false
	}
	return p.rng.IsInScope(scopeToCheck[checkSep+1:], scope[scopeSep+1:])
}

func (p PathAndRange) RuleScopeComparer() Comparer {
	return func(a, b string) int {
		aPath, aRest := splitPathScope(a)
		bPath, bRest := splitPathScope(b)
		if c := comparePathScopes(aPath, bPath); c != 0 {
			return c
		}
		return CompareStrings(aRest, bRest)
	}
}

func (PathAndRange) ScopeSyntaxHint() string {
	return "A path and an optional integer range specific to the migration endpoint, e.g. /team/folder;12311"
}

func (p PathAndRange) ValidateRuleScope(ruleScope string) (bool, string) {
	sep := strings.LastIndex(ruleScope, ";")
	if sep < 0 {
		return p.path.ValidateRuleScope(ruleScope)
	}

	if ok, _ := p.path.ValidateRuleScope(ruleScope[:sep]); !ok {
		return false, p.ScopeSyntaxHint()
	}
	if ok, _ := p.rng.ValidateRuleScope(ruleScope[sep+1:]); !ok {
		return false, p.ScopeSyntaxHint()
	}
	return true, ScopeIsValid
}

func splitPathScope(s string) (path, rest string) {
	s = strings.TrimRight(strings.TrimSpace(s), ";")
	if sep := strings.LastIndex(s, ";"); sep >= 0 {
		return s[:sep], s[sep+1:]
	}
	return s, ""
}

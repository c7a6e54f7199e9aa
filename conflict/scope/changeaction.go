package scope

import (
	"fmt"

	"github.com/c0deZ3R0/go-migrate-kit/migration"
)

// ChangeActionSet interprets scopes as comma-delimited symbolic change-action
// names combined with bitwise OR, e.g. "Edit,Rename". A candidate is in scope
// when every bit it carries is covered by the scope's mask. Tokens that parse
// as integers are rejected during validation so raw numeric bit patterns
// cannot bypass the symbolic-name checks.
type ChangeActionSet struct{}

var _ Interpreter = ChangeActionSet{}

func (ChangeActionSet) IsInScope(scopeToCheck, scope string) bool {
	if scopeToCheck == "" || scope == "" {
		return true
	}

	candidate, err := migration.ParseChangeAction(scopeToCheck)
	if err != nil {
		return false
	}
	mask, err := migration.ParseChangeAction(scope)
	if err != nil {
		return false
	}
	return mask.Has(candidate)
}

func (ChangeActionSet) RuleScopeComparer() Comparer { return CompareStrings }

func (ChangeActionSet) ScopeSyntaxHint() string {
	return "A comma-delimited list of change action names, e.g. Edit,Rename. Only symbolic names are accepted."
}

func (c ChangeActionSet) ValidateRuleScope(ruleScope string) (bool, string) {
	if ruleScope == "" {
		return true, ScopeIsValid
	}
	if _, err := migration.ParseChangeAction(ruleScope); err != nil {
		return false, fmt.Sprintf("%v. %s", err, c.ScopeSyntaxHint())
	}
	return true, ScopeIsValid
}

package conflict

import (
	"sort"

	"github.com/google/uuid"
)

// Rule states persisted with each resolution rule.
const (
	RuleStatusValid      = 0
	RuleStatusDeprecated = 1
)

// ResolutionRule binds an applicability scope to a resolution action plus the
// action-specific data fields. Rules come from admin configuration and are
// immutable at resolution time.
type ResolutionRule struct {
	// RuleReferenceName uniquely identifies this rule.
	RuleReferenceName uuid.UUID

	// ActionReferenceName names the resolution action this rule applies.
	ActionReferenceName uuid.UUID

	// ApplicabilityScope is interpreted by the conflict type's scope
	// interpreter.
	ApplicabilityScope string

	// Description is the operator-facing description of the rule.
	Description string

	// DataFields carries the typed values required by the action's DataKeys.
	DataFields map[string]string
}

// NewRule creates a rule for the given action with a fresh reference name.
func NewRule(action ResolutionAction, applicabilityScope, description string, dataFields map[string]string) ResolutionRule {
	return ResolutionRule{
		RuleReferenceName:   uuid.New(),
		ActionReferenceName: action.ReferenceName,
		ApplicabilityScope:  applicabilityScope,
		Description:         description,
		DataFields:          dataFields,
	}
}

// DataField returns the value for key, with ok reporting presence.
func (r ResolutionRule) DataField(key string) (string, bool) {
	v, ok := r.DataFields[key]
	return v, ok
}

// MissingDataKeys returns the action data keys the rule does not supply.
func (r ResolutionRule) MissingDataKeys(action ResolutionAction) []string {
	var missing []string
	for _, key := range action.DataKeys {
		if _, ok := r.DataFields[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// SortRules orders rules most-specific-first using the conflict type's scope
// comparer. The sort is stable: rules whose scopes compare equal keep their
// configuration order, which makes re-runs reproducible.
func SortRules(rules []ResolutionRule, t *Type) {
	cmp := t.Interpreter.RuleScopeComparer()
	sort.SliceStable(rules, func(i, j int) bool {
		return cmp(rules[i].ApplicabilityScope, rules[j].ApplicabilityScope) < 0
	})
}

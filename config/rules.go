// Package config loads and validates YAML resolution-rule documents. A
// document is an ordered list of rules; document order is the tie-breaker
// when rule scopes compare equal, so imports preserve it.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/c0deZ3R0/go-migrate-kit/conflict"
	merrors "github.com/c0deZ3R0/go-migrate-kit/errors"
)

// RuleDocument is the top-level YAML structure.
type RuleDocument struct {
	// SessionGroup optionally names the session group the rules belong to.
	SessionGroup string `yaml:"sessionGroup,omitempty"`

	Rules []RuleEntry `yaml:"rules"`
}

// RuleEntry is one configured resolution rule.
type RuleEntry struct {
	// Rule is the rule's reference name. Empty on import means a fresh one
	// is assigned.
	Rule string `yaml:"rule,omitempty"`

	// ConflictType is the reference name of the conflict type the rule
	// applies to.
	ConflictType string `yaml:"conflictType"`

	// Action is the reference name of the resolution action.
	Action string `yaml:"action"`

	// Scope is the applicability scope, interpreted by the conflict type's
	// scope interpreter.
	Scope string `yaml:"scope"`

	Description string            `yaml:"description,omitempty"`
	DataFields  map[string]string `yaml:"dataFields,omitempty"`
}

// Load reads and parses a rule document from path.
func Load(path string) (*RuleDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, merrors.NewConfigError(merrors.OpConfigLoad, fmt.Errorf("read %s: %w", path, err))
	}
	return Parse(data)
}

// Parse parses a YAML rule document.
func Parse(data []byte) (*RuleDocument, error) {
	var doc RuleDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, merrors.NewConfigError(merrors.OpConfigLoad, fmt.Errorf("parse rule document: %w", err))
	}
	return &doc, nil
}

// Validate checks every entry against the registry: the conflict type must be
// registered, the action supported by it, the scope well formed under the
// type's interpreter, and the action's data keys supplied. All problems are
// reported, joined into one error.
func (d *RuleDocument) Validate(reg *conflict.Registry) error {
	var problems []error
	for i, entry := range d.Rules {
		if _, _, _, err := entry.resolve(reg); err != nil {
			problems = append(problems, fmt.Errorf("rule %d: %w", i, err))
		}
	}
	if len(problems) > 0 {
		return merrors.NewValidationError(merrors.OpConfigLoad, errors.Join(problems...))
	}
	return nil
}

// Resolve maps an entry onto the registered conflict type and a ResolutionRule.
func (e RuleEntry) Resolve(reg *conflict.Registry) (*conflict.Type, conflict.ResolutionRule, error) {
	t, action, ruleRef, err := e.resolve(reg)
	if err != nil {
		return nil, conflict.ResolutionRule{}, merrors.NewValidationError(merrors.OpConfigLoad, err)
	}
	rule := conflict.ResolutionRule{
		RuleReferenceName:   ruleRef,
		ActionReferenceName: action.ReferenceName,
		ApplicabilityScope:  e.Scope,
		Description:         e.Description,
		DataFields:          e.DataFields,
	}
	return t, rule, nil
}

func (e RuleEntry) resolve(reg *conflict.Registry) (*conflict.Type, conflict.ResolutionAction, uuid.UUID, error) {
	var zero conflict.ResolutionAction

	typeRef, err := uuid.Parse(e.ConflictType)
	if err != nil {
		return nil, zero, uuid.Nil, fmt.Errorf("invalid conflictType %q: %w", e.ConflictType, err)
	}
	t, ok := reg.Lookup(typeRef)
	if !ok {
		return nil, zero, uuid.Nil, fmt.Errorf("conflict type %s is not registered", typeRef)
	}

	actionRef, err := uuid.Parse(e.Action)
	if err != nil {
		return nil, zero, uuid.Nil, fmt.Errorf("invalid action %q: %w", e.Action, err)
	}
	action, ok := t.SupportsAction(actionRef)
	if !ok {
		return nil, zero, uuid.Nil, fmt.Errorf("conflict type %q does not support action %s", t.FriendlyName, actionRef)
	}

	if valid, hint := t.Interpreter.ValidateRuleScope(e.Scope); !valid {
		return nil, zero, uuid.Nil, fmt.Errorf("invalid scope %q: %s", e.Scope, hint)
	}

	rule := conflict.ResolutionRule{
		ActionReferenceName: action.ReferenceName,
		DataFields:          e.DataFields,
	}
	if missing := rule.MissingDataKeys(action); len(missing) > 0 {
		return nil, zero, uuid.Nil, fmt.Errorf("missing data fields %v required by action %q", missing, action.FriendlyName)
	}

	ruleRef := uuid.New()
	if e.Rule != "" {
		if ruleRef, err = uuid.Parse(e.Rule); err != nil {
			return nil, zero, uuid.Nil, fmt.Errorf("invalid rule reference %q: %w", e.Rule, err)
		}
	}
	return t, action, ruleRef, nil
}

// Export renders persisted rule records back into a YAML document, preserving
// record order.
func Export(sessionGroup string, rules []ExportedRule) ([]byte, error) {
	doc := RuleDocument{SessionGroup: sessionGroup}
	for _, r := range rules {
		doc.Rules = append(doc.Rules, RuleEntry{
			Rule:         r.RuleRef.String(),
			ConflictType: r.TypeRef.String(),
			Action:       r.ActionRef.String(),
			Scope:        r.Scope,
			Description:  r.Description,
			DataFields:   r.DataFields,
		})
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, merrors.NewConfigError(merrors.OpConfigLoad, err)
	}
	return out, nil
}

// ExportedRule is the storage-independent view of a persisted rule.
type ExportedRule struct {
	RuleRef     uuid.UUID
	TypeRef     uuid.UUID
	ActionRef   uuid.UUID
	Scope       string
	Description string
	DataFields  map[string]string
}

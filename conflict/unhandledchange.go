package conflict

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/c0deZ3R0/go-migrate-kit/conflict/scope"
	"github.com/c0deZ3R0/go-migrate-kit/migration"
)

// UnhandledChangeActionTypeID identifies the conflict type raised when a
// change-action bitmask has no mapping the target endpoint understands.
var UnhandledChangeActionTypeID = uuid.MustParse("d3c8b7a6-0f19-4e52-a4b3-6c5d7e8f9a01")

// NewUnhandledChangeActionConflictType builds the unhandled change-action
// conflict type. Rule scopes are comma-delimited symbolic change-action
// names.
func NewUnhandledChangeActionConflictType() *Type {
	return &Type{
		ReferenceName: UnhandledChangeActionTypeID,
		FriendlyName:  "Unhandled change action conflict type",
		Handler:       unhandledChangeActionHandler{},
		Interpreter:   scope.ChangeActionSet{},
		SupportedActions: []ResolutionAction{
			ActionMapChangeAction,
			ActionSkip,
			ActionManual,
		},
	}
}

// NewUnhandledChangeActionConflict creates a conflict for a migration action
// whose change bitmask the target cannot handle. The scope hint is the
// symbolic rendering of the bitmask.
func NewUnhandledChangeActionConflict(t *Type, action *migration.Action) *MigrationConflict {
	c := t.NewConflict(
		fmt.Sprintf("change action %s on %s is not handled by the target endpoint", action.Change, action.Path),
		action.Change.String(),
	)
	c.ConflictedAction = action
	return c
}

type unhandledChangeActionHandler struct {
	baseHandler
}

func (unhandledChangeActionHandler) Resolve(ctx context.Context, svc Services, c *MigrationConflict, rule ResolutionRule) (ResolutionResult, []*migration.Action, error) {
	switch rule.ActionReferenceName {
	case ActionMapChangeAction.ReferenceName:
		return resolveChangeActionMap(c, rule), nil, nil

	case ActionSkip.ReferenceName:
		// Skip never records a mapping; it only suppresses this action.
		skipConflictedAction(c)
		return NewResult(true, OutcomeSkipConflictedChangeAction), nil, nil

	case ActionManual.ReferenceName:
		return NewResult(true, OutcomeOther), nil, nil

	default:
		return NewResult(false, OutcomeUnknownResolutionAction), nil, nil
	}
}

// resolveChangeActionMap validates and applies a MapFrom -> MapTo remap. The
// target mask must be a subset of the source mask: a remap may narrow a
// change action, never invent bits the source did not carry.
func resolveChangeActionMap(c *MigrationConflict, rule ResolutionRule) ResolutionResult {
	fromRaw, ok := rule.DataField(DataKeyMapFrom)
	if !ok {
		return NewResult(false, OutcomeOther).
			WithComment(fmt.Sprintf("rule %s is missing the %s data field", rule.RuleReferenceName, DataKeyMapFrom))
	}
	toRaw, ok := rule.DataField(DataKeyMapTo)
	if !ok {
		return NewResult(false, OutcomeOther).
			WithComment(fmt.Sprintf("rule %s is missing the %s data field", rule.RuleReferenceName, DataKeyMapTo))
	}

	mapFrom, err := migration.ParseChangeAction(fromRaw)
	if err != nil {
		return NewResult(false, OutcomeOther).
			WithComment(fmt.Sprintf("invalid %s value: %v", DataKeyMapFrom, err))
	}
	mapTo, err := migration.ParseChangeAction(toRaw)
	if err != nil {
		return NewResult(false, OutcomeOther).
			WithComment(fmt.Sprintf("invalid %s value: %v", DataKeyMapTo, err))
	}

	if mapTo&mapFrom != mapTo {
		return NewResult(false, OutcomeOther).
			WithComment(fmt.Sprintf("cannot map %s to %s: the target mask must be contained in the source mask", mapFrom, mapTo))
	}

	if c.ConflictedAction != nil {
		c.ConflictedAction.Change = mapTo
	}
	return NewResult(true, OutcomeUpdatedConflictedChangeAction).
		WithComment(fmt.Sprintf("mapped change action %s to %s", mapFrom, mapTo))
}

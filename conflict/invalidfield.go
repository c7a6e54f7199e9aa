package conflict

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/c0deZ3R0/go-migrate-kit/conflict/scope"
	"github.com/c0deZ3R0/go-migrate-kit/migration"
)

// InvalidFieldValueTypeID identifies the invalid field value conflict type.
var InvalidFieldValueTypeID = uuid.MustParse("a0b1c2d3-e4f5-4678-9a0b-1c2d3e4f5a67")

// NewInvalidFieldValueConflictType builds the conflict type raised when a
// work-item field carries a value the target endpoint rejects.
func NewInvalidFieldValueConflictType() *Type {
	return &Type{
		ReferenceName: InvalidFieldValueTypeID,
		FriendlyName:  "Invalid field value conflict type",
		Handler:       invalidFieldValueHandler{},
		Interpreter:   scope.BasicPath{},
		SupportedActions: []ResolutionAction{
			ActionMapFieldValue,
			ActionSkip,
			ActionManual,
		},
	}
}

// NewInvalidFieldValueConflict creates a conflict for a rejected field value.
// The scope hint is /itemType/fieldName/value so rules can match anywhere
// from a whole item type down to one specific value.
func NewInvalidFieldValueConflict(t *Type, itemType, fieldName, value string) *MigrationConflict {
	return t.NewConflict(
		fmt.Sprintf("value %q is not valid for field %s of %s", value, fieldName, itemType),
		fmt.Sprintf("/%s/%s/%s", itemType, fieldName, value),
	)
}

type invalidFieldValueHandler struct {
	baseHandler
}

func (invalidFieldValueHandler) Resolve(ctx context.Context, svc Services, c *MigrationConflict, rule ResolutionRule) (ResolutionResult, []*migration.Action, error) {
	switch rule.ActionReferenceName {
	case ActionMapFieldValue.ReferenceName:
		mapFrom, ok := rule.DataField(DataKeyMapFrom)
		if !ok {
			return NewResult(false, OutcomeOther).
				WithComment(fmt.Sprintf("rule %s is missing the %s data field", rule.RuleReferenceName, DataKeyMapFrom)), nil, nil
		}
		mapTo, ok := rule.DataField(DataKeyMapTo)
		if !ok {
			return NewResult(false, OutcomeOther).
				WithComment(fmt.Sprintf("rule %s is missing the %s data field", rule.RuleReferenceName, DataKeyMapTo)), nil, nil
		}
		// The mapping is recorded for the migration pipeline to apply on the
		// next submission of the conflicted item.
		return NewResult(true, OutcomeChangeMappingInConfiguration).
			WithComment(fmt.Sprintf("field value %q mapped to %q", mapFrom, mapTo)), nil, nil

	case ActionSkip.ReferenceName:
		skipConflictedAction(c)
		return NewResult(true, OutcomeSkipConflictedChangeAction), nil, nil

	case ActionManual.ReferenceName:
		return NewResult(true, OutcomeOther), nil, nil

	default:
		return NewResult(false, OutcomeUnknownResolutionAction), nil, nil
	}
}

package conflict

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/c0deZ3R0/go-migrate-kit/conflict/scope"
	"github.com/c0deZ3R0/go-migrate-kit/migration"
)

// CyclicLinkTypeID identifies the cyclic link reference conflict type.
var CyclicLinkTypeID = uuid.MustParse("bf1277e9-a218-4a2d-8c3c-a9501d30ecd5")

// NewCyclicLinkConflictType builds the conflict type raised when submitting a
// link would introduce circularity in a link hierarchy.
func NewCyclicLinkConflictType() *Type {
	return &Type{
		ReferenceName: CyclicLinkTypeID,
		FriendlyName:  "Circularity in link hierarchy conflict type",
		Handler:       cyclicLinkHandler{},
		Interpreter:   scope.BasicPath{},
		SupportedActions: []ResolutionAction{
			ActionDropLink,
			ActionManual,
		},
	}
}

// NewCyclicLinkConflict creates a cyclic link conflict for the given link
// change action. The scope hint is the link's item pair rendered as a path so
// rules can target specific hierarchies.
func NewCyclicLinkConflict(t *Type, link *migration.LinkChangeAction) *MigrationConflict {
	c := t.NewConflict(
		fmt.Sprintf("adding %s link %s -> %s would introduce circularity", link.LinkType, link.SourceItem, link.TargetItem),
		fmt.Sprintf("/%s/%s", link.SourceItem, link.TargetItem),
	)
	c.ConflictedLinkAction = link
	return c
}

type cyclicLinkHandler struct {
	baseHandler
}

func (cyclicLinkHandler) Resolve(ctx context.Context, svc Services, c *MigrationConflict, rule ResolutionRule) (ResolutionResult, []*migration.Action, error) {
	switch rule.ActionReferenceName {
	case ActionDropLink.ReferenceName:
		if c.ConflictedLinkAction == nil {
			return NewResult(false, OutcomeOther).
				WithComment("conflict carries no link change action to drop"), nil, nil
		}
		c.ConflictedLinkAction.Status = migration.LinkSkipped
		return NewResult(true, OutcomeUpdatedConflictedLinkChangeAction), nil, nil

	case ActionManual.ReferenceName:
		// The operator broke the cycle out of band; the caller re-runs the
		// link submission.
		return NewResult(true, OutcomeOther), nil, nil

	default:
		return NewResult(false, OutcomeUnknownResolutionAction), nil, nil
	}
}

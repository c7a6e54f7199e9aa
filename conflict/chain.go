package conflict

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/c0deZ3R0/go-migrate-kit/conflict/scope"
	"github.com/c0deZ3R0/go-migrate-kit/migration"
)

// ChainOnConflictTypeID identifies the synthetic chain-on-conflict type:
// "this work is blocked because another conflict is unresolved".
var ChainOnConflictTypeID = uuid.MustParse("1c9f7b3e-6d24-4a05-8b91-e0d3f5a72c18")

// NewChainOnConflictType builds the chain-on-conflict conflict type. It has
// no independent resolution actions: the Manager resolves chained conflicts
// automatically when the conflict they reference resolves.
func NewChainOnConflictType() *Type {
	return &Type{
		ReferenceName:    ChainOnConflictTypeID,
		FriendlyName:     "Chained on other conflict conflict type",
		Handler:          chainOnConflictHandler{},
		Interpreter:      scope.ChangeGroupID{},
		SupportedActions: nil,
	}
}

// ChainScopeHint renders a parent conflict internal id as the scope hint a
// chain-on-conflict conflict carries.
func ChainScopeHint(parentConflictID int64) string {
	return strconv.FormatInt(parentConflictID, 10)
}

// ParseChainScopeHint recovers the parent conflict internal id from a
// chain-on-conflict scope hint.
func ParseChainScopeHint(hint string) (int64, error) {
	id, err := strconv.ParseInt(hint, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid chain-on-conflict scope hint %q", hint)
	}
	return id, nil
}

// NewChainedConflict creates a chain-on-conflict conflict blocking work
// behind the given unresolved parent conflict.
func NewChainedConflict(t *Type, parentConflictID int64) *MigrationConflict {
	c := t.NewConflict(
		fmt.Sprintf("blocked behind unresolved conflict %d", parentConflictID),
		ChainScopeHint(parentConflictID),
	)
	c.ChainParentID = parentConflictID
	return c
}

type chainOnConflictHandler struct{}

// CanResolve is always false: no rule applies to a chained conflict.
func (chainOnConflictHandler) CanResolve(*MigrationConflict, ResolutionRule) bool {
	return false
}

func (chainOnConflictHandler) Resolve(ctx context.Context, svc Services, c *MigrationConflict, rule ResolutionRule) (ResolutionResult, []*migration.Action, error) {
	return NewResult(false, OutcomeOther).
		WithComment("chain-on-conflict conflicts are resolved automatically when the referenced conflict resolves"), nil, nil
}

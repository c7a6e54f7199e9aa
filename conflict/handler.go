package conflict

import (
	"context"

	"github.com/c0deZ3R0/go-migrate-kit/logging"
	"github.com/c0deZ3R0/go-migrate-kit/migration"
)

// Services carries the named collaborators a handler may need. Dependencies
// are explicit; there is no runtime service lookup.
type Services struct {
	Logger         *logging.Logger
	Metrics        MetricsCollector
	TargetSystemID string
}

// Handler is the per-conflict-type resolution strategy. CanResolve decides
// whether a rule applies to a conflict instance; Resolve executes the rule,
// possibly mutating migration state and emitting replacement actions.
//
// Resolve returns an error only for unexpected failures. Such errors are
// never swallowed: they propagate through the Manager to the caller, which is
// expected to convert them into a new runtime-error conflict. A rule the
// handler cannot interpret is not an error; it yields an unresolved result
// with a descriptive comment.
type Handler interface {
	CanResolve(conflict *MigrationConflict, rule ResolutionRule) bool
	Resolve(ctx context.Context, svc Services, conflict *MigrationConflict, rule ResolutionRule) (ResolutionResult, []*migration.Action, error)
}

// ScopeInScope is the default applicability test: the conflict's scope hint
// must fall within the rule's scope under the conflict type's interpreter.
func ScopeInScope(conflict *MigrationConflict, rule ResolutionRule) bool {
	return conflict.Type.Interpreter.IsInScope(conflict.ScopeHint, rule.ApplicabilityScope)
}

// baseHandler supplies the default CanResolve for built-in handlers.
type baseHandler struct{}

func (baseHandler) CanResolve(conflict *MigrationConflict, rule ResolutionRule) bool {
	return ScopeInScope(conflict, rule)
}

// skipConflictedAction marks the conflicted action (and group) skipped.
func skipConflictedAction(c *MigrationConflict) {
	if c.ConflictedAction != nil {
		c.ConflictedAction.State = migration.ActionSkipped
	}
	if c.ConflictedGroup != nil {
		c.ConflictedGroup.Skip()
	}
}

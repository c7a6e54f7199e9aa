// Package conflict implements the conflict management and resolution engine:
// the conflict type registry, resolution actions and rules, per-type handlers,
// and the manager that matches backlogged conflicts against configured rules
// and cascades chain-on-conflict unblocking.
package conflict

import (
	"github.com/google/uuid"

	"github.com/c0deZ3R0/go-migrate-kit/conflict/scope"
	"github.com/c0deZ3R0/go-migrate-kit/migration"
)

// Status is the lifecycle state of a migration conflict. Resolved and Failed
// are terminal; a conflict is never deleted, only marked.
type Status int

const (
	StatusUnresolved Status = 0
	StatusResolved   Status = 1
	// StatusScheduledForRetry marks conflicts that a multiple-retry rule has
	// scheduled for re-evaluation on the next session trip.
	StatusScheduledForRetry Status = 2
	StatusFailed            Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "Unresolved"
	case StatusResolved:
		return "Resolved"
	case StatusScheduledForRetry:
		return "ScheduledForRetry"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Type is an immutable catalog entry describing one kind of conflict. It
// binds a handler, a scope interpreter, and the set of resolution actions
// this kind supports. Types are constructed once at process start and
// registered explicitly.
type Type struct {
	// ReferenceName is the globally unique identity of this conflict type.
	ReferenceName uuid.UUID

	// FriendlyName is the human-readable name shown in tooling.
	FriendlyName string

	// Handler resolves conflicts of this type.
	Handler Handler

	// Interpreter matches conflict scope hints against rule scopes.
	Interpreter scope.Interpreter

	// SupportedActions lists the resolution actions this type accepts, in
	// registration order.
	SupportedActions []ResolutionAction

	// IsCountable types keep one active conflict row per scope hint with an
	// occurrence counter instead of inserting duplicates.
	IsCountable bool
}

// SupportsAction reports whether the action reference is registered for this
// type and returns its descriptor.
func (t *Type) SupportsAction(actionRef uuid.UUID) (ResolutionAction, bool) {
	for _, a := range t.SupportedActions {
		if a.ReferenceName == actionRef {
			return a, true
		}
	}
	return ResolutionAction{}, false
}

// SupportsMultipleRetry reports whether the multiple-retry action is among
// the supported actions. Conflicts of such types can sit in
// StatusScheduledForRetry with a persisted attempt counter.
func (t *Type) SupportsMultipleRetry() bool {
	_, ok := t.SupportsAction(ActionMultipleRetry.ReferenceName)
	return ok
}

// NewConflict creates an unresolved conflict of this type.
func (t *Type) NewConflict(details, scopeHint string) *MigrationConflict {
	return &MigrationConflict{
		Type:      t,
		Status:    StatusUnresolved,
		Details:   details,
		ScopeHint: scopeHint,
	}
}

// MigrationConflict is one detected incompatibility instance. It is created
// during analysis or migration execution and mutated only by the Manager when
// resolved.
type MigrationConflict struct {
	Type      *Type
	Status    Status
	Details   string
	ScopeHint string

	// Back-references to the blocked unit of work, when applicable.
	ConflictedAction     *migration.Action
	ConflictedGroup      *migration.ChangeGroup
	ConflictedLinkAction *migration.LinkChangeAction

	// InternalID is the backlog identity, set once persisted. Chain-on-
	// conflict conflicts reference their parent by this id.
	InternalID int64

	// ChainParentID is the internal id of the conflict this one is chained
	// behind, zero when not chained.
	ChainParentID int64

	// RetryCount tracks how many multiple-retry attempts have been made.
	RetryCount int
}

// WithAction attaches the blocked migration action (and its group, if set).
func (c *MigrationConflict) WithAction(action *migration.Action) *MigrationConflict {
	c.ConflictedAction = action
	return c
}

// WithGroup attaches the blocked change group.
func (c *MigrationConflict) WithGroup(group *migration.ChangeGroup) *MigrationConflict {
	c.ConflictedGroup = group
	return c
}

// WithLinkAction attaches the blocked link change action.
func (c *MigrationConflict) WithLinkAction(link *migration.LinkChangeAction) *MigrationConflict {
	c.ConflictedLinkAction = link
	return c
}

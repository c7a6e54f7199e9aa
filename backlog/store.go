// Package backlog defines the durable store contract for conflicts and
// resolution rules, plus an in-memory implementation. SQL-backed
// implementations live under storage/.
package backlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store errors shared by all implementations.
var (
	ErrConflictNotFound = errors.New("conflict not found")
	ErrRuleNotFound     = errors.New("resolution rule not found")
	ErrDuplicateRule    = errors.New("resolution rule reference name already exists")

	// ErrStaleStatus is returned by UpdateConflictStatus when the conflict is
	// no longer in the expected status. Callers treat it as "someone got
	// there first", not as corruption.
	ErrStaleStatus = errors.New("conflict status changed concurrently")
)

// ConflictRecord is the persisted form of a migration conflict. Records are
// append/update-only: a conflict is never deleted, only marked, so the
// backlog doubles as an audit trail.
type ConflictRecord struct {
	ID             int64
	SessionGroupID string
	SourceID       string
	TypeRef        uuid.UUID
	Status         int
	Details        string
	ScopeHint      string

	// ChainParentID is the internal id of the conflict this record is
	// chained behind; zero when not chained.
	ChainParentID int64

	// ActionID/GroupID/LinkActionID reference the blocked unit of work, when
	// known, so resolution can unblock it.
	ActionID     int64
	GroupID      int64
	LinkActionID int64

	// RetryCount is the number of multiple-retry attempts made so far.
	RetryCount int

	// OccurrenceCount is the number of times a countable conflict was
	// raised while this record was active.
	OccurrenceCount int

	ResolutionComment string
	CreatedAt         time.Time
	ResolvedAt        time.Time
}

// RuleRecord is the persisted form of a conflict resolution rule.
type RuleRecord struct {
	ID          int64
	RuleRef     uuid.UUID
	TypeRef     uuid.UUID
	ActionRef   uuid.UUID
	Scope       string
	Description string
	DataFields  map[string]string
	Status      int
	CreatedAt   time.Time
}

// StatusCount summarizes the backlog for reporting.
type StatusCount struct {
	TypeRef uuid.UUID
	Status  int
	Count   int
}

// Store is the persistence contract the conflict manager runs against.
// Implementations must be safe for concurrent use; the manager additionally
// serializes resolution per target system.
type Store interface {
	// WithTx runs fn against a transactional view of the store. All writes
	// made inside fn are committed together or not at all, so "conflict
	// marked resolved" and "chained conflicts unblocked" stay atomic.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// SaveConflict inserts a new conflict record and returns its id.
	SaveConflict(ctx context.Context, rec *ConflictRecord) (int64, error)

	// GetConflict loads one conflict by internal id.
	GetConflict(ctx context.Context, id int64) (*ConflictRecord, error)

	// FindActiveConflict returns the unresolved record for a countable
	// conflict type and scope hint, or ErrConflictNotFound.
	FindActiveConflict(ctx context.Context, typeRef uuid.UUID, scopeHint string) (*ConflictRecord, error)

	// IncrementOccurrence bumps the occurrence counter of a countable
	// conflict record.
	IncrementOccurrence(ctx context.Context, id int64) error

	// UpdateConflictStatus transitions a conflict from expectStatus to
	// newStatus with an optimistic check, recording the comment. Returns
	// ErrStaleStatus when the record is not in expectStatus.
	UpdateConflictStatus(ctx context.Context, id int64, expectStatus, newStatus int, comment string) error

	// SetConflictRetry records a retry schedule: the new attempt count and
	// status.
	SetConflictRetry(ctx context.Context, id int64, retryCount, status int) error

	// ListConflictsByStatus returns conflicts of a session group in the
	// given status, ordered by id.
	ListConflictsByStatus(ctx context.Context, sessionGroupID string, status int) ([]*ConflictRecord, error)

	// ListChainedConflicts returns unresolved chain-on-conflict records
	// whose scope hint references the given parent conflict id.
	ListChainedConflicts(ctx context.Context, chainTypeRef uuid.UUID, parentID int64) ([]*ConflictRecord, error)

	// SaveRule inserts a rule record and returns its id. Duplicate rule
	// reference names yield ErrDuplicateRule.
	SaveRule(ctx context.Context, rec *RuleRecord) (int64, error)

	// ListRules returns the valid rules for a conflict type in insertion
	// order.
	ListRules(ctx context.Context, typeRef uuid.UUID) ([]*RuleRecord, error)

	// ListAllRules returns every rule record regardless of status.
	ListAllRules(ctx context.Context) ([]*RuleRecord, error)

	// DeprecateRule marks a rule single-shot-consumed so it is never applied
	// again.
	DeprecateRule(ctx context.Context, id int64) error

	// CountByStatus summarizes the session group's conflicts per type and
	// status.
	CountByStatus(ctx context.Context, sessionGroupID string) ([]StatusCount, error)

	// DeleteSessionGroup removes all conflict records of a session group.
	// Rules are configuration and survive cleanup. Used by the admin
	// tooling only.
	DeleteSessionGroup(ctx context.Context, sessionGroupID string) error

	// Close releases the store's resources.
	Close() error
}

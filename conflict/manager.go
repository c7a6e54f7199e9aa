package conflict

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c0deZ3R0/go-migrate-kit/backlog"
	merrors "github.com/c0deZ3R0/go-migrate-kit/errors"
	"github.com/c0deZ3R0/go-migrate-kit/logging"
	"github.com/c0deZ3R0/go-migrate-kit/migration"
)

// Manager coordinates conflict detection, rule matching, resolution and
// chain-on-conflict unblocking for one target system. Resolution is
// serialized per manager: at most one conflict is resolved at a time, which
// keeps handler mutations of migration state race-free.
type Manager struct {
	mu             sync.Mutex
	registry       *Registry
	store          backlog.Store
	logger         *logging.Logger
	metrics        MetricsCollector
	hooks          Hooks
	sessionGroupID string
	targetSystemID string

	// ruleCache holds sorted valid rules per conflict type, invalidated on
	// rule changes.
	ruleCache map[uuid.UUID][]ResolutionRule
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics sets the manager's metrics collector.
func WithMetrics(mc MetricsCollector) ManagerOption {
	return func(m *Manager) { m.metrics = mc }
}

// WithHooks sets the manager's lifecycle hooks.
func WithHooks(h Hooks) ManagerOption {
	return func(m *Manager) { m.hooks = h }
}

// WithSessionGroup scopes the manager to a migration session group.
func WithSessionGroup(id string) ManagerOption {
	return func(m *Manager) { m.sessionGroupID = id }
}

// WithTargetSystem names the target system this manager serves.
func WithTargetSystem(id string) ManagerOption {
	return func(m *Manager) { m.targetSystemID = id }
}

// NewManager creates a conflict manager over the given type registry and
// backlog store.
func NewManager(registry *Registry, store backlog.Store, opts ...ManagerOption) (*Manager, error) {
	if registry == nil {
		return nil, merrors.NewValidationError(merrors.OpConflictResolve, fmt.Errorf("registry is required"))
	}
	if store == nil {
		return nil, merrors.NewValidationError(merrors.OpConflictResolve, fmt.Errorf("store is required"))
	}
	m := &Manager{
		registry:  registry,
		store:     store,
		logger:    logging.Default(),
		metrics:   &NoOpMetricsCollector{},
		ruleCache: make(map[uuid.UUID][]ResolutionRule),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("conflict_manager")
	if m.sessionGroupID != "" {
		m.logger = m.logger.WithSessionGroup(m.sessionGroupID)
	}
	return m, nil
}

// Registry returns the manager's conflict type registry.
func (m *Manager) Registry() *Registry { return m.registry }

// TryResolveNewConflict runs a newly detected conflict through the configured
// rules. The first applicable rule, in most-specific-first order, is applied;
// if no rule applies or the applied rule does not resolve the conflict, the
// conflict is backlogged unresolved. Handler errors propagate to the caller
// unchanged in meaning; the conflict is backlogged first so nothing is lost.
func (m *Manager) TryResolveNewConflict(ctx context.Context, c *MigrationConflict) (ResolutionResult, []*migration.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c == nil || c.Type == nil {
		return ResolutionResult{}, nil, merrors.NewValidationError(merrors.OpDetect, fmt.Errorf("conflict and its type are required"))
	}

	m.hooks.raised(c)
	m.metrics.RecordConflictDetected(c.Type.FriendlyName)
	m.logger.InfoContext(ctx, "conflict detected",
		"conflict_type", c.Type.FriendlyName,
		"scope_hint", c.ScopeHint)

	// An unregistered type cannot be matched against rules; park it.
	t, ok := m.registry.Lookup(c.Type.ReferenceName)
	if !ok {
		if err := m.backlogLocked(ctx, c); err != nil {
			return ResolutionResult{}, nil, err
		}
		res := NewResult(false, OutcomeOther).
			WithComment(fmt.Sprintf("conflict type %s is not registered", c.Type.ReferenceName))
		res.ConflictInternalID = c.InternalID
		m.hooks.unresolved(c, res.Comment)
		m.metrics.RecordUnresolved(c.Type.FriendlyName)
		return res, nil, nil
	}

	rules, err := m.rulesLocked(ctx, t)
	if err != nil {
		return ResolutionResult{}, nil, err
	}

	for _, rule := range rules {
		if !t.Handler.CanResolve(c, rule) {
			continue
		}
		m.hooks.matched(c, rule)
		return m.applyRuleLocked(ctx, t, c, rule)
	}

	if err := m.backlogLocked(ctx, c); err != nil {
		return ResolutionResult{}, nil, err
	}
	res := NewResult(false, OutcomeOther).WithComment("no applicable resolution rule")
	res.ConflictInternalID = c.InternalID
	m.hooks.unresolved(c, res.Comment)
	m.metrics.RecordUnresolved(t.FriendlyName)
	m.logger.InfoContext(ctx, "conflict backlogged",
		"conflict_type", t.FriendlyName,
		"conflict_id", c.InternalID)
	return res, nil, nil
}

// applyRuleLocked dispatches to the type handler and persists the outcome.
func (m *Manager) applyRuleLocked(ctx context.Context, t *Type, c *MigrationConflict, rule ResolutionRule) (ResolutionResult, []*migration.Action, error) {
	start := time.Now()
	res, actions, err := t.Handler.Resolve(ctx, m.services(), c, rule)
	if err != nil {
		// Park the conflict before surfacing the failure.
		if berr := m.backlogLocked(ctx, c); berr != nil {
			m.logger.LogError(ctx, berr, "failed to backlog conflict after handler error")
		}
		return ResolutionResult{}, nil, merrors.NewResolutionError(merrors.OpConflictResolve, err)
	}
	m.metrics.RecordResolution(t.FriendlyName, res.Resolved, time.Since(start))

	switch {
	case res.Resolved:
		c.Status = StatusResolved
		if err := m.persistResolvedLocked(ctx, c, res.Comment); err != nil {
			return ResolutionResult{}, nil, err
		}
		res.ConflictInternalID = c.InternalID
		m.hooks.resolved(c, res)
		m.logger.InfoContext(ctx, "conflict resolved",
			"conflict_type", t.FriendlyName,
			"conflict_id", c.InternalID,
			"outcome", res.Outcome.String())
		return res, actions, nil

	case res.Outcome == OutcomeScheduledForRetry:
		if err := m.scheduleRetryLocked(ctx, c); err != nil {
			return ResolutionResult{}, nil, err
		}
		res.ConflictInternalID = c.InternalID
		m.logger.InfoContext(ctx, "conflict scheduled for retry",
			"conflict_type", t.FriendlyName,
			"conflict_id", c.InternalID,
			"retry_count", c.RetryCount)
		return res, actions, nil

	default:
		if err := m.backlogLocked(ctx, c); err != nil {
			return ResolutionResult{}, nil, err
		}
		res.ConflictInternalID = c.InternalID
		m.hooks.unresolved(c, res.Comment)
		m.metrics.RecordUnresolved(t.FriendlyName)
		return res, actions, nil
	}
}

// BacklogUnresolvedConflict persists a conflict without attempting
// resolution. Countable types keep one active record per scope hint and bump
// its occurrence counter instead of inserting duplicates. The conflict's
// InternalID is set on return.
func (m *Manager) BacklogUnresolvedConflict(ctx context.Context, c *MigrationConflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backlogLocked(ctx, c)
}

func (m *Manager) backlogLocked(ctx context.Context, c *MigrationConflict) error {
	if c.InternalID != 0 {
		return nil // already persisted
	}

	if c.Type.IsCountable {
		existing, err := m.store.FindActiveConflict(ctx, c.Type.ReferenceName, c.ScopeHint)
		switch {
		case err == nil:
			if err := m.store.IncrementOccurrence(ctx, existing.ID); err != nil {
				return merrors.NewStorageError(merrors.OpBacklog, err)
			}
			c.InternalID = existing.ID
			return nil
		case errors.Is(err, backlog.ErrConflictNotFound):
			// first occurrence, fall through to insert
		default:
			return merrors.NewStorageError(merrors.OpBacklog, err)
		}
	}

	rec := m.toRecord(c)
	id, err := m.store.SaveConflict(ctx, rec)
	if err != nil {
		return merrors.NewStorageError(merrors.OpBacklog, err)
	}
	c.InternalID = id
	return nil
}

// persistResolvedLocked records a resolved conflict. Conflicts resolved on
// first contact are inserted already resolved; previously backlogged ones are
// transitioned with an optimistic status check.
func (m *Manager) persistResolvedLocked(ctx context.Context, c *MigrationConflict, comment string) error {
	if c.InternalID == 0 {
		rec := m.toRecord(c)
		rec.Status = int(StatusResolved)
		rec.ResolutionComment = comment
		id, err := m.store.SaveConflict(ctx, rec)
		if err != nil {
			return merrors.NewStorageError(merrors.OpConflictResolve, err)
		}
		c.InternalID = id
		return nil
	}
	err := m.store.UpdateConflictStatus(ctx, c.InternalID, int(StatusUnresolved), int(StatusResolved), comment)
	if errors.Is(err, backlog.ErrStaleStatus) {
		// A retry-scheduled conflict resolving is also a legal transition.
		err = m.store.UpdateConflictStatus(ctx, c.InternalID, int(StatusScheduledForRetry), int(StatusResolved), comment)
	}
	if err != nil {
		return merrors.NewStorageError(merrors.OpConflictResolve, err)
	}
	return nil
}

func (m *Manager) scheduleRetryLocked(ctx context.Context, c *MigrationConflict) error {
	if err := m.backlogLocked(ctx, c); err != nil {
		return err
	}
	c.RetryCount++
	c.Status = StatusScheduledForRetry
	if err := m.store.SetConflictRetry(ctx, c.InternalID, c.RetryCount, int(StatusScheduledForRetry)); err != nil {
		return merrors.NewStorageError(merrors.OpConflictResolve, err)
	}
	return nil
}

// ResolveExistingConflict applies a rule to a backlogged conflict. The rule's
// scope must cover the conflict's scope hint; a rule that does not apply
// yields an unresolved result, not an error. Resolving an already-resolved
// conflict is a no-op success. When the conflict resolves, any
// chain-on-conflict conflicts referencing it are resolved in the same
// transaction, cascading through multi-level chains.
func (m *Manager) ResolveExistingConflict(ctx context.Context, conflictID int64, rule ResolutionRule) (ResolutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.store.GetConflict(ctx, conflictID)
	if err != nil {
		return ResolutionResult{}, merrors.NewStorageError(merrors.OpConflictResolve, err)
	}
	return m.resolveExistingLocked(ctx, rec, rule)
}

// ResolveConflictsByRule applies a saved rule to every unresolved conflict of
// the given type in the manager's session group. Conflicts outside the rule's
// scope are left untouched. Returns the number of conflicts that resolved.
// This is how single-shot rules (manual resolution, configuration update) act
// on the backlog: the rule pipeline never re-applies them, so they take
// effect here, at rule save time.
func (m *Manager) ResolveConflictsByRule(ctx context.Context, t *Type, rule ResolutionRule) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t == nil {
		return 0, merrors.NewValidationError(merrors.OpConflictResolve, fmt.Errorf("conflict type is required"))
	}
	recs, err := m.store.ListConflictsByStatus(ctx, m.sessionGroupID, int(StatusUnresolved))
	if err != nil {
		return 0, merrors.NewStorageError(merrors.OpConflictResolve, err)
	}

	resolved := 0
	for _, rec := range recs {
		if rec.TypeRef != t.ReferenceName {
			continue
		}
		res, err := m.resolveExistingLocked(ctx, rec, rule)
		if err != nil {
			return resolved, err
		}
		if res.Resolved {
			resolved++
		}
	}
	return resolved, nil
}

func (m *Manager) resolveExistingLocked(ctx context.Context, rec *backlog.ConflictRecord, rule ResolutionRule) (ResolutionResult, error) {
	conflictID := rec.ID

	if Status(rec.Status) == StatusResolved {
		res := NewResult(true, OutcomeOther).WithComment("conflict is already resolved")
		res.ConflictInternalID = conflictID
		return res, nil
	}

	t, ok := m.registry.Lookup(rec.TypeRef)
	if !ok {
		return ResolutionResult{}, merrors.NewConflictError(merrors.OpConflictResolve,
			fmt.Errorf("conflict %d references unregistered type %s", conflictID, rec.TypeRef))
	}
	if _, ok := t.SupportsAction(rule.ActionReferenceName); !ok {
		return ResolutionResult{}, merrors.NewValidationError(merrors.OpConflictResolve,
			fmt.Errorf("conflict type %q does not support action %s", t.FriendlyName, rule.ActionReferenceName))
	}

	c := m.fromRecord(t, rec)
	if !t.Handler.CanResolve(c, rule) {
		res := NewResult(false, OutcomeOther).
			WithComment(fmt.Sprintf("rule scope %q does not cover conflict scope %q", rule.ApplicabilityScope, c.ScopeHint))
		res.ConflictInternalID = conflictID
		return res, nil
	}
	res, _, err := t.Handler.Resolve(ctx, m.services(), c, rule)
	if err != nil {
		return ResolutionResult{}, merrors.NewResolutionError(merrors.OpConflictResolve, err)
	}
	res.ConflictInternalID = conflictID

	switch {
	case res.Resolved:
		unblocked := 0
		err := m.store.WithTx(ctx, func(tx backlog.Store) error {
			if err := tx.UpdateConflictStatus(ctx, conflictID, rec.Status, int(StatusResolved), res.Comment); err != nil {
				return err
			}
			visited := map[int64]bool{conflictID: true}
			n, err := m.unblockChained(ctx, tx, conflictID, visited)
			if err != nil {
				return err
			}
			unblocked = n
			return nil
		})
		if err != nil {
			if errors.Is(err, backlog.ErrStaleStatus) {
				return ResolutionResult{}, merrors.NewConflictError(merrors.OpConflictResolve,
					fmt.Errorf("conflict %d changed concurrently: %w", conflictID, err))
			}
			return ResolutionResult{}, merrors.NewStorageError(merrors.OpConflictResolve, err)
		}
		if unblocked > 0 {
			m.metrics.RecordChainUnblocked(unblocked)
			m.logger.InfoContext(ctx, "chained conflicts unblocked",
				"parent_conflict_id", conflictID,
				"unblocked", unblocked)
		}
		m.hooks.resolved(c, res)
		m.metrics.RecordResolution(t.FriendlyName, true, 0)

	case res.Outcome == OutcomeScheduledForRetry:
		c.InternalID = conflictID
		c.RetryCount = rec.RetryCount
		if err := m.scheduleRetryLocked(ctx, c); err != nil {
			return ResolutionResult{}, err
		}

	default:
		m.hooks.unresolved(c, res.Comment)
		m.metrics.RecordUnresolved(t.FriendlyName)
	}

	return res, nil
}

// unblockChained resolves every unresolved chain-on-conflict conflict whose
// scope hint references parentID, then recurses: a chained conflict may
// itself be the parent of further chains. The visited set terminates cycles;
// a revisited id stops that branch of the cascade.
func (m *Manager) unblockChained(ctx context.Context, tx backlog.Store, parentID int64, visited map[int64]bool) (int, error) {
	chained, err := tx.ListChainedConflicts(ctx, ChainOnConflictTypeID, parentID)
	if err != nil {
		return 0, merrors.NewStorageError(merrors.OpChainUnblock, err)
	}
	total := 0
	for _, rec := range chained {
		if visited[rec.ID] {
			continue
		}
		visited[rec.ID] = true
		comment := fmt.Sprintf("unblocked: conflict %d resolved", parentID)
		if err := tx.UpdateConflictStatus(ctx, rec.ID, rec.Status, int(StatusResolved), comment); err != nil {
			return total, merrors.NewStorageError(merrors.OpChainUnblock, err)
		}
		total++
		n, err := m.unblockChained(ctx, tx, rec.ID, visited)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// SaveRule validates and persists a resolution rule for the given conflict
// type. Rules carrying a single-shot action (manual resolution, configuration
// update) are stored deprecated so the rule pipeline never re-applies them;
// they take effect through ResolveExistingConflict only.
func (m *Manager) SaveRule(ctx context.Context, t *Type, rule ResolutionRule) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t == nil {
		return 0, merrors.NewValidationError(merrors.OpRuleSave, fmt.Errorf("conflict type is required"))
	}
	action, ok := t.SupportsAction(rule.ActionReferenceName)
	if !ok {
		return 0, merrors.NewValidationError(merrors.OpRuleSave,
			fmt.Errorf("conflict type %q does not support action %s", t.FriendlyName, rule.ActionReferenceName))
	}
	if valid, hint := t.Interpreter.ValidateRuleScope(rule.ApplicabilityScope); !valid {
		return 0, merrors.NewValidationError(merrors.OpRuleSave,
			fmt.Errorf("invalid rule scope %q: %s", rule.ApplicabilityScope, hint))
	}
	if missing := rule.MissingDataKeys(action); len(missing) > 0 {
		return 0, merrors.NewValidationError(merrors.OpRuleSave,
			fmt.Errorf("rule is missing data fields %v required by action %q", missing, action.FriendlyName))
	}

	status := RuleStatusValid
	if isSingleShotAction(rule.ActionReferenceName) {
		status = RuleStatusDeprecated
	}
	rec := &backlog.RuleRecord{
		RuleRef:     rule.RuleReferenceName,
		TypeRef:     t.ReferenceName,
		ActionRef:   rule.ActionReferenceName,
		Scope:       rule.ApplicabilityScope,
		Description: rule.Description,
		DataFields:  rule.DataFields,
		Status:      status,
	}
	id, err := m.store.SaveRule(ctx, rec)
	if err != nil {
		return 0, merrors.NewStorageError(merrors.OpRuleSave, err)
	}
	delete(m.ruleCache, t.ReferenceName)
	m.logger.InfoContext(ctx, "resolution rule saved",
		"conflict_type", t.FriendlyName,
		"rule", rule.RuleReferenceName.String(),
		"scope", rule.ApplicabilityScope,
		"single_shot", status == RuleStatusDeprecated)
	return id, nil
}

// GetPersistedRules returns the valid rules for a conflict type, sorted
// most-specific-first with configuration order breaking ties.
func (m *Manager) GetPersistedRules(ctx context.Context, t *Type) ([]ResolutionRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rules, err := m.rulesLocked(ctx, t)
	if err != nil {
		return nil, err
	}
	out := make([]ResolutionRule, len(rules))
	copy(out, rules)
	return out, nil
}

func (m *Manager) rulesLocked(ctx context.Context, t *Type) ([]ResolutionRule, error) {
	if cached, ok := m.ruleCache[t.ReferenceName]; ok {
		return cached, nil
	}
	recs, err := m.store.ListRules(ctx, t.ReferenceName)
	if err != nil {
		return nil, merrors.NewStorageError(merrors.OpRuleLookup, err)
	}
	rules := make([]ResolutionRule, 0, len(recs))
	for _, rec := range recs {
		rules = append(rules, ResolutionRule{
			RuleReferenceName:   rec.RuleRef,
			ActionReferenceName: rec.ActionRef,
			ApplicabilityScope:  rec.Scope,
			Description:         rec.Description,
			DataFields:          rec.DataFields,
		})
	}
	SortRules(rules, t)
	m.ruleCache[t.ReferenceName] = rules
	return rules, nil
}

func (m *Manager) services() Services {
	return Services{
		Logger:         m.logger,
		Metrics:        m.metrics,
		TargetSystemID: m.targetSystemID,
	}
}

func (m *Manager) toRecord(c *MigrationConflict) *backlog.ConflictRecord {
	rec := &backlog.ConflictRecord{
		SessionGroupID: m.sessionGroupID,
		SourceID:       m.targetSystemID,
		TypeRef:        c.Type.ReferenceName,
		Status:         int(c.Status),
		Details:        c.Details,
		ScopeHint:      c.ScopeHint,
		ChainParentID:  c.ChainParentID,
		RetryCount:     c.RetryCount,
	}
	if rec.ChainParentID == 0 && c.Type.ReferenceName == ChainOnConflictTypeID {
		if id, err := ParseChainScopeHint(c.ScopeHint); err == nil {
			rec.ChainParentID = id
		}
	}
	if c.ConflictedAction != nil {
		rec.ActionID = c.ConflictedAction.ID
		rec.GroupID = c.ConflictedAction.GroupID
	}
	if c.ConflictedGroup != nil {
		rec.GroupID = c.ConflictedGroup.ID
	}
	if c.ConflictedLinkAction != nil {
		rec.LinkActionID = c.ConflictedLinkAction.ID
	}
	return rec
}

func (m *Manager) fromRecord(t *Type, rec *backlog.ConflictRecord) *MigrationConflict {
	c := t.NewConflict(rec.Details, rec.ScopeHint)
	c.Status = Status(rec.Status)
	c.InternalID = rec.ID
	c.ChainParentID = rec.ChainParentID
	c.RetryCount = rec.RetryCount
	return c
}

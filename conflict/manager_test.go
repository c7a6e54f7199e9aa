package conflict

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/c0deZ3R0/go-migrate-kit/backlog"
	"github.com/c0deZ3R0/go-migrate-kit/conflict/scope"
	"github.com/c0deZ3R0/go-migrate-kit/migration"
)

// echoHandler resolves every skip/manual rule and reports which rule was
// applied through the result comment.
type echoHandler struct {
	baseHandler
	err error
}

func (h echoHandler) Resolve(ctx context.Context, svc Services, c *MigrationConflict, rule ResolutionRule) (ResolutionResult, []*migration.Action, error) {
	if h.err != nil {
		return ResolutionResult{}, nil, h.err
	}
	switch rule.ActionReferenceName {
	case ActionSkip.ReferenceName:
		skipConflictedAction(c)
		return NewResult(true, OutcomeSkipConflictedChangeAction).WithComment(rule.Description), nil, nil
	case ActionManual.ReferenceName:
		return NewResult(true, OutcomeOther).WithComment(rule.Description), nil, nil
	default:
		return NewResult(false, OutcomeUnknownResolutionAction), nil, nil
	}
}

func newPathTestType(handler Handler, countable bool) *Type {
	return &Type{
		ReferenceName:    uuid.New(),
		FriendlyName:     "Path test conflict type",
		Handler:          handler,
		Interpreter:      scope.BasicPath{},
		SupportedActions: []ResolutionAction{ActionManual, ActionSkip},
		IsCountable:      countable,
	}
}

func newTestManager(t *testing.T, types ...*Type) (*Manager, *backlog.MemoryStore) {
	t.Helper()
	reg := NewRegistry()
	reg.RegisterType(NewChainOnConflictType())
	for _, ct := range types {
		if err := reg.RegisterType(ct); err != nil {
			t.Fatalf("RegisterType: %v", err)
		}
	}
	store := backlog.NewMemoryStore()
	m, err := NewManager(reg, store, WithSessionGroup("sg-test"), WithTargetSystem("target-1"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, store
}

func mustSaveRule(t *testing.T, m *Manager, ct *Type, rule ResolutionRule) int64 {
	t.Helper()
	id, err := m.SaveRule(context.Background(), ct, rule)
	if err != nil {
		t.Fatalf("SaveRule(%q): %v", rule.ApplicabilityScope, err)
	}
	return id
}

func TestManager_FirstMatchWins(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, _ := newTestManager(t, ct)
	ctx := context.Background()

	mustSaveRule(t, m, ct, NewRule(ActionSkip, "/", "generic", nil))
	mustSaveRule(t, m, ct, NewRule(ActionSkip, "/proj/a", "specific", nil))

	res, _, err := m.TryResolveNewConflict(ctx, ct.NewConflict("boom", "/proj/a/file.txt"))
	if err != nil {
		t.Fatalf("TryResolveNewConflict: %v", err)
	}
	if !res.Resolved {
		t.Fatal("expected conflict to resolve")
	}
	if res.Comment != "specific" {
		t.Errorf("applied rule = %q, want the deeper scope to win", res.Comment)
	}
}

func TestManager_EqualScopesKeepConfigurationOrder(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, _ := newTestManager(t, ct)
	ctx := context.Background()

	mustSaveRule(t, m, ct, NewRule(ActionSkip, "/proj", "first", nil))
	mustSaveRule(t, m, ct, NewRule(ActionSkip, "/proj", "second", nil))

	res, _, err := m.TryResolveNewConflict(ctx, ct.NewConflict("boom", "/proj/x"))
	if err != nil {
		t.Fatalf("TryResolveNewConflict: %v", err)
	}
	if res.Comment != "first" {
		t.Errorf("applied rule = %q, want insertion order preserved for equal scopes", res.Comment)
	}
}

func TestManager_NoMatchBacklogs(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, store := newTestManager(t, ct)
	ctx := context.Background()

	mustSaveRule(t, m, ct, NewRule(ActionSkip, "/other", "elsewhere", nil))

	c := ct.NewConflict("boom", "/proj/x")
	res, _, err := m.TryResolveNewConflict(ctx, c)
	if err != nil {
		t.Fatalf("TryResolveNewConflict: %v", err)
	}
	if res.Resolved {
		t.Fatal("expected conflict to stay unresolved")
	}
	if c.InternalID == 0 {
		t.Fatal("expected conflict to be backlogged")
	}
	rec, err := store.GetConflict(ctx, c.InternalID)
	if err != nil {
		t.Fatalf("GetConflict: %v", err)
	}
	if Status(rec.Status) != StatusUnresolved {
		t.Errorf("status = %v, want unresolved", Status(rec.Status))
	}
	if rec.SessionGroupID != "sg-test" {
		t.Errorf("session group = %q", rec.SessionGroupID)
	}
}

func TestManager_HandlerErrorPropagates(t *testing.T) {
	handlerErr := errors.New("target system unavailable")
	ct := newPathTestType(echoHandler{err: handlerErr}, false)
	m, _ := newTestManager(t, ct)
	ctx := context.Background()

	mustSaveRule(t, m, ct, NewRule(ActionSkip, "/", "any", nil))

	c := ct.NewConflict("boom", "/proj/x")
	_, _, err := m.TryResolveNewConflict(ctx, c)
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}
	if !errors.Is(err, handlerErr) {
		t.Errorf("error chain does not carry the handler error: %v", err)
	}
	if c.InternalID == 0 {
		t.Error("expected conflict backlogged before the error surfaced")
	}
}

func TestManager_CountableConflictsAccumulate(t *testing.T) {
	ct := newPathTestType(echoHandler{}, true)
	m, store := newTestManager(t, ct)
	ctx := context.Background()

	first := ct.NewConflict("boom", "/proj/x")
	if err := m.BacklogUnresolvedConflict(ctx, first); err != nil {
		t.Fatalf("BacklogUnresolvedConflict: %v", err)
	}
	second := ct.NewConflict("boom again", "/proj/x")
	if err := m.BacklogUnresolvedConflict(ctx, second); err != nil {
		t.Fatalf("BacklogUnresolvedConflict: %v", err)
	}

	if first.InternalID != second.InternalID {
		t.Fatalf("expected one active record, got ids %d and %d", first.InternalID, second.InternalID)
	}
	rec, err := store.GetConflict(ctx, first.InternalID)
	if err != nil {
		t.Fatalf("GetConflict: %v", err)
	}
	if rec.OccurrenceCount != 1 {
		t.Errorf("occurrence count = %d, want 1 increment past the initial row", rec.OccurrenceCount)
	}

	// A different scope hint gets its own record.
	third := ct.NewConflict("other", "/proj/y")
	if err := m.BacklogUnresolvedConflict(ctx, third); err != nil {
		t.Fatalf("BacklogUnresolvedConflict: %v", err)
	}
	if third.InternalID == first.InternalID {
		t.Error("distinct scope hints must not share a record")
	}
}

func TestManager_ResolveExistingConflict(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, store := newTestManager(t, ct)
	ctx := context.Background()

	c := ct.NewConflict("boom", "/proj/x")
	if err := m.BacklogUnresolvedConflict(ctx, c); err != nil {
		t.Fatalf("BacklogUnresolvedConflict: %v", err)
	}

	rule := NewRule(ActionManual, "/proj", "operator fixed it", nil)
	res, err := m.ResolveExistingConflict(ctx, c.InternalID, rule)
	if err != nil {
		t.Fatalf("ResolveExistingConflict: %v", err)
	}
	if !res.Resolved {
		t.Fatal("expected resolution")
	}
	rec, _ := store.GetConflict(ctx, c.InternalID)
	if Status(rec.Status) != StatusResolved {
		t.Errorf("status = %v, want resolved", Status(rec.Status))
	}
	if rec.ResolutionComment != "operator fixed it" {
		t.Errorf("comment = %q", rec.ResolutionComment)
	}

	// Resolving again is a no-op success.
	res, err = m.ResolveExistingConflict(ctx, c.InternalID, rule)
	if err != nil {
		t.Fatalf("second ResolveExistingConflict: %v", err)
	}
	if !res.Resolved {
		t.Error("resolving a resolved conflict must report success")
	}
}

func TestManager_ResolveExistingConflict_UnsupportedAction(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, _ := newTestManager(t, ct)
	ctx := context.Background()

	c := ct.NewConflict("boom", "/proj/x")
	if err := m.BacklogUnresolvedConflict(ctx, c); err != nil {
		t.Fatalf("BacklogUnresolvedConflict: %v", err)
	}
	rule := NewRule(ActionDropLink, "/proj", "wrong action", nil)
	if _, err := m.ResolveExistingConflict(ctx, c.InternalID, rule); err == nil {
		t.Fatal("expected unsupported action to be rejected")
	}
}

func TestManager_ResolveExistingConflict_ScopeMismatch(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, store := newTestManager(t, ct)
	ctx := context.Background()

	c := ct.NewConflict("boom", "/proj/x")
	if err := m.BacklogUnresolvedConflict(ctx, c); err != nil {
		t.Fatalf("BacklogUnresolvedConflict: %v", err)
	}

	rule := NewRule(ActionManual, "/other", "wrong subtree", nil)
	res, err := m.ResolveExistingConflict(ctx, c.InternalID, rule)
	if err != nil {
		t.Fatalf("ResolveExistingConflict: %v", err)
	}
	if res.Resolved {
		t.Fatal("a rule outside the conflict's scope must not resolve it")
	}
	rec, _ := store.GetConflict(ctx, c.InternalID)
	if Status(rec.Status) != StatusUnresolved {
		t.Errorf("status = %v, want unresolved", Status(rec.Status))
	}
}

func TestManager_ResolveConflictsByRule(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	other := newPathTestType(echoHandler{}, false)
	m, store := newTestManager(t, ct, other)
	ctx := context.Background()

	inScope := ct.NewConflict("boom", "/proj/a/file.txt")
	outOfScope := ct.NewConflict("boom", "/other/b")
	otherType := other.NewConflict("boom", "/proj/a/file.txt")
	for _, c := range []*MigrationConflict{inScope, outOfScope, otherType} {
		if err := m.BacklogUnresolvedConflict(ctx, c); err != nil {
			t.Fatalf("BacklogUnresolvedConflict: %v", err)
		}
	}

	rule := NewRule(ActionManual, "/proj", "operator cleared the subtree", nil)
	n, err := m.ResolveConflictsByRule(ctx, ct, rule)
	if err != nil {
		t.Fatalf("ResolveConflictsByRule: %v", err)
	}
	if n != 1 {
		t.Fatalf("resolved %d conflicts, want 1", n)
	}

	want := map[int64]Status{
		inScope.InternalID:    StatusResolved,
		outOfScope.InternalID: StatusUnresolved,
		otherType.InternalID:  StatusUnresolved,
	}
	for id, status := range want {
		rec, err := store.GetConflict(ctx, id)
		if err != nil {
			t.Fatalf("GetConflict(%d): %v", id, err)
		}
		if Status(rec.Status) != status {
			t.Errorf("conflict %d status = %v, want %v", id, Status(rec.Status), status)
		}
	}
}

func TestManager_ChainUnblockCascade(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, store := newTestManager(t, ct)
	ctx := context.Background()
	chainType, _ := m.Registry().Lookup(ChainOnConflictTypeID)

	parent := ct.NewConflict("boom", "/proj/x")
	if err := m.BacklogUnresolvedConflict(ctx, parent); err != nil {
		t.Fatalf("backlog parent: %v", err)
	}
	child := NewChainedConflict(chainType, parent.InternalID)
	if err := m.BacklogUnresolvedConflict(ctx, child); err != nil {
		t.Fatalf("backlog child: %v", err)
	}
	grandchild := NewChainedConflict(chainType, child.InternalID)
	if err := m.BacklogUnresolvedConflict(ctx, grandchild); err != nil {
		t.Fatalf("backlog grandchild: %v", err)
	}

	res, err := m.ResolveExistingConflict(ctx, parent.InternalID, NewRule(ActionManual, "/proj", "fixed", nil))
	if err != nil {
		t.Fatalf("ResolveExistingConflict: %v", err)
	}
	if !res.Resolved {
		t.Fatal("expected parent to resolve")
	}

	for _, id := range []int64{child.InternalID, grandchild.InternalID} {
		rec, err := store.GetConflict(ctx, id)
		if err != nil {
			t.Fatalf("GetConflict(%d): %v", id, err)
		}
		if Status(rec.Status) != StatusResolved {
			t.Errorf("chained conflict %d status = %v, want resolved", id, Status(rec.Status))
		}
	}
}

func TestManager_ChainCycleTerminates(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, store := newTestManager(t, ct)
	ctx := context.Background()

	parent := ct.NewConflict("boom", "/proj/x")
	if err := m.BacklogUnresolvedConflict(ctx, parent); err != nil {
		t.Fatalf("backlog parent: %v", err)
	}

	// Two chained records forming a cycle: a chains on the parent, b chains
	// on a, and a also chains on b. The memory store assigns sequential ids,
	// so b's id is known before it is saved.
	aID := parent.InternalID + 1
	bID := aID + 1
	gotA, err := store.SaveConflict(ctx, &backlog.ConflictRecord{
		SessionGroupID: "sg-test",
		TypeRef:        ChainOnConflictTypeID,
		ScopeHint:      ChainScopeHint(parent.InternalID),
		ChainParentID:  bID,
	})
	if err != nil || gotA != aID {
		t.Fatalf("save chained a: id=%d err=%v, want id %d", gotA, err, aID)
	}
	gotB, err := store.SaveConflict(ctx, &backlog.ConflictRecord{
		SessionGroupID: "sg-test",
		TypeRef:        ChainOnConflictTypeID,
		ScopeHint:      ChainScopeHint(aID),
		ChainParentID:  aID,
	})
	if err != nil || gotB != bID {
		t.Fatalf("save chained b: id=%d err=%v, want id %d", gotB, err, bID)
	}

	res, err := m.ResolveExistingConflict(ctx, parent.InternalID, NewRule(ActionManual, "/proj", "fixed", nil))
	if err != nil {
		t.Fatalf("ResolveExistingConflict must terminate on cycles: %v", err)
	}
	if !res.Resolved {
		t.Fatal("expected parent to resolve")
	}
	for _, id := range []int64{aID, bID} {
		rec, _ := store.GetConflict(ctx, id)
		if Status(rec.Status) != StatusResolved {
			t.Errorf("chained conflict %d status = %v, want resolved", id, Status(rec.Status))
		}
	}
}

func TestManager_MultipleRetrySchedulesAndExhausts(t *testing.T) {
	ct := NewRuntimeErrorConflictType()
	m, store := newTestManager(t, ct)
	ctx := context.Background()

	rule := NewRule(ActionMultipleRetry, "/", "retry twice",
		map[string]string{DataKeyNumberOfRetries: "2"})
	mustSaveRule(t, m, ct, rule)

	c := NewRuntimeErrorConflict(ct, fmt.Errorf("transient failure"))
	res, _, err := m.TryResolveNewConflict(ctx, c)
	if err != nil {
		t.Fatalf("TryResolveNewConflict: %v", err)
	}
	if res.Resolved || res.Outcome != OutcomeScheduledForRetry {
		t.Fatalf("first attempt: resolved=%v outcome=%v, want retry schedule", res.Resolved, res.Outcome)
	}
	rec, _ := store.GetConflict(ctx, c.InternalID)
	if Status(rec.Status) != StatusScheduledForRetry || rec.RetryCount != 1 {
		t.Fatalf("record status=%v retries=%d, want scheduled/1", Status(rec.Status), rec.RetryCount)
	}

	res, err = m.ResolveExistingConflict(ctx, c.InternalID, rule)
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if res.Outcome != OutcomeScheduledForRetry {
		t.Fatalf("second attempt outcome = %v, want retry schedule", res.Outcome)
	}
	rec, _ = store.GetConflict(ctx, c.InternalID)
	if rec.RetryCount != 2 {
		t.Fatalf("retry count = %d, want 2", rec.RetryCount)
	}

	res, err = m.ResolveExistingConflict(ctx, c.InternalID, rule)
	if err != nil {
		t.Fatalf("third attempt: %v", err)
	}
	if res.Resolved || res.Outcome == OutcomeScheduledForRetry {
		t.Fatalf("third attempt must exhaust the retry budget: resolved=%v outcome=%v", res.Resolved, res.Outcome)
	}
	rec, _ = store.GetConflict(ctx, c.InternalID)
	if Status(rec.Status) != StatusScheduledForRetry {
		t.Errorf("exhausted conflict stays parked, status = %v", Status(rec.Status))
	}
}

func TestManager_SaveRule_SingleShotIsDeprecated(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, store := newTestManager(t, ct)
	ctx := context.Background()

	mustSaveRule(t, m, ct, NewRule(ActionManual, "/proj", "one shot", nil))
	mustSaveRule(t, m, ct, NewRule(ActionSkip, "/proj", "reusable", nil))

	rules, err := m.GetPersistedRules(ctx, ct)
	if err != nil {
		t.Fatalf("GetPersistedRules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("valid rules = %d, want the single-shot rule excluded", len(rules))
	}
	if rules[0].Description != "reusable" {
		t.Errorf("surviving rule = %q", rules[0].Description)
	}

	all, err := store.ListAllRules(ctx)
	if err != nil {
		t.Fatalf("ListAllRules: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("persisted rules = %d, want both kept for audit", len(all))
	}
}

func TestManager_SaveRule_Validation(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, _ := newTestManager(t, ct)
	ctx := context.Background()

	if _, err := m.SaveRule(ctx, ct, NewRule(ActionSkip, "no-leading-slash", "bad scope", nil)); err == nil {
		t.Error("expected malformed scope to be rejected")
	}
	if _, err := m.SaveRule(ctx, ct, NewRule(ActionDropLink, "/", "unsupported", nil)); err == nil {
		t.Error("expected unsupported action to be rejected")
	}

	retryType := NewRuntimeErrorConflictType()
	reg := NewRegistry()
	reg.RegisterType(retryType)
	m2, err := NewManager(reg, backlog.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m2.SaveRule(ctx, retryType, NewRule(ActionMultipleRetry, "/", "missing data", nil)); err == nil {
		t.Error("expected missing NumberOfRetries data field to be rejected")
	}
}

func TestManager_UnregisteredTypeIsBacklogged(t *testing.T) {
	ct := newPathTestType(echoHandler{}, false)
	m, _ := newTestManager(t, ct)
	ctx := context.Background()

	stray := newPathTestType(echoHandler{}, false)
	c := stray.NewConflict("boom", "/proj/x")
	res, _, err := m.TryResolveNewConflict(ctx, c)
	if err != nil {
		t.Fatalf("TryResolveNewConflict: %v", err)
	}
	if res.Resolved {
		t.Fatal("unregistered type must not resolve")
	}
	if c.InternalID == 0 {
		t.Error("unregistered type must still be backlogged")
	}
}

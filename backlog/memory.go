package backlog

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and single-process tooling.
// WithTx runs callbacks against a clone of the data set and commits the clone
// on success, so a failed callback leaves the store untouched.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
}

type memData struct {
	conflicts      map[int64]*ConflictRecord
	rules          map[int64]*RuleRecord
	ruleRefs       map[uuid.UUID]int64
	nextConflictID int64
	nextRuleID     int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData()}
}

func newMemData() *memData {
	return &memData{
		conflicts:      make(map[int64]*ConflictRecord),
		rules:          make(map[int64]*RuleRecord),
		ruleRefs:       make(map[uuid.UUID]int64),
		nextConflictID: 1,
		nextRuleID:     1,
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		conflicts:      make(map[int64]*ConflictRecord, len(d.conflicts)),
		rules:          make(map[int64]*RuleRecord, len(d.rules)),
		ruleRefs:       make(map[uuid.UUID]int64, len(d.ruleRefs)),
		nextConflictID: d.nextConflictID,
		nextRuleID:     d.nextRuleID,
	}
	for id, rec := range d.conflicts {
		c.conflicts[id] = copyConflict(rec)
	}
	for id, rec := range d.rules {
		c.rules[id] = copyRule(rec)
	}
	for ref, id := range d.ruleRefs {
		c.ruleRefs[ref] = id
	}
	return c
}

func copyConflict(rec *ConflictRecord) *ConflictRecord {
	cp := *rec
	return &cp
}

func copyRule(rec *RuleRecord) *RuleRecord {
	cp := *rec
	if rec.DataFields != nil {
		cp.DataFields = make(map[string]string, len(rec.DataFields))
		for k, v := range rec.DataFields {
			cp.DataFields[k] = v
		}
	}
	return &cp
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := m.data.clone()
	if err := fn(&memTx{data: clone}); err != nil {
		return err
	}
	m.data = clone
	return nil
}

func (m *MemoryStore) SaveConflict(ctx context.Context, rec *ConflictRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.saveConflict(rec)
}

func (m *MemoryStore) GetConflict(ctx context.Context, id int64) (*ConflictRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getConflict(id)
}

func (m *MemoryStore) FindActiveConflict(ctx context.Context, typeRef uuid.UUID, scopeHint string) (*ConflictRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.findActiveConflict(typeRef, scopeHint)
}

func (m *MemoryStore) IncrementOccurrence(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.incrementOccurrence(id)
}

func (m *MemoryStore) UpdateConflictStatus(ctx context.Context, id int64, expectStatus, newStatus int, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.updateConflictStatus(id, expectStatus, newStatus, comment)
}

func (m *MemoryStore) SetConflictRetry(ctx context.Context, id int64, retryCount, status int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.setConflictRetry(id, retryCount, status)
}

func (m *MemoryStore) ListConflictsByStatus(ctx context.Context, sessionGroupID string, status int) ([]*ConflictRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listConflictsByStatus(sessionGroupID, status)
}

func (m *MemoryStore) ListChainedConflicts(ctx context.Context, chainTypeRef uuid.UUID, parentID int64) ([]*ConflictRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listChainedConflicts(chainTypeRef, parentID)
}

func (m *MemoryStore) SaveRule(ctx context.Context, rec *RuleRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.saveRule(rec)
}

func (m *MemoryStore) ListRules(ctx context.Context, typeRef uuid.UUID) ([]*RuleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listRules(typeRef)
}

func (m *MemoryStore) ListAllRules(ctx context.Context) ([]*RuleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listAllRules()
}

func (m *MemoryStore) DeprecateRule(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.deprecateRule(id)
}

func (m *MemoryStore) CountByStatus(ctx context.Context, sessionGroupID string) ([]StatusCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.countByStatus(sessionGroupID)
}

func (m *MemoryStore) DeleteSessionGroup(ctx context.Context, sessionGroupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.deleteSessionGroup(sessionGroupID)
}

func (m *MemoryStore) Close() error { return nil }

// memTx serves a WithTx callback. The enclosing store holds the write lock
// for the callback's duration, so memTx accesses its clone without locking.
type memTx struct {
	data *memData
}

func (t *memTx) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memTx) SaveConflict(ctx context.Context, rec *ConflictRecord) (int64, error) {
	return t.data.saveConflict(rec)
}

func (t *memTx) GetConflict(ctx context.Context, id int64) (*ConflictRecord, error) {
	return t.data.getConflict(id)
}

func (t *memTx) FindActiveConflict(ctx context.Context, typeRef uuid.UUID, scopeHint string) (*ConflictRecord, error) {
	return t.data.findActiveConflict(typeRef, scopeHint)
}

func (t *memTx) IncrementOccurrence(ctx context.Context, id int64) error {
	return t.data.incrementOccurrence(id)
}

func (t *memTx) UpdateConflictStatus(ctx context.Context, id int64, expectStatus, newStatus int, comment string) error {
	return t.data.updateConflictStatus(id, expectStatus, newStatus, comment)
}

func (t *memTx) SetConflictRetry(ctx context.Context, id int64, retryCount, status int) error {
	return t.data.setConflictRetry(id, retryCount, status)
}

func (t *memTx) ListConflictsByStatus(ctx context.Context, sessionGroupID string, status int) ([]*ConflictRecord, error) {
	return t.data.listConflictsByStatus(sessionGroupID, status)
}

func (t *memTx) ListChainedConflicts(ctx context.Context, chainTypeRef uuid.UUID, parentID int64) ([]*ConflictRecord, error) {
	return t.data.listChainedConflicts(chainTypeRef, parentID)
}

func (t *memTx) SaveRule(ctx context.Context, rec *RuleRecord) (int64, error) {
	return t.data.saveRule(rec)
}

func (t *memTx) ListRules(ctx context.Context, typeRef uuid.UUID) ([]*RuleRecord, error) {
	return t.data.listRules(typeRef)
}

func (t *memTx) ListAllRules(ctx context.Context) ([]*RuleRecord, error) {
	return t.data.listAllRules()
}

func (t *memTx) DeprecateRule(ctx context.Context, id int64) error {
	return t.data.deprecateRule(id)
}

func (t *memTx) CountByStatus(ctx context.Context, sessionGroupID string) ([]StatusCount, error) {
	return t.data.countByStatus(sessionGroupID)
}

func (t *memTx) DeleteSessionGroup(ctx context.Context, sessionGroupID string) error {
	return t.data.deleteSessionGroup(sessionGroupID)
}

func (t *memTx) Close() error { return nil }

func (d *memData) saveConflict(rec *ConflictRecord) (int64, error) {
	cp := copyConflict(rec)
	cp.ID = d.nextConflictID
	d.nextConflictID++
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	d.conflicts[cp.ID] = cp
	rec.ID = cp.ID
	return cp.ID, nil
}

func (d *memData) getConflict(id int64) (*ConflictRecord, error) {
	rec, ok := d.conflicts[id]
	if !ok {
		return nil, ErrConflictNotFound
	}
	return copyConflict(rec), nil
}

func (d *memData) findActiveConflict(typeRef uuid.UUID, scopeHint string) (*ConflictRecord, error) {
	var found *ConflictRecord
	for _, rec := range d.conflicts {
		if rec.TypeRef != typeRef || rec.ScopeHint != scopeHint {
			continue
		}
		if rec.Status != 0 { // unresolved only
			continue
		}
		if found == nil || rec.ID < found.ID {
			found = rec
		}
	}
	if found == nil {
		return nil, ErrConflictNotFound
	}
	return copyConflict(found), nil
}

func (d *memData) incrementOccurrence(id int64) error {
	rec, ok := d.conflicts[id]
	if !ok {
		return ErrConflictNotFound
	}
	rec.OccurrenceCount++
	return nil
}

func (d *memData) updateConflictStatus(id int64, expectStatus, newStatus int, comment string) error {
	rec, ok := d.conflicts[id]
	if !ok {
		return ErrConflictNotFound
	}
	if rec.Status != expectStatus {
		return ErrStaleStatus
	}
	rec.Status = newStatus
	if comment != "" {
		rec.ResolutionComment = comment
	}
	if newStatus == 1 { // resolved
		rec.ResolvedAt = time.Now().UTC()
	}
	return nil
}

func (d *memData) setConflictRetry(id int64, retryCount, status int) error {
	rec, ok := d.conflicts[id]
	if !ok {
		return ErrConflictNotFound
	}
	rec.RetryCount = retryCount
	rec.Status = status
	return nil
}

func (d *memData) listConflictsByStatus(sessionGroupID string, status int) ([]*ConflictRecord, error) {
	var out []*ConflictRecord
	for _, rec := range d.conflicts {
		if rec.SessionGroupID == sessionGroupID && rec.Status == status {
			out = append(out, copyConflict(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *memData) listChainedConflicts(chainTypeRef uuid.UUID, parentID int64) ([]*ConflictRecord, error) {
	hint := strconv.FormatInt(parentID, 10)
	var out []*ConflictRecord
	for _, rec := range d.conflicts {
		if rec.TypeRef != chainTypeRef || rec.Status != 0 {
			continue
		}
		if rec.ScopeHint == hint || rec.ChainParentID == parentID {
			out = append(out, copyConflict(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *memData) saveRule(rec *RuleRecord) (int64, error) {
	if _, exists := d.ruleRefs[rec.RuleRef]; exists {
		return 0, ErrDuplicateRule
	}
	cp := copyRule(rec)
	cp.ID = d.nextRuleID
	d.nextRuleID++
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	d.rules[cp.ID] = cp
	d.ruleRefs[cp.RuleRef] = cp.ID
	rec.ID = cp.ID
	return cp.ID, nil
}

func (d *memData) listRules(typeRef uuid.UUID) ([]*RuleRecord, error) {
	var out []*RuleRecord
	for _, rec := range d.rules {
		if rec.TypeRef == typeRef && rec.Status == 0 {
			out = append(out, copyRule(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *memData) listAllRules() ([]*RuleRecord, error) {
	var out []*RuleRecord
	for _, rec := range d.rules {
		out = append(out, copyRule(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *memData) deprecateRule(id int64) error {
	rec, ok := d.rules[id]
	if !ok {
		return ErrRuleNotFound
	}
	rec.Status = 1
	return nil
}

func (d *memData) countByStatus(sessionGroupID string) ([]StatusCount, error) {
	type key struct {
		ref    uuid.UUID
		status int
	}
	counts := make(map[key]int)
	for _, rec := range d.conflicts {
		if rec.SessionGroupID != sessionGroupID {
			continue
		}
		counts[key{rec.TypeRef, rec.Status}]++
	}
	out := make([]StatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, StatusCount{TypeRef: k.ref, Status: k.status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TypeRef != out[j].TypeRef {
			return out[i].TypeRef.String() < out[j].TypeRef.String()
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

func (d *memData) deleteSessionGroup(sessionGroupID string) error {
	for id, rec := range d.conflicts {
		if rec.SessionGroupID == sessionGroupID {
			delete(d.conflicts, id)
		}
	}
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*memTx)(nil)
)

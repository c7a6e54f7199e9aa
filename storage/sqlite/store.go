// Package sqlite provides a SQLite implementation of the backlog.Store used
// to persist migration conflicts and resolution rules.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c0deZ3R0/go-migrate-kit/backlog"
	merrors "github.com/c0deZ3R0/go-migrate-kit/errors"
	"github.com/c0deZ3R0/go-migrate-kit/logging"

	// Go SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// Config holds configuration options for the SQLite backlog store.
//
// Production-ready defaults are applied by DefaultConfig() including:
//   - WAL mode enabled for better concurrency
//   - Connection pool with 25 max open, 5 max idle connections
//   - Connection lifetimes of 1 hour max, 5 minutes max idle
type Config struct {
	// DataSourceName is the connection string for the SQLite database.
	// Example: "file:backlog.db?_journal_mode=WAL"
	DataSourceName string

	// EnableWAL enables Write-Ahead Logging mode for better concurrency.
	// When true, automatically appends "?_journal_mode=WAL" to DataSourceName.
	EnableWAL bool

	// Connection pool settings for production workloads.
	// Defaults: MaxOpen=25, MaxIdle=5, Lifetime=1h, IdleTime=5m
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.EnableWAL {
		if !strings.Contains(c.DataSourceName, "?_journal_mode=") {
			c.DataSourceName += "?_journal_mode=WAL"
		}
	}
}

// DefaultConfig returns a Config with production-ready defaults for SQLite.
func DefaultConfig(dataSourceName string) *Config {
	config := &Config{
		DataSourceName: dataSourceName,
		EnableWAL:      true,
	}
	config.setDefaults()
	return config
}

// BacklogStore implements backlog.Store on SQLite.
type BacklogStore struct {
	session
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

var _ backlog.Store = (*BacklogStore)(nil)

// NewWithDataSource is a convenience constructor using DefaultConfig.
func NewWithDataSource(dataSourceName string) (*BacklogStore, error) {
	return New(DefaultConfig(dataSourceName))
}

// New creates a BacklogStore from a Config and bootstraps the schema.
func New(config *Config) (*BacklogStore, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	config.setDefaults()
	if config.DataSourceName == "" {
		return nil, fmt.Errorf("DataSourceName is required")
	}

	logger := logging.WithComponent(logging.Component("sqlite-backlog"))
	logger.InfoContext(context.Background(), "Opening SQLite database",
		slog.String("data_source", config.DataSourceName),
		slog.Bool("wal_enabled", config.EnableWAL),
	)

	db, err := sql.Open("sqlite3", config.DataSourceName)
	if err != nil {
		return nil, merrors.NewStorageError(merrors.OpStore, fmt.Errorf("open sqlite database: %w", err))
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, merrors.NewStorageError(merrors.OpStore, fmt.Errorf("connect to sqlite database: %w", err))
	}

	store := &BacklogStore{session: session{q: db}, db: db}
	if err := store.setupSchema(); err != nil {
		db.Close()
		return nil, merrors.NewStorageError(merrors.OpStore, fmt.Errorf("setup schema: %w", err))
	}

	logger.InfoContext(context.Background(), "SQLite backlog store initialized")
	return store, nil
}

func (s *BacklogStore) setupSchema() error {
	query := `
    CREATE TABLE IF NOT EXISTS conflicts (
        id                 INTEGER PRIMARY KEY AUTOINCREMENT,
        session_group_id   TEXT NOT NULL DEFAULT '',
        source_id          TEXT NOT NULL DEFAULT '',
        type_ref           TEXT NOT NULL,
        status             INTEGER NOT NULL DEFAULT 0,
        details            TEXT NOT NULL DEFAULT '',
        scope_hint         TEXT NOT NULL DEFAULT '',
        chain_parent_id    INTEGER NOT NULL DEFAULT 0,
        action_id          INTEGER NOT NULL DEFAULT 0,
        group_id           INTEGER NOT NULL DEFAULT 0,
        link_action_id     INTEGER NOT NULL DEFAULT 0,
        retry_count        INTEGER NOT NULL DEFAULT 0,
        occurrence_count   INTEGER NOT NULL DEFAULT 0,
        resolution_comment TEXT NOT NULL DEFAULT '',
        created_at         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        resolved_at        TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_conflicts_type_scope ON conflicts (type_ref, scope_hint, status);
    CREATE INDEX IF NOT EXISTS idx_conflicts_session_status ON conflicts (session_group_id, status);
    CREATE INDEX IF NOT EXISTS idx_conflicts_chain_parent ON conflicts (chain_parent_id);

    CREATE TABLE IF NOT EXISTS resolution_rules (
        id          INTEGER PRIMARY KEY AUTOINCREMENT,
        rule_ref    TEXT NOT NULL UNIQUE,
        type_ref    TEXT NOT NULL,
        action_ref  TEXT NOT NULL,
        scope       TEXT NOT NULL DEFAULT '',
        description TEXT NOT NULL DEFAULT '',
        data_fields TEXT NOT NULL DEFAULT '{}',
        status      INTEGER NOT NULL DEFAULT 0,
        created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_rules_type_status ON resolution_rules (type_ref, status);
    `
	_, err := s.db.Exec(query)
	return err
}

// WithTx runs fn inside one SQLite transaction.
func (s *BacklogStore) WithTx(ctx context.Context, fn func(tx backlog.Store) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return merrors.NewStorageError(merrors.OpStore, sql.ErrConnDone)
	}
	s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return merrors.NewStorageError(merrors.OpStore, fmt.Errorf("begin transaction: %w", err))
	}
	if err := fn(&txSession{session{q: tx}}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return merrors.NewStorageError(merrors.OpStore, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// Close closes the database connection. Safe to call twice.
func (s *BacklogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Stats returns database statistics for monitoring.
func (s *BacklogStore) Stats() sql.DBStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sql.DBStats{}
	}
	return s.db.Stats()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// session implements the row-level operations over a db handle or an open
// transaction.
type session struct {
	q querier
}

// txSession serves a WithTx callback; nested WithTx joins the same
// transaction.
type txSession struct {
	session
}

func (t *txSession) WithTx(ctx context.Context, fn func(tx backlog.Store) error) error {
	return fn(t)
}

func (t *txSession) Close() error { return nil }

var _ backlog.Store = (*txSession)(nil)

func (s session) SaveConflict(ctx context.Context, rec *backlog.ConflictRecord) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
        INSERT INTO conflicts
            (session_group_id, source_id, type_ref, status, details, scope_hint,
             chain_parent_id, action_id, group_id, link_action_id,
             retry_count, occurrence_count, resolution_comment)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionGroupID, rec.SourceID, rec.TypeRef.String(), rec.Status,
		rec.Details, rec.ScopeHint, rec.ChainParentID,
		rec.ActionID, rec.GroupID, rec.LinkActionID,
		rec.RetryCount, rec.OccurrenceCount, rec.ResolutionComment)
	if err != nil {
		return 0, merrors.NewStorageError(merrors.OpBacklog, fmt.Errorf("insert conflict: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, merrors.NewStorageError(merrors.OpBacklog, err)
	}
	rec.ID = id
	return id, nil
}

const conflictColumns = `id, session_group_id, source_id, type_ref, status, details, scope_hint,
    chain_parent_id, action_id, group_id, link_action_id,
    retry_count, occurrence_count, resolution_comment, created_at, resolved_at`

func (s session) GetConflict(ctx context.Context, id int64) (*backlog.ConflictRecord, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE id = ?`, id)
	rec, err := scanConflict(row)
	if err == sql.ErrNoRows {
		return nil, backlog.ErrConflictNotFound
	}
	if err != nil {
		return nil, merrors.NewStorageError(merrors.OpLoad, err)
	}
	return rec, nil
}

func (s session) FindActiveConflict(ctx context.Context, typeRef uuid.UUID, scopeHint string) (*backlog.ConflictRecord, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts
         WHERE type_ref = ? AND scope_hint = ? AND status = 0
         ORDER BY id LIMIT 1`,
		typeRef.String(), scopeHint)
	rec, err := scanConflict(row)
	if err == sql.ErrNoRows {
		return nil, backlog.ErrConflictNotFound
	}
	if err != nil {
		return nil, merrors.NewStorageError(merrors.OpLoad, err)
	}
	return rec, nil
}

func (s session) IncrementOccurrence(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE conflicts SET occurrence_count = occurrence_count + 1 WHERE id = ?`, id)
	if err != nil {
		return merrors.NewStorageError(merrors.OpBacklog, err)
	}
	return requireRow(res, backlog.ErrConflictNotFound)
}

func (s session) UpdateConflictStatus(ctx context.Context, id int64, expectStatus, newStatus int, comment string) error {
	res, err := s.q.ExecContext(ctx, `
        UPDATE conflicts
        SET status = ?,
            resolution_comment = CASE WHEN ? = '' THEN resolution_comment ELSE ? END,
            resolved_at = CASE WHEN ? = 1 THEN CURRENT_TIMESTAMP ELSE resolved_at END
        WHERE id = ? AND status = ?`,
		newStatus, comment, comment, newStatus, id, expectStatus)
	if err != nil {
		return merrors.NewStorageError(merrors.OpStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return merrors.NewStorageError(merrors.OpStore, err)
	}
	if n == 0 {
		if _, err := s.GetConflict(ctx, id); err != nil {
			return err
		}
		return backlog.ErrStaleStatus
	}
	return nil
}

func (s session) SetConflictRetry(ctx context.Context, id int64, retryCount, status int) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE conflicts SET retry_count = ?, status = ? WHERE id = ?`,
		retryCount, status, id)
	if err != nil {
		return merrors.NewStorageError(merrors.OpStore, err)
	}
	return requireRow(res, backlog.ErrConflictNotFound)
}

func (s session) ListConflictsByStatus(ctx context.Context, sessionGroupID string, status int) ([]*backlog.ConflictRecord, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts
         WHERE session_group_id = ? AND status = ? ORDER BY id`,
		sessionGroupID, status)
	if err != nil {
		return nil, merrors.NewStorageError(merrors.OpLoad, err)
	}
	defer rows.Close()
	return scanConflicts(rows)
}

func (s session) ListChainedConflicts(ctx context.Context, chainTypeRef uuid.UUID, parentID int64) ([]*backlog.ConflictRecord, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts
         WHERE type_ref = ? AND status = 0 AND (scope_hint = ? OR chain_parent_id = ?)
         ORDER BY id`,
		chainTypeRef.String(), fmt.Sprintf("%d", parentID), parentID)
	if err != nil {
		return nil, merrors.NewStorageError(merrors.OpChainUnblock, err)
	}
	defer rows.Close()
	return scanConflicts(rows)
}

func (s session) SaveRule(ctx context.Context, rec *backlog.RuleRecord) (int64, error) {
	fields, err := json.Marshal(rec.DataFields)
	if err != nil {
		return 0, merrors.NewStorageError(merrors.OpRuleSave, err)
	}
	res, err := s.q.ExecContext(ctx, `
        INSERT INTO resolution_rules (rule_ref, type_ref, action_ref, scope, description, data_fields, status)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RuleRef.String(), rec.TypeRef.String(), rec.ActionRef.String(),
		rec.Scope, rec.Description, string(fields), rec.Status)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, backlog.ErrDuplicateRule
		}
		return 0, merrors.NewStorageError(merrors.OpRuleSave, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, merrors.NewStorageError(merrors.OpRuleSave, err)
	}
	rec.ID = id
	return id, nil
}

const ruleColumns = `id, rule_ref, type_ref, action_ref, scope, description, data_fields, status, created_at`

func (s session) ListRules(ctx context.Context, typeRef uuid.UUID) ([]*backlog.RuleRecord, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM resolution_rules
         WHERE type_ref = ? AND status = 0 ORDER BY id`,
		typeRef.String())
	if err != nil {
		return nil, merrors.NewStorageError(merrors.OpRuleLookup, err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (s session) ListAllRules(ctx context.Context) ([]*backlog.RuleRecord, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM resolution_rules ORDER BY id`)
	if err != nil {
		return nil, merrors.NewStorageError(merrors.OpRuleLookup, err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (s session) DeprecateRule(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE resolution_rules SET status = 1 WHERE id = ?`, id)
	if err != nil {
		return merrors.NewStorageError(merrors.OpRuleSave, err)
	}
	return requireRow(res, backlog.ErrRuleNotFound)
}

func (s session) CountByStatus(ctx context.Context, sessionGroupID string) ([]backlog.StatusCount, error) {
	rows, err := s.q.QueryContext(ctx, `
        SELECT type_ref, status, COUNT(*) FROM conflicts
        WHERE session_group_id = ?
        GROUP BY type_ref, status
        ORDER BY type_ref, status`,
		sessionGroupID)
	if err != nil {
		return nil, merrors.NewStorageError(merrors.OpLoad, err)
	}
	defer rows.Close()

	var out []backlog.StatusCount
	for rows.Next() {
		var refStr string
		var sc backlog.StatusCount
		if err := rows.Scan(&refStr, &sc.Status, &sc.Count); err != nil {
			return nil, merrors.NewStorageError(merrors.OpLoad, err)
		}
		ref, err := uuid.Parse(refStr)
		if err != nil {
			return nil, merrors.NewStorageError(merrors.OpLoad, fmt.Errorf("malformed type_ref %q: %w", refStr, err))
		}
		sc.TypeRef = ref
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, merrors.NewStorageError(merrors.OpLoad, err)
	}
	return out, nil
}

func (s session) DeleteSessionGroup(ctx context.Context, sessionGroupID string) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM conflicts WHERE session_group_id = ?`, sessionGroupID)
	if err != nil {
		return merrors.NewStorageError(merrors.OpStore, err)
	}
	return nil
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return merrors.NewStorageError(merrors.OpStore, err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConflict(row rowScanner) (*backlog.ConflictRecord, error) {
	var rec backlog.ConflictRecord
	var refStr string
	var createdAt sql.NullTime
	var resolvedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.SessionGroupID, &rec.SourceID, &refStr, &rec.Status,
		&rec.Details, &rec.ScopeHint, &rec.ChainParentID,
		&rec.ActionID, &rec.GroupID, &rec.LinkActionID,
		&rec.RetryCount, &rec.OccurrenceCount, &rec.ResolutionComment,
		&createdAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	ref, err := uuid.Parse(refStr)
	if err != nil {
		return nil, fmt.Errorf("malformed type_ref %q: %w", refStr, err)
	}
	rec.TypeRef = ref
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time
	}
	if resolvedAt.Valid {
		rec.ResolvedAt = resolvedAt.Time
	}
	return &rec, nil
}

func scanConflicts(rows *sql.Rows) ([]*backlog.ConflictRecord, error) {
	var out []*backlog.ConflictRecord
	for rows.Next() {
		rec, err := scanConflict(rows)
		if err != nil {
			return nil, merrors.NewStorageError(merrors.OpLoad, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, merrors.NewStorageError(merrors.OpLoad, err)
	}
	return out, nil
}

func scanRules(rows *sql.Rows) ([]*backlog.RuleRecord, error) {
	var out []*backlog.RuleRecord
	for rows.Next() {
		var rec backlog.RuleRecord
		var ruleRef, typeRef, actionRef, fields string
		var createdAt sql.NullTime
		if err := rows.Scan(&rec.ID, &ruleRef, &typeRef, &actionRef,
			&rec.Scope, &rec.Description, &fields, &rec.Status, &createdAt); err != nil {
			return nil, merrors.NewStorageError(merrors.OpRuleLookup, err)
		}
		var err error
		if rec.RuleRef, err = uuid.Parse(ruleRef); err != nil {
			return nil, merrors.NewStorageError(merrors.OpRuleLookup, fmt.Errorf("malformed rule_ref %q: %w", ruleRef, err))
		}
		if rec.TypeRef, err = uuid.Parse(typeRef); err != nil {
			return nil, merrors.NewStorageError(merrors.OpRuleLookup, fmt.Errorf("malformed type_ref %q: %w", typeRef, err))
		}
		if rec.ActionRef, err = uuid.Parse(actionRef); err != nil {
			return nil, merrors.NewStorageError(merrors.OpRuleLookup, fmt.Errorf("malformed action_ref %q: %w", actionRef, err))
		}
		if fields != "" {
			if err := json.Unmarshal([]byte(fields), &rec.DataFields); err != nil {
				return nil, merrors.NewStorageError(merrors.OpRuleLookup, fmt.Errorf("malformed data_fields: %w", err))
			}
		}
		if createdAt.Valid {
			rec.CreatedAt = createdAt.Time
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, merrors.NewStorageError(merrors.OpRuleLookup, err)
	}
	return out, nil
}

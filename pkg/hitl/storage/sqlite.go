package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/janus/pkg/hitl"
	"mercator-hq/janus/pkg/rules"
)

// Schema contains the SQL statements for the approval queue database.
const Schema = `
CREATE TABLE IF NOT EXISTS approval_requests (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    mode TEXT NOT NULL,
    status TEXT NOT NULL,
    payload TEXT,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    assigned_reviewer_id TEXT,
    escalation_level INTEGER NOT NULL,
    escalation_history TEXT,
    last_escalated_at TIMESTAMP,
    max_escalated BOOLEAN NOT NULL DEFAULT 0,
    resolved_by TEXT,
    resolved_at TIMESTAMP,
    resolution_notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_approvals_status_mode
    ON approval_requests(status, mode);
`

// SQLiteConfig contains configuration for the SQLite approval backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/approvals.db",
		MaxOpenConns: 10,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements hitl.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens (or creates) the approval database and
// applies the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, hitl.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "hitl.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return hitl.NewStorageError("sqlite", "pragma", err)
		}
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return hitl.NewStorageError("sqlite", "schema", err)
	}
	return nil
}

const approvalColumns = `id, tenant_id, mode, status, payload, created_at, expires_at,
	assigned_reviewer_id, escalation_level, escalation_history, last_escalated_at,
	max_escalated, resolved_by, resolved_at, resolution_notes`

// Create persists a new request.
func (s *SQLiteStorage) Create(ctx context.Context, request *hitl.ApprovalRequest) error {
	return s.write(ctx, "create", `
		INSERT INTO approval_requests (`+approvalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, request)
}

// Update overwrites an existing request.
func (s *SQLiteStorage) Update(ctx context.Context, request *hitl.ApprovalRequest) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE approval_requests SET
			tenant_id = ?, mode = ?, status = ?, payload = ?, created_at = ?, expires_at = ?,
			assigned_reviewer_id = ?, escalation_level = ?, escalation_history = ?,
			last_escalated_at = ?, max_escalated = ?, resolved_by = ?, resolved_at = ?,
			resolution_notes = ?
		WHERE id = ?`,
		request.TenantID,
		string(request.Mode),
		string(request.Status),
		marshalJSON(request.Payload),
		formatTime(request.CreatedAt),
		formatTime(request.ExpiresAt),
		request.AssignedReviewerID,
		int(request.EscalationLevel),
		marshalJSON(request.EscalationHistory),
		formatNullableTime(request.LastEscalatedAt),
		request.MaxEscalated,
		request.ResolvedBy,
		formatTimePtr(request.ResolvedAt),
		request.ResolutionNotes,
		request.ID,
	)
	if err != nil {
		return hitl.NewStorageError("sqlite", "update", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return hitl.NewStorageError("sqlite", "update", err)
	}
	if affected == 0 {
		return hitl.ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) write(ctx context.Context, op, query string, request *hitl.ApprovalRequest) error {
	_, err := s.db.ExecContext(ctx, query,
		request.ID,
		request.TenantID,
		string(request.Mode),
		string(request.Status),
		marshalJSON(request.Payload),
		formatTime(request.CreatedAt),
		formatTime(request.ExpiresAt),
		request.AssignedReviewerID,
		int(request.EscalationLevel),
		marshalJSON(request.EscalationHistory),
		formatNullableTime(request.LastEscalatedAt),
		request.MaxEscalated,
		request.ResolvedBy,
		formatTimePtr(request.ResolvedAt),
		request.ResolutionNotes,
	)
	if err != nil {
		return hitl.NewStorageError("sqlite", op, err)
	}
	return nil
}

// Get returns the request with the given ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*hitl.ApprovalRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+approvalColumns+`
		FROM approval_requests WHERE id = ?`, id)

	request, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hitl.ErrNotFound
	}
	if err != nil {
		return nil, hitl.NewStorageError("sqlite", "get", err)
	}
	return request, nil
}

// List returns requests matching the filter, oldest first.
func (s *SQLiteStorage) List(ctx context.Context, filter hitl.Filter) ([]*hitl.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests`
	var conds []string
	var args []interface{}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Mode != "" {
		conds = append(conds, "mode = ?")
		args = append(args, string(filter.Mode))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, hitl.NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	var out []*hitl.ApprovalRequest
	for rows.Next() {
		request, err := scanApproval(rows)
		if err != nil {
			return nil, hitl.NewStorageError("sqlite", "list", err)
		}
		out = append(out, request)
	}
	if err := rows.Err(); err != nil {
		return nil, hitl.NewStorageError("sqlite", "list", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApproval(row rowScanner) (*hitl.ApprovalRequest, error) {
	var request hitl.ApprovalRequest
	var mode, status, createdAt, expiresAt string
	var payload, history, lastEscalated, resolvedAt, reviewer, resolvedBy, notes sql.NullString
	var level int

	err := row.Scan(
		&request.ID,
		&request.TenantID,
		&mode,
		&status,
		&payload,
		&createdAt,
		&expiresAt,
		&reviewer,
		&level,
		&history,
		&lastEscalated,
		&request.MaxEscalated,
		&resolvedBy,
		&resolvedAt,
		&notes,
	)
	if err != nil {
		return nil, err
	}

	request.Mode = rules.HITLMode(mode)
	request.Status = hitl.Status(status)
	request.EscalationLevel = hitl.Level(level)
	request.AssignedReviewerID = reviewer.String
	request.ResolvedBy = resolvedBy.String
	request.ResolutionNotes = notes.String

	if request.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if request.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	if lastEscalated.Valid && lastEscalated.String != "" {
		if request.LastEscalatedAt, err = time.Parse(time.RFC3339Nano, lastEscalated.String); err != nil {
			return nil, fmt.Errorf("parse last_escalated_at: %w", err)
		}
	}
	if resolvedAt.Valid && resolvedAt.String != "" {
		ts, err := time.Parse(time.RFC3339Nano, resolvedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse resolved_at: %w", err)
		}
		request.ResolvedAt = &ts
	}
	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &request.Payload); err != nil {
			return nil, fmt.Errorf("parse payload: %w", err)
		}
	}
	if history.Valid && history.String != "" {
		if err := json.Unmarshal([]byte(history.String), &request.EscalationHistory); err != nil {
			return nil, fmt.Errorf("parse escalation_history: %w", err)
		}
	}
	return &request, nil
}

func marshalJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullableTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatTime(t)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

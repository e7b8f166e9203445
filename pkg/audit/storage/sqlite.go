package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/janus/pkg/audit"
)

// Schema contains the SQL statements for the audit ledger database.
// The (tenant_id, sequence_number) unique index is the storage-level
// backstop for the chain's per-tenant serialization.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    sequence_number INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    payload TEXT,
    timestamp TIMESTAMP NOT NULL,
    previous_hash TEXT NOT NULL,
    record_hash TEXT NOT NULL,

    UNIQUE (tenant_id, sequence_number)
);

CREATE INDEX IF NOT EXISTS idx_audit_tenant_seq
    ON audit_records(tenant_id, sequence_number);
`

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens (or creates) the audit database and applies
// the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "audit.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return audit.NewStorageError("sqlite", "pragma", err)
		}
	}
	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return audit.NewStorageError("sqlite", "pragma", err)
		}
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "schema", err)
	}
	return nil
}

// Append persists a record.
func (s *SQLiteStorage) Append(ctx context.Context, record *audit.Record) error {
	payload, err := marshalPayload(record.Payload)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records
			(id, tenant_id, sequence_number, event_type, actor_id, payload, timestamp, previous_hash, record_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.TenantID,
		record.SequenceNumber,
		string(record.EventType),
		record.ActorID,
		payload,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.PreviousHash,
		record.RecordHash,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	return nil
}

// Latest returns the highest-sequence record for the tenant, or nil.
func (s *SQLiteStorage) Latest(ctx context.Context, tenantID string) (*audit.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, sequence_number, event_type, actor_id, payload, timestamp, previous_hash, record_hash
		FROM audit_records
		WHERE tenant_id = ?
		ORDER BY sequence_number DESC
		LIMIT 1`, tenantID)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "latest", err)
	}
	return record, nil
}

// List returns all records for the tenant in ascending sequence order.
func (s *SQLiteStorage) List(ctx context.Context, tenantID string) ([]*audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, sequence_number, event_type, actor_id, payload, timestamp, previous_hash, record_hash
		FROM audit_records
		WHERE tenant_id = ?
		ORDER BY sequence_number ASC`, tenantID)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	var out []*audit.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "list", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "list", err)
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

func scanRecord(row rowScanner) (*audit.Record, error) {
	var record audit.Record
	var eventType, timestamp string
	var payload sql.NullString

	err := row.Scan(
		&record.ID,
		&record.TenantID,
		&record.SequenceNumber,
		&eventType,
		&record.ActorID,
		&payload,
		&timestamp,
		&record.PreviousHash,
		&record.RecordHash,
	)
	if err != nil {
		return nil, err
	}

	record.EventType = audit.EventType(eventType)

	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", timestamp, err)
	}
	record.Timestamp = ts

	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &record.Payload); err != nil {
			return nil, fmt.Errorf("parse payload: %w", err)
		}
	}
	return &record, nil
}

func marshalPayload(payload map[string]interface{}) (string, error) {
	if payload == nil {
		return "", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

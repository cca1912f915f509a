package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/atomic"
)

// SQLStore is a database/sql session store (PostgreSQL, MySQL, SQLite).
// Expiry is kept as unix milliseconds so every dialect compares it the
// same way:
//
//	CREATE TABLE starter_sessions (
//	    id         VARCHAR(64) PRIMARY KEY,
//	    data       BLOB        NOT NULL,
//	    expires_at BIGINT      NOT NULL,
//	    updated_at BIGINT      NOT NULL
//	);
//	CREATE INDEX idx_starter_sessions_expires ON starter_sessions(expires_at);
//
// For SQLite, open the database with the pure-Go driver:
//
//	import _ "modernc.org/sqlite"
//	db, err := sql.Open("sqlite", "file:sessions.db")
type SQLStore struct {
	db              *sql.DB
	tableName       string
	dialect         SQLDialect
	cleanupInterval time.Duration
	logger          *slog.Logger
	now             func() time.Time

	closed atomic.Bool
	done   chan struct{}
}

// DefaultSQLTableName is the sessions table used unless WithSQLTableName
// says otherwise.
const DefaultSQLTableName = "starter_sessions"

// SQLDialect selects placeholder and upsert syntax.
type SQLDialect int

const (
	// DialectPostgreSQL uses $n placeholders and ON CONFLICT.
	DialectPostgreSQL SQLDialect = iota
	// DialectMySQL uses ? placeholders and ON DUPLICATE KEY.
	DialectMySQL
	// DialectSQLite uses ? placeholders and INSERT OR REPLACE.
	DialectSQLite
)

// String returns the dialect name.
func (d SQLDialect) String() string {
	switch d {
	case DialectMySQL:
		return "mysql"
	case DialectSQLite:
		return "sqlite"
	default:
		return "postgres"
	}
}

// ParseSQLDialect parses a dialect name.
func ParseSQLDialect(s string) (SQLDialect, error) {
	switch s {
	case "postgres", "postgresql", "pgx":
		return DialectPostgreSQL, nil
	case "mysql":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return DialectPostgreSQL, fmt.Errorf("session: unknown SQL dialect %q", s)
	}
}

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*SQLStore)

// WithSQLTableName sets the table name. Default: "starter_sessions".
func WithSQLTableName(name string) SQLStoreOption {
	return func(s *SQLStore) {
		if name != "" {
			s.tableName = name
		}
	}
}

// WithSQLDialect sets the SQL dialect. Default: DialectPostgreSQL.
func WithSQLDialect(dialect SQLDialect) SQLStoreOption {
	return func(s *SQLStore) {
		s.dialect = dialect
	}
}

// WithSQLCleanupInterval sets how often expired rows are deleted.
// Default: 5 minutes.
func WithSQLCleanupInterval(d time.Duration) SQLStoreOption {
	return func(s *SQLStore) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// WithSQLLogger sets the logger used for background cleanup failures.
func WithSQLLogger(logger *slog.Logger) SQLStoreOption {
	return func(s *SQLStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSQLStore creates a store over db. The caller owns db; Close does not
// close it.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	s := &SQLStore{
		db:              db,
		tableName:       DefaultSQLTableName,
		dialect:         DialectPostgreSQL,
		cleanupInterval: 5 * time.Minute,
		logger:          slog.Default(),
		now:             time.Now,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.cleanupLoop()
	return s
}

func (s *SQLStore) ph(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) upsertQuery() string {
	switch s.dialect {
	case DialectMySQL:
		return fmt.Sprintf(`INSERT INTO %s (id, data, expires_at, updated_at) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE data = VALUES(data), expires_at = VALUES(expires_at), updated_at = VALUES(updated_at)`,
			s.tableName)
	case DialectSQLite:
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (id, data, expires_at, updated_at) VALUES (?, ?, ?, ?)`,
			s.tableName)
	default:
		return fmt.Sprintf(`INSERT INTO %s (id, data, expires_at, updated_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
			s.tableName)
	}
}

func (s *SQLStore) loadQuery() string {
	return fmt.Sprintf(`SELECT data FROM %s WHERE id = %s AND expires_at > %s`,
		s.tableName, s.ph(1), s.ph(2))
}

func (s *SQLStore) deleteQuery() string {
	return fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, s.tableName, s.ph(1))
}

func (s *SQLStore) touchQuery() string {
	return fmt.Sprintf(`UPDATE %s SET expires_at = %s, updated_at = %s WHERE id = %s`,
		s.tableName, s.ph(1), s.ph(2), s.ph(3))
}

func (s *SQLStore) cleanupQuery() string {
	return fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= %s`, s.tableName, s.ph(1))
}

func (s *SQLStore) Save(ctx context.Context, sessionID string, data []byte, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx, s.upsertQuery(), sessionID, data, expiresAt.UnixMilli(), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("session: save %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, s.loadQuery(), sessionID, s.now().UnixMilli()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load %s: %w", sessionID, err)
	}
	return data, nil
}

func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, s.deleteQuery(), sessionID); err != nil {
		return fmt.Errorf("session: delete %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLStore) Touch(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx, s.touchQuery(), expiresAt.UnixMilli(), s.now().UnixMilli(), sessionID)
	if err != nil {
		return fmt.Errorf("session: touch %s: %w", sessionID, err)
	}
	return nil
}

// SaveAll writes every record in one transaction.
func (s *SQLStore) SaveAll(ctx context.Context, sessions map[string]Data) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if len(sessions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.upsertQuery())
	if err != nil {
		return err
	}
	defer stmt.Close()

	updated := s.now().UnixMilli()
	for id, sd := range sessions {
		if _, err := stmt.ExecContext(ctx, id, sd.Data, sd.ExpiresAt.UnixMilli(), updated); err != nil {
			return fmt.Errorf("session: save %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Close stops the cleanup loop. The database handle stays open.
func (s *SQLStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.done)
	}
	return nil
}

func (s *SQLStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Warn("session cleanup failed", "table", s.tableName, "error", err)
			}
		case <-s.done:
			return
		}
	}
}

// Cleanup deletes expired rows.
func (s *SQLStore) Cleanup(ctx context.Context) error {
	if s.closed.Load() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.cleanupQuery(), s.now().UnixMilli())
	return err
}

// CreateTable creates the session table and its expiry index if missing.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	blob := "BLOB"
	if s.dialect == DialectPostgreSQL {
		blob = "BYTEA"
	}
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(64) PRIMARY KEY,
		data %s NOT NULL,
		expires_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`, s.tableName, blob)
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("session: create table %s: %w", s.tableName, err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_expires ON %s(expires_at)`, s.tableName, s.tableName)
	if s.dialect == DialectMySQL {
		// MySQL has no IF NOT EXISTS for indexes; a duplicate fails harmlessly.
		index = fmt.Sprintf(`CREATE INDEX idx_%s_expires ON %s(expires_at)`, s.tableName, s.tableName)
		_, _ = s.db.ExecContext(ctx, index)
		return nil
	}
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("session: create index on %s: %w", s.tableName, err)
	}
	return nil
}

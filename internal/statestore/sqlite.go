package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/MrWong99/turnabout/internal/exchange"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS turnabout_state (
    id                INTEGER PRIMARY KEY CHECK (id = 1),
    roles             TEXT NOT NULL DEFAULT '{}',
    pending           TEXT,
    completed_by_user TEXT NOT NULL DEFAULT '{}',
    participants      TEXT NOT NULL DEFAULT '[]',
    updated_at        TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
`

// SQLiteStore is an [exchange.Store] backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Backend = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path in WAL mode and
// migrates the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("statestore: sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("statestore: open sqlite: %w", err)
	}
	// The engine serialises writes already; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("statestore: ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("statestore: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads the state row. No row yields a fresh state.
func (s *SQLiteStore) Load(ctx context.Context) (*exchange.State, error) {
	var (
		c       columns
		pending sql.NullString
		roles   string
		ledger  string
		parts   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT roles, pending, completed_by_user, participants FROM turnabout_state WHERE id = 1`,
	).Scan(&roles, &pending, &ledger, &parts)
	if errors.Is(err, sql.ErrNoRows) {
		return exchange.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: load: %w", err)
	}
	c.roles = []byte(roles)
	c.ledger = []byte(ledger)
	c.participants = []byte(parts)
	if pending.Valid {
		c.pending = []byte(pending.String)
	}
	return decodeColumns(c)
}

// Save upserts the state row.
func (s *SQLiteStore) Save(ctx context.Context, st *exchange.State) error {
	c, err := encodeColumns(st)
	if err != nil {
		return err
	}
	var pending sql.NullString
	if c.pending != nil {
		pending = sql.NullString{String: string(c.pending), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turnabout_state (id, roles, pending, completed_by_user, participants, updated_at)
		VALUES (1, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT (id) DO UPDATE SET
			roles             = excluded.roles,
			pending           = excluded.pending,
			completed_by_user = excluded.completed_by_user,
			participants      = excluded.participants,
			updated_at        = excluded.updated_at`,
		string(c.roles), pending, string(c.ledger), string(c.participants),
	)
	if err != nil {
		return fmt.Errorf("statestore: save: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

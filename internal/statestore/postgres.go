package statestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/turnabout/internal/exchange"
)

// Schema is the SQL DDL for the turnabout_state table. The table holds at
// most one row (id = 1). Execute it via [PostgresStore.Migrate] or apply it
// manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS turnabout_state (
    id                SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    roles             JSONB NOT NULL DEFAULT '{}',
    pending           JSONB,
    completed_by_user JSONB NOT NULL DEFAULT '{}',
    participants      JSONB NOT NULL DEFAULT '[]',
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is an [exchange.Store] backed by PostgreSQL.
type PostgresStore struct {
	db   DB
	pool *pgxpool.Pool
}

var _ Backend = (*PostgresStore)(nil)

// NewPostgresStore returns a store on db. The caller is responsible for
// calling [PostgresStore.Migrate] before use.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pool for dsn, verifies connectivity and migrates the
// schema.
func Connect(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("statestore: postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("statestore: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("statestore: ping postgres: %w", err)
	}
	s := &PostgresStore{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate executes [Schema].
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("statestore: migrate: %w", err)
	}
	return nil
}

// Load reads the state row. No row yields a fresh state.
func (s *PostgresStore) Load(ctx context.Context) (*exchange.State, error) {
	const query = `
		SELECT roles, pending, completed_by_user, participants
		FROM turnabout_state
		WHERE id = 1`

	var c columns
	err := s.db.QueryRow(ctx, query).Scan(&c.roles, &c.pending, &c.ledger, &c.participants)
	if errors.Is(err, pgx.ErrNoRows) {
		return exchange.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: load: %w", err)
	}
	return decodeColumns(c)
}

// Save upserts the state row.
func (s *PostgresStore) Save(ctx context.Context, st *exchange.State) error {
	c, err := encodeColumns(st)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO turnabout_state (id, roles, pending, completed_by_user, participants, updated_at)
		VALUES (1, $1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			roles             = EXCLUDED.roles,
			pending           = EXCLUDED.pending,
			completed_by_user = EXCLUDED.completed_by_user,
			participants      = EXCLUDED.participants,
			updated_at        = EXCLUDED.updated_at`

	if _, err := s.db.Exec(ctx, query, c.roles, c.pending, c.ledger, c.participants); err != nil {
		return fmt.Errorf("statestore: save: %w", err)
	}
	return nil
}

// Ping checks connectivity when the underlying DB supports it.
func (s *PostgresStore) Ping(ctx context.Context) error {
	p, ok := s.db.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("statestore: ping postgres: %w", err)
	}
	return nil
}

// Close releases the pool opened by [Connect]. Stores built with
// [NewPostgresStore] leave their DB to the caller.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

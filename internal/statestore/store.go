// Package statestore persists the exchange [exchange.State] aggregate.
//
// Three backends implement [exchange.Store]: a JSON file written atomically,
// a single-row PostgreSQL table and a single-row SQLite table. All of them
// store the same four JSON documents (roles, pending session, completion
// ledger, participants) so a state can be moved between backends by hand.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrWong99/turnabout/internal/exchange"
)

// Backend is an [exchange.Store] that can report readiness and release its
// resources.
type Backend interface {
	exchange.Store
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	// Backend is one of [BackendFile], [BackendPostgres] or [BackendSQLite].
	// Empty means [BackendFile].
	Backend string

	// Path is the state file for the file backend and the database file for
	// SQLite.
	Path string

	// DSN is the PostgreSQL connection string.
	DSN string
}

// Open returns the backend described by opts, ready for use. Database
// backends have their schema migrated.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Path)
	case BackendPostgres:
		return Connect(ctx, opts.DSN)
	case BackendSQLite:
		return OpenSQLite(ctx, opts.Path)
	default:
		return nil, fmt.Errorf("statestore: unknown backend %q", opts.Backend)
	}
}

// columns holds the JSON encoding of each part of the state. A nil pending
// means no open session.
type columns struct {
	roles        []byte
	pending      []byte
	ledger       []byte
	participants []byte
}

func encodeColumns(st *exchange.State) (columns, error) {
	var c columns
	var err error
	if c.roles, err = json.Marshal(st.Roles); err != nil {
		return c, fmt.Errorf("statestore: marshal roles: %w", err)
	}
	if st.Pending != nil {
		if c.pending, err = json.Marshal(st.Pending); err != nil {
			return c, fmt.Errorf("statestore: marshal pending: %w", err)
		}
	}
	if c.ledger, err = json.Marshal(st.Ledger); err != nil {
		return c, fmt.Errorf("statestore: marshal ledger: %w", err)
	}
	participants := st.Participants
	if participants == nil {
		participants = []exchange.ParticipantID{}
	}
	if c.participants, err = json.Marshal(participants); err != nil {
		return c, fmt.Errorf("statestore: marshal participants: %w", err)
	}
	return c, nil
}

func decodeColumns(c columns) (*exchange.State, error) {
	st := exchange.NewState()
	if len(c.roles) > 0 {
		if err := json.Unmarshal(c.roles, &st.Roles); err != nil {
			return nil, fmt.Errorf("statestore: decode roles: %w", err)
		}
	}
	if len(c.pending) > 0 && string(c.pending) != "null" {
		st.Pending = &exchange.Session{}
		if err := json.Unmarshal(c.pending, st.Pending); err != nil {
			return nil, fmt.Errorf("statestore: decode pending: %w", err)
		}
	}
	if len(c.ledger) > 0 {
		if err := json.Unmarshal(c.ledger, st.Ledger); err != nil {
			return nil, fmt.Errorf("statestore: decode ledger: %w", err)
		}
	}
	if len(c.participants) > 0 {
		if err := json.Unmarshal(c.participants, &st.Participants); err != nil {
			return nil, fmt.Errorf("statestore: decode participants: %w", err)
		}
	}
	st.Normalize()
	return st, nil
}

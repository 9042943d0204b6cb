// Package mock provides test doubles for the exchange package.
package mock

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/MrWong99/turnabout/internal/exchange"
)

// Compile-time interface checks.
var (
	_ exchange.Store     = (*Store)(nil)
	_ exchange.Deliverer = (*Deliverer)(nil)
)

// Store is an in-memory [exchange.Store] that records saves.
type Store struct {
	mu sync.Mutex

	// State is returned by Load (cloned). Nil means a fresh state.
	State *exchange.State

	// LoadErr is returned by Load when non-nil.
	LoadErr error

	// SaveErr is returned by Save when non-nil; the state is not stored.
	SaveErr error

	// Saves counts successful Save calls.
	Saves int
}

// Load returns a copy of the stored state.
func (s *Store) Load(_ context.Context) (*exchange.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.State == nil {
		return exchange.NewState(), nil
	}
	return s.State.Clone(), nil
}

// Save stores a copy of st unless SaveErr is set.
func (s *Store) Save(_ context.Context, st *exchange.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.State = st.Clone()
	s.Saves++
	return nil
}

// SetSaveErr changes SaveErr under the lock.
func (s *Store) SetSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveErr = err
}

// Saved returns a copy of the last saved state.
func (s *Store) Saved() *exchange.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == nil {
		return nil
	}
	return s.State.Clone()
}

// Deliverer records delivered effects. Errors can be injected per recipient.
type Deliverer struct {
	mu sync.Mutex

	// Delivered records every successfully delivered effect in call order.
	Delivered []exchange.Effect

	// FailFor maps a recipient to the error returned for effects addressed
	// to them.
	FailFor map[exchange.ParticipantID]error
}

// Deliver records e or returns the configured error for its recipient.
func (d *Deliverer) Deliver(_ context.Context, e exchange.Effect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.FailFor[e.To]; err != nil {
		return err
	}
	d.Delivered = append(d.Delivered, e)
	return nil
}

// For returns the effects delivered to p, in order.
func (d *Deliverer) For(p exchange.ParticipantID) []exchange.Effect {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []exchange.Effect
	for _, e := range d.Delivered {
		if e.To == p {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears recorded effects.
func (d *Deliverer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Delivered = nil
}

// Bank is a fixed [exchange.QuestionBank] returning "Q<n>" texts.
type Bank struct {
	N int
}

// Len returns N.
func (b Bank) Len() int { return b.N }

// Text returns "Q<n>" for n in [1, N].
func (b Bank) Text(n int) (string, error) {
	if n < 1 || n > b.N {
		return "", fmt.Errorf("mock bank: question %d out of range", n)
	}
	return "Q" + strconv.Itoa(n), nil
}

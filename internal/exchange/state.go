package exchange

import "slices"

// State is the whole shared aggregate owned by the [Engine] and written by a
// [Store]. Closure and eligibility are derived from it on demand and are never
// persisted.
type State struct {
	Roles        Roles           `json:"roles"`
	Pending      *Session        `json:"pending"`
	Ledger       *Ledger         `json:"completed_by_user"`
	Participants []ParticipantID `json:"participants"`
}

// NewState returns the state of a fresh installation: no roles, no session,
// an empty ledger.
func NewState() *State {
	return &State{Ledger: NewLedger(), Participants: []ParticipantID{}}
}

// Phase returns the current state-machine phase.
func (s *State) Phase() Phase {
	return s.Pending.Phase()
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := &State{
		Roles:        s.Roles,
		Pending:      s.Pending.clone(),
		Participants: slices.Clone(s.Participants),
	}
	if s.Ledger != nil {
		c.Ledger = s.Ledger.Clone()
	} else {
		c.Ledger = NewLedger()
	}
	if c.Participants == nil {
		c.Participants = []ParticipantID{}
	}
	return c
}

// Normalize fills nil collections so a decoded state is safe to use. Stores
// call it after loading.
func (s *State) Normalize() {
	if s.Ledger == nil {
		s.Ledger = NewLedger()
	}
	if s.Participants == nil {
		s.Participants = []ParticipantID{}
	}
	if s.Pending != nil && s.Pending.Fragments == nil {
		s.Pending.Fragments = []Fragment{}
	}
}

// addParticipant records p in arrival order and reports whether it was new.
func (s *State) addParticipant(p ParticipantID) bool {
	if p == "" || slices.Contains(s.Participants, p) {
		return false
	}
	s.Participants = append(s.Participants, p)
	return true
}

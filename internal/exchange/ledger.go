package exchange

import (
	"encoding/json"
	"maps"
	"slices"
)

// Ledger records, per participant, the question numbers for which that
// participant has received an answer. It only grows, except through
// [Ledger.Reset].
//
// The zero value is ready to use. Ledger is not safe for concurrent use.
type Ledger struct {
	received map[ParticipantID]map[int]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{received: make(map[ParticipantID]map[int]struct{})}
}

// MarkReceived records that p received an answer for question q. It reports
// whether q was newly added; marking twice is a no-op.
func (l *Ledger) MarkReceived(p ParticipantID, q int) bool {
	if l.received == nil {
		l.received = make(map[ParticipantID]map[int]struct{})
	}
	set, ok := l.received[p]
	if !ok {
		set = make(map[int]struct{})
		l.received[p] = set
	}
	if _, dup := set[q]; dup {
		return false
	}
	set[q] = struct{}{}
	return true
}

// Has reports whether q is partially closed for p.
func (l *Ledger) Has(p ParticipantID, q int) bool {
	_, ok := l.received[p][q]
	return ok
}

// Received returns the question numbers p has received answers for, in
// ascending order.
func (l *Ledger) Received(p ParticipantID) []int {
	return slices.Sorted(maps.Keys(l.received[p]))
}

// Count returns how many questions are partially closed for p.
func (l *Ledger) Count(p ParticipantID) int {
	return len(l.received[p])
}

// Participants returns every participant with at least one entry, sorted.
func (l *Ledger) Participants() []ParticipantID {
	var out []ParticipantID
	for p, set := range l.received {
		if len(set) > 0 {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// IsFullyClosed reports whether both current role occupants have received
// an answer for q. Closure follows whoever holds A and B right now, so a swap
// changes which sets are consulted. Returns false unless both slots are
// assigned.
func (l *Ledger) IsFullyClosed(q int, roles Roles) bool {
	if !roles.BothAssigned() {
		return false
	}
	return l.Has(roles.A, q) && l.Has(roles.B, q)
}

// FullyClosed returns every fully closed question number in [1, total].
func (l *Ledger) FullyClosed(total int, roles Roles) []int {
	var out []int
	for q := 1; q <= total; q++ {
		if l.IsFullyClosed(q, roles) {
			out = append(out, q)
		}
	}
	return out
}

// Reset clears every participant's set.
func (l *Ledger) Reset() {
	l.received = make(map[ParticipantID]map[int]struct{})
}

// Clone returns a deep copy of l.
func (l *Ledger) Clone() *Ledger {
	c := NewLedger()
	for p, set := range l.received {
		c.received[p] = maps.Clone(set)
	}
	return c
}

// MarshalJSON encodes the ledger as {"participant": [sorted numbers]}.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("{}"), nil
	}
	out := make(map[ParticipantID][]int, len(l.received))
	for p := range l.received {
		out[p] = l.Received(p)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the format written by [Ledger.MarshalJSON].
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var in map[ParticipantID][]int
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	l.Reset()
	for p, nums := range in {
		for _, q := range nums {
			l.MarkReceived(p, q)
		}
	}
	return nil
}

package exchange

import "math/rand/v2"

// Selector computes which question numbers a participant may still be asked
// and picks among them. Both the specific and the random entry point apply
// the same eligibility rule.
type Selector struct {
	total int
	intn  func(n int) int
}

// SelectorOption configures a [Selector].
type SelectorOption func(*Selector)

// WithIntN replaces the random source. intn must return a value in [0, n).
func WithIntN(intn func(n int) int) SelectorOption {
	return func(s *Selector) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// NewSelector returns a Selector over questions 1..total.
func NewSelector(total int, opts ...SelectorOption) *Selector {
	s := &Selector{total: total, intn: rand.IntN}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Total returns the bank size N.
func (s *Selector) Total() int { return s.total }

// Eligible returns, in ascending order, every q in [1, N] that p has not
// received an answer for, that is not the question of the pending session
// (whoever it is for), and that is not fully closed.
func (s *Selector) Eligible(p ParticipantID, ledger *Ledger, roles Roles, pending *Session) []int {
	out := make([]int, 0, s.total)
	for q := 1; q <= s.total; q++ {
		if s.excluded(q, p, ledger, roles, pending) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func (s *Selector) excluded(q int, p ParticipantID, ledger *Ledger, roles Roles, pending *Session) bool {
	if ledger.Has(p, q) {
		return true
	}
	if pending != nil && pending.Question == q {
		return true
	}
	return ledger.IsFullyClosed(q, roles)
}

// PickRandom returns a uniformly chosen eligible question, or
// [ErrNoneAvailable] when none remain.
func (s *Selector) PickRandom(p ParticipantID, ledger *Ledger, roles Roles, pending *Session) (int, error) {
	remain := s.Eligible(p, ledger, roles, pending)
	if len(remain) == 0 {
		return 0, ErrNoneAvailable
	}
	return remain[s.intn(len(remain))], nil
}

// Validate checks a specifically requested question number. The checks run
// in a fixed order so the caller always sees the same reason: range first,
// then closed-for-requester, then fully closed.
func (s *Selector) Validate(q int, p ParticipantID, ledger *Ledger, roles Roles) error {
	if q < 1 || q > s.total {
		return reject(ReasonOutOfRange, q)
	}
	if ledger.Has(p, q) {
		return reject(ReasonClosedForUser, q)
	}
	if ledger.IsFullyClosed(q, roles) {
		return reject(ReasonFullyClosed, q)
	}
	return nil
}

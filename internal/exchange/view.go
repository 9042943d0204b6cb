package exchange

import "context"

// Status summarises roles and closure progress.
type Status struct {
	A, B ParticipantID

	// Counts maps every known participant to their partial-closure count.
	Counts map[ParticipantID]int

	// FullyClosed lists the question numbers closed for both current role
	// occupants, ascending.
	FullyClosed []int

	Phase        Phase
	Participants []ParticipantID
	Total        int
}

// CountA returns the partial-closure count of the current A.
func (s Status) CountA() int { return s.Counts[s.A] }

// CountB returns the partial-closure count of the current B.
func (s Status) CountB() int { return s.Counts[s.B] }

// Status returns the current roles, per-participant counts and fully closed
// numbers.
func (e *Engine) Status(_ context.Context) Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := e.state
	out := Status{
		A:            st.Roles.A,
		B:            st.Roles.B,
		Counts:       make(map[ParticipantID]int),
		FullyClosed:  st.Ledger.FullyClosed(e.selector.Total(), st.Roles),
		Phase:        st.Phase(),
		Participants: append([]ParticipantID(nil), st.Participants...),
		Total:        e.selector.Total(),
	}
	for _, p := range st.Participants {
		out.Counts[p] = st.Ledger.Count(p)
	}
	for _, p := range st.Ledger.Participants() {
		out.Counts[p] = st.Ledger.Count(p)
	}
	for _, p := range []ParticipantID{st.Roles.A, st.Roles.B} {
		if p != "" {
			out.Counts[p] = st.Ledger.Count(p)
		}
	}
	return out
}

// Perspective describes how the viewer relates to the open session.
type Perspective int

const (
	// PerspectiveBystander is anyone who is neither asker nor receiver.
	PerspectiveBystander Perspective = iota

	// PerspectiveAsker is the participant who sent the question.
	PerspectiveAsker

	// PerspectiveReceiver is the participant expected to answer.
	PerspectiveReceiver
)

// PendingView is the open session as seen by one viewer.
type PendingView struct {
	Perspective Perspective
	Question    int
	Text        string
	Random      bool
	Fragments   int
	Asker       ParticipantID
	Receiver    ParticipantID
}

// Pending returns the open session from viewer's perspective. ok is false
// when no session is open.
func (e *Engine) Pending(_ context.Context, viewer ParticipantID) (view PendingView, ok bool) {
	e.mu.RLock()
	sess := e.state.Pending.clone()
	e.mu.RUnlock()

	if sess == nil {
		return PendingView{}, false
	}
	view = PendingView{
		Question:  sess.Question,
		Random:    sess.Random,
		Fragments: len(sess.Fragments),
		Asker:     sess.Asker,
		Receiver:  sess.Receiver,
	}
	switch viewer {
	case sess.Asker:
		view.Perspective = PerspectiveAsker
	case sess.Receiver:
		view.Perspective = PerspectiveReceiver
	}
	if text, err := e.bank.Text(sess.Question); err == nil {
		view.Text = text
	}
	return view, true
}

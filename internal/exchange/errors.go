package exchange

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by [Roles.Swap] when a slot is unassigned.
var ErrNotReady = errors.New("exchange: both roles must be assigned")

// ErrRejected matches every [*RejectedError] via [errors.Is].
var ErrRejected = errors.New("exchange: request rejected")

// ErrNoneAvailable is returned when random selection finds no eligible
// question for the requester.
var ErrNoneAvailable error = &RejectedError{Reason: ReasonNoneAvailable}

// Reason explains why a request was rejected.
type Reason string

const (
	ReasonUnknownParticipant Reason = "unknown_participant"
	ReasonNotAsker           Reason = "not_asker"
	ReasonAwaitingPartner    Reason = "awaiting_partner"
	ReasonExchangeActive     Reason = "exchange_active"
	ReasonOutOfRange         Reason = "out_of_range"
	ReasonClosedForUser      Reason = "closed_for_user"
	ReasonFullyClosed        Reason = "fully_closed"
	ReasonNoneAvailable      Reason = "none_available"
	ReasonNoPending          Reason = "no_pending"
	ReasonNoFragments        Reason = "no_fragments"
	ReasonInvalidFragment    Reason = "invalid_fragment"
)

// RejectedError reports a request whose precondition did not hold. The state
// is never mutated when a RejectedError is returned.
type RejectedError struct {
	Reason Reason

	// Question is the question number involved, when relevant.
	Question int

	// Err carries detail for ReasonInvalidFragment.
	Err error
}

func (e *RejectedError) Error() string {
	msg := "exchange: rejected: " + string(e.Reason)
	if e.Question != 0 {
		msg += fmt.Sprintf(" (question %d)", e.Question)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying detail error, if any.
func (e *RejectedError) Unwrap() error { return e.Err }

// Is matches [ErrRejected] and any RejectedError with the same Reason.
func (e *RejectedError) Is(target error) bool {
	if target == ErrRejected {
		return true
	}
	t, ok := target.(*RejectedError)
	return ok && t.Reason == e.Reason
}

func reject(reason Reason, q int) *RejectedError {
	return &RejectedError{Reason: reason, Question: q}
}

// ReasonOf extracts the rejection reason from err.
func ReasonOf(err error) (Reason, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// PersistenceError reports that a transition could not be written to the
// store. The transition is not committed and no effect is emitted.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("exchange: %s: persist state: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

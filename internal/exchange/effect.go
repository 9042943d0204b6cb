package exchange

import "context"

// EffectKind identifies an outbound instruction for the transport.
type EffectKind string

const (
	// EffectQuestionSent confirms to the asker which question went out.
	EffectQuestionSent EffectKind = "question_sent"

	// EffectQuestionReceived hands the question to the receiver.
	EffectQuestionReceived EffectKind = "question_received"

	// EffectAnswers delivers the released fragment batch to the asker.
	EffectAnswers EffectKind = "answers"

	// EffectRoleChange tells a participant which slot they now hold.
	EffectRoleChange EffectKind = "role_change"
)

// Effect is a delivery instruction emitted after a transition commits.
type Effect struct {
	Kind EffectKind
	To   ParticipantID

	// Question and Text describe the question involved, if any.
	Question int
	Text     string

	// Random is set on question effects when the number was picked randomly.
	Random bool

	// Fragments is the answer batch, in submission order, for EffectAnswers.
	Fragments []Fragment

	// Role is the recipient's new slot for EffectRoleChange.
	Role Role
}

// Deliverer executes effects against the transport. Implementations should
// not retry; a returned error is recorded as a [DeliveryFailure].
type Deliverer interface {
	Deliver(ctx context.Context, e Effect) error
}

// DeliveryFailure records an effect that could not reach its recipient. The
// transition that produced it stays committed.
type DeliveryFailure struct {
	Effect Effect
	Err    error
}

// Receipt describes a committed transition.
type Receipt struct {
	// Role is the slot obtained by ClaimRole.
	Role Role

	// Question is the question opened, released or collected for.
	Question int

	// Fragments is the number of fragments collected so far.
	Fragments int

	// Effects lists the effects emitted, in delivery order per recipient.
	Effects []Effect

	// Undelivered lists effects whose delivery failed.
	Undelivered []DeliveryFailure
}

// Delivered reports whether every effect reached its recipient.
func (r Receipt) Delivered() bool { return len(r.Undelivered) == 0 }

// FailedFor reports whether any effect addressed to p failed.
func (r Receipt) FailedFor(p ParticipantID) bool {
	for _, f := range r.Undelivered {
		if f.Effect.To == p {
			return true
		}
	}
	return false
}

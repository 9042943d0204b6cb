package exchange

// ParticipantID identifies one participant of the exchange. For the Discord
// transport it is the user's snowflake ID.
type ParticipantID string

// Role identifies one of the two exchange slots.
type Role int

const (
	// RoleNone means the participant holds no slot.
	RoleNone Role = iota

	// RoleA is the asking slot.
	RoleA

	// RoleB is the answering slot.
	RoleB
)

// String returns "A", "B" or "none".
func (r Role) String() string {
	switch r {
	case RoleA:
		return "A"
	case RoleB:
		return "B"
	default:
		return "none"
	}
}

// Roles is the two-slot role registry. The zero value has both slots
// unassigned. Once assigned, a slot is only ever changed by [Roles.Swap].
//
// Roles is not safe for concurrent use; the [Engine] serialises access.
type Roles struct {
	A ParticipantID `json:"a,omitempty"`
	B ParticipantID `json:"b,omitempty"`
}

// Claim assigns id to the first free slot. The first distinct caller becomes
// A, the second distinct caller becomes B. A caller that already holds a slot,
// or any caller once both slots are taken, gets [RoleNone] and nothing changes.
func (r *Roles) Claim(id ParticipantID) Role {
	if id == "" || r.Holds(id) {
		return RoleNone
	}
	switch {
	case r.A == "":
		r.A = id
		return RoleA
	case r.B == "":
		r.B = id
		return RoleB
	}
	return RoleNone
}

// EnsureB assigns id to slot B when A is taken, B is free and id is not A.
// It reports whether an assignment happened.
func (r *Roles) EnsureB(id ParticipantID) bool {
	if id == "" || r.A == "" || r.B != "" || id == r.A {
		return false
	}
	r.B = id
	return true
}

// Swap exchanges the A and B occupants. It returns [ErrNotReady] and leaves
// the registry untouched unless both slots are assigned.
func (r *Roles) Swap() error {
	if !r.BothAssigned() {
		return ErrNotReady
	}
	r.A, r.B = r.B, r.A
	return nil
}

// BothAssigned reports whether both slots are occupied.
func (r Roles) BothAssigned() bool {
	return r.A != "" && r.B != ""
}

// IsA reports whether id currently holds slot A.
func (r Roles) IsA(id ParticipantID) bool { return id != "" && r.A == id }

// IsB reports whether id currently holds slot B.
func (r Roles) IsB(id ParticipantID) bool { return id != "" && r.B == id }

// Holds reports whether id occupies either slot.
func (r Roles) Holds(id ParticipantID) bool { return r.IsA(id) || r.IsB(id) }

// RoleOf returns the slot held by id.
func (r Roles) RoleOf(id ParticipantID) Role {
	switch {
	case r.IsA(id):
		return RoleA
	case r.IsB(id):
		return RoleB
	default:
		return RoleNone
	}
}

package exchange

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFragment_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		f       Fragment
		wantErr bool
	}{
		{"text", TextFragment("hello"), false},
		{"blank text", TextFragment("  "), true},
		{"voice", VoiceFragment("file-1", ""), false},
		{"voice with caption", VoiceFragment("file-1", "listen"), false},
		{"voice without ref", VoiceFragment("", ""), true},
		{"audio", AudioFragment("file-2", "song"), false},
		{"video note", VideoNoteFragment("file-3"), false},
		{"video note with caption", Fragment{Kind: FragmentVideoNote, FileRef: "f", Caption: "c"}, true},
		{"unknown kind", Fragment{Kind: "sticker", FileRef: "f"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := tc.f.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSession_Phase(t *testing.T) {
	t.Parallel()

	var s *Session
	if s.Phase() != PhaseIdle {
		t.Errorf("nil session phase = %v, want idle", s.Phase())
	}
	s = &Session{Question: 1}
	if s.Phase() != PhasePending {
		t.Errorf("empty session phase = %v, want pending", s.Phase())
	}
	s.append(TextFragment("a"))
	if s.Phase() != PhaseCollecting {
		t.Errorf("session with fragment phase = %v, want collecting", s.Phase())
	}
}

func TestState_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	st := NewState()
	st.Roles = Roles{A: "x", B: "y"}
	st.Participants = []ParticipantID{"x", "y"}
	st.Ledger.MarkReceived("x", 4)
	st.Pending = &Session{
		Question:  7,
		Asker:     "x",
		Receiver:  "y",
		OpenedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Fragments: []Fragment{TextFragment("one"), VoiceFragment("v1", "")},
	}

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back State
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	back.Normalize()

	if back.Roles != st.Roles {
		t.Errorf("roles = %+v, want %+v", back.Roles, st.Roles)
	}
	if !back.Ledger.Has("x", 4) {
		t.Error("ledger entry lost")
	}
	if back.Pending == nil || back.Pending.Question != 7 || len(back.Pending.Fragments) != 2 {
		t.Fatalf("pending = %+v", back.Pending)
	}
	if back.Pending.Fragments[1].Kind != FragmentVoice || back.Pending.Fragments[1].FileRef != "v1" {
		t.Errorf("fragment order or content lost: %+v", back.Pending.Fragments)
	}
	if !back.Pending.OpenedAt.Equal(st.Pending.OpenedAt) {
		t.Errorf("opened_at = %v", back.Pending.OpenedAt)
	}
}

func TestState_NormalizeDecodedEmpty(t *testing.T) {
	t.Parallel()

	var st State
	if err := json.Unmarshal([]byte(`{"pending":{"qnum":1,"from_user":"x","to_user":"y"}}`), &st); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	st.Normalize()
	if st.Ledger == nil || st.Participants == nil || st.Pending.Fragments == nil {
		t.Errorf("Normalize left nil collections: %+v", st)
	}
	if st.Phase() != PhasePending {
		t.Errorf("phase = %v, want pending", st.Phase())
	}
}

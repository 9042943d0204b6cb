package exchange

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// FragmentKind tags the variant held by a [Fragment].
type FragmentKind string

const (
	FragmentText      FragmentKind = "text"
	FragmentVoice     FragmentKind = "voice"
	FragmentAudio     FragmentKind = "audio"
	FragmentVideoNote FragmentKind = "video_note"
)

// IsValid reports whether k is a recognised fragment kind.
func (k FragmentKind) IsValid() bool {
	switch k {
	case FragmentText, FragmentVoice, FragmentAudio, FragmentVideoNote:
		return true
	}
	return false
}

// Fragment is one unit of an answer. Text fragments carry Text; media
// fragments carry an opaque FileRef supplied by the transport (for Discord,
// the attachment URL) and, for voice and audio, an optional Caption.
type Fragment struct {
	Kind    FragmentKind `json:"type"`
	Text    string       `json:"text,omitempty"`
	FileRef string       `json:"file_ref,omitempty"`
	Caption string       `json:"caption,omitempty"`
}

// TextFragment returns a text fragment.
func TextFragment(text string) Fragment {
	return Fragment{Kind: FragmentText, Text: text}
}

// VoiceFragment returns a voice-message fragment.
func VoiceFragment(ref, caption string) Fragment {
	return Fragment{Kind: FragmentVoice, FileRef: ref, Caption: caption}
}

// AudioFragment returns an audio-file fragment.
func AudioFragment(ref, caption string) Fragment {
	return Fragment{Kind: FragmentAudio, FileRef: ref, Caption: caption}
}

// VideoNoteFragment returns a short video clip fragment. Video notes carry no
// caption.
func VideoNoteFragment(ref string) Fragment {
	return Fragment{Kind: FragmentVideoNote, FileRef: ref}
}

// Validate checks that the fragment is a well-formed variant.
func (f Fragment) Validate() error {
	switch f.Kind {
	case FragmentText:
		if strings.TrimSpace(f.Text) == "" {
			return fmt.Errorf("exchange: text fragment is empty")
		}
	case FragmentVoice, FragmentAudio:
		if f.FileRef == "" {
			return fmt.Errorf("exchange: %s fragment has no file reference", f.Kind)
		}
	case FragmentVideoNote:
		if f.FileRef == "" {
			return fmt.Errorf("exchange: video_note fragment has no file reference")
		}
		if f.Caption != "" {
			return fmt.Errorf("exchange: video_note fragment cannot carry a caption")
		}
	default:
		return fmt.Errorf("exchange: unknown fragment kind %q", f.Kind)
	}
	return nil
}

// Phase is the state-machine position of the exchange.
type Phase int

const (
	// PhaseIdle means no session is open.
	PhaseIdle Phase = iota

	// PhasePending means a session is open with no fragments yet.
	PhasePending

	// PhaseCollecting means a session is open with at least one fragment.
	PhaseCollecting
)

// String returns the lower-case phase name.
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseCollecting:
		return "collecting"
	default:
		return "idle"
	}
}

// Session is the single in-flight question transfer.
type Session struct {
	Question  int           `json:"qnum"`
	Asker     ParticipantID `json:"from_user"`
	Receiver  ParticipantID `json:"to_user"`
	Random    bool          `json:"random,omitempty"`
	OpenedAt  time.Time     `json:"opened_at,omitzero"`
	Fragments []Fragment    `json:"fragments"`
}

// Phase returns PhasePending or PhaseCollecting depending on the fragment
// count. A nil session is idle.
func (s *Session) Phase() Phase {
	switch {
	case s == nil:
		return PhaseIdle
	case len(s.Fragments) == 0:
		return PhasePending
	default:
		return PhaseCollecting
	}
}

func (s *Session) append(f Fragment) {
	s.Fragments = append(s.Fragments, f)
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Fragments = slices.Clone(s.Fragments)
	return &c
}

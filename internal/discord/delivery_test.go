package discord

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/turnabout/internal/discord/mock"
	"github.com/MrWong99/turnabout/internal/exchange"
)

func mediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/voice.ogg", "/fresh/voice-message.ogg":
			w.Header().Set("Content-Type", "audio/ogg")
			_, _ = io.WriteString(w, "OggS-voice")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDMDeliverer_QuestionEffects(t *testing.T) {
	t.Parallel()

	m := &mock.Messenger{}
	d := NewDMDeliverer(m)
	ctx := t.Context()

	if err := d.Deliver(ctx, exchange.Effect{Kind: exchange.EffectQuestionSent, To: "x", Question: 2, Text: "Q2"}); err != nil {
		t.Fatalf("Deliver(question_sent): %v", err)
	}
	if err := d.Deliver(ctx, exchange.Effect{Kind: exchange.EffectQuestionReceived, To: "y", Question: 2, Text: "Q2", Random: true}); err != nil {
		t.Fatalf("Deliver(question_received): %v", err)
	}

	toX := m.To("dm-x")
	if len(toX) != 1 || toX[0].Content != QuestionSentText(2, "Q2") {
		t.Fatalf("asker messages = %+v", toX)
	}
	if len(toX[0].Components) != 0 {
		t.Error("asker confirmation should carry no buttons")
	}

	toY := m.To("dm-y")
	if len(toY) != 1 {
		t.Fatalf("receiver got %d messages, want 1", len(toY))
	}
	if !strings.Contains(toY[0].Content, "a random question") {
		t.Errorf("receiver content = %q, want random wording", toY[0].Content)
	}
	if len(toY[0].Components) == 0 {
		t.Error("receiver message should carry the answer buttons")
	}
}

func TestDMDeliverer_AnswersInOrder(t *testing.T) {
	t.Parallel()

	srv := mediaServer(t)
	m := &mock.Messenger{}
	d := NewDMDeliverer(m, WithHTTPClient(srv.Client()))

	eff := exchange.Effect{
		Kind:     exchange.EffectAnswers,
		To:       "x",
		Question: 2,
		Text:     "Q2",
		Fragments: []exchange.Fragment{
			exchange.TextFragment("first"),
			exchange.VoiceFragment(srv.URL+"/voice.ogg", "second"),
			exchange.VideoNoteFragment(srv.URL + "/missing.mp4"),
			exchange.TextFragment("fourth"),
		},
	}
	if err := d.Deliver(t.Context(), eff); err != nil {
		t.Fatalf("Deliver(answers): %v", err)
	}

	msgs := m.To("dm-x")
	if len(msgs) != 5 {
		t.Fatalf("got %d messages, want header + 4 fragments", len(msgs))
	}
	if msgs[0].Content != AnswersHeaderText(2, "Q2") {
		t.Errorf("header = %q", msgs[0].Content)
	}
	if msgs[1].Content != "first" {
		t.Errorf("fragment 1 = %q, want %q", msgs[1].Content, "first")
	}
	if msgs[2].Content != "second" || len(msgs[2].Files) != 1 {
		t.Fatalf("fragment 2 = %+v, want caption with one file", msgs[2])
	}
	if msgs[2].Files[0].Name != "voice.ogg" {
		t.Errorf("file name = %q, want %q", msgs[2].Files[0].Name, "voice.ogg")
	}
	body, _ := io.ReadAll(msgs[2].Files[0].Reader)
	if string(body) != "OggS-voice" {
		t.Errorf("file body = %q", body)
	}
	if msgs[3].Content != srv.URL+"/missing.mp4" || len(msgs[3].Files) != 0 {
		t.Errorf("fragment 3 = %+v, want link fallback", msgs[3])
	}
	if msgs[4].Content != "fourth" {
		t.Errorf("fragment 4 = %q, want %q", msgs[4].Content, "fourth")
	}
}

func TestDMDeliverer_ResolvesAttachmentRefs(t *testing.T) {
	t.Parallel()

	srv := mediaServer(t)
	m := &mock.Messenger{}
	m.Post(&discordgo.Message{
		ID:        "m1",
		ChannelID: "dm-y",
		Attachments: []*discordgo.MessageAttachment{
			{ID: "a0", Filename: "other.mp3", URL: srv.URL + "/other.mp3"},
			{ID: "a1", Filename: "voice-message.ogg", URL: srv.URL + "/fresh/voice-message.ogg"},
		},
	})
	d := NewDMDeliverer(m, WithHTTPClient(srv.Client()))

	live := AttachmentRef{ChannelID: "dm-y", MessageID: "m1", AttachmentID: "a1"}
	deleted := AttachmentRef{ChannelID: "dm-y", MessageID: "gone", AttachmentID: "a2"}
	eff := exchange.Effect{
		Kind:     exchange.EffectAnswers,
		To:       "x",
		Question: 1,
		Text:     "Q1",
		Fragments: []exchange.Fragment{
			exchange.VoiceFragment(live.String(), "listen"),
			exchange.AudioFragment(deleted.String(), "lost"),
		},
	}
	err := d.Deliver(t.Context(), eff)
	if err == nil {
		t.Fatal("Deliver should report the missing attachment")
	}
	if m.Lookups != 2 {
		t.Errorf("Lookups = %d, want 2", m.Lookups)
	}

	msgs := m.To("dm-x")
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want header + 2 fragments", len(msgs))
	}
	if len(msgs[1].Files) != 1 || msgs[1].Files[0].Name != "voice-message.ogg" || msgs[1].Content != "listen" {
		t.Fatalf("fragment 1 = %+v, want the refreshed upload", msgs[1])
	}
	body, _ := io.ReadAll(msgs[1].Files[0].Reader)
	if string(body) != "OggS-voice" {
		t.Errorf("file body = %q", body)
	}
	if !strings.HasPrefix(msgs[2].Content, "lost\n") || !strings.Contains(msgs[2].Content, "no longer available") {
		t.Errorf("fragment 2 = %q, want caption and notice", msgs[2].Content)
	}
}

func TestDMDeliverer_RoleChange(t *testing.T) {
	t.Parallel()

	m := &mock.Messenger{}
	d := NewDMDeliverer(m)

	if err := d.Deliver(t.Context(), exchange.Effect{Kind: exchange.EffectRoleChange, To: "y", Role: exchange.RoleA}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	msgs := m.To("dm-y")
	if len(msgs) != 1 || msgs[0].Content != RoleChangeText(exchange.RoleA) {
		t.Fatalf("messages = %+v", msgs)
	}
	if len(msgs[0].Components) != len(MainMenu()) {
		t.Errorf("role change should carry the main menu")
	}
}

func TestDMDeliverer_Failures(t *testing.T) {
	t.Parallel()

	boom := errors.New("cannot send messages to this user")

	t.Run("send error", func(t *testing.T) {
		t.Parallel()
		m := &mock.Messenger{SendErr: map[string]error{"dm-y": boom}}
		d := NewDMDeliverer(m)
		err := d.Deliver(t.Context(), exchange.Effect{Kind: exchange.EffectRoleChange, To: "y", Role: exchange.RoleB})
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want %v", err, boom)
		}
	})

	t.Run("channel error", func(t *testing.T) {
		t.Parallel()
		m := &mock.Messenger{ChannelErr: boom}
		d := NewDMDeliverer(m)
		err := d.Deliver(t.Context(), exchange.Effect{Kind: exchange.EffectQuestionSent, To: "x", Question: 1, Text: "Q1"})
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want %v", err, boom)
		}
	})

	t.Run("unknown effect", func(t *testing.T) {
		t.Parallel()
		d := NewDMDeliverer(&mock.Messenger{})
		if err := d.Deliver(t.Context(), exchange.Effect{Kind: "bogus", To: "x"}); err == nil {
			t.Error("expected error for unknown effect")
		}
	})
}

func TestDMDeliverer_CachesChannels(t *testing.T) {
	t.Parallel()

	m := &mock.Messenger{}
	d := NewDMDeliverer(m)
	for range 3 {
		if err := d.Send(t.Context(), "x", "hi", nil); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if m.ChannelCreates != 1 {
		t.Errorf("ChannelCreates = %d, want 1", m.ChannelCreates)
	}
}

func TestDMDeliverer_SplitsLongText(t *testing.T) {
	t.Parallel()

	m := &mock.Messenger{}
	d := NewDMDeliverer(m)
	long := strings.Repeat("line of text\n", 400)
	if err := d.Send(t.Context(), "x", long, MainMenu()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs := m.To("dm-x")
	if len(msgs) < 2 {
		t.Fatalf("got %d messages, want the text split", len(msgs))
	}
	for i, msg := range msgs {
		if len(msg.Content) > 2000 {
			t.Errorf("message %d has %d chars", i, len(msg.Content))
		}
		hasButtons := len(msg.Components) > 0
		if hasButtons != (i == len(msgs)-1) {
			t.Errorf("message %d components = %v, want only on the last", i, hasButtons)
		}
	}
}

var (
	_ Messenger = (*mock.Messenger)(nil)
	_ Responder = (*mock.InteractionResponder)(nil)
)

package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/turnabout/internal/exchange"
)

// Messenger sends direct messages and reads back the messages answers were
// attached to. [*discordgo.Session] implements it.
type Messenger interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Compile-time interface checks.
var (
	_ Responder          = (*discordgo.Session)(nil)
	_ Messenger          = (*discordgo.Session)(nil)
	_ exchange.Deliverer = (*DMDeliverer)(nil)
)

// DMDeliverer executes exchange effects as direct messages.
type DMDeliverer struct {
	msgr   Messenger
	client *http.Client

	mu       sync.Mutex
	channels map[exchange.ParticipantID]string
}

// DelivererOption configures a [DMDeliverer].
type DelivererOption func(*DMDeliverer)

// WithHTTPClient sets the client used to fetch media for re-upload.
func WithHTTPClient(c *http.Client) DelivererOption {
	return func(d *DMDeliverer) {
		if c != nil {
			d.client = c
		}
	}
}

// NewDMDeliverer returns a deliverer sending through m.
func NewDMDeliverer(m Messenger, opts ...DelivererOption) *DMDeliverer {
	d := &DMDeliverer{
		msgr:     m,
		client:   &http.Client{Timeout: 60 * time.Second},
		channels: make(map[exchange.ParticipantID]string),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Deliver sends one effect to its recipient.
func (d *DMDeliverer) Deliver(ctx context.Context, e exchange.Effect) error {
	switch e.Kind {
	case exchange.EffectQuestionSent:
		return d.Send(ctx, e.To, QuestionSentText(e.Question, e.Text), nil)
	case exchange.EffectQuestionReceived:
		return d.Send(ctx, e.To, QuestionReceivedText(e.Question, e.Text, e.Random), AnswerMenu())
	case exchange.EffectAnswers:
		return d.deliverAnswers(ctx, e)
	case exchange.EffectRoleChange:
		return d.Send(ctx, e.To, RoleChangeText(e.Role), MainMenu())
	default:
		return fmt.Errorf("discord: unknown effect %q", e.Kind)
	}
}

// Send writes text to p's direct-message channel. Long text is split over
// several messages; components go on the last one.
func (d *DMDeliverer) Send(ctx context.Context, p exchange.ParticipantID, text string, components []discordgo.MessageComponent) error {
	chID, err := d.channel(ctx, p)
	if err != nil {
		return err
	}
	chunks := SplitContent(text)
	for n, chunk := range chunks {
		msg := &discordgo.MessageSend{Content: chunk}
		if n == len(chunks)-1 {
			msg.Components = components
		}
		if _, err := d.msgr.ChannelMessageSendComplex(chID, msg, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord: send to %s: %w", p, err)
		}
	}
	return nil
}

// deliverAnswers sends the header then every fragment in order. A failed
// fragment does not stop the rest; all failures are joined.
func (d *DMDeliverer) deliverAnswers(ctx context.Context, e exchange.Effect) error {
	if err := d.Send(ctx, e.To, AnswersHeaderText(e.Question, e.Text), nil); err != nil {
		return err
	}
	chID, err := d.channel(ctx, e.To)
	if err != nil {
		return err
	}
	var errs []error
	for n, f := range e.Fragments {
		if err := d.sendFragment(ctx, chID, f); err != nil {
			slog.Warn("discord: failed to forward answer fragment",
				"to", e.To,
				"question", e.Question,
				"index", n,
				"kind", string(f.Kind),
				"err", err,
			)
			errs = append(errs, fmt.Errorf("fragment %d: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

func (d *DMDeliverer) sendFragment(ctx context.Context, chID string, f exchange.Fragment) error {
	if f.Kind == exchange.FragmentText {
		for _, chunk := range SplitContent(f.Text) {
			if _, err := d.msgr.ChannelMessageSendComplex(chID, &discordgo.MessageSend{Content: chunk}, discordgo.WithContext(ctx)); err != nil {
				return err
			}
		}
		return nil
	}

	link, name, err := d.resolveMedia(ctx, f)
	if err != nil {
		// The file is gone; the caption still reaches the asker.
		notice := joinNonEmpty(f.Caption, fmt.Sprintf("(the %s attached to this answer is no longer available)", mediaNoun(f.Kind)))
		if _, sendErr := d.msgr.ChannelMessageSendComplex(chID, &discordgo.MessageSend{Content: notice}, discordgo.WithContext(ctx)); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}

	msg := &discordgo.MessageSend{Content: f.Caption}
	file, err := fetchAttachment(ctx, d.client, link, name)
	if err != nil {
		slog.Debug("discord: re-upload unavailable, sending link", "kind", string(f.Kind), "err", err)
		msg.Content = joinNonEmpty(f.Caption, link)
	} else {
		msg.Files = []*discordgo.File{file}
	}
	_, err = d.msgr.ChannelMessageSendComplex(chID, msg, discordgo.WithContext(ctx))
	return err
}

// resolveMedia returns a current download link and upload name for a media
// fragment. Message references are looked up again because the signed link
// seen at submission time may have expired.
func (d *DMDeliverer) resolveMedia(ctx context.Context, f exchange.Fragment) (link, name string, err error) {
	ref, ok := ParseAttachmentRef(f.FileRef)
	if !ok {
		return f.FileRef, attachmentName(f.FileRef, f.Kind), nil
	}
	m, err := d.msgr.ChannelMessage(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		return "", "", fmt.Errorf("discord: look up answer message %s: %w", ref.MessageID, err)
	}
	for _, a := range m.Attachments {
		if a == nil || a.ID != ref.AttachmentID {
			continue
		}
		name = a.Filename
		if name == "" {
			name = attachmentName(a.URL, f.Kind)
		}
		return a.URL, name, nil
	}
	return "", "", fmt.Errorf("discord: attachment %s no longer on message %s", ref.AttachmentID, ref.MessageID)
}

func mediaNoun(k exchange.FragmentKind) string {
	switch k {
	case exchange.FragmentVoice:
		return "voice message"
	case exchange.FragmentVideoNote:
		return "video note"
	default:
		return "audio file"
	}
}

// channel returns the cached DM channel for p, creating it on first use.
func (d *DMDeliverer) channel(ctx context.Context, p exchange.ParticipantID) (string, error) {
	d.mu.Lock()
	id, ok := d.channels[p]
	d.mu.Unlock()
	if ok {
		return id, nil
	}

	ch, err := d.msgr.UserChannelCreate(string(p), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord: open DM channel for %s: %w", p, err)
	}
	d.mu.Lock()
	d.channels[p] = ch.ID
	d.mu.Unlock()
	return ch.ID, nil
}

func joinNonEmpty(parts ...string) string {
	var out string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}

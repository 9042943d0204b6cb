package commands

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/turnabout/internal/discord"
	"github.com/MrWong99/turnabout/internal/exchange"
)

// Inbox handles direct messages: answer fragments from the receiver,
// reminder keywords and everything else.
type Inbox struct {
	engine *exchange.Engine
}

// NewInbox creates an Inbox for engine.
func NewInbox(engine *exchange.Engine) *Inbox {
	return &Inbox{engine: engine}
}

// Handle processes one incoming message. Guild messages are ignored; the
// exchange happens in direct messages only.
func (in *Inbox) Handle(m discord.Messenger, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID != "" {
		return
	}
	p := exchange.ParticipantID(msg.Author.ID)

	ctx, cancel := opContext()
	defer cancel()

	if _, err := in.engine.EnsureB(ctx, p); err != nil {
		slog.Warn("commands: opportunistic role assignment failed", "participant", p, "err", err)
	}

	frags := discord.FragmentsFromMessage(msg.Message)
	if len(frags) > 0 {
		accepted, total, err := in.submit(ctx, p, frags)
		if accepted > 0 {
			kind := frags[0].Kind
			if accepted > 1 {
				kind = ""
			}
			in.reply(m, msg, discord.AcceptedText(kind, total), discord.AnswerMenu())
			return
		}
		if reason, _ := exchange.ReasonOf(err); reason != exchange.ReasonNoPending {
			in.reply(m, msg, discord.RejectionText(err, in.engine.Total()), discord.AnswerMenu())
			return
		}
	}

	switch {
	case discord.IsReminderRequest(msg.Content) && !hasMedia(frags):
		text, comps := pendingMessage(in.engine, p)
		in.reply(m, msg, text, comps)
	case len(frags) == 0:
		in.reply(m, msg, discord.UnsupportedInput, discord.BackMenu())
	case hasMedia(frags):
		in.reply(m, msg, discord.RejectionText(&exchange.RejectedError{Reason: exchange.ReasonNoPending}, in.engine.Total()), discord.BackMenu())
	default:
		in.reply(m, msg, discord.MenuPrompt, discord.MainMenu())
	}
}

// submit appends fragments in order and stops at the first rejection. It
// returns how many were accepted and the session's fragment count.
func (in *Inbox) submit(ctx context.Context, p exchange.ParticipantID, frags []exchange.Fragment) (accepted, total int, err error) {
	for _, f := range frags {
		rc, err := in.engine.SubmitFragment(ctx, p, f)
		if err != nil {
			if accepted > 0 {
				slog.Warn("commands: answer fragment rejected", "participant", p, "kind", string(f.Kind), "err", err)
			}
			return accepted, total, err
		}
		accepted++
		total = rc.Fragments
	}
	return accepted, total, nil
}

func (in *Inbox) reply(m discord.Messenger, msg *discordgo.MessageCreate, text string, components []discordgo.MessageComponent) {
	_, err := m.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content:    text,
		Components: components,
	})
	if err != nil {
		slog.Warn("commands: failed to reply to direct message", "channel", msg.ChannelID, "err", err)
	}
}

func hasMedia(frags []exchange.Fragment) bool {
	for _, f := range frags {
		if f.Kind != exchange.FragmentText {
			return true
		}
	}
	return false
}

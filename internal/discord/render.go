package discord

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/turnabout/internal/exchange"
	"github.com/MrWong99/turnabout/internal/questions"
)

// maxContent is Discord's message content limit.
const maxContent = 2000

// Fixed replies.
const (
	AnswerInstructions = "Reply with text, voice messages, audio files or video notes, as many as you like. " +
		"Then press \"Send answer\"."
	NoActiveQuestion = "There is no active question right now."
	UnsupportedInput = "Supported: text, voice, audio, video note. Use \"Remind question\" to see the current question."
	MenuPrompt       = "Choose an action:"
	MainMenuTitle    = "Main menu:"
	ResetDone        = "Partial and full closure history cleared."
	AnswersSent      = "Thanks, your answers were delivered."
	IntroText        = "This bot is for two people. The first to run /start becomes A, the second becomes B. " +
		"After \"Send answer\" the roles swap automatically."
)

// HelpText explains the exchange flow.
const HelpText = "1) First /start becomes A. Second /start becomes B.\n" +
	"2) A picks a specific number or a random one (never repeated for A).\n" +
	"3) B may send several answer messages: text, voice, audio, video note. Then press \"Send answer\".\n" +
	"4) Partially closed: closed for whoever received the answer. Fully closed: both received answers.\n" +
	"5) \"List questions\" is in the menu, or use /list.\n" +
	"6) \"Remind question\" button, /question or just type \"question\".\n" +
	"7) /stats shows statistics; /reset clears the history."

// Mention formats a participant as a Discord user mention, or a dash when
// the slot is empty.
func Mention(p exchange.ParticipantID) string {
	if p == "" {
		return "—"
	}
	return "<@" + string(p) + ">"
}

// StartText greets a participant after /start.
func StartText(role exchange.Role) string {
	var b strings.Builder
	switch role {
	case exchange.RoleA:
		b.WriteString("You are A (you ask the first question).\n")
	case exchange.RoleB:
		b.WriteString("You are B (you answer the first question).\n")
	}
	b.WriteString(IntroText)
	b.WriteString("\n\n")
	b.WriteString(MenuPrompt)
	return b.String()
}

// QuestionSentText confirms to the asker which question went out.
func QuestionSentText(q int, text string) string {
	return fmt.Sprintf("Done, your question #%d was sent. It reads:\n\n%s", q, text)
}

// QuestionReceivedText hands a question to the receiver.
func QuestionReceivedText(q int, text string, random bool) string {
	kind := "a specific"
	if random {
		kind = "a random"
	}
	return fmt.Sprintf("Hi, you got %s question.\n\n#%d: %s\n\n%s", kind, q, text, AnswerInstructions)
}

// AnswersHeaderText precedes a released answer batch.
func AnswersHeaderText(q int, text string) string {
	return fmt.Sprintf("Hi, your answers arrived!\n\n#%d: %s", q, text)
}

// RoleChangeText tells a participant which slot they hold after a swap.
func RoleChangeText(role exchange.Role) string {
	if role == exchange.RoleA {
		return "You are now A. Ask the next question."
	}
	return "You are now B. Wait for a question."
}

// PendingText renders the open session from the viewer's perspective.
func PendingText(v exchange.PendingView) string {
	var hdr, tail string
	switch v.Perspective {
	case exchange.PerspectiveAsker:
		hdr = "The question you sent:"
		tail = "Once B presses \"Send answer\" you get the answers and the roles swap."
	case exchange.PerspectiveReceiver:
		hdr = "Reminder, the current question:"
		tail = AnswerInstructions
		if v.Fragments > 0 {
			tail = fmt.Sprintf("%d answer message(s) collected so far. %s", v.Fragments, AnswerInstructions)
		}
	default:
		hdr = "The active question:"
	}
	return strings.TrimSpace(fmt.Sprintf("%s\n\n#%d: %s\n\n%s", hdr, v.Question, v.Text, tail))
}

// AcceptedText acknowledges submitted answer fragments. An empty kind
// stands for a message that produced several fragments.
func AcceptedText(kind exchange.FragmentKind, total int) string {
	var what string
	switch kind {
	case exchange.FragmentVoice:
		what = "Voice message"
	case exchange.FragmentAudio:
		what = "Audio"
	case exchange.FragmentVideoNote:
		what = "Video note"
	case exchange.FragmentText:
		what = "Text"
	default:
		what = "Answer"
	}
	return fmt.Sprintf("%s accepted (%d so far). Send more or press \"Send answer\".", what, total)
}

// StatsText renders roles, partial counts and fully closed numbers.
func StatsText(s exchange.Status) string {
	fully := "—"
	if len(s.FullyClosed) > 0 {
		nums := make([]string, len(s.FullyClosed))
		for i, q := range s.FullyClosed {
			nums[i] = strconv.Itoa(q)
		}
		fully = strings.Join(nums, ", ")
	}
	return fmt.Sprintf("📊 Statistics\nA (%s): partially closed %d\nB (%s): partially closed %d\nFully closed numbers: %s",
		Mention(s.A), s.CountA(), Mention(s.B), s.CountB(), fully)
}

// WhoisText renders the current role occupants.
func WhoisText(s exchange.Status) string {
	return fmt.Sprintf("A: %s (closed: %d)\nB: %s (closed: %d)", Mention(s.A), s.CountA(), Mention(s.B), s.CountB())
}

// PageText renders one page of the question list.
func PageText(p questions.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Questions (page %d/%d):\n", p.Index+1, p.Count)
	for _, it := range p.Items {
		fmt.Fprintf(&b, "\n%d. %s", it.Number, it.Text)
	}
	return b.String()
}

// RejectionText explains a failed exchange operation to the caller.
func RejectionText(err error, total int) string {
	reason, ok := exchange.ReasonOf(err)
	if !ok {
		var pe *exchange.PersistenceError
		if errors.As(err, &pe) {
			return "Could not save the exchange. Nothing changed, please try again."
		}
		return "Something went wrong, please try again."
	}
	var q int
	var re *exchange.RejectedError
	if errors.As(err, &re) {
		q = re.Question
	}
	switch reason {
	case exchange.ReasonUnknownParticipant:
		return "Run /start first."
	case exchange.ReasonNotAsker:
		return "Only A asks questions right now."
	case exchange.ReasonAwaitingPartner:
		return "Waiting for the second participant (B). Ask them to run /start."
	case exchange.ReasonExchangeActive:
		return "A question is already active. Wait for the answer."
	case exchange.ReasonOutOfRange:
		return fmt.Sprintf("Number out of range (1..%d).", total)
	case exchange.ReasonClosedForUser:
		return fmt.Sprintf("Question #%d is already closed for you. Pick another number.", q)
	case exchange.ReasonFullyClosed:
		return fmt.Sprintf("Question #%d is fully closed (both of you received answers).", q)
	case exchange.ReasonNoneAvailable:
		return "No questions left for you (everything is closed for you)."
	case exchange.ReasonNoPending:
		return "There is no question waiting for you."
	case exchange.ReasonNoFragments:
		return "Send your answer messages first (text, voice, audio, video note), then press \"Send answer\"."
	case exchange.ReasonInvalidFragment:
		return "That message cannot be used as an answer."
	default:
		return "Request rejected: " + string(reason)
	}
}

// SplitContent breaks text into chunks that fit one Discord message,
// preferring line boundaries.
func SplitContent(text string) []string {
	if len(text) <= maxContent {
		return []string{text}
	}
	var chunks []string
	for len(text) > maxContent {
		cut := strings.LastIndexByte(text[:maxContent], '\n')
		if cut <= 0 {
			cut = maxContent
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func truncate(text string) string {
	if len(text) <= maxContent {
		return text
	}
	return SplitContent(text)[0]
}

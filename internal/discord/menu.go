package discord

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/turnabout/internal/questions"
)

// Button and modal custom IDs.
const (
	ButtonAskSpecific  = "ask_specific"
	ButtonAskRandom    = "ask_random"
	ButtonList         = "list_questions"
	ButtonRemind       = "repeat_q"
	ButtonWhois        = "whois"
	ButtonReset        = "reset_history"
	ButtonSendAnswer   = "send_answer"
	ButtonBackToMenu   = "back_to_menu"
	ButtonPagePrefix   = "qpage:"
	ModalAskNumber     = "ask_number_modal"
	ModalFieldQuestion = "question_number"
)

func button(label, customID string, style discordgo.ButtonStyle) discordgo.Button {
	return discordgo.Button{Label: label, CustomID: customID, Style: style}
}

func row(buttons ...discordgo.MessageComponent) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: buttons}
}

// MainMenu is the action menu shown after /start and on free text.
func MainMenu() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		row(
			button("Ask a specific question", ButtonAskSpecific, discordgo.PrimaryButton),
			button("Ask a random question", ButtonAskRandom, discordgo.PrimaryButton),
		),
		row(
			button("List questions", ButtonList, discordgo.SecondaryButton),
			button("Remind question", ButtonRemind, discordgo.SecondaryButton),
			button("Who is A/B?", ButtonWhois, discordgo.SecondaryButton),
		),
		row(
			button("Reset history", ButtonReset, discordgo.DangerButton),
		),
	}
}

// BackMenu offers a single way back to the main menu.
func BackMenu() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		row(button("Back to menu", ButtonBackToMenu, discordgo.SecondaryButton)),
	}
}

// AnswerMenu is attached to everything the receiver sees while answering.
func AnswerMenu() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		row(
			button("Send answer", ButtonSendAnswer, discordgo.SuccessButton),
			button("Remind question", ButtonRemind, discordgo.SecondaryButton),
		),
	}
}

// PageNav returns prev/next buttons for a question page plus a way back.
func PageNav(p questions.Page) []discordgo.MessageComponent {
	var nav []discordgo.MessageComponent
	if p.HasPrev() {
		nav = append(nav, button("◀ Prev", PageID(p.Index-1), discordgo.SecondaryButton))
	}
	if p.HasNext() {
		nav = append(nav, button("Next ▶", PageID(p.Index+1), discordgo.SecondaryButton))
	}
	nav = append(nav, button("Back to menu", ButtonBackToMenu, discordgo.SecondaryButton))
	return []discordgo.MessageComponent{row(nav...)}
}

// PageID returns the custom ID of the button that opens page index.
func PageID(index int) string {
	return ButtonPagePrefix + strconv.Itoa(index)
}

// ParsePageID extracts the page index from a page button custom ID. Malformed
// IDs yield page 0.
func ParsePageID(customID string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(customID, ButtonPagePrefix))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// AskNumberModal is the form that collects a specific question number.
func AskNumberModal(total int) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: ModalAskNumber,
		Title:    "Ask a specific question",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    ModalFieldQuestion,
					Label:       "Question number (1.." + strconv.Itoa(total) + ")",
					Style:       discordgo.TextInputShort,
					Placeholder: "e.g. 42",
					Required:    new(true),
					MaxLength:   len(strconv.Itoa(total)),
				},
			}},
		},
	}
}

// ModalValue returns the value of the text input with the given custom ID.
func ModalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range row.Components {
			ti, ok := comp.(*discordgo.TextInput)
			if ok && ti.CustomID == customID {
				return strings.TrimSpace(ti.Value)
			}
		}
	}
	return ""
}

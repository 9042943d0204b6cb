package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// RespondEphemeral sends an ephemeral text response to an interaction.
func RespondEphemeral(r Responder, i *discordgo.InteractionCreate, content string) {
	RespondComponents(r, i, content, nil)
}

// RespondComponents sends an ephemeral response carrying buttons.
func RespondComponents(r Responder, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    truncate(content),
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("discord: failed to send response", "err", err)
	}
}

// UpdateMessage replaces the message a button belongs to.
func UpdateMessage(r Responder, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    truncate(content),
			Components: components,
		},
	})
	if err != nil {
		slog.Warn("discord: failed to update message", "err", err)
	}
}

// DeferReply acknowledges an interaction whose answer is sent later with
// [FollowUp]. Discord fails interactions not acknowledged within three
// seconds.
func DeferReply(r Responder, i *discordgo.InteractionCreate) {
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("discord: failed to defer reply", "err", err)
	}
}

// FollowUp sends the ephemeral answer to a deferred reply.
func FollowUp(r Responder, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	_, err := r.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content:    truncate(content),
		Components: components,
		Flags:      discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		slog.Warn("discord: failed to send follow-up", "err", err)
	}
}

// DeferUpdate acknowledges a button press whose message is replaced later
// with [EditResponse].
func DeferUpdate(r Responder, i *discordgo.InteractionCreate) {
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		slog.Warn("discord: failed to defer update", "err", err)
	}
}

// EditResponse replaces the message of a deferred button press.
func EditResponse(r Responder, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	content = truncate(content)
	_, err := r.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &components,
	})
	if err != nil {
		slog.Warn("discord: failed to edit response", "err", err)
	}
}

// RespondModal opens a modal dialog.
func RespondModal(r Responder, i *discordgo.InteractionCreate, modal *discordgo.InteractionResponseData) {
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: modal,
	})
	if err != nil {
		slog.Warn("discord: failed to open modal", "err", err)
	}
}

// RespondAutocomplete answers an autocomplete request. Discord accepts at
// most 25 choices; extra entries are dropped.
func RespondAutocomplete(r Responder, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	if len(choices) > maxChoices {
		choices = choices[:maxChoices]
	}
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		slog.Warn("discord: failed to send autocomplete choices", "err", err)
	}
}

const maxChoices = 25

package commands

import (
	"errors"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/turnabout/internal/discord"
	"github.com/MrWong99/turnabout/internal/exchange"
)

// handleAskSpecificButton opens the number form when the caller may ask.
func (tc *TurnCommands) handleAskSpecificButton(r discord.Responder, i *discordgo.InteractionCreate) {
	if err := tc.engine.CanAsk(discord.Participant(i)); err != nil {
		discord.UpdateMessage(r, i, discord.RejectionText(err, tc.engine.Total()), discord.BackMenu())
		return
	}
	discord.RespondModal(r, i, discord.AskNumberModal(tc.engine.Total()))
}

func (tc *TurnCommands) handleAskNumberModal(r discord.Responder, i *discordgo.InteractionCreate) {
	raw := discord.ModalValue(i.ModalSubmitData(), discord.ModalFieldQuestion)
	n, err := strconv.Atoi(raw)
	if err != nil {
		discord.RespondComponents(r, i, tc.numberHint(), discord.BackMenu())
		return
	}
	discord.DeferReply(r, i)
	text, comps := tc.ask(discord.Participant(i), n, false)
	discord.FollowUp(r, i, text, comps)
}

func (tc *TurnCommands) handleAskRandomButton(r discord.Responder, i *discordgo.InteractionCreate) {
	discord.DeferUpdate(r, i)
	text, comps := tc.ask(discord.Participant(i), 0, true)
	discord.EditResponse(r, i, text, comps)
}

func (tc *TurnCommands) handleListButton(r discord.Responder, i *discordgo.InteractionCreate) {
	page := tc.bank.Page(0, tc.perPage)
	discord.UpdateMessage(r, i, discord.PageText(page), discord.PageNav(page))
}

func (tc *TurnCommands) handlePageButton(r discord.Responder, i *discordgo.InteractionCreate) {
	page := tc.bank.Page(discord.ParsePageID(i.MessageComponentData().CustomID), tc.perPage)
	discord.UpdateMessage(r, i, discord.PageText(page), discord.PageNav(page))
}

func (tc *TurnCommands) handleRemindButton(r discord.Responder, i *discordgo.InteractionCreate) {
	text, comps := tc.pendingMessage(discord.Participant(i))
	discord.RespondComponents(r, i, text, comps)
}

func (tc *TurnCommands) handleWhoisButton(r discord.Responder, i *discordgo.InteractionCreate) {
	ctx, cancel := opContext()
	defer cancel()
	discord.UpdateMessage(r, i, discord.WhoisText(tc.engine.Status(ctx)), discord.BackMenu())
}

func (tc *TurnCommands) handleResetButton(r discord.Responder, i *discordgo.InteractionCreate) {
	if !tc.perms.CanReset(i) {
		discord.UpdateMessage(r, i, "You need the admin role to reset the history.", discord.BackMenu())
		return
	}
	if err := tc.reset(discord.Participant(i)); err != nil {
		discord.UpdateMessage(r, i, discord.RejectionText(err, tc.engine.Total()), discord.BackMenu())
		return
	}
	discord.UpdateMessage(r, i, discord.ResetDone, discord.MainMenu())
}

// handleSendAnswerButton releases the collected answers. Pressing it with
// nothing collected repeats the instructions together with the question.
// Forwarding media can take longer than Discord waits for a response, so the
// press is acknowledged first.
func (tc *TurnCommands) handleSendAnswerButton(r discord.Responder, i *discordgo.InteractionCreate) {
	p := discord.Participant(i)
	discord.DeferUpdate(r, i)

	ctx, cancel := opContext()
	defer cancel()

	rc, err := tc.engine.ReleaseBatch(ctx, p)
	switch {
	case err == nil:
		text := discord.AnswersSent
		if asker := answersRecipient(rc); asker != "" && rc.FailedFor(asker) {
			text += " Some of them could not be delivered to A."
		}
		discord.EditResponse(r, i, text, discord.BackMenu())
	case errors.Is(err, &exchange.RejectedError{Reason: exchange.ReasonNoFragments}):
		pending, comps := tc.pendingMessage(p)
		discord.EditResponse(r, i, discord.RejectionText(err, tc.engine.Total())+"\n\n"+pending, comps)
	default:
		discord.EditResponse(r, i, discord.RejectionText(err, tc.engine.Total()), discord.BackMenu())
	}
}

func answersRecipient(rc exchange.Receipt) exchange.ParticipantID {
	for _, eff := range rc.Effects {
		if eff.Kind == exchange.EffectAnswers {
			return eff.To
		}
	}
	return ""
}

func (tc *TurnCommands) handleBackButton(r discord.Responder, i *discordgo.InteractionCreate) {
	discord.UpdateMessage(r, i, discord.MainMenuTitle, discord.MainMenu())
}

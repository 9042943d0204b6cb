// Package commands wires the exchange engine to Discord: slash commands,
// menu buttons, the question-number form and direct-message answers.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/turnabout/internal/discord"
	"github.com/MrWong99/turnabout/internal/exchange"
	"github.com/MrWong99/turnabout/internal/questions"
)

// opTimeout bounds one engine operation including effect delivery.
const opTimeout = 30 * time.Second

// TurnCommands handles every interaction of the exchange.
type TurnCommands struct {
	engine  *exchange.Engine
	bank    *questions.Bank
	perms   *discord.PermissionChecker
	perPage int
}

// NewTurnCommands creates a TurnCommands handler. perPage is the number of
// questions listed per page.
func NewTurnCommands(engine *exchange.Engine, bank *questions.Bank, perms *discord.PermissionChecker, perPage int) *TurnCommands {
	return &TurnCommands{
		engine:  engine,
		bank:    bank,
		perms:   perms,
		perPage: perPage,
	}
}

// Register registers commands, buttons and the number form with the router.
func (tc *TurnCommands) Register(router *discord.CommandRouter) {
	defs := tc.Definitions()
	router.RegisterCommand("start", defs[0], tc.handleStart)
	router.RegisterCommand("help", defs[1], tc.handleHelp)
	router.RegisterCommand("stats", defs[2], tc.handleStats)
	router.RegisterCommand("question", defs[3], tc.handleQuestion)
	router.RegisterCommand("reset", defs[4], tc.handleReset)
	router.RegisterCommand("list", defs[5], tc.handleList)
	router.RegisterCommand("ask/number", defs[6], tc.handleAskNumber)
	router.RegisterCommand("ask/random", defs[6], tc.handleAskRandom)
	router.RegisterAutocomplete("ask/number", tc.handleNumberAutocomplete)

	router.RegisterComponent(discord.ButtonAskSpecific, tc.handleAskSpecificButton)
	router.RegisterComponent(discord.ButtonAskRandom, tc.handleAskRandomButton)
	router.RegisterComponent(discord.ButtonList, tc.handleListButton)
	router.RegisterComponentPrefix(discord.ButtonPagePrefix, tc.handlePageButton)
	router.RegisterComponent(discord.ButtonRemind, tc.handleRemindButton)
	router.RegisterComponent(discord.ButtonWhois, tc.handleWhoisButton)
	router.RegisterComponent(discord.ButtonReset, tc.handleResetButton)
	router.RegisterComponent(discord.ButtonSendAnswer, tc.handleSendAnswerButton)
	router.RegisterComponent(discord.ButtonBackToMenu, tc.handleBackButton)
	router.RegisterModal(discord.ModalAskNumber, tc.handleAskNumberModal)

	router.Use(tc.ensureB)
}

// Definitions returns the slash commands in registration order: start, help,
// stats, question, reset, list, ask.
func (tc *TurnCommands) Definitions() []*discordgo.ApplicationCommand {
	total := tc.engine.Total()
	return []*discordgo.ApplicationCommand{
		{Name: "start", Description: "Join the exchange and open the menu"},
		{Name: "help", Description: "Explain how the exchange works"},
		{Name: "stats", Description: "Show roles and closed questions"},
		{Name: "question", Description: "Remind the current question"},
		{Name: "reset", Description: "Clear the partial and full closure history"},
		{Name: "list", Description: "List all questions"},
		{
			Name:        "ask",
			Description: "Send a question to your partner",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "number",
					Description: "Ask a specific question",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:         "number",
							Description:  fmt.Sprintf("Question number (1..%d)", total),
							Type:         discordgo.ApplicationCommandOptionInteger,
							Required:     true,
							Autocomplete: true,
							MinValue:     new(1.0),
							MaxValue:     float64(total),
						},
					},
				},
				{
					Name:        "random",
					Description: "Ask a random question you have not received yet",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
			},
		},
	}
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// ensureB runs the opportunistic B assignment before every button and form.
func (tc *TurnCommands) ensureB(next discord.HandlerFunc) discord.HandlerFunc {
	return func(r discord.Responder, i *discordgo.InteractionCreate) {
		tc.assignB(discord.Participant(i))
		next(r, i)
	}
}

func (tc *TurnCommands) assignB(p exchange.ParticipantID) {
	if p == "" {
		return
	}
	ctx, cancel := opContext()
	defer cancel()
	if _, err := tc.engine.EnsureB(ctx, p); err != nil {
		slog.Warn("commands: opportunistic role assignment failed", "participant", p, "err", err)
	}
}

func (tc *TurnCommands) handleStart(r discord.Responder, i *discordgo.InteractionCreate) {
	ctx, cancel := opContext()
	defer cancel()

	rc, err := tc.engine.ClaimRole(ctx, discord.Participant(i))
	if err != nil {
		discord.RespondEphemeral(r, i, discord.RejectionText(err, tc.engine.Total()))
		return
	}
	discord.RespondComponents(r, i, discord.StartText(rc.Role), discord.MainMenu())
}

func (tc *TurnCommands) handleHelp(r discord.Responder, i *discordgo.InteractionCreate) {
	discord.RespondComponents(r, i, discord.HelpText, discord.BackMenu())
}

func (tc *TurnCommands) handleStats(r discord.Responder, i *discordgo.InteractionCreate) {
	ctx, cancel := opContext()
	defer cancel()
	discord.RespondComponents(r, i, discord.StatsText(tc.engine.Status(ctx)), discord.BackMenu())
}

func (tc *TurnCommands) handleQuestion(r discord.Responder, i *discordgo.InteractionCreate) {
	text, comps := tc.pendingMessage(discord.Participant(i))
	discord.RespondComponents(r, i, text, comps)
}

func (tc *TurnCommands) handleReset(r discord.Responder, i *discordgo.InteractionCreate) {
	if !tc.perms.CanReset(i) {
		discord.RespondEphemeral(r, i, "You need the admin role to reset the history.")
		return
	}
	if err := tc.reset(discord.Participant(i)); err != nil {
		discord.RespondEphemeral(r, i, discord.RejectionText(err, tc.engine.Total()))
		return
	}
	discord.RespondComponents(r, i, discord.ResetDone, discord.BackMenu())
}

func (tc *TurnCommands) handleList(r discord.Responder, i *discordgo.InteractionCreate) {
	page := tc.bank.Page(0, tc.perPage)
	discord.RespondComponents(r, i, discord.PageText(page), discord.PageNav(page))
}

func (tc *TurnCommands) handleAskNumber(r discord.Responder, i *discordgo.InteractionCreate) {
	n, ok := numberOption(i)
	if !ok {
		discord.RespondEphemeral(r, i, tc.numberHint())
		return
	}
	discord.DeferReply(r, i)
	text, comps := tc.ask(discord.Participant(i), n, false)
	discord.FollowUp(r, i, text, comps)
}

func (tc *TurnCommands) handleAskRandom(r discord.Responder, i *discordgo.InteractionCreate) {
	discord.DeferReply(r, i)
	text, comps := tc.ask(discord.Participant(i), 0, true)
	discord.FollowUp(r, i, text, comps)
}

// handleNumberAutocomplete suggests the numbers the caller may still ask,
// filtered by the digits typed so far.
func (tc *TurnCommands) handleNumberAutocomplete(r discord.Responder, i *discordgo.InteractionCreate) {
	partial := ""
	data := i.ApplicationCommandData()
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		for _, opt := range data.Options[0].Options {
			if opt.Focused && opt.Value != nil {
				partial = strings.TrimSpace(fmt.Sprint(opt.Value))
				break
			}
		}
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, q := range tc.engine.Eligible(discord.Participant(i)) {
		num := strconv.Itoa(q)
		if partial != "" && !strings.HasPrefix(num, partial) {
			continue
		}
		text, _ := tc.bank.Text(q)
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  choiceName(q, text),
			Value: q,
		})
		if len(choices) >= 25 {
			break
		}
	}
	discord.RespondAutocomplete(r, i, choices)
}

// choiceName fits "#n: text" into Discord's 100 character choice limit.
func choiceName(q int, text string) string {
	name := fmt.Sprintf("#%d: %s", q, text)
	if r := []rune(name); len(r) > 100 {
		name = string(r[:99]) + "…"
	}
	return name
}

// numberOption reads the integer "number" option of /ask number.
func numberOption(i *discordgo.InteractionCreate) (int, bool) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 || data.Options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return 0, false
	}
	for _, opt := range data.Options[0].Options {
		if opt.Name != "number" {
			continue
		}
		switch v := opt.Value.(type) {
		case float64:
			return int(v), true
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			return n, err == nil
		}
	}
	return 0, false
}

func (tc *TurnCommands) numberHint() string {
	return fmt.Sprintf("A number from 1 to %d is needed.", tc.engine.Total())
}

// ask opens a session and renders the reply for the asker. Callers defer
// the interaction first because the question is delivered before ask
// returns.
func (tc *TurnCommands) ask(p exchange.ParticipantID, q int, random bool) (string, []discordgo.MessageComponent) {
	ctx, cancel := opContext()
	defer cancel()

	var (
		rc  exchange.Receipt
		err error
	)
	if random {
		rc, err = tc.engine.RequestRandom(ctx, p)
	} else {
		rc, err = tc.engine.RequestQuestion(ctx, p, q)
	}
	if err != nil {
		return discord.RejectionText(err, tc.engine.Total()), discord.BackMenu()
	}
	return askedText(rc), discord.BackMenu()
}

// askedText confirms an opened session and flags an unreachable receiver.
func askedText(rc exchange.Receipt) string {
	text := fmt.Sprintf("Question #%d sent.", rc.Question)
	for _, eff := range rc.Effects {
		if eff.Kind == exchange.EffectQuestionReceived && rc.FailedFor(eff.To) {
			text += " B could not be reached by direct message; they can use /question to see it."
		}
	}
	return text
}

// pendingMessage renders the open session for p. The receiver also gets the
// answer buttons.
func (tc *TurnCommands) pendingMessage(p exchange.ParticipantID) (string, []discordgo.MessageComponent) {
	return pendingMessage(tc.engine, p)
}

func pendingMessage(engine *exchange.Engine, p exchange.ParticipantID) (string, []discordgo.MessageComponent) {
	ctx, cancel := opContext()
	defer cancel()

	view, ok := engine.Pending(ctx, p)
	if !ok {
		return discord.NoActiveQuestion, discord.BackMenu()
	}
	if view.Perspective == exchange.PerspectiveReceiver {
		return discord.PendingText(view), discord.AnswerMenu()
	}
	return discord.PendingText(view), discord.BackMenu()
}

func (tc *TurnCommands) reset(p exchange.ParticipantID) error {
	ctx, cancel := opContext()
	defer cancel()
	_, err := tc.engine.ResetLedger(ctx)
	if err == nil {
		slog.Info("commands: history reset", "by", p)
	}
	return err
}

// Package discord is the Discord transport for turnabout. It owns the
// discordgo.Session lifecycle, routes interactions to registered handlers,
// converts direct messages into answer fragments and delivers exchange
// effects as direct messages.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

// Config holds Discord bot configuration.
type Config struct {
	// Token is the bot token without the "Bot " prefix.
	Token string

	// GuildID scopes slash commands to one guild. Empty registers them
	// globally, which also makes them available in direct messages.
	GuildID string
}

// MessageHandler receives every message not authored by the bot itself.
type MessageHandler func(m Messenger, msg *discordgo.MessageCreate)

// Bot owns the Discord gateway connection and routes interactions
// to registered command handlers.
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	router    *CommandRouter
	guildID   string
	commands  []*discordgo.ApplicationCommand
	onMessage MessageHandler
	closeOnce sync.Once
	ready     atomic.Bool
}

// New creates a Bot and registers the gateway handlers. The connection is
// opened by [Bot.Run], so handlers set through [Bot.OnMessage] and the
// router see every event.
func New(_ context.Context, cfg Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsDirectMessages |
		discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		session: session,
		router:  NewCommandRouter(),
		guildID: cfg.GuildID,
	}

	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.router.Handle(s, i)
	})
	session.AddHandler(b.handleMessage)
	session.AddHandler(b.handleReady)
	session.AddHandler(b.handleResumed)
	session.AddHandler(b.handleDisconnect)
	return b, nil
}

// Ready reports whether the gateway connection is established.
func (b *Bot) Ready() bool {
	return b.ready.Load()
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.ready.Store(true)
	if r != nil && r.User != nil {
		slog.Info("discord: connected", "user", r.User.Username)
	}
}

func (b *Bot) handleResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	b.ready.Store(true)
}

func (b *Bot) handleDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.ready.Store(false)
	slog.Warn("discord: gateway disconnected")
}

// GuildID returns the guild commands are registered in.
func (b *Bot) GuildID() string {
	return b.guildID
}

// Session returns the underlying discordgo session. It satisfies both
// [Responder] and [Messenger].
func (b *Bot) Session() *discordgo.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// Router returns the command router for registering handlers.
func (b *Bot) Router() *CommandRouter {
	return b.router
}

// OnMessage sets the handler for incoming messages. Messages from bots,
// including this one, are dropped before the handler runs. Set it before
// calling [Bot.Run].
func (b *Bot) OnMessage(h MessageHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onMessage = h
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	b.mu.RLock()
	h := b.onMessage
	b.mu.RUnlock()
	if h == nil {
		return
	}
	h(s, m)
}

// Run connects to Discord, registers slash commands and blocks until ctx
// is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}

	b.mu.RLock()
	appID := b.session.State.User.ID
	b.mu.RUnlock()

	cmds := b.router.ApplicationCommands()
	if len(cmds) > 0 {
		registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, cmds)
		if err != nil {
			return fmt.Errorf("discord: register commands: %w", err)
		}
		b.mu.Lock()
		b.commands = registered
		b.mu.Unlock()
		slog.Info("discord: commands registered", "count", len(registered), "guild", b.guildID)
	}

	<-ctx.Done()
	return ctx.Err()
}

// Close unregisters commands and disconnects from Discord.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if b.session != nil && len(b.commands) > 0 {
			appID := b.session.State.User.ID
			for _, cmd := range b.commands {
				if err := b.session.ApplicationCommandDelete(appID, b.guildID, cmd.ID); err != nil {
					slog.Warn("discord: failed to delete command", "name", cmd.Name, "err", err)
				}
			}
		}

		if b.session != nil {
			if err := b.session.Close(); err != nil {
				closeErr = fmt.Errorf("discord: close session: %w", err)
			}
		}

		slog.Info("discord: bot closed")
	})
	return closeErr
}

// Command turnabout runs the two-person question exchange bot on Discord.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/turnabout/internal/config"
	"github.com/MrWong99/turnabout/internal/discord"
	"github.com/MrWong99/turnabout/internal/discord/commands"
	"github.com/MrWong99/turnabout/internal/exchange"
	"github.com/MrWong99/turnabout/internal/health"
	"github.com/MrWong99/turnabout/internal/observe"
	"github.com/MrWong99/turnabout/internal/questions"
	"github.com/MrWong99/turnabout/internal/statestore"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "turnabout.yaml", "path to the YAML configuration file; when missing, configuration comes from the environment")
	flag.Parse()

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	// ── Configuration ─────────────────────────────────────────────────────────
	cfg, watcher, err := loadConfig(*configPath, &level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "turnabout: %v\n", err)
		return 1
	}
	level.Set(cfg.Server.LogLevel.Slog())

	slog.Info("turnabout starting",
		"version", version,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"store", cfg.Store.Backend,
		"questions", cfg.Questions.Total,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.Setup(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── State and questions ───────────────────────────────────────────────────
	store, err := statestore.Open(ctx, statestore.Options{
		Backend: string(cfg.Store.Backend),
		Path:    cfg.Store.Path,
		DSN:     cfg.Store.DSN,
	})
	if err != nil {
		slog.Error("failed to open state store", "backend", cfg.Store.Backend, "err", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("state store close error", "err", err)
		}
	}()

	bank, err := questions.Load(cfg.Questions.File, cfg.Questions.Total)
	if err != nil {
		slog.Error("failed to load questions", "file", cfg.Questions.File, "err", err)
		return 1
	}

	engine, err := exchange.New(ctx, exchange.Config{Store: store, Bank: bank})
	if err != nil {
		slog.Error("failed to initialise exchange", "err", err)
		return 1
	}

	// ── Discord ───────────────────────────────────────────────────────────────
	bot, err := discord.New(ctx, discord.Config{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
	})
	if err != nil {
		slog.Error("failed to create Discord session", "err", err)
		return 1
	}
	defer func() {
		if err := bot.Close(); err != nil {
			slog.Warn("discord bot close error", "err", err)
		}
	}()

	engine.SetDeliverer(discord.NewDMDeliverer(bot.Session()))
	perms := discord.NewPermissionChecker(cfg.Discord.AdminRoleID)
	commands.NewTurnCommands(engine, bank, perms, cfg.Questions.PerPage).Register(bot.Router())
	bot.OnMessage(commands.NewInbox(engine).Handle)

	// ── HTTP: probes and metrics ──────────────────────────────────────────────
	mux := http.NewServeMux()
	health.New(
		health.Store(store),
		health.Ready("discord", bot.Ready),
	).Register(mux)
	mux.Handle("GET /metrics", tel.MetricsHandler())

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	slog.Info("turnabout ready, press Ctrl+C to shut down")

	if err := g.Wait(); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig reads the YAML file at path and watches it for log level
// changes. A missing file falls back to environment-only configuration
// without a watcher.
func loadConfig(path string, level *slog.LevelVar) (*config.Config, *config.Watcher, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Info("config file not found, using environment", "path", path)
		cfg, err := config.FromEnv()
		return cfg, nil, err
	}
	w, err := config.NewWatcher(path, config.LevelApplier(level))
	if err != nil {
		return nil, nil, err
	}
	return w.Current(), w, nil
}

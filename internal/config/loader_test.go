package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/turnabout/internal/config"
)

const fullYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
discord:
  token: "bot-token"
  guild_id: "123"
  admin_role_id: "456"
questions:
  file: /etc/turnabout/questions.txt
  total: 50
  per_page: 10
store:
  backend: sqlite
  path: /var/lib/turnabout/state.db
telemetry:
  service_name: turnabout-test
`

func TestLoadFromReader_Full(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Discord.GuildID != "123" || cfg.Discord.AdminRoleID != "456" {
		t.Errorf("discord = %+v", cfg.Discord)
	}
	if cfg.Questions.Total != 50 || cfg.Questions.PerPage != 10 {
		t.Errorf("questions = %+v", cfg.Questions)
	}
	if cfg.Store.Backend != config.StoreSQLite || cfg.Store.Path != "/var/lib/turnabout/state.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Telemetry.ServiceName != "turnabout-test" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("discord:\n  token: x\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	want := config.Config{
		Server:    config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Discord:   config.DiscordConfig{Token: "x"},
		Questions: config.QuestionsConfig{File: "questions.txt", Total: 127, PerPage: 20},
		Store:     config.StoreConfig{Backend: config.StoreFile, Path: "state.json"},
		Telemetry: config.TelemetryConfig{ServiceName: "turnabout"},
	}
	if *cfg != want {
		t.Errorf("defaults = %+v\nwant       %+v", *cfg, want)
	}
}

func TestLoadFromReader_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr []string
	}{
		{
			name:    "missing token",
			yaml:    "server:\n  log_level: info\n",
			wantErr: []string{"discord.token is required"},
		},
		{
			name:    "unknown field",
			yaml:    "discord:\n  token: x\n  tokne: y\n",
			wantErr: []string{"tokne"},
		},
		{
			name:    "bad log level",
			yaml:    "server:\n  log_level: loud\ndiscord:\n  token: x\n",
			wantErr: []string{"server.log_level"},
		},
		{
			name:    "postgres without dsn",
			yaml:    "discord:\n  token: x\nstore:\n  backend: postgres\n",
			wantErr: []string{"store.dsn is required"},
		},
		{
			name:    "bad backend",
			yaml:    "discord:\n  token: x\nstore:\n  backend: redis\n",
			wantErr: []string{"store.backend"},
		},
		{
			name:    "joined errors",
			yaml:    "questions:\n  total: -1\n  per_page: -5\n",
			wantErr: []string{"discord.token", "questions.total", "questions.per_page"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tc.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		config.EnvDiscordToken: "from-env",
		config.EnvStatePath:    "/data/state.json",
		config.EnvStoreDSN:     "postgres://db/turnabout",
	}
	cfg := &config.Config{Discord: config.DiscordConfig{Token: "from-file"}}
	config.ApplyEnv(cfg, func(k string) string { return env[k] })

	if cfg.Discord.Token != "from-env" || cfg.Store.Path != "/data/state.json" || cfg.Store.DSN != "postgres://db/turnabout" {
		t.Errorf("after ApplyEnv = %+v", cfg)
	}

	kept := &config.Config{Discord: config.DiscordConfig{Token: "from-file"}}
	config.ApplyEnv(kept, func(string) string { return "" })
	if kept.Discord.Token != "from-file" {
		t.Error("empty variable overrode file value")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(config.EnvDiscordToken, "env-token")
	t.Setenv(config.EnvStatePath, "/tmp/turnabout.json")

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Discord.Token != "env-token" || cfg.Store.Path != "/tmp/turnabout.json" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "turnabout.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

func TestLogLevel_Slog(t *testing.T) {
	t.Parallel()

	tests := map[config.LogLevel]slog.Level{
		config.LogDebug: slog.LevelDebug,
		config.LogInfo:  slog.LevelInfo,
		config.LogWarn:  slog.LevelWarn,
		config.LogError: slog.LevelError,
		"":              slog.LevelInfo,
	}
	for in, want := range tests {
		if got := in.Slog(); got != want {
			t.Errorf("LogLevel(%q).Slog() = %v, want %v", in, got, want)
		}
	}
}

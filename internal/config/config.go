// Package config provides the configuration schema, loader and file watcher
// for the turnabout bot.
package config

import "log/slog"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog returns the matching [slog.Level]. Unknown values map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StoreBackend selects where the exchange state is persisted.
type StoreBackend string

const (
	StoreFile     StoreBackend = "file"
	StorePostgres StoreBackend = "postgres"
	StoreSQLite   StoreBackend = "sqlite"
)

// IsValid reports whether b is a recognised backend.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreFile, StorePostgres, StoreSQLite:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Discord   DiscordConfig   `yaml:"discord"`
	Questions QuestionsConfig `yaml:"questions"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds the HTTP listener and logging settings.
type ServerConfig struct {
	// ListenAddr is the address serving /healthz, /readyz and /metrics.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. It is the only setting applied without a
	// restart.
	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig holds the bot credentials and command scope.
type DiscordConfig struct {
	// Token is the bot token. TURNABOUT_DISCORD_TOKEN overrides it.
	Token string `yaml:"token"`

	// GuildID registers slash commands in one guild for instant availability.
	// Empty registers them globally.
	GuildID string `yaml:"guild_id"`

	// AdminRoleID restricts ledger resets to members holding this role.
	// Empty lets everyone reset.
	AdminRoleID string `yaml:"admin_role_id"`
}

// QuestionsConfig describes the question bank.
type QuestionsConfig struct {
	// File holds one question per non-empty line.
	File string `yaml:"file"`

	// Total is the bank size N. The file is padded or truncated to it.
	Total int `yaml:"total"`

	// PerPage is the number of questions per listing page.
	PerPage int `yaml:"per_page"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend"`

	// Path is the JSON file (file backend) or database file (sqlite).
	// TURNABOUT_STATE_PATH overrides it.
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string. TURNABOUT_STORE_DSN
	// overrides it.
	DSN string `yaml:"dsn"`
}

// TelemetryConfig holds OpenTelemetry resource settings.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
}

// Default values filled in by [ApplyDefaults].
const (
	DefaultListenAddr    = ":8080"
	DefaultQuestionsFile = "questions.txt"
	DefaultTotal         = 127
	DefaultPerPage       = 20
	DefaultStatePath     = "state.json"
	DefaultServiceName   = "turnabout"
)

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Questions.File == "" {
		cfg.Questions.File = DefaultQuestionsFile
	}
	if cfg.Questions.Total == 0 {
		cfg.Questions.Total = DefaultTotal
	}
	if cfg.Questions.PerPage == 0 {
		cfg.Questions.PerPage = DefaultPerPage
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreFile
	}
	if cfg.Store.Path == "" && cfg.Store.Backend != StorePostgres {
		cfg.Store.Path = DefaultStatePath
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
}

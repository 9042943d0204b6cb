package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values. They keep secrets out of
// the config file.
const (
	EnvDiscordToken = "TURNABOUT_DISCORD_TOKEN"
	EnvStatePath    = "TURNABOUT_STATE_PATH"
	EnvStoreDSN     = "TURNABOUT_STORE_DSN"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment overrides
// and defaults, and validates the result. An empty document is allowed.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return finish(cfg)
}

// FromEnv builds a config from defaults and environment overrides only, for
// deployments without a config file.
func FromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	ApplyEnv(cfg, os.Getenv)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides secret fields from the environment. getenv is usually
// [os.Getenv].
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvDiscordToken); v != "" {
		cfg.Discord.Token = v
	}
	if v := getenv(EnvStatePath); v != "" {
		cfg.Store.Path = v
	}
	if v := getenv(EnvStoreDSN); v != "" {
		cfg.Store.DSN = v
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Discord.Token == "" {
		errs = append(errs, fmt.Errorf("discord.token is required (or set %s)", EnvDiscordToken))
	}

	if cfg.Questions.Total < 1 {
		errs = append(errs, fmt.Errorf("questions.total must be at least 1, got %d", cfg.Questions.Total))
	}
	if cfg.Questions.PerPage < 1 {
		errs = append(errs, fmt.Errorf("questions.per_page must be at least 1, got %d", cfg.Questions.PerPage))
	}

	switch {
	case cfg.Store.Backend != "" && !cfg.Store.Backend.IsValid():
		errs = append(errs, fmt.Errorf("store.backend %q is invalid; valid values: file, postgres, sqlite", cfg.Store.Backend))
	case cfg.Store.Backend == StorePostgres && cfg.Store.DSN == "":
		errs = append(errs, fmt.Errorf("store.dsn is required when store.backend is postgres (or set %s)", EnvStoreDSN))
	case cfg.Store.Backend != StorePostgres && cfg.Store.Path == "":
		errs = append(errs, fmt.Errorf("store.path is required when store.backend is %q", cfg.Store.Backend))
	}

	return errors.Join(errs...)
}

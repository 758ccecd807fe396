// Package config loads smartfin settings from the environment.
//
// Every setting has an environment variable and a default; the CLI lets
// flags override them after loading.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Backends a contract's state can live in.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config is the process configuration.
type Config struct {
	// Backend selects where contract state is kept. The registry and the
	// journal always live in the SQLite database at DB; with the memory
	// backend each process rebuilds state from that journal.
	Backend string `env:"SMARTFIN_BACKEND" envDefault:"sqlite"`

	// DB is the SQLite database path.
	DB string `env:"SMARTFIN_DB" envDefault:"smartfin.db"`

	// BadgerDir is the Badger directory. Empty means DB + ".badger".
	BadgerDir string `env:"SMARTFIN_BADGER_DIR"`

	LogLevel string `env:"SMARTFIN_LOG_LEVEL" envDefault:"info"`

	// TxFee is reserved from each withdrawal of a fee-mode contract.
	TxFee int64 `env:"SMARTFIN_TX_FEE" envDefault:"2300"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("invalid backend %q: must be one of sqlite, badger, memory", c.Backend)
	}
	if c.DB == "" {
		return fmt.Errorf("database path is required")
	}
	if c.TxFee < 0 {
		return fmt.Errorf("transaction fee must be non-negative, got %d", c.TxFee)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel as a slog level name (debug, info, warn, error).
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// BadgerPath returns the Badger directory, defaulting next to the
// database.
func (c Config) BadgerPath() string {
	if c.BadgerDir != "" {
		return c.BadgerDir
	}
	return c.DB + ".badger"
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Reconnect strategies.
const (
	StrategyFixed   = "fixed"
	StrategyBackoff = "backoff"
)

// Config represents the global ~/.pigeon/config.toml.
type Config struct {
	ServerURL      string    `toml:"server_url"`
	DefaultProfile string    `toml:"default_profile"`
	Reconnect      Reconnect `toml:"reconnect"`
	TypingExpiryMS int       `toml:"typing_expiry_ms"`
	Outbox         Outbox    `toml:"outbox"`
}

// Reconnect controls the retry behavior after an unexpected disconnect.
type Reconnect struct {
	Strategy   string `toml:"strategy"`
	DelayMS    int    `toml:"delay_ms"`
	MaxDelayMS int    `toml:"max_delay_ms"`
}

// Outbox controls the durable send journal.
type Outbox struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the configuration used when no config.toml exists.
func Default() *Config {
	return &Config{
		ServerURL: "http://localhost:8000",
		Reconnect: Reconnect{
			Strategy:   StrategyFixed,
			DelayMS:    5000,
			MaxDelayMS: 30000,
		},
		TypingExpiryMS: 1000,
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Reconnect.Strategy {
	case StrategyFixed, StrategyBackoff, "":
	default:
		return fmt.Errorf("invalid reconnect strategy %q", c.Reconnect.Strategy)
	}
	if c.Reconnect.DelayMS < 0 || c.Reconnect.MaxDelayMS < 0 {
		return fmt.Errorf("reconnect delays must be non-negative")
	}
	if c.TypingExpiryMS < 0 {
		return fmt.Errorf("typing_expiry_ms must be non-negative")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

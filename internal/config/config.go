package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
)

// Config represents the global ~/.dchat/config.toml.
type Config struct {
	DefaultProfile string   `toml:"default_profile"`
	LogLevel       string   `toml:"log_level"`
	Engine         Engine   `toml:"engine"`
	Backend        Backend  `toml:"backend"`
	TexCache       TexCache `toml:"texcache"`
}

// Engine tunes the synchronization engine.
type Engine struct {
	QueueCapacity int `toml:"queue_capacity"`
	ChatWindow    int `toml:"chat_window"`
	MessageWindow int `toml:"message_window"`
}

// Backend tunes the local message store.
type Backend struct {
	UseKeyring     bool   `toml:"use_keyring"`
	OutboxInterval string `toml:"outbox_interval"`
}

// TexCache tunes the image cache.
type TexCache struct {
	Workers int `toml:"workers"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Engine: Engine{
			QueueCapacity: 1000,
			ChatWindow:    100,
			MessageWindow: 200,
		},
		Backend: Backend{
			UseKeyring:     true,
			OutboxInterval: "2s",
		},
		TexCache: TexCache{Workers: 4},
	}
}

// Load reads config from the given path on top of Default. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.QueueCapacity < 1 {
		return fmt.Errorf("engine.queue_capacity must be positive, got %d", c.Engine.QueueCapacity)
	}
	if c.Engine.ChatWindow < 1 || c.Engine.MessageWindow < 1 {
		return errors.New("engine windows must be positive")
	}
	if c.TexCache.Workers < 1 {
		return fmt.Errorf("texcache.workers must be positive, got %d", c.TexCache.Workers)
	}
	if _, err := c.OutboxInterval(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// OutboxInterval parses backend.outbox_interval.
func (c *Config) OutboxInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Backend.OutboxInterval)
	if err != nil {
		return 0, fmt.Errorf("backend.outbox_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("backend.outbox_interval must be positive, got %s", d)
	}
	return d, nil
}

// Level parses log_level.
func (c *Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
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

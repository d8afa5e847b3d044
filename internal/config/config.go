// Package config holds vitality configuration: typed defaults, optionally
// overlaid by a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all vitality configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	State   StateConfig   `yaml:"state"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
	Engine  EngineConfig  `yaml:"engine"`
	Hooks   HooksConfig   `yaml:"hooks"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type StateConfig struct {
	Dir string `yaml:"dir"` // resolved at runtime when empty
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // resolved at runtime via store.DefaultDBPath()
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

type EngineConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	SessionWindow   time.Duration `yaml:"session_window"` // how far back stored session summaries feed a turn
	SessionRetain   time.Duration `yaml:"session_retain"`
}

type HooksConfig struct {
	Enabled bool `yaml:"enabled"`
	Timeout int  `yaml:"timeout"` // seconds
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Engine: EngineConfig{
			CleanupInterval: 24 * time.Hour,
			SessionWindow:   6 * time.Hour,
			SessionRetain:   30 * 24 * time.Hour,
		},
		Hooks: HooksConfig{
			Enabled: true,
			Timeout: 10,
		},
	}
}

// Environment variables consulted by Load.
const (
	EnvConfig   = "VITALITY_CONFIG"
	EnvStateDir = "VITALITY_STATE_DIR"
	EnvDB       = "VITALITY_DB"
)

// Load returns the defaults overlaid by the YAML file at path. An empty path
// falls back to $VITALITY_CONFIG; with neither set the defaults are used.
// VITALITY_STATE_DIR and VITALITY_DB override the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if v := os.Getenv(EnvStateDir); v != "" {
		cfg.State.Dir = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		cfg.History.Path = v
	}
	cfg.State.Dir = expandHome(cfg.State.Dir)
	cfg.History.Path = expandHome(cfg.History.Path)
	return cfg, cfg.Validate()
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error: %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console: %q", c.Log.Format))
	}
	if c.Engine.CleanupInterval < 0 {
		errs = append(errs, errors.New("engine.cleanup_interval must not be negative"))
	}
	return errors.Join(errs...)
}

// DefaultStateDir returns ~/.vitality/agents.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".vitality", "agents"), nil
}

// ResolveStateDir returns the configured state dir or the default.
func (c *Config) ResolveStateDir() (string, error) {
	if c.State.Dir != "" {
		return c.State.Dir, nil
	}
	return DefaultStateDir()
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// BaseURL returns the HTTP base URL hooks use to reach the server.
func (c *Config) BaseURL() string {
	bind := c.Server.Bind
	if bind == "" || bind == "0.0.0.0" {
		bind = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", bind, c.Server.Port)
}

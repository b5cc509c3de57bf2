// Package config loads critpath settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultFile is read when no --config flag is given.
const DefaultFile = "critpath.toml"

// Config holds all critpath configuration.
type Config struct {
	Input   InputConfig   `toml:"input"`
	Output  OutputConfig  `toml:"output"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
}

// InputConfig says where task snapshots come from. DB wins over File when both are set.
type InputConfig struct {
	DB   string `toml:"db"`
	File string `toml:"file"`
	View string `toml:"view"`
}

// OutputConfig controls CLI rendering.
type OutputConfig struct {
	Format string `toml:"format"` // text or json
	Color  bool   `toml:"color"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	CacheEntries int    `toml:"cache_entries"`
}

// LoggingConfig controls operational logging.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			View: "project",
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         3001,
			CacheEntries: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file is
// not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultFile
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("parse config %s: unknown key %q", path, undecoded[0].String())
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	switch c.Input.View {
	case "", "project", "product":
	default:
		return fmt.Errorf("input.view must be project or product, got %q", c.Input.View)
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		return fmt.Errorf("output.format must be text or json, got %q", c.Output.Format)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.CacheEntries < 0 {
		return fmt.Errorf("server.cache_entries must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Addr is the host:port the API listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NewLogger builds a logger from the logging section. It does not touch the
// global slog default.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

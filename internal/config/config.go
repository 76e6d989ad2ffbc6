// Package config loads the server configuration from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvLogLevel    = "IMAGE_EDIT_MCP_LOG_LEVEL"
	EnvMetricsAddr = "IMAGE_EDIT_MCP_METRICS_ADDR"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the tunables of the server.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// HistoryLimit caps the undo depth per image. Zero or less is unbounded.
	HistoryLimit int `yaml:"history_limit"`

	// UploadBudget is the time one texture upload step may take.
	UploadBudget time.Duration `yaml:"upload_budget"`
	// UploadChunkSize is the number of pixels copied per chunk.
	UploadChunkSize int `yaml:"upload_chunk_size"`

	MaxConcurrentLoads int           `yaml:"max_concurrent_loads"`
	TickInterval       time.Duration `yaml:"tick_interval"`

	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string `yaml:"metrics_addr"`

	OCRLanguage string `yaml:"ocr_language"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:           "info",
		HistoryLimit:       0,
		UploadBudget:       5 * time.Millisecond,
		UploadChunkSize:    1 << 20,
		MaxConcurrentLoads: 4,
		TickInterval:       20 * time.Millisecond,
		OCRLanguage:        "eng",
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.MetricsAddr = v
	}
}

// Validate checks ranges and the log level.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.UploadBudget <= 0 {
		return fmt.Errorf("%w: upload_budget must be positive", ErrInvalid)
	}
	if c.UploadChunkSize <= 0 {
		return fmt.Errorf("%w: upload_chunk_size must be positive", ErrInvalid)
	}
	if c.MaxConcurrentLoads <= 0 {
		return fmt.Errorf("%w: max_concurrent_loads must be positive", ErrInvalid)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive", ErrInvalid)
	}
	return nil
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalid, s)
	}
}

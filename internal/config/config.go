// Package config loads server configuration from the environment, with an
// optional .env file for development. Priority: environment variables > .env
// file > defaults.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all server configuration.
type Config struct {
	// Bind address for the HTTP listener hosting /ws, /healthz and /metrics.
	Addr string `env:"AETHER_ADDR" envDefault:"127.0.0.1:3000"`

	// Channel capacities. BroadcastBuffer bounds each session's bus backlog;
	// CommandBuffer and StatusBuffer bound the per-session pipes between the
	// reader and writer tasks. Separate knobs, shared default.
	BroadcastBuffer int `env:"AETHER_BROADCAST_BUFFER" envDefault:"1000"`
	CommandBuffer   int `env:"AETHER_COMMAND_BUFFER" envDefault:"1000"`
	StatusBuffer    int `env:"AETHER_STATUS_BUFFER" envDefault:"1000"`

	// ShutdownGrace bounds how long Shutdown waits for sessions to drain
	// before forcing connections closed.
	ShutdownGrace time.Duration `env:"AETHER_SHUTDOWN_GRACE" envDefault:"10s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration from an optional .env file and the environment.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err == nil && logger != nil {
		logger.Info().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and enums.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("AETHER_ADDR is required")
	}
	if c.BroadcastBuffer < 1 {
		return fmt.Errorf("AETHER_BROADCAST_BUFFER must be > 0, got %d", c.BroadcastBuffer)
	}
	if c.CommandBuffer < 1 {
		return fmt.Errorf("AETHER_COMMAND_BUFFER must be > 0, got %d", c.CommandBuffer)
	}
	if c.StatusBuffer < 1 {
		return fmt.Errorf("AETHER_STATUS_BUFFER must be > 0, got %d", c.StatusBuffer)
	}
	if c.ShutdownGrace <= 0 {
		return fmt.Errorf("AETHER_SHUTDOWN_GRACE must be positive, got %s", c.ShutdownGrace)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}

	validLogFormats := map[string]bool{"json": true, "pretty": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, pretty (got: %s)", c.LogFormat)
	}
	return nil
}

// LogConfig records the effective configuration at startup.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("addr", c.Addr).
		Int("broadcast_buffer", c.BroadcastBuffer).
		Int("command_buffer", c.CommandBuffer).
		Int("status_buffer", c.StatusBuffer).
		Dur("shutdown_grace", c.ShutdownGrace).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("Server configuration loaded")
}

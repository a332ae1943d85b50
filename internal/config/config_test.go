package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:3000", cfg.Addr)
	assert.Equal(t, 1000, cfg.BroadcastBuffer)
	assert.Equal(t, 1000, cfg.CommandBuffer)
	assert.Equal(t, 1000, cfg.StatusBuffer)
	assert.Equal(t, 10*time.Second, cfg.ShutdownGrace)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("AETHER_ADDR", "0.0.0.0:9000")
	t.Setenv("AETHER_BROADCAST_BUFFER", "32")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "pretty")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, 32, cfg.BroadcastBuffer)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Addr:            "127.0.0.1:3000",
		BroadcastBuffer: 1000,
		CommandBuffer:   1000,
		StatusBuffer:    1000,
		ShutdownGrace:   10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"empty addr":            func(c *Config) { c.Addr = "" },
		"zero broadcast buffer": func(c *Config) { c.BroadcastBuffer = 0 },
		"negative cmd buffer":   func(c *Config) { c.CommandBuffer = -1 },
		"zero status buffer":    func(c *Config) { c.StatusBuffer = 0 },
		"zero grace":            func(c *Config) { c.ShutdownGrace = 0 },
		"bad log level":         func(c *Config) { c.LogLevel = "verbose" },
		"bad log format":        func(c *Config) { c.LogFormat = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package config loads and validates the server configuration from
// three layered sources: struct defaults, an optional YAML file, and
// NUTRICOACH_-prefixed environment variables, in rising precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Bus      BusConfig      `koanf:"bus"`
	API      APIConfig      `koanf:"api"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig selects and tunes the repository backend.
type StoreConfig struct {
	// Backend is "memory" or "badger".
	Backend string `koanf:"backend"`

	// Path is the badger data directory; ignored for memory.
	Path string `koanf:"path"`
}

// BusConfig tunes the event bus.
type BusConfig struct {
	// MaxAttempts bounds handler invocations per event before
	// dead-lettering. Zero keeps the bus default.
	MaxAttempts int `koanf:"max_attempts"`
}

// APIConfig tunes the HTTP surface.
type APIConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// RealtimeConfig tunes the websocket hub.
type RealtimeConfig struct {
	// Enabled selects the hub publisher; disabled runs fall back to
	// the log-only publisher.
	Enabled bool `koanf:"enabled"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the loaded configuration for values that would fail
// at runtime. It is called by Load; call it directly after mutating a
// Config in tests.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d outside 1-65535", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}

	switch c.Store.Backend {
	case "memory":
	case "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path required for the badger backend")
		}
	default:
		return fmt.Errorf("store.backend %q not supported (memory, badger)", c.Store.Backend)
	}

	if c.Bus.MaxAttempts < 0 {
		return fmt.Errorf("bus.max_attempts must not be negative, got %d", c.Bus.MaxAttempts)
	}

	if !c.API.RateLimitDisabled {
		if c.API.RateLimitReqs <= 0 {
			return fmt.Errorf("api.rate_limit_reqs must be positive, got %d", c.API.RateLimitReqs)
		}
		if c.API.RateLimitWindow <= 0 {
			return fmt.Errorf("api.rate_limit_window must be positive, got %s", c.API.RateLimitWindow)
		}
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("logging.level %q not recognized", c.Logging.Level)
	}

	return nil
}

// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Fatalf("default store backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Server.Addr() != "0.0.0.0:8642" {
		t.Fatalf("default addr = %q", cfg.Server.Addr())
	}
	if !cfg.Realtime.Enabled {
		t.Fatal("realtime disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9100
  timeout: 45s
  environment: production
store:
  backend: badger
  path: /tmp/nutricoach-test
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Fatalf("server.port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 45*time.Second {
		t.Fatalf("server.timeout = %s, want 45s", cfg.Server.Timeout)
	}
	if cfg.Store.Backend != "badger" || cfg.Store.Path != "/tmp/nutricoach-test" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging.level = %q", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.API.RateLimitReqs != 100 {
		t.Fatalf("api.rate_limit_reqs = %d, want default 100", cfg.API.RateLimitReqs)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("NUTRICOACH_SERVER_PORT", "9200")
	t.Setenv("NUTRICOACH_LOGGING_LEVEL", "warn")
	t.Setenv("NUTRICOACH_API_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9200 {
		t.Fatalf("server.port = %d, want env override 9200", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("logging.level = %q, want warn", cfg.Logging.Level)
	}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[0] != "https://a.example" {
		t.Fatalf("cors origins = %v", cfg.API.CORSOrigins)
	}
}

func TestEnvTransform(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"NUTRICOACH_SERVER_PORT", "server.port"},
		{"NUTRICOACH_STORE_BACKEND", "store.backend"},
		{"NUTRICOACH_API_RATE_LIMIT_REQS", "api.rate_limit_reqs"},
		{"NUTRICOACH_BUS_MAX_ATTEMPTS", "bus.max_attempts"},
		{"NUTRICOACH_REALTIME_ENABLED", "realtime.enabled"},
		{"NUTRICOACH_NOSECTION", ""},
	}
	for _, tc := range cases {
		if got := envTransform(tc.in); got != tc.want {
			t.Errorf("envTransform(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }},
		{"badger without path", func(c *Config) { c.Store.Backend = "badger"; c.Store.Path = "" }},
		{"negative attempts", func(c *Config) { c.Bus.MaxAttempts = -1 }},
		{"zero rate limit", func(c *Config) { c.API.RateLimitReqs = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate accepted an invalid configuration")
			}
		})
	}
}

func TestValidateAllowsDisabledRateLimit(t *testing.T) {
	cfg := Default()
	cfg.API.RateLimitDisabled = true
	cfg.API.RateLimitReqs = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
	if cfg.API.DefaultK != 10 {
		t.Errorf("DefaultK = %d, want 10", cfg.API.DefaultK)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config passes",
			mutate: func(c *Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "bad environment",
			mutate:  func(c *Config) { c.Server.Environment = "staging" },
			wantErr: "ENVIRONMENT",
		},
		{
			name:    "missing store path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: "FEATURE_STORE_PATH",
		},
		{
			name:    "negative duckdb threads",
			mutate:  func(c *Config) { c.Store.Threads = -1 },
			wantErr: "DUCKDB_THREADS",
		},
		{
			name:    "zero default k",
			mutate:  func(c *Config) { c.API.DefaultK = 0 },
			wantErr: "API_DEFAULT_K",
		},
		{
			name: "max k below default k",
			mutate: func(c *Config) {
				c.API.DefaultK = 50
				c.API.MaxK = 10
			},
			wantErr: "API_MAX_K",
		},
		{
			name:    "zero rate limit window",
			mutate:  func(c *Config) { c.API.RateLimitWindow = 0 },
			wantErr: "RATE_LIMIT_WINDOW",
		},
		{
			name: "rate limit ignored when disabled",
			mutate: func(c *Config) {
				c.API.RateLimitDisabled = true
				c.API.RateLimitReqs = 0
				c.API.RateLimitWindow = 0
			},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"FEATURE_STORE_PATH", "store.path"},
		{"MODEL_PATH", "model.path"},
		{"API_DEFAULT_K", "api.default_k"},
		{"LOG_LEVEL", "logging.level"},
		{"RAW_DATA_DIR", "builder.data_dir"},
		{"PATH", ""},     // unmapped vars are skipped
		{"HOSTNAME", ""}, // unmapped vars are skipped
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("API_DEFAULT_K", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.API.DefaultK != 5 {
		t.Errorf("API.DefaultK = %d, want 5", cfg.API.DefaultK)
	}
	if cfg.API.RateLimitWindow != 30*time.Second {
		t.Errorf("API.RateLimitWindow = %s, want 30s", cfg.API.RateLimitWindow)
	}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[0] != "https://a.example" {
		t.Errorf("API.CORSOrigins = %v, want two trimmed origins", cfg.API.CORSOrigins)
	}
}

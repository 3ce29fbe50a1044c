// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package config holds configuration for both Restockd binaries.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml or CONFIG_PATH)
//  3. Environment variables
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Builder BuilderConfig `koanf:"builder"`
	Model   ModelConfig   `koanf:"model"`
	API     APIConfig     `koanf:"api"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP server settings for the serving binary.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
//   - ENVIRONMENT: development or production
type ServerConfig struct {
	// Host is the listen address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// Timeout bounds request read/write at the transport layer. The
	// pipeline itself carries no timeouts.
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production".
	Environment string `koanf:"environment"`
}

// StoreConfig holds feature store settings shared by the builder (which
// publishes the store) and the server (which loads it read-only).
//
// Environment Variables:
//   - FEATURE_STORE_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS
type StoreConfig struct {
	// Path is the DuckDB database file holding the four feature tables.
	Path string `koanf:"path"`

	// MaxMemory is the DuckDB memory limit (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// BuilderConfig holds raw-store input settings for the feature builder.
//
// Environment Variables:
//   - RAW_DATA_DIR, ORDERS_FILE, BASKET_FILE, PRODUCTS_FILE
type BuilderConfig struct {
	// DataDir is the directory holding the raw CSV files.
	DataDir string `koanf:"data_dir"`

	// OrdersFile, BasketFile and ProductsFile are file names relative to
	// DataDir (absolute paths are used as-is).
	OrdersFile   string `koanf:"orders_file"`
	BasketFile   string `koanf:"basket_file"`
	ProductsFile string `koanf:"products_file"`
}

// ModelConfig holds classifier model settings.
//
// Environment Variables:
//   - MODEL_PATH
type ModelConfig struct {
	// Path is the JSON file holding the pre-trained boosted-tree model.
	Path string `koanf:"path"`
}

// APIConfig holds request handling limits.
//
// Environment Variables:
//   - API_DEFAULT_K, API_MAX_K, API_MAX_BATCH_ORDERS
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
//   - CORS_ORIGINS (comma-separated)
type APIConfig struct {
	// DefaultK is the top-k count used when a request omits k.
	DefaultK int `koanf:"default_k"`

	// MaxK caps the per-request k.
	MaxK int `koanf:"max_k"`

	// MaxBatchOrders caps the number of orders in one predict call.
	MaxBatchOrders int `koanf:"max_batch_orders"`

	// RateLimitReqs / RateLimitWindow configure per-IP rate limiting.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// CORSOrigins lists allowed origins. Defaults to "*".
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that configuration values are present and sane.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.Path == "" {
		return fmt.Errorf("FEATURE_STORE_PATH is required")
	}
	if c.Store.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative, got %d", c.Store.Threads)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultK < 1 {
		return fmt.Errorf("API_DEFAULT_K must be at least 1, got %d", c.API.DefaultK)
	}
	if c.API.MaxK < c.API.DefaultK {
		return fmt.Errorf("API_MAX_K (%d) must be >= API_DEFAULT_K (%d)", c.API.MaxK, c.API.DefaultK)
	}
	if c.API.MaxBatchOrders < 1 {
		return fmt.Errorf("API_MAX_BATCH_ORDERS must be at least 1, got %d", c.API.MaxBatchOrders)
	}
	if !c.API.RateLimitDisabled {
		if c.API.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.API.RateLimitReqs)
		}
		if c.API.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.API.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace/debug/info/warn/error/fatal, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

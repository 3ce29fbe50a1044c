// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package main is the entry point for the Restockd feature builder.
//
// The builder is an offline batch job: it reads the raw order history
// CSVs, computes the four feature tables, and atomically publishes them
// as a single DuckDB file at FEATURE_STORE_PATH. The serving binary
// never sees a partially written store; a failed build leaves the
// previous store untouched.
//
// Example usage:
//
//	export RAW_DATA_DIR=/data/raw
//	export FEATURE_STORE_PATH=/data/features.duckdb
//	./restockd-builder
package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/restockd/restockd/internal/config"
	"github.com/restockd/restockd/internal/features"
	"github.com/restockd/restockd/internal/featurestore"
	"github.com/restockd/restockd/internal/logging"
	"github.com/restockd/restockd/internal/rawdata"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("data_dir", cfg.Builder.DataDir).
		Str("store_path", cfg.Store.Path).
		Msg("Starting feature build")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()

	orders, err := rawdata.ReadOrders(inputPath(&cfg.Builder, cfg.Builder.OrdersFile))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to read orders")
	}
	items, err := rawdata.ReadBasketItems(inputPath(&cfg.Builder, cfg.Builder.BasketFile))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to read basket items")
	}
	products, err := rawdata.ReadProducts(inputPath(&cfg.Builder, cfg.Builder.ProductsFile))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to read products")
	}

	logging.Info().
		Int("orders", len(orders)).
		Int("basket_items", len(items)).
		Int("products", len(products)).
		Dur("read_time", time.Since(start)).
		Msg("Raw data loaded")

	tables := features.Build(orders, items, products)

	if err := featurestore.Publish(ctx, &cfg.Store, tables); err != nil {
		logging.Fatal().Err(err).Msg("Failed to publish feature store")
	}

	logging.Info().
		Dur("total_time", time.Since(start)).
		Msg("Feature build complete")
}

// inputPath resolves a raw file name against the configured data
// directory. Absolute names are used as-is.
func inputPath(cfg *config.BuilderConfig, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.DataDir, name)
}

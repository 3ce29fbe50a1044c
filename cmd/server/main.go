// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package main is the entry point for the Restockd serving binary.
//
// Restockd recommends products a user is likely to reorder, given the
// context of a new order. The server initializes components in the
// following order:
//
//  1. Configuration: layered Koanf v2 loading (defaults, YAML, env vars)
//  2. Logging: zerolog, JSON by default
//  3. Feature store: the DuckDB file published by the builder, opened
//     read-only and loaded fully into memory
//  4. Classifier: pre-trained boosted-tree model from MODEL_PATH
//  5. Pipeline: immutable serving context shared by all requests
//  6. HTTP server: Chi router with graceful shutdown on SIGINT/SIGTERM
//
// A missing or incomplete feature store, or an unreadable model, is a
// fatal startup error: the server refuses to serve partial results.
//
// Example usage:
//
//	export FEATURE_STORE_PATH=/data/features.duckdb
//	export MODEL_PATH=/data/model/reorder_gbdt.json
//	./restockd-server
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/restockd/restockd/internal/api"
	"github.com/restockd/restockd/internal/classifier"
	"github.com/restockd/restockd/internal/config"
	"github.com/restockd/restockd/internal/featurestore"
	"github.com/restockd/restockd/internal/logging"
	"github.com/restockd/restockd/internal/metrics"
	"github.com/restockd/restockd/internal/pipeline"
)

func main() {
	// Load configuration first to get logging settings
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
		Str("store_path", cfg.Store.Path).
		Str("model_path", cfg.Model.Path).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Restockd server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := featurestore.Load(ctx, &cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load feature store")
	}
	metrics.SetStoreCounts(store.Counts())

	model, err := classifier.Load(cfg.Model.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load classifier model")
	}

	pipe, err := pipeline.New(store, model, &cfg.API)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build serving pipeline")
	}

	handler := api.NewHandler(pipe, cfg)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg),
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server error")
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
		os.Exit(1)
	}

	logging.Info().Msg("Server stopped gracefully")
}

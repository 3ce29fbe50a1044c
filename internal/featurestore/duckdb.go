// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package featurestore

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/restockd/restockd/internal/config"
)

// tableNames lists the four feature tables in the persisted store.
var tableNames = []string{
	"user_features",
	"product_features",
	"user_product_features",
	"user_prior_products",
}

// createTableStatements defines the columnar schema of the persisted
// store. Keys are BIGINT, counters INTEGER/BIGINT, ratios DOUBLE; the
// declared types round-trip through DuckDB unchanged.
var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS user_features (
		user_id              BIGINT PRIMARY KEY,
		total_orders         INTEGER NOT NULL,
		avg_days_since_prior DOUBLE NOT NULL,
		reorder_ratio        DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_features (
		product_id      BIGINT PRIMARY KEY,
		total_purchases BIGINT NOT NULL,
		reorder_prob    DOUBLE NOT NULL,
		aisle_id        BIGINT NOT NULL,
		department_id   BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_product_features (
		user_id           BIGINT NOT NULL,
		product_id        BIGINT NOT NULL,
		total_orders      INTEGER NOT NULL,
		avg_position      DOUBLE NOT NULL,
		order_rate        DOUBLE NOT NULL,
		orders_since_last INTEGER NOT NULL,
		streak            INTEGER NOT NULL,
		PRIMARY KEY (user_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_prior_products (
		user_id    BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		PRIMARY KEY (user_id, product_id)
	)`,
}

// openDuckDB opens a DuckDB database file with tuning options from the
// store config.
func openDuckDB(cfg *config.StoreConfig, path, accessMode string) (*sql.DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	connStr := fmt.Sprintf("%s?access_mode=%s&threads=%d&max_memory=%s",
		path, accessMode, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature store database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping feature store database: %w", err)
	}

	return conn, nil
}

// verifyTables checks that all four feature tables exist, naming every
// missing table in the error.
func verifyTables(ctx context.Context, conn *sql.DB) error {
	rows, err := conn.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'main'`)
	if err != nil {
		return fmt.Errorf("failed to list feature store tables: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool, len(tableNames))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list feature store tables: %w", err)
	}

	var missing []string
	for _, name := range tableNames {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing tables: %s", ErrStoreIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

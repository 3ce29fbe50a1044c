// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package featurestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/restockd/restockd/internal/config"
	"github.com/restockd/restockd/internal/features"
	"github.com/restockd/restockd/internal/logging"
)

// queryer is the subset of *sql.DB used by the load path.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Publish writes the four feature tables as one atomic step: into a
// temporary database file that is checkpointed, closed, and renamed over
// the target path. A failed build leaves any previous store untouched.
func Publish(ctx context.Context, cfg *config.StoreConfig, tables *features.Tables) error {
	dir := filepath.Dir(cfg.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create feature store directory %s: %w", dir, err)
		}
	}

	tmpPath := cfg.Path + ".building"
	// A crashed previous build may have left the temp file behind.
	_ = os.Remove(tmpPath)
	_ = os.Remove(tmpPath + ".wal")

	if err := writeTables(ctx, cfg, tmpPath, tables); err != nil {
		_ = os.Remove(tmpPath)
		_ = os.Remove(tmpPath + ".wal")
		return err
	}

	if err := os.Rename(tmpPath, cfg.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to publish feature store: %w", err)
	}

	logging.Info().
		Int("users", len(tables.Users)).
		Int("products", len(tables.Products)).
		Int("pairs", len(tables.Pairs)).
		Int("candidates", len(tables.Candidates)).
		Str("path", cfg.Path).
		Msg("feature store published")

	return nil
}

// writeTables creates the schema and inserts all rows into the database
// at path, then checkpoints and closes it.
func writeTables(ctx context.Context, cfg *config.StoreConfig, path string, tables *features.Tables) (err error) {
	conn, openErr := openDuckDB(cfg, path, "read_write")
	if openErr != nil {
		return openErr
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close feature store database: %w", closeErr)
		}
	}()

	for _, stmt := range createTableStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create feature table: %w", err)
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	if err := insertRows(ctx, tx, tables); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feature tables: %w", err)
	}

	// Flush the WAL into the database file so the rename publishes a
	// self-contained store.
	if _, err := conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("failed to checkpoint feature store: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, tables *features.Tables) error {
	userStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO user_features (user_id, total_orders, avg_days_since_prior, reorder_ratio)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare user_features insert: %w", err)
	}
	defer userStmt.Close()
	for _, u := range tables.Users {
		if _, err := userStmt.ExecContext(ctx, u.UserID, u.TotalOrders, u.AvgDaysSincePrior, u.ReorderRatio); err != nil {
			return fmt.Errorf("failed to insert user_features row for user %d: %w", u.UserID, err)
		}
	}

	prodStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO product_features (product_id, total_purchases, reorder_prob, aisle_id, department_id)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare product_features insert: %w", err)
	}
	defer prodStmt.Close()
	for _, p := range tables.Products {
		if _, err := prodStmt.ExecContext(ctx, p.ProductID, p.TotalPurchases, p.ReorderProb, p.AisleID, p.DepartmentID); err != nil {
			return fmt.Errorf("failed to insert product_features row for product %d: %w", p.ProductID, err)
		}
	}

	pairStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO user_product_features
		 (user_id, product_id, total_orders, avg_position, order_rate, orders_since_last, streak)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare user_product_features insert: %w", err)
	}
	defer pairStmt.Close()
	for _, p := range tables.Pairs {
		if _, err := pairStmt.ExecContext(ctx, p.UserID, p.ProductID, p.TotalOrders, p.AvgPosition,
			p.OrderRate, p.OrdersSinceLast, p.Streak); err != nil {
			return fmt.Errorf("failed to insert user_product_features row for pair (%d,%d): %w",
				p.UserID, p.ProductID, err)
		}
	}

	candStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO user_prior_products (user_id, product_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare user_prior_products insert: %w", err)
	}
	defer candStmt.Close()
	for _, c := range tables.Candidates {
		if _, err := candStmt.ExecContext(ctx, c.UserID, c.ProductID); err != nil {
			return fmt.Errorf("failed to insert user_prior_products row for pair (%d,%d): %w",
				c.UserID, c.ProductID, err)
		}
	}

	return nil
}

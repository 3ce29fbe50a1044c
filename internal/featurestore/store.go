// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package featurestore persists the four feature tables in a DuckDB
// database file and loads them into an immutable in-memory Store for
// serving.
//
// The builder publishes atomically: tables are written into a temporary
// database file which is checkpointed, closed, and renamed over the
// target path, so a partially written store is never visible to the
// serving process. The server loads the store once at startup; after
// Load returns, the Store is never mutated and is safe for unlocked
// concurrent reads from any number of request goroutines.
package featurestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/restockd/restockd/internal/config"
	"github.com/restockd/restockd/internal/features"
	"github.com/restockd/restockd/internal/logging"
	"github.com/restockd/restockd/internal/models"
)

// Sentinel errors for store loading. The serving process treats both as
// fatal startup errors.
var (
	// ErrStoreUnavailable indicates the store file is absent or unreadable.
	ErrStoreUnavailable = errors.New("feature store unavailable")

	// ErrStoreIncomplete indicates the store file exists but lacks one or
	// more feature tables.
	ErrStoreIncomplete = errors.New("feature store incomplete")
)

// pairKey identifies one (user, product) combination.
type pairKey struct {
	userID    int64
	productID int64
}

// Store holds the four feature tables in memory, keyed for the hash
// joins on the serving path. Immutable after construction.
type Store struct {
	users      map[int64]models.UserFeatures
	products   map[int64]models.ProductFeatures
	pairs      map[pairKey]models.UserProductFeatures
	candidates map[int64][]int64
}

// FromTables builds an in-memory Store directly from builder output.
// Used by tests to construct fixture stores without touching disk.
func FromTables(tables *features.Tables) *Store {
	s := &Store{
		users:      make(map[int64]models.UserFeatures, len(tables.Users)),
		products:   make(map[int64]models.ProductFeatures, len(tables.Products)),
		pairs:      make(map[pairKey]models.UserProductFeatures, len(tables.Pairs)),
		candidates: make(map[int64][]int64),
	}
	for _, u := range tables.Users {
		s.users[u.UserID] = u
	}
	for _, p := range tables.Products {
		s.products[p.ProductID] = p
	}
	for _, pr := range tables.Pairs {
		s.pairs[pairKey{pr.UserID, pr.ProductID}] = pr
	}
	for _, c := range tables.Candidates {
		s.candidates[c.UserID] = append(s.candidates[c.UserID], c.ProductID)
	}
	// Candidate lists are kept sorted so expansion order is deterministic.
	for _, ids := range s.candidates {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return s
}

// Load opens the persisted store read-only and loads all four tables
// into memory. The database handle is closed before returning; serving
// reads never touch disk.
func Load(ctx context.Context, cfg *config.StoreConfig) (*Store, error) {
	conn, err := openDuckDB(cfg, cfg.Path, "read_only")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer conn.Close()

	if err := verifyTables(ctx, conn); err != nil {
		return nil, err
	}

	s := &Store{
		users:      make(map[int64]models.UserFeatures),
		products:   make(map[int64]models.ProductFeatures),
		pairs:      make(map[pairKey]models.UserProductFeatures),
		candidates: make(map[int64][]int64),
	}

	if err := s.loadUsers(ctx, conn); err != nil {
		return nil, err
	}
	if err := s.loadProducts(ctx, conn); err != nil {
		return nil, err
	}
	if err := s.loadPairs(ctx, conn); err != nil {
		return nil, err
	}
	if err := s.loadCandidates(ctx, conn); err != nil {
		return nil, err
	}

	logging.Info().
		Int("users", len(s.users)).
		Int("products", len(s.products)).
		Int("pairs", len(s.pairs)).
		Int("candidate_users", len(s.candidates)).
		Str("path", cfg.Path).
		Msg("feature store loaded")

	return s, nil
}

func (s *Store) loadUsers(ctx context.Context, conn queryer) error {
	rows, err := conn.QueryContext(ctx,
		`SELECT user_id, total_orders, avg_days_since_prior, reorder_ratio FROM user_features`)
	if err != nil {
		return fmt.Errorf("failed to load user_features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.UserFeatures
		if err := rows.Scan(&u.UserID, &u.TotalOrders, &u.AvgDaysSincePrior, &u.ReorderRatio); err != nil {
			return fmt.Errorf("failed to scan user_features row: %w", err)
		}
		s.users[u.UserID] = u
	}
	return rows.Err()
}

func (s *Store) loadProducts(ctx context.Context, conn queryer) error {
	rows, err := conn.QueryContext(ctx,
		`SELECT product_id, total_purchases, reorder_prob, aisle_id, department_id FROM product_features`)
	if err != nil {
		return fmt.Errorf("failed to load product_features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.ProductFeatures
		if err := rows.Scan(&p.ProductID, &p.TotalPurchases, &p.ReorderProb, &p.AisleID, &p.DepartmentID); err != nil {
			return fmt.Errorf("failed to scan product_features row: %w", err)
		}
		s.products[p.ProductID] = p
	}
	return rows.Err()
}

func (s *Store) loadPairs(ctx context.Context, conn queryer) error {
	rows, err := conn.QueryContext(ctx,
		`SELECT user_id, product_id, total_orders, avg_position, order_rate, orders_since_last, streak
		 FROM user_product_features`)
	if err != nil {
		return fmt.Errorf("failed to load user_product_features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.UserProductFeatures
		if err := rows.Scan(&p.UserID, &p.ProductID, &p.TotalOrders, &p.AvgPosition,
			&p.OrderRate, &p.OrdersSinceLast, &p.Streak); err != nil {
			return fmt.Errorf("failed to scan user_product_features row: %w", err)
		}
		s.pairs[pairKey{p.UserID, p.ProductID}] = p
	}
	return rows.Err()
}

func (s *Store) loadCandidates(ctx context.Context, conn queryer) error {
	// Sorted by product_id so candidate expansion order is deterministic.
	rows, err := conn.QueryContext(ctx,
		`SELECT user_id, product_id FROM user_prior_products ORDER BY user_id, product_id`)
	if err != nil {
		return fmt.Errorf("failed to load user_prior_products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, productID int64
		if err := rows.Scan(&userID, &productID); err != nil {
			return fmt.Errorf("failed to scan user_prior_products row: %w", err)
		}
		s.candidates[userID] = append(s.candidates[userID], productID)
	}
	return rows.Err()
}

// User returns the feature row for a user, if one exists.
func (s *Store) User(userID int64) (models.UserFeatures, bool) {
	u, ok := s.users[userID]
	return u, ok
}

// Product returns the feature row for a product, if one exists.
func (s *Store) Product(productID int64) (models.ProductFeatures, bool) {
	p, ok := s.products[productID]
	return p, ok
}

// Pair returns the feature row for a (user, product) pair, if one
// exists. A candidate pair without a feature row is legal.
func (s *Store) Pair(userID, productID int64) (models.UserProductFeatures, bool) {
	p, ok := s.pairs[pairKey{userID, productID}]
	return p, ok
}

// CandidatesFor returns the user's candidate product IDs in ascending
// order. The returned slice is shared and must not be modified. A user
// with no history returns nil.
func (s *Store) CandidatesFor(userID int64) []int64 {
	return s.candidates[userID]
}

// Counts reports table sizes for the status endpoint.
func (s *Store) Counts() (users, products, pairs, candidateUsers int) {
	return len(s.users), len(s.products), len(s.pairs), len(s.candidates)
}

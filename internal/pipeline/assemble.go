// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package pipeline implements the serving path: candidate expansion,
// scoring-frame assembly via explicit hash joins, feature preparation
// into a dense matrix, classifier invocation, and deterministic top-k
// selection. The Pipeline holds an immutable feature store and
// classifier and is safe for concurrent request handling.
package pipeline

import (
	"github.com/restockd/restockd/internal/featurestore"
	"github.com/restockd/restockd/internal/models"
)

// Feature column names, in the exact order the classifier was trained
// with. The matrix column index is the position in this slice.
var FeatureColumns = []string{
	"up_total_orders",
	"up_order_rate",
	"up_avg_position",
	"up_orders_since_last",
	"up_streak",
	"user_total_orders",
	"user_avg_days_since_prior",
	"user_reorder_ratio",
	"prod_total_purchases",
	"prod_reorder_prob",
	"aisle_id",
	"department_id",
	"order_dow",
	"order_hour_of_day",
	"days_since_prior_order",
}

// ScoringRow is one candidate (order, user, product) with its joined
// feature values. A key absent from values is a per-row join miss and
// scores as 0.
type ScoringRow struct {
	OrderID   int64
	UserID    int64
	ProductID int64
	values    map[string]float64
}

// Frame is the assembled scoring frame for one request. populated
// records which feature columns the assembly joins are wired to
// produce. It is derived from assemblySources rather than from
// FeatureColumns, so a column added to the matrix layout without a join
// producing it surfaces as a schema error in Prepare instead of
// silently scoring as zero. A column missing there is a schema defect,
// distinct from a per-row join miss.
type Frame struct {
	Rows      []ScoringRow
	populated map[string]bool
}

// assemblySources lists the columns each join source contributes, in
// join order: user-product pair features, user features, product
// features, request context. Prepare checks their union covers
// FeatureColumns.
var assemblySources = [][]string{
	{"up_total_orders", "up_order_rate", "up_avg_position", "up_orders_since_last", "up_streak"},
	{"user_total_orders", "user_avg_days_since_prior", "user_reorder_ratio"},
	{"prod_total_purchases", "prod_reorder_prob", "aisle_id", "department_id"},
	{"order_dow", "order_hour_of_day", "days_since_prior_order"},
}

// Assemble expands each order's candidate set and performs the hash
// joins in a fixed order: user-product pair features, user features,
// product features, then the request context. Candidates are
// left-preserved: a missing pair, user, or product row zero-fills
// rather than dropping the candidate. Orders are processed in input
// order; within an order, candidates come back sorted by product_id
// from the store, so row order is fully deterministic.
func Assemble(store *featurestore.Store, orders []models.OrderContext) *Frame {
	f := &Frame{populated: make(map[string]bool, len(FeatureColumns))}
	for _, cols := range assemblySources {
		for _, col := range cols {
			f.populated[col] = true
		}
	}

	for _, order := range orders {
		for _, productID := range store.CandidatesFor(order.UserID) {
			row := ScoringRow{
				OrderID:   order.OrderID,
				UserID:    order.UserID,
				ProductID: productID,
				values:    make(map[string]float64, len(FeatureColumns)),
			}

			if pair, ok := store.Pair(order.UserID, productID); ok {
				row.values["up_total_orders"] = float64(pair.TotalOrders)
				row.values["up_order_rate"] = pair.OrderRate
				row.values["up_avg_position"] = pair.AvgPosition
				row.values["up_orders_since_last"] = float64(pair.OrdersSinceLast)
				row.values["up_streak"] = float64(pair.Streak)
			}

			if user, ok := store.User(order.UserID); ok {
				row.values["user_total_orders"] = float64(user.TotalOrders)
				row.values["user_avg_days_since_prior"] = user.AvgDaysSincePrior
				row.values["user_reorder_ratio"] = user.ReorderRatio
			}

			if prod, ok := store.Product(productID); ok {
				row.values["prod_total_purchases"] = float64(prod.TotalPurchases)
				row.values["prod_reorder_prob"] = prod.ReorderProb
				row.values["aisle_id"] = float64(prod.AisleID)
				row.values["department_id"] = float64(prod.DepartmentID)
			}

			// Request context applies to every candidate of the order.
			// days_since_prior_order is validated as present at the
			// transport layer.
			row.values["order_dow"] = float64(order.OrderDOW)
			row.values["order_hour_of_day"] = float64(order.OrderHour)
			row.values["days_since_prior_order"] = order.DaysSincePrior

			f.Rows = append(f.Rows, row)
		}
	}

	return f
}

// Value returns a row's feature value, zero-filling per-row misses.
func (r *ScoringRow) Value(column string) float64 {
	return r.values[column]
}

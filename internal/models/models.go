// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package models defines the shared data types of the Restockd pipeline:
// the raw purchase records consumed by the feature builder, the four
// feature-table row types held by the feature store, and the serving
// request/response types.
package models

// Order is a raw order header from the historical order log.
type Order struct {
	OrderID     int64 `json:"order_id"`
	UserID      int64 `json:"user_id"`
	OrderNumber int   `json:"order_number"`

	// OrderDOW is an opaque day-of-week code 0-6. It carries no calendar
	// semantics; it only has to match between training and serving.
	OrderDOW int `json:"order_dow"`

	// OrderHour is the hour of day 0-23.
	OrderHour int `json:"order_hour_of_day"`

	// DaysSincePrior is days since the user's previous order. It is
	// absent for a user's first order; HasDaysSincePrior is false then
	// and the value is treated as 0 wherever a mean is taken.
	DaysSincePrior    float64 `json:"days_since_prior_order"`
	HasDaysSincePrior bool    `json:"-"`
}

// BasketItem is a raw order line item. Many items belong to one order.
type BasketItem struct {
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`

	// AddToCartOrder is the 1-based position of the item in its order.
	AddToCartOrder int `json:"add_to_cart_order"`

	// Reordered is 1 when the user had purchased this product before.
	Reordered int `json:"reordered"`
}

// Product is raw product metadata.
type Product struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"product_name"`
	AisleID      int64  `json:"aisle_id"`
	DepartmentID int64  `json:"department_id"`
}

// UserFeatures aggregates a user's order history. One row per user.
type UserFeatures struct {
	UserID int64 `json:"user_id"`

	// TotalOrders is the max order_number observed for the user.
	TotalOrders int `json:"total_orders"`

	// AvgDaysSincePrior is the mean days_since_prior_order over the
	// user's orders, absent values counted as 0.
	AvgDaysSincePrior float64 `json:"avg_days_since_prior"`

	// ReorderRatio is the fraction of the user's historical basket items
	// flagged as reorders.
	ReorderRatio float64 `json:"reorder_ratio"`
}

// ProductFeatures aggregates a product's purchase history. One row per
// product.
type ProductFeatures struct {
	ProductID int64 `json:"product_id"`

	// TotalPurchases counts historical basket items for the product.
	TotalPurchases int64 `json:"total_purchases"`

	// ReorderProb is the mean reordered flag over those items.
	ReorderProb float64 `json:"reorder_prob"`

	AisleID      int64 `json:"aisle_id"`
	DepartmentID int64 `json:"department_id"`
}

// UserProductFeatures aggregates one (user, product) purchase history.
// A row exists only for pairs that co-occurred at least once.
type UserProductFeatures struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`

	// TotalOrders counts historical orders containing the pair.
	TotalOrders int `json:"total_orders"`

	// AvgPosition is the mean add-to-cart position.
	AvgPosition float64 `json:"avg_position"`

	// OrderRate is TotalOrders divided by the user's total orders;
	// 0 when the user has no orders.
	OrderRate float64 `json:"order_rate"`

	// OrdersSinceLast is the user's total orders minus the last
	// order_number containing the pair. Never negative.
	OrdersSinceLast int `json:"orders_since_last"`

	// Streak is the length of the most recent unbroken run of
	// consecutive orders containing the product.
	Streak int `json:"streak"`
}

// CandidatePair marks a (user, product) combination as eligible for
// scoring. Products a user has never purchased are never recommended.
type CandidatePair struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
}

// OrderContext is a validated incoming order to generate recommendations
// for. All fields are required at the transport layer.
type OrderContext struct {
	OrderID        int64   `json:"order_id"`
	UserID         int64   `json:"user_id"`
	OrderDOW       int     `json:"order_dow"`
	OrderHour      int     `json:"order_hour_of_day"`
	DaysSincePrior float64 `json:"days_since_prior_order"`
}

// Recommendation is one scored product for one order.
type Recommendation struct {
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Score     float64 `json:"score"`
}

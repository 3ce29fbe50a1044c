// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package features turns raw purchase history into the four aggregated
// feature tables served by the feature store: per-user, per-product and
// per-(user,product) aggregates plus the candidate-pair set.
//
// Build is deterministic: it depends only on the input values, never on
// row order or map iteration order. Output slices are sorted by their
// keys so repeated builds over the same raw data produce identical
// tables.
package features

import (
	"sort"

	"github.com/restockd/restockd/internal/models"
)

// Tables holds the four feature tables produced by one builder run.
type Tables struct {
	Users      []models.UserFeatures
	Products   []models.ProductFeatures
	Pairs      []models.UserProductFeatures
	Candidates []models.CandidatePair
}

// pairKey identifies one (user, product) combination.
type pairKey struct {
	userID    int64
	productID int64
}

// orderMeta is the order-header context joined onto basket items.
type orderMeta struct {
	userID      int64
	orderNumber int
}

// pairAgg accumulates per-(user,product) aggregates during the scan.
type pairAgg struct {
	orders       int
	positionSum  float64
	lastOrderNum int
	orderNumbers []int
}

// userAgg accumulates per-user aggregates during the scan.
type userAgg struct {
	maxOrderNumber int
	daysSum        float64
	orderCount     int
	priorItems     int
	priorReorders  int
}

// prodAgg accumulates per-product aggregates during the scan.
type prodAgg struct {
	purchases int64
	reorders  int64
}

// Build computes the four feature tables from raw history.
//
// Basket items whose order_id has no matching order header carry no user
// context and are skipped, mirroring how a grouped join drops unmatched
// keys. Division by a user with zero orders yields a zero order rate, and
// orders_since_last is clamped to be non-negative.
func Build(orders []models.Order, items []models.BasketItem, products []models.Product) *Tables {
	orderIndex := make(map[int64]orderMeta, len(orders))
	users := make(map[int64]*userAgg)
	for _, o := range orders {
		orderIndex[o.OrderID] = orderMeta{userID: o.UserID, orderNumber: o.OrderNumber}

		u := users[o.UserID]
		if u == nil {
			u = &userAgg{}
			users[o.UserID] = u
		}
		if o.OrderNumber > u.maxOrderNumber {
			u.maxOrderNumber = o.OrderNumber
		}
		// Absent days_since_prior_order counts as 0 in the mean.
		if o.HasDaysSincePrior {
			u.daysSum += o.DaysSincePrior
		}
		u.orderCount++
	}

	prods := make(map[int64]*prodAgg)
	pairs := make(map[pairKey]*pairAgg)
	for _, it := range items {
		meta, ok := orderIndex[it.OrderID]
		if !ok {
			continue // no order header, no user context
		}

		u := users[meta.userID]
		u.priorItems++
		if it.Reordered != 0 {
			u.priorReorders++
		}

		p := prods[it.ProductID]
		if p == nil {
			p = &prodAgg{}
			prods[it.ProductID] = p
		}
		p.purchases++
		if it.Reordered != 0 {
			p.reorders++
		}

		key := pairKey{userID: meta.userID, productID: it.ProductID}
		pa := pairs[key]
		if pa == nil {
			pa = &pairAgg{}
			pairs[key] = pa
		}
		pa.orders++
		pa.positionSum += float64(it.AddToCartOrder)
		if meta.orderNumber > pa.lastOrderNum {
			pa.lastOrderNum = meta.orderNumber
		}
		pa.orderNumbers = append(pa.orderNumbers, meta.orderNumber)
	}

	productMeta := make(map[int64]models.Product, len(products))
	for _, p := range products {
		productMeta[p.ProductID] = p
	}

	return &Tables{
		Users:      buildUserRows(users),
		Products:   buildProductRows(prods, productMeta),
		Pairs:      buildPairRows(pairs, users),
		Candidates: buildCandidateRows(pairs),
	}
}

func buildUserRows(users map[int64]*userAgg) []models.UserFeatures {
	rows := make([]models.UserFeatures, 0, len(users))
	for id, u := range users {
		row := models.UserFeatures{
			UserID:      id,
			TotalOrders: u.maxOrderNumber,
		}
		if u.orderCount > 0 {
			row.AvgDaysSincePrior = u.daysSum / float64(u.orderCount)
		}
		if u.priorItems > 0 {
			row.ReorderRatio = float64(u.priorReorders) / float64(u.priorItems)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows
}

func buildProductRows(prods map[int64]*prodAgg, meta map[int64]models.Product) []models.ProductFeatures {
	rows := make([]models.ProductFeatures, 0, len(prods))
	for id, p := range prods {
		row := models.ProductFeatures{
			ProductID:      id,
			TotalPurchases: p.purchases,
			ReorderProb:    float64(p.reorders) / float64(p.purchases),
		}
		if m, ok := meta[id]; ok {
			row.AisleID = m.AisleID
			row.DepartmentID = m.DepartmentID
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ProductID < rows[j].ProductID })
	return rows
}

func buildPairRows(pairs map[pairKey]*pairAgg, users map[int64]*userAgg) []models.UserProductFeatures {
	rows := make([]models.UserProductFeatures, 0, len(pairs))
	for key, pa := range pairs {
		row := models.UserProductFeatures{
			UserID:      key.userID,
			ProductID:   key.productID,
			TotalOrders: pa.orders,
			AvgPosition: pa.positionSum / float64(pa.orders),
			Streak:      Streak(pa.orderNumbers),
		}

		userTotal := 0
		if u := users[key.userID]; u != nil {
			userTotal = u.maxOrderNumber
		}
		if userTotal > 0 {
			row.OrderRate = float64(pa.orders) / float64(userTotal)
		}
		if since := userTotal - pa.lastOrderNum; since > 0 {
			row.OrdersSinceLast = since
		}

		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].UserID != rows[j].UserID {
			return rows[i].UserID < rows[j].UserID
		}
		return rows[i].ProductID < rows[j].ProductID
	})
	return rows
}

func buildCandidateRows(pairs map[pairKey]*pairAgg) []models.CandidatePair {
	rows := make([]models.CandidatePair, 0, len(pairs))
	for key := range pairs {
		rows = append(rows, models.CandidatePair{UserID: key.userID, ProductID: key.productID})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].UserID != rows[j].UserID {
			return rows[i].UserID < rows[j].UserID
		}
		return rows[i].ProductID < rows[j].ProductID
	})
	return rows
}

// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package pipeline

import (
	"sort"

	"github.com/restockd/restockd/internal/models"
)

// scored pairs one frame row with its probability, preserving the
// row's assembly position for stable tie-breaking.
type scored struct {
	orderID   int64
	productID int64
	score     float64
}

// SelectTopK partitions scored rows by order_id, sorts each partition
// by score descending with ties keeping assembly order, and keeps the
// first k per order. Orders are emitted in ascending order_id; an order
// whose partition is empty contributes nothing.
func SelectTopK(rows []ScoringRow, probs []float32, k int) []models.Recommendation {
	if k <= 0 || len(rows) == 0 {
		return []models.Recommendation{}
	}

	groups := make(map[int64][]scored)
	orderIDs := make([]int64, 0)
	for i, row := range rows {
		if _, seen := groups[row.OrderID]; !seen {
			orderIDs = append(orderIDs, row.OrderID)
		}
		groups[row.OrderID] = append(groups[row.OrderID], scored{
			orderID:   row.OrderID,
			productID: row.ProductID,
			score:     float64(probs[i]),
		})
	}
	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })

	recs := make([]models.Recommendation, 0, len(rows))
	for _, orderID := range orderIDs {
		group := groups[orderID]
		sort.SliceStable(group, func(i, j int) bool { return group[i].score > group[j].score })

		n := k
		if n > len(group) {
			n = len(group)
		}
		for _, s := range group[:n] {
			recs = append(recs, models.Recommendation{
				OrderID:   s.orderID,
				ProductID: s.productID,
				Score:     s.score,
			})
		}
	}
	return recs
}

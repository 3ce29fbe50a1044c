// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package features

import "sort"

// Streak returns the length of the most recent unbroken run of
// consecutive order numbers in the set: how many orders in a row, ending
// at the most recent, contained the product.
//
// The scan is inherently sequential (a backward walk over the sorted
// numbers) and is kept as an explicit loop: starting from the most recent
// order number, the streak grows while the immediately preceding number
// in the sorted set equals current-1, and stops at the first gap.
//
// An empty set yields 0. The input slice is not modified.
func Streak(orderNumbers []int) int {
	if len(orderNumbers) == 0 {
		return 0
	}

	sorted := make([]int, len(orderNumbers))
	copy(sorted, orderNumbers)
	sort.Ints(sorted)

	streak := 1
	for i := len(sorted) - 2; i >= 0; i-- {
		if sorted[i] != sorted[i+1]-1 {
			break
		}
		streak++
	}
	return streak
}

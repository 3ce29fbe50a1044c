// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema indicates the assembled frame is missing one or more
// feature columns at the schema level. This is a deploy-time defect in
// the feature store or assembly code, never a property of a single
// request; it is reported, not patched.
var ErrSchema = errors.New("scoring frame schema error")

// Prepare converts the frame into a dense row-major float32 matrix with
// one column per FeatureColumns entry, in that order. Every feature
// column must be populated at the schema level; per-row misses fill
// with 0. The matrix is freshly allocated and never aliases the frame.
func Prepare(f *Frame) ([][]float32, error) {
	var missing []string
	for _, col := range FeatureColumns {
		if !f.populated[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns: %s", ErrSchema, strings.Join(missing, ", "))
	}

	matrix := make([][]float32, len(f.Rows))
	for i := range f.Rows {
		row := make([]float32, len(FeatureColumns))
		for j, col := range FeatureColumns {
			row[j] = float32(f.Rows[i].Value(col))
		}
		matrix[i] = row
	}
	return matrix, nil
}

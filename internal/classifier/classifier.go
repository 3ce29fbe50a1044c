// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package classifier scores prepared feature matrices. The serving
// pipeline depends only on the Classifier interface; the concrete
// implementation is a gradient-boosted decision tree ensemble loaded
// from a JSON model file exported by the offline training job.
package classifier

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"

	"github.com/restockd/restockd/internal/logging"
)

// Classifier turns a dense row-major feature matrix into one reorder
// probability per row. Implementations must be pure: no side effects,
// no retained references to the input, safe for concurrent calls.
type Classifier interface {
	// PredictProba returns probabilities in [0,1], index-aligned with
	// the input rows.
	PredictProba(ctx context.Context, matrix [][]float32) ([]float32, error)

	// NumFeatures is the expected width of every input row.
	NumFeatures() int
}

// node is one decision node of a boosted tree. Leaves have Left == -1
// and Right == -1; Value then holds the leaf margin.
type node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func (n *node) isLeaf() bool {
	return n.Left < 0 && n.Right < 0
}

// tree is one member of the ensemble, stored as a flat node array with
// index 0 as the root.
type tree struct {
	Nodes []node `json:"nodes"`
}

// modelFile is the on-disk JSON layout of an exported model.
type modelFile struct {
	NumFeatures int     `json:"num_features"`
	BaseScore   float64 `json:"base_score"`
	Trees       []tree  `json:"trees"`
}

// GBDT is a gradient-boosted decision tree ensemble for binary
// classification. Tree margins are summed onto the base score and
// squashed through the logistic function. Immutable after Load.
type GBDT struct {
	numFeatures int
	baseScore   float64
	trees       []tree
}

// Load reads and validates a JSON model file.
func Load(path string) (*GBDT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}

	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse model file %s: %w", path, err)
	}

	m := &GBDT{
		numFeatures: mf.NumFeatures,
		baseScore:   mf.BaseScore,
		trees:       mf.Trees,
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid model file %s: %w", path, err)
	}

	logging.Info().
		Int("trees", len(m.trees)).
		Int("num_features", m.numFeatures).
		Str("path", path).
		Msg("classifier model loaded")

	return m, nil
}

// validate checks structural soundness so scoring never indexes out of
// bounds or loops: feature indices within the declared width, child
// indices strictly increasing within the node array, no trivially
// empty trees.
func (m *GBDT) validate() error {
	if m.numFeatures <= 0 {
		return fmt.Errorf("num_features must be positive, got %d", m.numFeatures)
	}
	if len(m.trees) == 0 {
		return fmt.Errorf("model contains no trees")
	}
	for ti, t := range m.trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.isLeaf() {
				continue
			}
			if n.Feature < 0 || n.Feature >= m.numFeatures {
				return fmt.Errorf("tree %d node %d references feature %d outside [0,%d)",
					ti, ni, n.Feature, m.numFeatures)
			}
			// Children must point forward in the node array. This keeps
			// them in bounds and guarantees every walk terminates; a
			// self-referencing or backward edge would make score loop
			// forever.
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d has child index outside (%d,%d)",
					ti, ni, ni, len(t.Nodes))
			}
		}
	}
	return nil
}

// NumFeatures returns the feature-vector width the model was trained
// with.
func (m *GBDT) NumFeatures() int {
	return m.numFeatures
}

// PredictProba scores each row independently. Rows must all have width
// NumFeatures; a ragged matrix is an error.
func (m *GBDT) PredictProba(ctx context.Context, matrix [][]float32) ([]float32, error) {
	probs := make([]float32, len(matrix))
	for i, row := range matrix {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(row) != m.numFeatures {
			return nil, fmt.Errorf("row %d has %d features, model expects %d",
				i, len(row), m.numFeatures)
		}
		margin := m.baseScore
		for ti := range m.trees {
			margin += m.trees[ti].score(row)
		}
		probs[i] = float32(sigmoid(margin))
	}
	return probs, nil
}

// score walks the tree from the root to a leaf for one row. Splits are
// "feature < threshold goes left", matching the exporter.
func (t *tree) score(row []float32) float64 {
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.isLeaf() {
			return n.Value
		}
		if float64(row[n.Feature]) < n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

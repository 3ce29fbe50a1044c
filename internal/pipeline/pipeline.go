// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package pipeline

import (
	"context"
	"fmt"

	"github.com/restockd/restockd/internal/classifier"
	"github.com/restockd/restockd/internal/config"
	"github.com/restockd/restockd/internal/featurestore"
	"github.com/restockd/restockd/internal/metrics"
	"github.com/restockd/restockd/internal/models"
)

// Pipeline is the immutable serving context: the loaded feature store,
// the classifier, and the top-k bounds. Shared read-only across request
// goroutines.
type Pipeline struct {
	store    *featurestore.Store
	clf      classifier.Classifier
	defaultK int
	maxK     int
}

// New builds a Pipeline and verifies the classifier's expected feature
// width matches the prepared matrix, so a model/pipeline mismatch is
// caught at startup instead of on the first request.
func New(store *featurestore.Store, clf classifier.Classifier, cfg *config.APIConfig) (*Pipeline, error) {
	if got, want := clf.NumFeatures(), len(FeatureColumns); got != want {
		return nil, fmt.Errorf("classifier expects %d features, pipeline produces %d", got, want)
	}
	return &Pipeline{
		store:    store,
		clf:      clf,
		defaultK: cfg.DefaultK,
		maxK:     cfg.MaxK,
	}, nil
}

// Store exposes the underlying feature store for the status endpoint.
func (p *Pipeline) Store() *featurestore.Store {
	return p.store
}

// Recommend scores every candidate product of every order in one pass
// and returns the per-order top-k recommendations, orders in ascending
// order_id. k <= 0 selects the configured default; k is capped at the
// configured maximum. Orders without purchase history yield no
// recommendations, which is not an error. The classifier is not invoked
// when no order has candidates.
func (p *Pipeline) Recommend(ctx context.Context, orders []models.OrderContext, k int) ([]models.Recommendation, error) {
	if k <= 0 {
		k = p.defaultK
	}
	if k > p.maxK {
		k = p.maxK
	}

	frame := Assemble(p.store, orders)
	metrics.PredictCandidatesScored.Observe(float64(len(frame.Rows)))
	if len(frame.Rows) == 0 {
		return []models.Recommendation{}, nil
	}

	matrix, err := Prepare(frame)
	if err != nil {
		return nil, err
	}

	probs, err := p.clf.PredictProba(ctx, matrix)
	if err != nil {
		return nil, fmt.Errorf("classifier failed: %w", err)
	}
	if len(probs) != len(frame.Rows) {
		return nil, fmt.Errorf("classifier returned %d scores for %d rows", len(probs), len(frame.Rows))
	}

	return SelectTopK(frame.Rows, probs, k), nil
}

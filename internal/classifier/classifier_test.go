// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package classifier

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// stumpModel is a two-feature model with a single decision stump:
// feature 0 < 2.5 gives margin -1, otherwise +1.
const stumpModel = `{
	"num_features": 2,
	"base_score": 0.0,
	"trees": [
		{"nodes": [
			{"feature": 0, "threshold": 2.5, "left": 1, "right": 2},
			{"feature": 0, "threshold": 0, "left": -1, "right": -1, "value": -1.0},
			{"feature": 0, "threshold": 0, "left": -1, "right": -1, "value": 1.0}
		]}
	]
}`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write model fixture: %v", err)
	}
	return path
}

func TestLoadAndPredict(t *testing.T) {
	m, err := Load(writeModel(t, stumpModel))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.NumFeatures() != 2 {
		t.Fatalf("NumFeatures() = %d, want 2", m.NumFeatures())
	}

	probs, err := m.PredictProba(context.Background(), [][]float32{
		{1.0, 0.0},
		{3.0, 0.0},
	})
	if err != nil {
		t.Fatalf("PredictProba() error: %v", err)
	}

	// sigmoid(-1) and sigmoid(+1).
	want := []float64{1.0 / (1.0 + math.E), math.E / (1.0 + math.E)}
	for i, w := range want {
		if math.Abs(float64(probs[i])-w) > 1e-6 {
			t.Errorf("probs[%d] = %v, want %v", i, probs[i], w)
		}
	}
	if probs[0] >= 0.5 || probs[1] <= 0.5 {
		t.Errorf("stump did not separate rows: %v", probs)
	}
}

func TestPredictMultipleTreesSumMargins(t *testing.T) {
	two := `{
		"num_features": 1,
		"base_score": 0.5,
		"trees": [
			{"nodes": [{"feature": 0, "threshold": 0, "left": -1, "right": -1, "value": 0.25}]},
			{"nodes": [{"feature": 0, "threshold": 0, "left": -1, "right": -1, "value": 0.25}]}
		]
	}`
	m, err := Load(writeModel(t, two))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	probs, err := m.PredictProba(context.Background(), [][]float32{{0}})
	if err != nil {
		t.Fatalf("PredictProba() error: %v", err)
	}
	want := 1.0 / (1.0 + math.Exp(-1.0))
	if math.Abs(float64(probs[0])-want) > 1e-6 {
		t.Errorf("probs[0] = %v, want sigmoid(1.0) = %v", probs[0], want)
	}
}

func TestPredictRejectsRaggedMatrix(t *testing.T) {
	m, err := Load(writeModel(t, stumpModel))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if _, err := m.PredictProba(context.Background(), [][]float32{{1.0}}); err == nil {
		t.Error("PredictProba() accepted a row narrower than the model")
	}
}

func TestPredictEmptyMatrix(t *testing.T) {
	m, err := Load(writeModel(t, stumpModel))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	probs, err := m.PredictProba(context.Background(), nil)
	if err != nil {
		t.Fatalf("PredictProba() error: %v", err)
	}
	if len(probs) != 0 {
		t.Errorf("got %d probabilities for empty input", len(probs))
	}
}

func TestLoadRejectsInvalidModels(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing file is handled separately", ""},
		{"not json", `{`},
		{"no trees", `{"num_features": 2, "trees": []}`},
		{"zero features", `{"num_features": 0, "trees": [{"nodes": [{"left": -1, "right": -1}]}]}`},
		{
			"feature out of range",
			`{"num_features": 1, "trees": [{"nodes": [
				{"feature": 5, "threshold": 0, "left": 1, "right": 2},
				{"left": -1, "right": -1}, {"left": -1, "right": -1}
			]}]}`,
		},
		{
			"child out of range",
			`{"num_features": 1, "trees": [{"nodes": [
				{"feature": 0, "threshold": 0, "left": 1, "right": 9}
			]}]}`,
		},
		{
			"self-referencing child",
			`{"num_features": 1, "trees": [{"nodes": [
				{"feature": 0, "threshold": 0, "left": 0, "right": 1},
				{"left": -1, "right": -1}
			]}]}`,
		},
		{
			"backward child edge",
			`{"num_features": 1, "trees": [{"nodes": [
				{"feature": 0, "threshold": 0, "left": 1, "right": 2},
				{"left": -1, "right": -1},
				{"feature": 0, "threshold": 1, "left": 1, "right": 0}
			]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeModel(t, tt.content)); err == nil {
				t.Errorf("Load() accepted invalid model %q", tt.name)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Load() succeeded for an absent file")
	}
}

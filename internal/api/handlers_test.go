// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/restockd/restockd/internal/config"
	"github.com/restockd/restockd/internal/features"
	"github.com/restockd/restockd/internal/featurestore"
	"github.com/restockd/restockd/internal/models"
	"github.com/restockd/restockd/internal/pipeline"
)

// halfScorer assigns every candidate the same probability, so output
// order falls back to assembly order.
type halfScorer struct{}

func (halfScorer) NumFeatures() int { return len(pipeline.FeatureColumns) }

func (halfScorer) PredictProba(_ context.Context, matrix [][]float32) ([]float32, error) {
	out := make([]float32, len(matrix))
	for i := range out {
		out[i] = 0.5
	}
	return out, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.API.RateLimitDisabled = true
	return cfg
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	store := featurestore.FromTables(&features.Tables{
		Users: []models.UserFeatures{{UserID: 7, TotalOrders: 3, AvgDaysSincePrior: 5, ReorderRatio: 0.5}},
		Products: []models.ProductFeatures{
			{ProductID: 42, TotalPurchases: 3, ReorderProb: 0.6, AisleID: 24, DepartmentID: 4},
			{ProductID: 55, TotalPurchases: 1, AisleID: 84, DepartmentID: 16},
		},
		Pairs: []models.UserProductFeatures{
			{UserID: 7, ProductID: 42, TotalOrders: 3, AvgPosition: 2, OrderRate: 1, Streak: 3},
			{UserID: 7, ProductID: 55, TotalOrders: 1, AvgPosition: 1, OrderRate: 1.0 / 3.0, OrdersSinceLast: 1, Streak: 1},
		},
		Candidates: []models.CandidatePair{
			{UserID: 7, ProductID: 42},
			{UserID: 7, ProductID: 55},
		},
	})

	cfg := testConfig()
	p, err := pipeline.New(store, halfScorer{}, &cfg.API)
	if err != nil {
		t.Fatalf("pipeline.New() error: %v", err)
	}
	return NewRouter(NewHandler(p, cfg), cfg)
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return &resp
}

func TestPredictWrappedBatch(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(t, h, http.MethodPost, "/api/v1/predict",
		`{"orders":[{"order_id":100,"user_id":7,"order_dow":1,"order_hour_of_day":10,"days_since_prior_order":5}],"k":5}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Status != "success" {
		t.Errorf("envelope status = %q, want success", resp.Status)
	}

	data, _ := json.Marshal(resp.Data)
	var pr predictResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		t.Fatalf("failed to decode data payload: %v", err)
	}
	if len(pr.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(pr.Recommendations))
	}
	for _, rec := range pr.Recommendations {
		if rec.OrderID != 100 {
			t.Errorf("recommendation for order %d, want 100", rec.OrderID)
		}
		if rec.Score != 0.5 {
			t.Errorf("score = %v, want 0.5", rec.Score)
		}
	}
}

func TestPredictBareOrder(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(t, h, http.MethodPost, "/api/v1/predict",
		`{"order_id":100,"user_id":7,"order_dow":1,"order_hour_of_day":10,"days_since_prior_order":5}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for bare order; body: %s", w.Code, w.Body.String())
	}
}

func TestPredictValidationErrors(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			"missing user_id",
			`{"orders":[{"order_id":100,"order_dow":1,"order_hour_of_day":10,"days_since_prior_order":5}]}`,
			"UserID",
		},
		{
			"missing order_dow",
			`{"orders":[{"order_id":100,"user_id":7,"order_hour_of_day":10,"days_since_prior_order":5}]}`,
			"OrderDOW",
		},
		{
			"missing days_since_prior_order",
			`{"orders":[{"order_id":100,"user_id":7,"order_dow":1,"order_hour_of_day":10}]}`,
			"DaysSincePrior",
		},
		{
			"order_dow out of range",
			`{"orders":[{"order_id":100,"user_id":7,"order_dow":9,"order_hour_of_day":10,"days_since_prior_order":5}]}`,
			"OrderDOW",
		},
		{
			"hour out of range",
			`{"orders":[{"order_id":100,"user_id":7,"order_dow":1,"order_hour_of_day":24,"days_since_prior_order":5}]}`,
			"OrderHour",
		},
		{
			"negative days_since_prior_order",
			`{"orders":[{"order_id":100,"user_id":7,"order_dow":1,"order_hour_of_day":10,"days_since_prior_order":-1}]}`,
			"DaysSincePrior",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, h, http.MethodPost, "/api/v1/predict", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
			}
			resp := decodeEnvelope(t, w)
			if resp.Error == nil || resp.Error.Code != ErrCodeValidation {
				t.Fatalf("error = %+v, want code %s", resp.Error, ErrCodeValidation)
			}
			if !strings.Contains(resp.Error.Message, tt.wantField) {
				t.Errorf("message %q does not name field %q", resp.Error.Message, tt.wantField)
			}
		})
	}
}

func TestPredictExplicitZeroDaysAccepted(t *testing.T) {
	h := newTestServer(t)

	// An explicit 0 is a legitimate value; only absence is rejected.
	w := doRequest(t, h, http.MethodPost, "/api/v1/predict",
		`{"order_id":100,"user_id":7,"order_dow":1,"order_hour_of_day":10,"days_since_prior_order":0}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for explicit zero days; body: %s", w.Code, w.Body.String())
	}
}

func TestPredictWholeBatchRejected(t *testing.T) {
	h := newTestServer(t)

	// Second order is invalid; no recommendations may come back for the
	// valid first order.
	w := doRequest(t, h, http.MethodPost, "/api/v1/predict",
		`{"orders":[
			{"order_id":100,"user_id":7,"order_dow":1,"order_hour_of_day":10,"days_since_prior_order":5},
			{"order_id":101,"order_dow":1,"order_hour_of_day":10,"days_since_prior_order":5}
		]}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Details["order_index"] != float64(1) {
		t.Errorf("error details = %+v, want order_index 1", resp.Error)
	}
}

func TestPredictInvalidJSON(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(t, h, http.MethodPost, "/api/v1/predict", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != ErrCodeInvalidJSON {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeInvalidJSON)
	}
}

func TestPredictEmptyOrders(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(t, h, http.MethodPost, "/api/v1/predict", `{"orders":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty orders", w.Code)
	}
}

func TestPredictBatchTooLarge(t *testing.T) {
	store := featurestore.FromTables(&features.Tables{})
	cfg := testConfig()
	cfg.API.MaxBatchOrders = 2

	p, err := pipeline.New(store, halfScorer{}, &cfg.API)
	if err != nil {
		t.Fatalf("pipeline.New() error: %v", err)
	}
	h := NewRouter(NewHandler(p, cfg), cfg)

	w := doRequest(t, h, http.MethodPost, "/api/v1/predict",
		`{"orders":[
			{"order_id":1,"user_id":7,"order_dow":1,"order_hour_of_day":1,"days_since_prior_order":2},
			{"order_id":2,"user_id":7,"order_dow":1,"order_hour_of_day":1,"days_since_prior_order":2},
			{"order_id":3,"user_id":7,"order_dow":1,"order_hour_of_day":1,"days_since_prior_order":2}
		]}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != ErrCodeBatchTooLarge {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeBatchTooLarge)
	}
}

func TestPredictNoHistoryUserReturnsEmptyList(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(t, h, http.MethodPost, "/api/v1/predict",
		`{"order_id":900,"user_id":424242,"order_dow":0,"order_hour_of_day":0,"days_since_prior_order":0}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for no-history user", w.Code)
	}
	resp := decodeEnvelope(t, w)
	data, _ := json.Marshal(resp.Data)
	var pr predictResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		t.Fatalf("failed to decode data payload: %v", err)
	}
	if len(pr.Recommendations) != 0 {
		t.Errorf("got %d recommendations, want empty list", len(pr.Recommendations))
	}
}

func TestStatus(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(t, h, http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeEnvelope(t, w)

	data, _ := json.Marshal(resp.Data)
	var sr statusResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		t.Fatalf("failed to decode status payload: %v", err)
	}
	if sr.Store.Users != 1 || sr.Store.Products != 2 || sr.Store.Pairs != 2 {
		t.Errorf("store counts = %+v, want 1 user, 2 products, 2 pairs", sr.Store)
	}
	if !sr.ModelLoaded {
		t.Error("ModelLoaded = false, want true")
	}
}

func TestHealthAndReady(t *testing.T) {
	h := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		w := doRequest(t, h, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "test-correlation-id")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "test-correlation-id" {
		t.Errorf("X-Request-ID = %q, want echoed test-correlation-id", got)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(t, h, http.MethodGet, "/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set on response")
	}
}

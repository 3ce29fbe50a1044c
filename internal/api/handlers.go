// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package api provides the HTTP transport for the recommendation
// pipeline: a Chi router, the predict/status/health handlers, and the
// standard response envelope. The transport stays thin; all scoring
// semantics live in internal/pipeline.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/restockd/restockd/internal/config"
	"github.com/restockd/restockd/internal/logging"
	"github.com/restockd/restockd/internal/metrics"
	"github.com/restockd/restockd/internal/models"
	"github.com/restockd/restockd/internal/pipeline"
)

// maxRequestBody bounds predict request bodies at 4 MiB.
const maxRequestBody = 4 << 20

// Handler holds the serving dependencies for all endpoints.
type Handler struct {
	pipeline  *pipeline.Pipeline
	cfg       *config.Config
	startTime time.Time
}

// NewHandler creates a Handler bound to a loaded pipeline.
func NewHandler(p *pipeline.Pipeline, cfg *config.Config) *Handler {
	return &Handler{
		pipeline:  p,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// orderRequest is one order in a predict request. The field names match
// the raw order log columns. Every field is required; an explicit 0 for
// days_since_prior_order is valid, absence is not.
type orderRequest struct {
	OrderID        int64    `json:"order_id" validate:"required,gt=0"`
	UserID         int64    `json:"user_id" validate:"required,gt=0"`
	OrderDOW       *int     `json:"order_dow" validate:"required,gte=0,lte=6"`
	OrderHour      *int     `json:"order_hour_of_day" validate:"required,gte=0,lte=23"`
	DaysSincePrior *float64 `json:"days_since_prior_order" validate:"required,gte=0"`
}

// predictRequest is the wrapped request body. A bare order object
// without the orders wrapper is also accepted; see decodePredictRequest.
type predictRequest struct {
	Orders []orderRequest `json:"orders"`
	K      int            `json:"k"`
}

// predictResponse is the data payload of a successful predict call.
type predictResponse struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

// decodePredictRequest parses the body as either {"orders":[...],"k":n}
// or a single bare order object.
func decodePredictRequest(body []byte) (*predictRequest, error) {
	var req predictRequest
	wrapErr := json.Unmarshal(body, &req)
	if wrapErr == nil && len(req.Orders) > 0 {
		return &req, nil
	}

	var bare orderRequest
	if err := json.Unmarshal(body, &bare); err == nil && bare.OrderID != 0 {
		return &predictRequest{Orders: []orderRequest{bare}}, nil
	}

	if wrapErr != nil {
		return nil, wrapErr
	}
	return nil, fmt.Errorf("request contains no orders")
}

// Predict handles POST /api/v1/predict: validate the batch, score every
// candidate, and return the per-order top-k recommendations.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "failed to read request body", nil)
		return
	}

	req, err := decodePredictRequest(body)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, err.Error(), nil)
		return
	}

	if limit := h.cfg.API.MaxBatchOrders; len(req.Orders) > limit {
		respondError(w, r, http.StatusBadRequest, ErrCodeBatchTooLarge,
			fmt.Sprintf("batch contains %d orders, limit is %d", len(req.Orders), limit), nil)
		return
	}

	// One invalid order rejects the whole batch; the error names every
	// failing order index and field.
	orders := make([]models.OrderContext, len(req.Orders))
	for i, o := range req.Orders {
		if apiErr := validateRequest(&o); apiErr != nil {
			details := map[string]interface{}{"order_index": i}
			for k, v := range apiErr.Details {
				details[k] = v
			}
			respondError(w, r, http.StatusBadRequest, apiErr.Code,
				fmt.Sprintf("order %d: %s", i, apiErr.Message), details)
			return
		}

		orders[i] = models.OrderContext{
			OrderID:        o.OrderID,
			UserID:         o.UserID,
			OrderDOW:       *o.OrderDOW,
			OrderHour:      *o.OrderHour,
			DaysSincePrior: *o.DaysSincePrior,
		}
	}

	recs, err := h.pipeline.Recommend(r.Context(), orders, req.K)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrSchema):
			metrics.PredictErrors.WithLabelValues("schema").Inc()
			respondError(w, r, http.StatusInternalServerError, ErrCodeSchema, err.Error(), nil)
		default:
			metrics.PredictErrors.WithLabelValues("other").Inc()
			respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "failed to score orders", nil)
			logging.Err(err).
				Str("request_id", RequestIDFromContext(r.Context())).
				Msg("prediction failed")
		}
		return
	}

	duration := time.Since(start)
	metrics.RecordPrediction(len(orders), len(recs), duration)

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   predictResponse{Recommendations: recs},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: duration.Milliseconds(),
			RequestID:   RequestIDFromContext(r.Context()),
		},
	})
}

// statusResponse is the data payload of GET /api/v1/status.
type statusResponse struct {
	Store struct {
		Users          int `json:"users"`
		Products       int `json:"products"`
		Pairs          int `json:"pairs"`
		CandidateUsers int `json:"candidate_users"`
	} `json:"store"`
	ModelLoaded   bool    `json:"model_loaded"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Status reports feature store table sizes, model state, and uptime.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var resp statusResponse
	resp.Store.Users, resp.Store.Products, resp.Store.Pairs, resp.Store.CandidateUsers =
		h.pipeline.Store().Counts()
	resp.ModelLoaded = true
	resp.UptimeSeconds = time.Since(h.startTime).Seconds()

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   resp,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			RequestID: RequestIDFromContext(r.Context()),
		},
	})
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // HTTP response write errors are not recoverable
	w.Write([]byte(`{"status":"ok"}`))
}

// Ready is the readiness probe. The store and model are loaded before
// the server starts listening, so readiness follows liveness here.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // HTTP response write errors are not recoverable
	w.Write([]byte(`{"status":"ready"}`))
}

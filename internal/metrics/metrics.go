// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package metrics exposes Prometheus instrumentation for the serving
// path: API latency and throughput, pipeline scoring volume, and
// feature store table sizes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Prediction Pipeline Metrics
	PredictOrdersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "predict_orders_total",
			Help: "Total number of orders scored",
		},
	)

	PredictCandidatesScored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "predict_candidates_per_request",
			Help:    "Number of candidate rows scored per request",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 5000},
		},
	)

	PredictRecommendationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "predict_recommendations_total",
			Help: "Total number of recommendations returned",
		},
	)

	PredictDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "predict_duration_seconds",
			Help:    "Duration of the scoring pipeline per request",
			Buckets: prometheus.DefBuckets,
		},
	)

	PredictErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_errors_total",
			Help: "Total number of prediction failures",
		},
		[]string{"error_type"}, // "schema", "classifier", "other"
	)

	// Feature Store Metrics
	StoreTableRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feature_store_rows",
			Help: "Rows loaded per feature table",
		},
		[]string{"table"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordPrediction records one scored prediction request
func RecordPrediction(orders, recommendations int, duration time.Duration) {
	PredictOrdersTotal.Add(float64(orders))
	PredictRecommendationsTotal.Add(float64(recommendations))
	PredictDuration.Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetStoreCounts publishes the loaded feature store table sizes
func SetStoreCounts(users, products, pairs, candidateUsers int) {
	StoreTableRows.WithLabelValues("user_features").Set(float64(users))
	StoreTableRows.WithLabelValues("product_features").Set(float64(products))
	StoreTableRows.WithLabelValues("user_product_features").Set(float64(pairs))
	StoreTableRows.WithLabelValues("user_prior_products").Set(float64(candidateUsers))
}

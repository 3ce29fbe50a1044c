// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package api

// Error codes returned in the standard error envelope.
const (
	// ErrCodeValidation indicates the request body failed validation.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeInvalidJSON indicates the request body is not valid JSON in
	// either accepted shape.
	ErrCodeInvalidJSON = "INVALID_JSON"

	// ErrCodeBatchTooLarge indicates the batch exceeds the configured
	// order limit.
	ErrCodeBatchTooLarge = "BATCH_TOO_LARGE"

	// ErrCodeSchema indicates a feature column was missing during
	// scoring. This is a deployment defect, not a request problem.
	ErrCodeSchema = "SCHEMA_ERROR"

	// ErrCodeInternal covers unexpected scoring failures.
	ErrCodeInternal = "INTERNAL_ERROR"
)

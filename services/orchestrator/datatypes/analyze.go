// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request, response and stream event types for
// the orchestrator service.
//
// This file contains the analysis endpoint types. For direct chat types,
// see chat.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxIdeaLength is the maximum length of an idea description in runes.
	// Longer inputs are rejected before any provider call is made.
	MaxIdeaLength = 500
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// analyzeValidate is the validator instance for analysis datatypes.
var analyzeValidate = validator.New()

// =============================================================================
// Analysis Request Types
// =============================================================================

// AnalyzeRequest represents an idea analysis request body.
//
// # Description
//
// AnalyzeRequest carries the idea text and the optional stage selection for
// the POST /v1/analyze endpoint. Every request includes a unique ID and
// timestamp for audit trails.
//
// # Fields
//
//   - RequestID: Optional. UUID v4 identifier for tracing. Generated
//     server-side when absent.
//   - Timestamp: Optional. Unix timestamp in milliseconds (UTC).
//   - Idea: Required. The idea description, at most 500 characters.
//   - Steps: Optional. Stage numbers (1-5) to run. Out-of-range or duplicate
//     entries are dropped; an empty selection runs every stage.
//
// # Validation
//
//   - RequestID: optional, must be a valid UUID v4 when present
//   - Idea: required, 1-500 characters
//
// Steps is deliberately not validated here: invalid entries are sanitized
// by the pipeline rather than rejected.
type AnalyzeRequest struct {
	RequestID string `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp int64  `json:"timestamp" validate:"gte=0"`
	Idea      string `json:"idea" validate:"required,max=500"`
	Steps     []int  `json:"steps,omitempty"`
}

// Validate validates the AnalyzeRequest fields.
func (r *AnalyzeRequest) Validate() error {
	return analyzeValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client omitted
// them, so every request is traceable.
func (r *AnalyzeRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = generateUUID()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

func generateUUID() string {
	return uuid.New().String()
}

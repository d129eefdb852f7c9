// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Direct chat request and response types. Chat runs beside the analysis
// pipeline so users can interrogate a finished report conversationally.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message content.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxMessagesPerRequest is the maximum number of messages in a request.
	MaxMessagesPerRequest = 100
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length, not rune count, so oversized
// payloads are rejected regardless of encoding.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// =============================================================================
// Message Types
// =============================================================================

// Message is a single turn in a chat conversation.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required,maxbytes"`
}

// =============================================================================
// Direct Chat Request Types
// =============================================================================

// DirectChatRequest represents a direct LLM chat request body.
//
// # Description
//
// DirectChatRequest contains the conversation history for direct LLM chat.
// This is used for POST /v1/chat/direct and its streaming variant. Every
// request includes a unique ID and timestamp for audit trails.
//
// # Validation
//
//   - RequestID: required, must be a valid UUID v4
//   - Timestamp: required, must be > 0
//   - Messages: required, 1-100 elements, each element validated
//   - Messages[].Content: max 32768 bytes per message
type DirectChatRequest struct {
	RequestID string    `json:"request_id" validate:"required,uuid4"`
	Timestamp int64     `json:"timestamp" validate:"required,gt=0"`
	Messages  []Message `json:"messages" validate:"required,min=1,max=100,dive"`
}

// Validate validates the DirectChatRequest fields.
func (r *DirectChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp if not provided.
func (r *DirectChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = generateUUID()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// =============================================================================
// Direct Chat Response Types
// =============================================================================

// DirectChatResponse represents the response from a non-streaming direct
// chat request.
//
// # Fields
//
//   - ResponseID: Unique identifier for this response (UUID v4).
//   - RequestID: Echo of the request ID for correlation.
//   - Timestamp: Unix timestamp in milliseconds (UTC).
//   - Answer: The generated response text.
//   - ProcessingTimeMs: Time taken to process the request.
type DirectChatResponse struct {
	ResponseID       string `json:"response_id"`
	RequestID        string `json:"request_id"`
	Timestamp        int64  `json:"timestamp"`
	Answer           string `json:"answer"`
	ProcessingTimeMs int64  `json:"processing_time_ms,omitempty"`
}

// NewDirectChatResponse creates a DirectChatResponse with a generated ID
// and timestamp.
func NewDirectChatResponse(requestID, answer string) *DirectChatResponse {
	return &DirectChatResponse{
		ResponseID: generateUUID(),
		RequestID:  requestID,
		Timestamp:  time.Now().UnixMilli(),
		Answer:     answer,
	}
}

// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Analysis streaming service.
//
// This file implements the client side of POST /v1/analyze. It sends the
// idea, consumes the SSE stream, renders stage progress in real time, and
// returns the accumulated result including every raw event for optional
// hash chain verification.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/IdeaGaugeAI/IdeaGauge/pkg/ux"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/datatypes"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// AnalysisServiceConfig holds configuration for the analysis service.
//
// # Description
//
// Only BaseURL is required; all other fields have sensible defaults.
//
// # Fields
//
//   - BaseURL: Required. Orchestrator URL without trailing slash.
//   - Steps: Optional. Stage numbers (1-5) to run. Empty runs every stage.
//   - Writer: Optional. Output destination. Default: os.Stdout.
//   - Personality: Optional. Output styling. Default: current personality.
//   - Timeout: Optional. HTTP timeout. Default: 5 minutes.
type AnalysisServiceConfig struct {
	BaseURL     string
	Steps       []int
	Writer      io.Writer
	Personality ux.PersonalityLevel
	Timeout     time.Duration
}

// =============================================================================
// IMPLEMENTATION
// =============================================================================

// analysisService streams idea analyses from the orchestrator.
//
// # Description
//
// Communicates with the /v1/analyze endpoint. Each Analyze call is a
// single request; the service holds no cross-request state.
//
// # Thread Safety
//
// Safe for concurrent Analyze calls. All per-call state is local.
type analysisService struct {
	client      HTTPClient
	reader      ux.StreamReader
	baseURL     string
	steps       []int
	writer      io.Writer
	personality ux.PersonalityLevel
}

// NewAnalysisService creates an analysis service with production dependencies.
func NewAnalysisService(config AnalysisServiceConfig) *analysisService {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	return NewAnalysisServiceWithClient(NewHTTPClient(timeout), config)
}

// NewAnalysisServiceWithClient creates an analysis service with an injected
// HTTP client. Used by tests to avoid a network.
func NewAnalysisServiceWithClient(client HTTPClient, config AnalysisServiceConfig) *analysisService {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	personality := config.Personality
	if personality == "" {
		personality = ux.GetPersonality().Level
	}
	return &analysisService{
		client:      client,
		reader:      ux.NewSSEStreamReader(ux.NewSSEParser()),
		baseURL:     config.BaseURL,
		steps:       config.Steps,
		writer:      writer,
		personality: personality,
	}
}

// Analyze submits the idea and streams the pipeline results.
//
// # Description
//
// Sends the request, renders stage events in real time, and returns the
// accumulated result. The returned result always carries every received
// event in order so the caller can verify the hash chain.
//
// # Inputs
//
//   - ctx: Context for cancellation/timeout. When cancelled, the stream stops.
//   - idea: The idea description. Must not be empty.
//
// # Outputs
//
//   - *ux.StreamResult: Result with the report, session ID, and raw events.
//   - error: Non-nil on marshal, network, server, or stream errors.
//
// # Limitations
//
//   - Does not retry on transient errors.
//   - A stream that ends with a server error event returns that error,
//     alongside the partial result.
func (s *analysisService) Analyze(ctx context.Context, idea string) (*ux.StreamResult, error) {
	requestID := uuid.New().String()

	slog.Debug("sending analysis request",
		"request_id", requestID,
		"idea_length", len(idea),
		"steps", s.steps,
	)

	resp, err := s.postRequest(ctx, requestID, idea)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			slog.Error("analysis server returned error (failed to read body)",
				"request_id", requestID,
				"status_code", resp.StatusCode,
				"read_error", readErr,
			)
			return nil, fmt.Errorf("server error (%d): failed to read response body", resp.StatusCode)
		}
		slog.Error("analysis server returned error",
			"request_id", requestID,
			"status_code", resp.StatusCode,
			"response_body", string(bodyBytes),
		)
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	result, err := s.processStream(ctx, requestID, resp.Body)
	if err != nil {
		return nil, err
	}

	slog.Debug("analysis completed",
		"request_id", requestID,
		"session_id", result.SessionID,
		"total_events", result.TotalEvents,
		"duration_ms", result.Duration().Milliseconds(),
	)

	return result, nil
}

// postRequest marshals and sends the analysis request.
func (s *analysisService) postRequest(ctx context.Context, requestID, idea string) (*http.Response, error) {
	targetURL := fmt.Sprintf("%s/v1/analyze", s.baseURL)

	reqBody := datatypes.AnalyzeRequest{
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Idea:      idea,
		Steps:     s.steps,
	}

	postBody, err := json.Marshal(reqBody)
	if err != nil {
		slog.Error("failed to marshal analysis request",
			"request_id", requestID,
			"error", err,
		)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := s.client.Post(ctx, targetURL, "application/json", bytes.NewBuffer(postBody))
	if err != nil {
		slog.Error("analysis HTTP request failed",
			"request_id", requestID,
			"url", targetURL,
			"error", err,
		)
		return nil, fmt.Errorf("http post: %w", err)
	}
	return resp, nil
}

// processStream reads the SSE stream, renders every event, and collects
// the raw events for later verification.
func (s *analysisService) processStream(ctx context.Context, requestID string, body io.Reader) (*ux.StreamResult, error) {
	renderer := ux.NewTerminalStreamRenderer(s.writer, s.personality)

	var events []ux.StreamEvent
	err := s.reader.Read(ctx, body, func(event ux.StreamEvent) error {
		events = append(events, event)
		switch event.Type {
		case ux.StreamEventStatus:
			renderer.OnStatus(ctx, event.Message)
		case ux.StreamEventToken:
			renderer.OnToken(ctx, event.Content)
		case ux.StreamEventStepStart:
			renderer.OnStepStart(ctx, event.Step, event.Title, event.Description)
		case ux.StreamEventStepProgress:
			renderer.OnStepProgress(ctx, event.Step, event.Chars)
		case ux.StreamEventStepResult:
			renderer.OnStepResult(ctx, event.Step, event.Result)
		case ux.StreamEventDone:
			renderer.OnDone(ctx, event.SessionID)
		case ux.StreamEventError:
			renderer.OnError(ctx, fmt.Errorf("%s", event.Error))
		}
		return nil
	})
	renderer.Finalize()

	if err != nil {
		slog.Error("analysis stream reading failed",
			"request_id", requestID,
			"error", err,
		)
		return nil, fmt.Errorf("read stream: %w", err)
	}

	result := renderer.Result()
	result.Events = events
	result.TotalEvents = len(events)

	return result, nil
}

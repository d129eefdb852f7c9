// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/IdeaGaugeAI/IdeaGauge/services/analyzer"
	analysis "github.com/IdeaGaugeAI/IdeaGauge/services/analyzer/datatypes"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/datatypes"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/observability"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// heartbeatInterval is the interval for sending keepalive pings.
	// Set to 15s to stay well under typical LB timeouts (60s for ALB/Nginx).
	heartbeatInterval = 15 * time.Second
)

// =============================================================================
// Interface Definition
// =============================================================================

// AnalysisHandler defines the contract for handling analysis HTTP requests.
//
// # Description
//
// AnalysisHandler abstracts the analysis endpoint, enabling testing via
// mocks. The single endpoint runs the five-stage pipeline and streams
// its events over Server-Sent Events.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; Gin invokes handlers
// concurrently.
type AnalysisHandler interface {
	// HandleAnalyzeStream processes POST /v1/analyze requests.
	//
	// # Outputs
	//
	// SSE stream with events:
	//   - step_start: A stage began (step, title, description)
	//   - step_progress: Streamed generation progress (text, chars)
	//   - step_result: A stage finished (step, result payload)
	//   - done: Analysis complete
	//   - error: Transport-level failure
	//
	// HTTP status (before streaming starts):
	//   - 400 Bad Request: Invalid request body or validation failure
	//   - 500 Internal Server Error: SSE setup failure
	HandleAnalyzeStream(c *gin.Context)
}

// =============================================================================
// Struct Definition
// =============================================================================

// analysisHandler implements AnalysisHandler for production use.
//
// Thread-safe: all fields are read-only after construction. Per-request
// state (stage timers, SSE writer) lives on the stack.
type analysisHandler struct {
	pipeline *analyzer.Analyzer
	tracer   trace.Tracer
}

// NewAnalysisHandler creates an AnalysisHandler backed by the given
// pipeline. Panics on a nil pipeline; that is a wiring error, not a
// runtime condition.
func NewAnalysisHandler(pipeline *analyzer.Analyzer) AnalysisHandler {
	if pipeline == nil {
		panic("NewAnalysisHandler: pipeline must not be nil")
	}
	return &analysisHandler{
		pipeline: pipeline,
		tracer:   otel.Tracer("ideagauge.orchestrator.handlers.analyze"),
	}
}

// =============================================================================
// Handler Methods
// =============================================================================

// HandleAnalyzeStream processes POST /v1/analyze requests with SSE
// streaming.
//
// # Description
//
// The flow is:
//  1. Parse and validate the request body
//  2. Set SSE headers and create the hash-chained writer
//  3. Start the heartbeat goroutine
//  4. Run the pipeline, forwarding every event to the stream
//
// Provider failures inside the pipeline degrade to fallback results and
// never surface here; an error from Analyze means the client went away or
// the response writer failed.
func (h *analysisHandler) HandleAnalyzeStream(c *gin.Context) {
	startTime := time.Now()
	endpoint := observability.EndpointAnalyzeStream

	ctx, span := h.tracer.Start(c.Request.Context(), "HandleAnalyzeStream")
	defer span.End()

	if m := observability.DefaultMetrics; m != nil {
		m.StreamStarted(endpoint)
		defer m.StreamEnded(endpoint)
	}

	success := false
	defer func() {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(endpoint, success)
			m.RecordStreamDuration(endpoint, time.Since(startTime).Seconds(), success)
		}
	}()

	var req datatypes.AnalyzeRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		slog.Error("Failed to parse analyze request", "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.EnsureDefaults()

	span.SetAttributes(
		attribute.String("request.id", req.RequestID),
		attribute.Int("request.idea_length", len(req.Idea)),
		attribute.IntSlice("request.steps", req.Steps),
	)

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		slog.Error("Analyze request validation failed",
			"error", err,
			"requestId", req.RequestID,
		)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
		return
	}

	SetSSEHeaders(c.Writer)
	writer, err := NewSSEWriter(c.Writer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "SSE setup failed")
		slog.Error("Failed to create SSE writer",
			"error", err,
			"requestId", req.RequestID,
		)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInternal)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go runHeartbeat(ctx, writer, endpoint, heartbeatDone)

	stageStarts := make(map[int]time.Time)
	emit := func(event analysis.Event) error {
		recordStageMetrics(event, stageStarts)
		return writer.WriteAnalysisEvent(event)
	}

	if err := h.pipeline.Analyze(ctx, req.Idea, req.Steps, emit); err != nil {
		// An emit error means the client disconnected or the response
		// writer failed; the pipeline handles its own provider errors.
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream aborted")
		slog.Warn("Analysis stream aborted",
			"error", err,
			"requestId", req.RequestID,
		)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordClientDisconnect(endpoint)
		}
		return
	}

	success = true
	slog.Info("Analysis stream completed",
		"requestId", req.RequestID,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
}

// =============================================================================
// Helpers
// =============================================================================

// recordStageMetrics tracks per-stage duration and fallback status from
// the event stream itself, so the pipeline stays metrics-agnostic.
func recordStageMetrics(event analysis.Event, stageStarts map[int]time.Time) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	switch event.Type {
	case analysis.EventStepStart:
		stageStarts[event.Step] = time.Now()
	case analysis.EventStepResult:
		seconds := 0.0
		if started, ok := stageStarts[event.Step]; ok {
			seconds = time.Since(started).Seconds()
		}
		m.RecordStage(event.Step, resultIsFallback(event.Result), seconds)
	}
}

// resultIsFallback reports whether a stage payload is a deterministic
// fallback rather than a provider-backed result.
func resultIsFallback(result any) bool {
	switch r := result.(type) {
	case analysis.WebSearchResult:
		return r.Fallback
	case analysis.GitHubSearchResult:
		return r.Fallback
	case analysis.FeasibilityResult:
		return r.Fallback
	case analysis.DifferentiationResult:
		return r.Fallback
	case analysis.VerdictResult:
		return r.Fallback
	default:
		return false
	}
}

// runHeartbeat sends keepalive pings until the stream finishes or the
// client goes away.
func runHeartbeat(ctx context.Context, writer SSEWriter, endpoint observability.Endpoint, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := writer.WriteKeepAlive(); err != nil {
				slog.Debug("Keepalive write failed, client likely disconnected", "error", err)
				return
			}
			if m := observability.DefaultMetrics; m != nil {
				m.RecordKeepAlive(endpoint)
			}
		case <-ctx.Done():
			return
		case <-done:
			return
		}
	}
}

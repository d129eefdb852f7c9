// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IdeaGaugeAI/IdeaGauge/services/llm"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/datatypes"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/observability"
)

// HandleDirectChat processes non-streaming direct chat requests.
//
// # Description
//
// Handles POST /v1/chat/direct. Flattens the message history into a
// transcript prompt, generates a single response, and returns it as JSON.
// Used by clients that cannot consume SSE; interactive clients should
// prefer the streaming variant.
func HandleDirectChat(llmClient llm.LLMClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		endpoint := observability.EndpointDirectChat

		var req datatypes.DirectChatRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			slog.Error("Chat request validation failed", "error", err, "requestId", req.RequestID)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeValidation)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			return
		}

		answer, err := llmClient.Generate(c.Request.Context(), buildChatPrompt(req.Messages), llm.GenerationParams{})
		if err != nil {
			slog.Error("Direct chat generation failed", "error", err, "requestId", req.RequestID)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeLLMError)
				m.RecordRequest(endpoint, false)
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed"})
			return
		}

		resp := datatypes.NewDirectChatResponse(req.RequestID, answer)
		resp.ProcessingTimeMs = time.Since(startTime).Milliseconds()
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(endpoint, true)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleDirectChatStream processes direct chat requests with SSE streaming.
//
// # Description
//
// Handles POST /v1/chat/direct/stream. Streams tokens as they are
// generated via Server-Sent Events: a status event, token events, then a
// done event carrying the request ID for correlation. Generation failures
// after the stream has started are reported as error events, not HTTP
// errors.
func HandleDirectChatStream(llmClient llm.LLMClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		endpoint := observability.EndpointDirectStream

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

		var req datatypes.DirectChatRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			slog.Error("Streaming chat request validation failed", "error", err, "requestId", req.RequestID)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeValidation)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			return
		}

		SetSSEHeaders(c.Writer)
		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			slog.Error("Failed to create SSE writer", "error", err, "requestId", req.RequestID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
			return
		}

		if err := writer.WriteStatus("Generating response..."); err != nil {
			return
		}

		heartbeatDone := make(chan struct{})
		defer close(heartbeatDone)
		go runHeartbeat(c.Request.Context(), writer, endpoint, heartbeatDone)

		_, err = llmClient.GenerateStream(c.Request.Context(), buildChatPrompt(req.Messages),
			llm.GenerationParams{}, func(delta string) error {
				return writer.WriteToken(delta)
			})
		if err != nil {
			slog.Error("Streaming chat generation failed", "error", err, "requestId", req.RequestID)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeLLMError)
			}
			_ = writer.WriteError("generation failed")
			return
		}

		if err := writer.WriteDone(req.RequestID); err != nil {
			return
		}
		success = true
	}
}

// buildChatPrompt flattens a message history into a role-prefixed
// transcript ending with an open assistant turn.
func buildChatPrompt(messages []datatypes.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			b.WriteString(msg.Content)
			b.WriteString("\n\n")
		case "assistant":
			b.WriteString("Assistant: ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		default:
			b.WriteString("User: ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}
	b.WriteString("Assistant:")
	return b.String()
}

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
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/IdeaGaugeAI/IdeaGauge/services/analyzer"
	analysis "github.com/IdeaGaugeAI/IdeaGauge/services/analyzer/datatypes"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/datatypes"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/observability"
)

// WSAnalyzeRequest is one analysis request over an open websocket.
type WSAnalyzeRequest struct {
	Idea  string `json:"idea"`
	Steps []int  `json:"steps,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

func sendJSON(ws *websocket.Conn, v any) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleAnalyzeWebSocket runs analyses over a long-lived websocket.
//
// # Description
//
// Handles GET /v1/analyze/ws. The connection carries one session: the
// server sends a session_created message on connect, then accepts
// WSAnalyzeRequest messages and answers each with the full pipeline event
// stream as JSON messages (step_start, step_progress, step_result, done).
// Multiple analyses can run sequentially on one connection; interactive
// UIs use this instead of re-posting to the SSE endpoint.
func HandleAnalyzeWebSocket(pipeline *analyzer.Analyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		sessionID := uuid.New().String()
		slog.Info("New websocket session started", "sessionID", sessionID)

		if err := sendJSON(ws, map[string]any{
			"action":     "session_created",
			"session_id": sessionID,
		}); err != nil {
			return
		}

		for {
			var req WSAnalyzeRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("Websocket client disconnected", "error", err.Error())
				break
			}

			req.Idea = strings.TrimSpace(req.Idea)
			if req.Idea == "" || utf8.RuneCountInString(req.Idea) > datatypes.MaxIdeaLength {
				if err := sendJSON(ws, analysis.Event{
					Type:    analysis.EventError,
					Message: "idea must be 1-500 characters",
				}); err != nil {
					return
				}
				continue
			}

			if m := observability.DefaultMetrics; m != nil {
				m.StreamStarted(observability.EndpointAnalyzeWS)
			}
			err := pipeline.Analyze(c.Request.Context(), req.Idea, req.Steps, func(event analysis.Event) error {
				return sendJSON(ws, event)
			})
			if m := observability.DefaultMetrics; m != nil {
				m.StreamEnded(observability.EndpointAnalyzeWS)
				m.RecordRequest(observability.EndpointAnalyzeWS, err == nil)
			}
			if err != nil {
				slog.Warn("Websocket analysis aborted", "error", err, "sessionID", sessionID)
				return
			}
		}
	}
}

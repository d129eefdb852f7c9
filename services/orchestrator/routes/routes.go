// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IdeaGaugeAI/IdeaGauge/services/analyzer"
	"github.com/IdeaGaugeAI/IdeaGauge/services/llm"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/handlers"
)

// SetupRoutes registers all HTTP routes on the given router.
//
// The analysis pipeline is shared across the SSE and websocket endpoints.
// The direct chat endpoints talk to the LLM backend without running the
// pipeline.
func SetupRoutes(router *gin.Engine, pipeline *analyzer.Analyzer, globalLLMClient llm.LLMClient) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	analysisHandler := handlers.NewAnalysisHandler(pipeline)

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/analyze", analysisHandler.HandleAnalyzeStream)
		v1.GET("/analyze/ws", handlers.HandleAnalyzeWebSocket(pipeline))
		v1.POST("/chat/direct", handlers.HandleDirectChat(globalLLMClient))
		v1.POST("/chat/direct/stream", handlers.HandleDirectChatStream(globalLLMClient))
	}
}

// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IdeaGaugeAI/IdeaGauge/services/llm"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/datatypes"
)

// ============================================================================
// Test Helpers
// ============================================================================

// stubLLM is a canned llm.LLMClient for handler tests.
type stubLLM struct {
	response string
	deltas   []string
	err      error
	prompts  []string
}

func (s *stubLLM) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func (s *stubLLM) GenerateStream(_ context.Context, prompt string, _ llm.GenerationParams, callback llm.StreamCallback) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	var full strings.Builder
	for _, delta := range s.deltas {
		if err := callback(delta); err != nil {
			return full.String(), err
		}
		full.WriteString(delta)
	}
	return full.String(), nil
}

func newChatRouter(client llm.LLMClient) *gin.Engine {
	router := gin.New()
	router.POST("/v1/chat/direct", HandleDirectChat(client))
	router.POST("/v1/chat/direct/stream", HandleDirectChatStream(client))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req, err := http.NewRequest("POST", path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func chatBody(t *testing.T, messages ...datatypes.Message) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"request_id": uuid.New().String(),
		"timestamp":  1700000000000,
		"messages":   messages,
	})
	require.NoError(t, err)
	return string(data)
}

// ============================================================================
// HandleDirectChat Tests
// ============================================================================

func TestHandleDirectChatReturnsAnswer(t *testing.T) {
	client := &stubLLM{response: "The verdict looks solid."}
	router := newChatRouter(client)

	body := chatBody(t,
		datatypes.Message{Role: "user", Content: "Why did my idea score PIVOT?"},
	)
	rec := postJSON(t, router, "/v1/chat/direct", body)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp datatypes.DirectChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "The verdict looks solid.", resp.Answer)
	assert.NotEmpty(t, resp.ResponseID)
	assert.NotEmpty(t, resp.RequestID)
	assert.Greater(t, resp.Timestamp, int64(0))

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "User: Why did my idea score PIVOT?")
	assert.True(t, strings.HasSuffix(client.prompts[0], "Assistant:"))
}

func TestHandleDirectChatGeneratesMissingDefaults(t *testing.T) {
	client := &stubLLM{response: "ok"}
	router := newChatRouter(client)

	// No request_id or timestamp; EnsureDefaults must fill them before
	// validation.
	rec := postJSON(t, router, "/v1/chat/direct",
		`{"messages": [{"role": "user", "content": "hello"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleDirectChatRejectsInvalidJSON(t *testing.T) {
	router := newChatRouter(&stubLLM{})

	rec := postJSON(t, router, "/v1/chat/direct", `{broken`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDirectChatRejectsBadRole(t *testing.T) {
	router := newChatRouter(&stubLLM{})

	body := chatBody(t, datatypes.Message{Role: "narrator", Content: "hello"})
	rec := postJSON(t, router, "/v1/chat/direct", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDirectChatRejectsEmptyMessages(t *testing.T) {
	router := newChatRouter(&stubLLM{})

	rec := postJSON(t, router, "/v1/chat/direct",
		`{"request_id": "`+uuid.New().String()+`", "timestamp": 1700000000000, "messages": []}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDirectChatLLMFailure(t *testing.T) {
	router := newChatRouter(&stubLLM{err: errors.New("backend unavailable")})

	body := chatBody(t, datatypes.Message{Role: "user", Content: "hello"})
	rec := postJSON(t, router, "/v1/chat/direct", body)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "generation failed")
	assert.NotContains(t, rec.Body.String(), "backend unavailable",
		"internal error details must not leak to clients")
}

// ============================================================================
// HandleDirectChatStream Tests
// ============================================================================

func TestHandleDirectChatStreamEmitsTokens(t *testing.T) {
	client := &stubLLM{deltas: []string{"The ", "market ", "is crowded."}}
	router := newChatRouter(client)

	body := chatBody(t, datatypes.Message{Role: "user", Content: "Summarize stage one"})
	rec := postJSON(t, router, "/v1/chat/direct/stream", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseSSEEvents(t, rec.Body.String())
	require.GreaterOrEqual(t, len(events), 5)

	assert.Equal(t, "status", events[0].Type)

	var tokens []string
	for _, event := range events {
		if event.Type == "token" {
			tokens = append(tokens, event.Content)
		}
	}
	assert.Equal(t, []string{"The ", "market ", "is crowded."}, tokens)

	last := events[len(events)-1]
	assert.Equal(t, "done", last.Type)
	assert.NotEmpty(t, last.SessionId)

	// Chain must be intact across status, tokens and done.
	for i := 1; i < len(events); i++ {
		assert.Equal(t, events[i-1].Hash, events[i].PrevHash)
	}
}

func TestHandleDirectChatStreamGenerationError(t *testing.T) {
	client := &stubLLM{err: errors.New("stream interrupted")}
	router := newChatRouter(client)

	body := chatBody(t, datatypes.Message{Role: "user", Content: "hello"})
	rec := postJSON(t, router, "/v1/chat/direct/stream", body)

	events := parseSSEEvents(t, rec.Body.String())
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, "error", last.Type)
	assert.Equal(t, "generation failed", last.Error)

	for _, event := range events {
		assert.NotEqual(t, "done", event.Type, "failed streams must not emit done")
	}
}

func TestHandleDirectChatStreamRejectsOversizedMessage(t *testing.T) {
	router := newChatRouter(&stubLLM{})

	body := chatBody(t, datatypes.Message{
		Role:    "user",
		Content: strings.Repeat("a", datatypes.MaxMessageContentBytes+1),
	})
	rec := postJSON(t, router, "/v1/chat/direct/stream", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============================================================================
// Prompt Building Tests
// ============================================================================

func TestBuildChatPrompt(t *testing.T) {
	prompt := buildChatPrompt([]datatypes.Message{
		{Role: "system", Content: "You explain analysis reports."},
		{Role: "user", Content: "What does KILL mean?"},
		{Role: "assistant", Content: "It means the idea scored poorly."},
		{Role: "user", Content: "Can it be revived?"},
	})

	assert.Equal(t, "You explain analysis reports.\n\n"+
		"User: What does KILL mean?\n"+
		"Assistant: It means the idea scored poorly.\n"+
		"User: Can it be revived?\n"+
		"Assistant:", prompt)
}

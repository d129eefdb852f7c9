// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Direct chat streaming service.
//
// This file implements the client side of POST /v1/chat/direct/stream.
// Conversation history is maintained client-side and persisted to
// ~/.ideagauge/history/<sessionID>.json so sessions can be resumed with
// the --resume flag.
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
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IdeaGaugeAI/IdeaGauge/pkg/ux"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/datatypes"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// DirectChatServiceConfig holds configuration for the direct chat service.
//
// # Fields
//
//   - BaseURL: Required. Orchestrator URL without trailing slash.
//   - SessionID: Optional. Resume an existing local session.
//   - Writer: Optional. Output destination. Default: os.Stdout.
//   - Personality: Optional. Output styling. Default: current personality.
//   - Timeout: Optional. HTTP timeout. Default: 5 minutes.
//   - HistoryDir: Optional. Transcript directory. Default: ~/.ideagauge/history.
type DirectChatServiceConfig struct {
	BaseURL     string
	SessionID   string
	Writer      io.Writer
	Personality ux.PersonalityLevel
	Timeout     time.Duration
	HistoryDir  string
}

// =============================================================================
// IMPLEMENTATION
// =============================================================================

// directChatService streams chat completions from the orchestrator.
//
// # Description
//
// Maintains the full conversation history client-side and sends it with
// every request. The server is stateless for direct chat; session identity
// exists only in the local transcript file.
//
// # Thread Safety
//
// All public methods are protected by mutex. Safe for concurrent use.
type directChatService struct {
	client      HTTPClient
	reader      ux.StreamReader
	baseURL     string
	sessionID   string
	messages    []datatypes.Message
	writer      io.Writer
	personality ux.PersonalityLevel
	historyDir  string
	mu          sync.Mutex
}

// NewDirectChatService creates a chat service with production dependencies.
//
// A new session ID is generated when the config does not name one, so the
// transcript is always resumable.
func NewDirectChatService(config DirectChatServiceConfig) *directChatService {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	return NewDirectChatServiceWithClient(NewHTTPClient(timeout), config)
}

// NewDirectChatServiceWithClient creates a chat service with an injected
// HTTP client. Used by tests to avoid a network.
func NewDirectChatServiceWithClient(client HTTPClient, config DirectChatServiceConfig) *directChatService {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	personality := config.Personality
	if personality == "" {
		personality = ux.GetPersonality().Level
	}
	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	dir := config.HistoryDir
	if dir == "" {
		if resolved, err := historyDir(); err == nil {
			dir = resolved
		}
	}
	return &directChatService{
		client:      client,
		reader:      ux.NewSSEStreamReader(ux.NewSSEParser()),
		baseURL:     config.BaseURL,
		sessionID:   sessionID,
		writer:      writer,
		personality: personality,
		historyDir:  dir,
	}
}

// SendMessage sends a user message and streams the assistant's response.
//
// # Description
//
// Appends the message to the history, posts the full conversation, and
// renders tokens as they arrive. On failure the user message is removed
// from the history so a retry does not duplicate it.
//
// # Outputs
//
//   - *ux.StreamResult: Accumulated result with the answer and metrics.
//   - error: Non-nil on marshal, network, server, or stream errors.
func (s *directChatService) SendMessage(ctx context.Context, message string) (*ux.StreamResult, error) {
	requestID := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Debug("sending direct chat message",
		"request_id", requestID,
		"session_id", s.sessionID,
		"message_length", len(message),
		"history_length", len(s.messages),
	)

	s.messages = append(s.messages, datatypes.Message{Role: "user", Content: message})

	result, err := s.executeStreamingRequest(ctx, requestID)
	if err != nil {
		s.removeLastMessageLocked()
		return nil, err
	}

	if err := s.validateResult(requestID, result); err != nil {
		s.removeLastMessageLocked()
		return result, err
	}

	s.messages = append(s.messages, datatypes.Message{Role: "assistant", Content: result.Answer})

	return result, nil
}

// executeStreamingRequest performs the HTTP request and stream processing.
// Must be called while holding s.mu.
func (s *directChatService) executeStreamingRequest(ctx context.Context, requestID string) (*ux.StreamResult, error) {
	targetURL := fmt.Sprintf("%s/v1/chat/direct/stream", s.baseURL)

	reqBody := datatypes.DirectChatRequest{
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Messages:  s.messages,
	}

	postBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := s.client.Post(ctx, targetURL, "application/json", bytes.NewBuffer(postBody))
	if err != nil {
		slog.Error("chat HTTP request failed",
			"request_id", requestID,
			"url", targetURL,
			"error", err,
		)
		return nil, fmt.Errorf("http post: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("server error (%d): failed to read response body", resp.StatusCode)
		}
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	return s.processStream(ctx, requestID, resp.Body)
}

// processStream reads and renders the SSE token stream.
func (s *directChatService) processStream(ctx context.Context, requestID string, body io.Reader) (*ux.StreamResult, error) {
	renderer := ux.NewTerminalStreamRenderer(s.writer, s.personality)

	result, err := ux.RenderStream(ctx, s.reader, body, renderer)
	if err != nil {
		slog.Error("chat stream reading failed",
			"request_id", requestID,
			"error", err,
		)
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return result, nil
}

// validateResult checks whether the result can extend the history.
func (s *directChatService) validateResult(requestID string, result *ux.StreamResult) error {
	if result.Answer == "" && result.Error == "" {
		slog.Warn("chat stream returned empty response", "request_id", requestID)
		return fmt.Errorf("empty response from server")
	}
	if result.HasError() {
		slog.Warn("chat stream ended with error",
			"request_id", requestID,
			"error", result.Error,
		)
		return fmt.Errorf("stream error: %s", result.Error)
	}
	return nil
}

// removeLastMessageLocked removes the last message from the history.
// Must be called while holding s.mu.
func (s *directChatService) removeLastMessageLocked() {
	if len(s.messages) > 0 {
		s.messages = s.messages[:len(s.messages)-1]
	}
}

// GetSessionID returns the session identifier for this conversation.
func (s *directChatService) GetSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// SeedIdea prepends a system turn describing the idea under discussion.
// No-op when the history already has content (e.g., resumed sessions).
func (s *directChatService) SeedIdea(idea string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idea == "" || len(s.messages) > 0 {
		return
	}
	s.messages = append(s.messages, datatypes.Message{
		Role:    "system",
		Content: fmt.Sprintf("You are discussing a feasibility analysis of this idea: %s", idea),
	})
}

// =============================================================================
// HISTORY PERSISTENCE
// =============================================================================

// sessionTranscript is the on-disk format for a saved conversation.
type sessionTranscript struct {
	SessionID string              `json:"session_id"`
	SavedAt   int64               `json:"saved_at"`
	Messages  []datatypes.Message `json:"messages"`
}

// LoadSessionHistory loads a previously saved transcript.
//
// # Outputs
//
//   - int: Number of user/assistant turns loaded (system turns excluded).
//   - error: Non-nil when the transcript is missing or unreadable.
func (s *directChatService) LoadSessionHistory(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.historyDir == "" {
		return 0, fmt.Errorf("no history directory configured")
	}

	path := filepath.Join(s.historyDir, sessionID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var transcript sessionTranscript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return 0, fmt.Errorf("parse session %s: %w", sessionID, err)
	}

	s.sessionID = sessionID
	s.messages = transcript.Messages

	turns := 0
	for _, msg := range transcript.Messages {
		if msg.Role != "system" {
			turns++
		}
	}

	slog.Debug("session history loaded",
		"session_id", sessionID,
		"turns", turns,
	)
	return turns, nil
}

// saveHistoryLocked writes the current transcript to disk.
// Must be called while holding s.mu. Empty conversations are not saved.
func (s *directChatService) saveHistoryLocked() error {
	if s.historyDir == "" || len(s.messages) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.historyDir, 0o700); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	transcript := sessionTranscript{
		SessionID: s.sessionID,
		SavedAt:   time.Now().UnixMilli(),
		Messages:  s.messages,
	}
	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	path := filepath.Join(s.historyDir, s.sessionID+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Close persists the transcript so the session can be resumed later.
func (s *directChatService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveHistoryLocked(); err != nil {
		slog.Warn("failed to save chat transcript",
			"session_id", s.sessionID,
			"error", err,
		)
		return err
	}
	return nil
}

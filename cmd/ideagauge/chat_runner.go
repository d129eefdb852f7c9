// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Interactive chat loop.
//
// This file coordinates the chat service, the UI, and user input. Input is
// abstracted behind InputReader so the loop is testable without a terminal.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/IdeaGaugeAI/IdeaGauge/pkg/ux"
)

// =============================================================================
// INPUT ABSTRACTION
// =============================================================================

// InputReader reads line-oriented user input.
//
// # Description
//
// Abstracts stdin so tests can script conversations. ReadLine blocks until
// a line is available and returns io.EOF when input is exhausted.
type InputReader interface {
	ReadLine() (string, error)
}

// StdinReader implements InputReader over os.Stdin.
type StdinReader struct {
	reader *bufio.Reader
}

// NewStdinReader creates a StdinReader wrapping os.Stdin.
func NewStdinReader() *StdinReader {
	return &StdinReader{reader: bufio.NewReader(os.Stdin)}
}

// ReadLine reads a single line from stdin, trimmed of surrounding
// whitespace. Blocks until a newline arrives or stdin closes.
func (r *StdinReader) ReadLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// MockInputReader implements InputReader with predetermined inputs.
// Returns io.EOF after all inputs are consumed. Test use only.
type MockInputReader struct {
	inputs []string
	index  int
}

// NewMockInputReader creates a MockInputReader with the given inputs.
func NewMockInputReader(inputs []string) *MockInputReader {
	return &MockInputReader{inputs: inputs}
}

// ReadLine returns the next predetermined input, then io.EOF.
func (m *MockInputReader) ReadLine() (string, error) {
	if m.index >= len(m.inputs) {
		return "", io.EOF
	}
	line := m.inputs[m.index]
	m.index++
	return line, nil
}

// isExitCommand reports whether the input ends the session.
func isExitCommand(input string) bool {
	return input == "exit" || input == "quit"
}

// =============================================================================
// CHAT RUNNER
// =============================================================================

// ChatRunnerConfig holds configuration for creating a ChatRunner.
type ChatRunnerConfig struct {
	BaseURL   string // Orchestrator URL (required)
	SessionID string // Session to resume (optional)
	Idea      string // Idea context for the header and system turn (optional)
}

// ChatRunner manages the interactive follow-up chat loop.
//
// # Description
//
// Coordinates the direct chat service, the ChatUI, and user input. The
// loop runs until the user types "exit"/"quit", input hits EOF, or the
// context is cancelled. Statistics are accumulated for the session end
// summary.
//
// # Thread Safety
//
// Run is single use and not safe for concurrent calls. Close is
// idempotent and safe from any goroutine.
type ChatRunner struct {
	service          *directChatService
	ui               ux.ChatUI
	input            InputReader
	idea             string
	resuming         bool
	sessionStartTime time.Time
	sessionStats     ux.SessionStats
	closed           bool
	mu               sync.Mutex
}

// NewChatRunner creates a chat runner with production dependencies.
func NewChatRunner(config ChatRunnerConfig) *ChatRunner {
	service := NewDirectChatService(DirectChatServiceConfig{
		BaseURL:   config.BaseURL,
		SessionID: config.SessionID,
	})
	return NewChatRunnerWithDeps(service, ux.NewChatUI(), NewStdinReader(), config)
}

// NewChatRunnerWithDeps creates a chat runner with injected dependencies
// for testing.
func NewChatRunnerWithDeps(service *directChatService, ui ux.ChatUI, input InputReader, config ChatRunnerConfig) *ChatRunner {
	return &ChatRunner{
		service:  service,
		ui:       ui,
		input:    input,
		idea:     config.Idea,
		resuming: config.SessionID != "",
	}
}

// Run executes the interactive chat loop.
//
// # Description
//
// The loop:
//  1. Loads the saved transcript when resuming
//  2. Displays the chat header
//  3. Prompts, reads input, and checks for exit commands
//  4. Streams each response, accumulating statistics
//  5. Repeats until exit, EOF, or context cancellation
//
// # Outputs
//
//   - error: nil on normal exit, context.Canceled on shutdown, or the
//     transcript load error when a resume fails.
func (r *ChatRunner) Run(ctx context.Context) error {
	r.sessionStartTime = time.Now()

	if r.resuming {
		turns, err := r.service.LoadSessionHistory(ctx, r.service.GetSessionID())
		if err != nil {
			// The user expects to continue an existing conversation.
			return fmt.Errorf("resume session: %w", err)
		}
		r.ui.SessionResume(r.service.GetSessionID(), turns)
	} else {
		r.service.SeedIdea(r.idea)
	}

	r.ui.Header(ux.HeaderConfig{
		Idea:      r.idea,
		SessionID: r.service.GetSessionID(),
		ServerURL: getServerBaseURL(),
	})

	for {
		select {
		case <-ctx.Done():
			return r.handleShutdown(ctx)
		default:
		}

		fmt.Print(r.ui.Prompt())
		input, err := r.input.ReadLine()
		if err != nil {
			if err == io.EOF {
				r.displaySessionEnd()
				return nil
			}
			slog.Error("failed to read input", "error", err)
			return fmt.Errorf("read input: %w", err)
		}

		if input == "" {
			continue
		}
		if isExitCommand(input) {
			r.displaySessionEnd()
			return nil
		}

		if err := r.handleMessage(ctx, input); err != nil {
			if ctx.Err() != nil {
				return r.handleShutdown(ctx)
			}
			r.ui.Error(err)
			continue
		}
	}
}

// handleMessage streams a single exchange. The response is rendered in
// real time as tokens arrive, so nothing is printed here beyond spacing.
func (r *ChatRunner) handleMessage(ctx context.Context, message string) error {
	result, err := r.service.SendMessage(ctx, message)
	if err != nil {
		return err
	}

	r.accumulateStats(result)
	fmt.Println()
	return nil
}

// accumulateStats folds one exchange into the session totals.
func (r *ChatRunner) accumulateStats(result *ux.StreamResult) {
	r.sessionStats.MessageCount++
	r.sessionStats.TotalTokens += result.TotalTokens
	if r.sessionStats.MessageCount == 1 {
		r.sessionStats.FirstResponseLatency = result.TimeToFirstToken()
	}
}

// displaySessionEnd shows the session summary with accumulated stats.
func (r *ChatRunner) displaySessionEnd() {
	r.sessionStats.Duration = time.Since(r.sessionStartTime)
	r.ui.SessionEndRich(r.service.GetSessionID(), &r.sessionStats)
}

// handleShutdown completes a context-cancelled session.
func (r *ChatRunner) handleShutdown(ctx context.Context) error {
	slog.Info("graceful shutdown initiated",
		"session_id", r.service.GetSessionID(),
	)
	fmt.Println()
	r.displaySessionEnd()
	return ctx.Err()
}

// Close persists the transcript and releases resources. Idempotent.
func (r *ChatRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.service.Close()
}

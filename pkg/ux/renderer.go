// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides user experience components for the IdeaGauge CLI.
//
// This file contains stream renderers that display streaming events to
// various outputs (terminal, buffer, etc.).
//
// Single Responsibility:
//
//	Renderers ONLY render. They do not parse, read, or manage HTTP.
//	Each method handles exactly one event type, enabling clean composition.
//
// Renderer Types:
//
//   - TerminalStreamRenderer: Interactive terminal with spinners and colors
//   - BufferStreamRenderer: In-memory buffer for testing
package ux

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// Stream Renderer Interface
// =============================================================================

// StreamRenderer renders streaming events to an output destination.
//
// Each method handles exactly one event type. The renderer owns all
// output-related state (spinners, buffers, formatters). Callers should
// invoke methods in the order events are received.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent calls. Multiple goroutines
//	may invoke methods simultaneously when processing events from channels.
//
// Lifecycle:
//
//  1. Create renderer with New*StreamRenderer()
//  2. Call On* methods as events arrive
//  3. Call Finalize() when stream ends (always, even on error)
//  4. Call Result() to get aggregated result
//
// Example:
//
//	renderer := NewTerminalStreamRenderer(os.Stdout, GetPersonality().Level)
//	defer renderer.Finalize()
//
//	for event := range events {
//	    switch event.Type {
//	    case StreamEventStepStart:
//	        renderer.OnStepStart(ctx, event.Step, event.Title, event.Description)
//	    case StreamEventStepResult:
//	        renderer.OnStepResult(ctx, event.Step, event.Result)
//	    case StreamEventDone:
//	        renderer.OnDone(ctx, event.SessionID)
//	    }
//	}
//
//	result := renderer.Result()
type StreamRenderer interface {
	// OnStatus renders a status update (e.g., "Connecting...").
	//
	// In interactive mode, may start or update a spinner.
	// In machine mode, prints "STATUS: message".
	OnStatus(ctx context.Context, message string)

	// OnToken renders a single token from a chat response.
	//
	// In interactive mode, prints immediately for streaming effect.
	// In machine mode, buffers until OnDone.
	//
	// Tokens should be rendered in order; out-of-order rendering
	// may produce garbled output.
	OnToken(ctx context.Context, token string)

	// OnStepStart renders the beginning of a pipeline stage.
	//
	// In interactive mode, prints the stage header and starts a spinner.
	// In machine mode, prints "STEP_START: {step} {title}".
	OnStepStart(ctx context.Context, step int, title, description string)

	// OnStepProgress renders a streaming progress tick for a stage.
	//
	// The chars count is cumulative for the stage. Interactive mode
	// updates the spinner message; machine mode prints a progress line.
	OnStepProgress(ctx context.Context, step int, chars int)

	// OnStepResult renders the completed result of a pipeline stage.
	//
	// The raw payload is decoded into the accumulated AnalysisReport
	// and summarized to the writer. Decode failures are rendered as
	// warnings, not errors, so remaining stages still display.
	OnStepResult(ctx context.Context, step int, result json.RawMessage)

	// OnDone signals stream completion with optional session ID.
	//
	// Stops spinners, flushes buffers, prints the verdict banner when a
	// verdict was received. This is typically the last On* method called
	// (unless OnError).
	OnDone(ctx context.Context, sessionID string)

	// OnError renders an error that occurred during streaming.
	//
	// Stops spinners and displays error message.
	// After OnError, only Finalize() should be called.
	OnError(ctx context.Context, err error)

	// Finalize performs cleanup (stop spinners, flush output).
	//
	// MUST be called when streaming ends, even if abnormally.
	// Safe to call multiple times; subsequent calls are no-ops.
	Finalize()

	// Result returns the accumulated result after streaming completes.
	//
	// Contains the chat answer, analysis report, session ID, and metadata.
	// May be called before Finalize() to get partial results.
	Result() *StreamResult
}

// =============================================================================
// Stage Titles
// =============================================================================

// stageFallbackTitles provides display names when a step_start event
// arrives without a title.
var stageFallbackTitles = map[int]string{
	1: "Market Scan",
	2: "Open Source Scan",
	3: "Feasibility",
	4: "Differentiation",
	5: "Verdict",
}

func stageTitle(step int, title string) string {
	if title != "" {
		return title
	}
	if t, ok := stageFallbackTitles[step]; ok {
		return t
	}
	return fmt.Sprintf("Stage %d", step)
}

// =============================================================================
// Terminal Stream Renderer
// =============================================================================

// terminalStreamRenderer renders streaming events to an interactive terminal.
//
// This is the primary renderer for user-facing output. It provides a rich
// experience with spinners, colors, and per-stage result summaries.
//
// Personality Modes:
//
//   - PersonalityFull: Rich styling with colors, boxes, and icons
//   - PersonalityMinimal: Plain text with basic formatting
//   - PersonalityMachine: KEY: value format for scripting
//
// Thread Safety:
//
//	All methods are protected by a mutex. Safe for concurrent calls.
type terminalStreamRenderer struct {
	writer      io.Writer
	personality PersonalityLevel
	spinner     *Spinner
	result      *StreamResult
	mu          sync.Mutex

	// State tracking
	answerBuilder   strings.Builder
	stageTitles     map[int]string
	hasWrittenToken bool
	finalized       bool
}

// NewTerminalStreamRenderer creates a renderer for interactive terminal output.
//
// Parameters:
//   - w: The output writer. If nil, defaults to os.Stdout.
//   - personality: Controls output styling. Use GetPersonality().Level for
//     the user's configured personality, or hardcode for specific behavior.
func NewTerminalStreamRenderer(w io.Writer, personality PersonalityLevel) StreamRenderer {
	if w == nil {
		w = os.Stdout
	}
	return &terminalStreamRenderer{
		writer:      w,
		personality: personality,
		result: &StreamResult{
			StartedAt: time.Now().UnixMilli(),
		},
		stageTitles: make(map[int]string),
	}
}

// OnStatus renders a status update message.
//
// Interactive modes start or update a spinner with the message; the
// spinner runs until the first token or stage header arrives. Machine
// mode prints "STATUS: {message}" immediately.
func (r *terminalStreamRenderer) OnStatus(ctx context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.result.TotalEvents++

	if r.personality == PersonalityMachine {
		fmt.Fprintf(r.writer, "STATUS: %s\n", message)
		return
	}

	// Start or update spinner
	if r.spinner == nil {
		r.spinner = NewSpinner(message)
		r.spinner.Start()
	} else {
		r.spinner.UpdateMessage(message)
	}
}

// OnToken renders a single chat token.
//
// Interactive modes print the token immediately, creating a streaming
// effect, and stop any running spinner on the first token. Machine mode
// buffers tokens until OnDone prints them as one "ANSWER:" line.
func (r *terminalStreamRenderer) OnToken(ctx context.Context, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	// Track first token timing
	if !r.hasWrittenToken {
		r.result.FirstTokenAt = time.Now().UnixMilli()
		r.hasWrittenToken = true

		// Stop spinner when first token arrives
		if r.spinner != nil {
			r.spinner.Stop()
			r.spinner = nil
			if r.personality != PersonalityMachine {
				fmt.Fprintln(r.writer)
			}
		}
	}

	r.answerBuilder.WriteString(token)
	r.result.TotalTokens++
	r.result.TotalEvents++

	if r.personality == PersonalityMachine {
		// In machine mode, buffer until done
		return
	}

	fmt.Fprint(r.writer, token)
}

// OnStepStart renders the beginning of a pipeline stage.
func (r *terminalStreamRenderer) OnStepStart(ctx context.Context, step int, title, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.result.TotalEvents++
	title = stageTitle(step, title)
	r.stageTitles[step] = title

	if r.personality == PersonalityMachine {
		fmt.Fprintf(r.writer, "STEP_START: %d %s\n", step, title)
		return
	}

	// Close out any previous stage spinner before the next header
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}

	if r.personality == PersonalityMinimal {
		fmt.Fprintf(r.writer, "[%d] %s\n", step, title)
	} else {
		header := fmt.Sprintf("%s [%d] %s", string(IconGauge), step, title)
		fmt.Fprintln(r.writer, Styles.Subtitle.Render(header))
		if description != "" {
			fmt.Fprintln(r.writer, Styles.Muted.Render("  "+description))
		}
	}

	r.spinner = NewSpinner(title).WithType(SpinnerGauge)
	r.spinner.Start()
}

// OnStepProgress renders a streaming progress tick for a stage.
func (r *terminalStreamRenderer) OnStepProgress(ctx context.Context, step int, chars int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.result.TotalEvents++

	if r.personality == PersonalityMachine {
		fmt.Fprintf(r.writer, "STEP_PROGRESS: %d chars=%d\n", step, chars)
		return
	}

	if r.spinner != nil {
		title := stageTitle(step, r.stageTitles[step])
		r.spinner.UpdateMessage(fmt.Sprintf("%s · %d chars", title, chars))
	}
}

// OnStepResult renders the completed result of a pipeline stage.
//
// The payload decodes into the accumulated report and a one-line summary
// prints per stage. The verdict stage renders a banner in OnDone so it
// lands after all stage lines.
func (r *terminalStreamRenderer) OnStepResult(ctx context.Context, step int, result json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.result.TotalEvents++

	if r.result.Report == nil {
		r.result.Report = &AnalysisReport{}
	}
	decodeErr := r.result.Report.ApplyStageResult(step, result)

	if r.personality == PersonalityMachine {
		fmt.Fprintf(r.writer, "STEP_RESULT: %d %s\n", step, string(result))
		return
	}

	// Stop the stage spinner before printing the summary
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}

	if decodeErr != nil {
		fmt.Fprintf(r.writer, "%s %s\n", IconWarning.Render(),
			Styles.Warning.Render(fmt.Sprintf("stage %d result unreadable: %v", step, decodeErr)))
		return
	}

	r.renderStageSummary(step)
}

// renderStageSummary prints a one-line outcome for a decoded stage.
// Caller must hold the mutex.
func (r *terminalStreamRenderer) renderStageSummary(step int) {
	report := r.result.Report
	title := stageTitle(step, r.stageTitles[step])

	switch step {
	case 1:
		if report.Market == nil {
			return
		}
		note := fmt.Sprintf("%d competitors", len(report.Market.Competitors))
		if report.Market.Fallback {
			note += ", fallback"
		}
		r.printStageLine(step, title, note)
	case 2:
		if report.Repos == nil {
			return
		}
		note := fmt.Sprintf("%d repos", len(report.Repos.Repos))
		if report.Repos.Fallback {
			note += ", fallback"
		}
		r.printStageLine(step, title, note)
	case 3:
		if report.Feasibility == nil {
			return
		}
		r.printStageLine(step, title, fmt.Sprintf("%d bottlenecks", len(report.Feasibility.Bottlenecks)))
		fmt.Fprintf(r.writer, "  %s\n", ScoreBar(report.Feasibility.Score, 20))
	case 4:
		if report.Differentiation == nil {
			return
		}
		r.printStageLine(step, title, report.Differentiation.Band)
		fmt.Fprintf(r.writer, "  %s\n", ScoreBar(report.Differentiation.Score, 20))
	case 5:
		if report.Verdict == nil {
			return
		}
		r.printStageLine(step, title, report.Verdict.Verdict)
	}
}

// printStageLine prints one completed-stage line. Caller must hold the mutex.
func (r *terminalStreamRenderer) printStageLine(step int, title, note string) {
	if r.personality == PersonalityMinimal {
		fmt.Fprintf(r.writer, "%s [%d] %s\n", IconSuccess.Render(), step, title)
		return
	}
	if note != "" {
		fmt.Fprintf(r.writer, "%s [%d] %s %s\n",
			IconSuccess.Render(), step, title, Styles.Muted.Render("("+note+")"))
	} else {
		fmt.Fprintf(r.writer, "%s [%d] %s\n", IconSuccess.Render(), step, title)
	}
}

// OnDone signals successful stream completion.
//
// Machine mode prints the buffered answer, verdict, session, and "DONE".
// Interactive modes render the verdict banner when a verdict arrived.
func (r *terminalStreamRenderer) OnDone(ctx context.Context, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.result.SessionID = sessionID
	r.result.CompletedAt = time.Now().UnixMilli()
	r.result.TotalEvents++

	// Stop spinner if still running
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}

	if r.personality == PersonalityMachine {
		answer := r.answerBuilder.String()
		if answer != "" {
			fmt.Fprintf(r.writer, "ANSWER: %s\n", answer)
		}
		if r.result.Report != nil && r.result.Report.Verdict != nil {
			fmt.Fprintf(r.writer, "VERDICT: %s score=%d\n",
				r.result.Report.Verdict.Verdict, r.result.Report.Verdict.Score)
		}
		if sessionID != "" {
			fmt.Fprintf(r.writer, "SESSION: %s\n", sessionID)
		}
		fmt.Fprintln(r.writer, "DONE")
		return
	}

	// Ensure chat output ends with a newline
	answer := r.answerBuilder.String()
	if answer != "" && !strings.HasSuffix(answer, "\n") {
		fmt.Fprintln(r.writer)
	}

	r.renderVerdictBanner()
}

// renderVerdictBanner prints the final verdict box. Caller must hold the mutex.
func (r *terminalStreamRenderer) renderVerdictBanner() {
	if r.result.Report == nil || r.result.Report.Verdict == nil {
		return
	}
	verdict := r.result.Report.Verdict

	if r.personality == PersonalityMinimal {
		fmt.Fprintf(r.writer, "\nVerdict: %s (%d/100)\n", verdict.Verdict, verdict.Score)
		if verdict.Reasoning != "" {
			fmt.Fprintln(r.writer, verdict.Reasoning)
		}
		return
	}

	var content strings.Builder
	content.WriteString(fmt.Sprintf("%s  %s",
		VerdictStyle(verdict.Verdict).Render(verdict.Verdict),
		ScoreBar(verdict.Score, 20)))
	if verdict.Reasoning != "" {
		content.WriteString("\n" + verdict.Reasoning)
	}
	for _, next := range verdict.NextSteps {
		content.WriteString(fmt.Sprintf("\n%s %s", string(IconArrow), next))
	}

	boxStyle := Styles.InfoBox.Width(60)
	titleLine := Styles.Subtitle.Render("Verdict")
	fmt.Fprintln(r.writer)
	fmt.Fprintln(r.writer, boxStyle.Render(titleLine+"\n"+content.String()))
}

// OnError renders an error that occurred during streaming.
func (r *terminalStreamRenderer) OnError(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.result.Error = err.Error()
	r.result.CompletedAt = time.Now().UnixMilli()
	r.result.TotalEvents++

	// Stop spinner
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}

	if r.personality == PersonalityMachine {
		fmt.Fprintf(r.writer, "ERROR: %v\n", err)
	} else {
		fmt.Fprintf(r.writer, "\n%s %s\n",
			IconError.Render(),
			Styles.Error.Render(fmt.Sprintf("Stream error: %v", err)))
	}
}

// Finalize performs cleanup and marks the renderer as complete.
//
// MUST be called when streaming ends, regardless of whether it ended
// normally (OnDone) or with an error (OnError). Safe to call multiple
// times; subsequent calls are no-ops.
func (r *terminalStreamRenderer) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}
	r.finalized = true

	// Stop spinner if still running
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}

	r.result.Answer = r.answerBuilder.String()
	if r.result.CompletedAt == 0 {
		r.result.CompletedAt = time.Now().UnixMilli()
	}
}

// Result returns the accumulated StreamResult.
//
// May be called before Finalize() to get partial results during streaming.
// Returns a copy; modifications do not affect the renderer's internal state.
func (r *terminalStreamRenderer) Result() *StreamResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy result to avoid race conditions
	result := *r.result
	result.Answer = r.answerBuilder.String()
	return &result
}

// =============================================================================
// Buffer Stream Renderer (for testing)
// =============================================================================

// bufferStreamRenderer renders to an in-memory buffer for testing.
//
// This renderer captures all events without side effects, making it ideal
// for unit tests where you need to verify renderer behavior without
// terminal output.
type bufferStreamRenderer struct {
	result    *StreamResult
	events    []StreamEvent
	mu        sync.Mutex
	finalized bool

	answerBuilder strings.Builder
}

// NewBufferStreamRenderer creates a renderer that buffers events to memory.
//
// Example:
//
//	renderer := NewBufferStreamRenderer()
//	defer renderer.Finalize()
//
//	renderer.OnToken(ctx, "Hello")
//	renderer.OnDone(ctx, "sess-123")
//
//	result := renderer.Result()
//	events := renderer.(*bufferStreamRenderer).Events()
func NewBufferStreamRenderer() StreamRenderer {
	return &bufferStreamRenderer{
		result: &StreamResult{
			StartedAt: time.Now().UnixMilli(),
		},
		events: make([]StreamEvent, 0),
	}
}

// OnStatus captures a status event to the buffer.
func (r *bufferStreamRenderer) OnStatus(ctx context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.events = append(r.events, NewStatusEvent(message))
	r.result.TotalEvents++
}

// OnToken captures a token event and accumulates the answer.
func (r *bufferStreamRenderer) OnToken(ctx context.Context, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	if r.result.FirstTokenAt == 0 {
		r.result.FirstTokenAt = time.Now().UnixMilli()
	}

	r.answerBuilder.WriteString(token)
	r.events = append(r.events, NewTokenEvent(token))
	r.result.TotalTokens++
	r.result.TotalEvents++
}

// OnStepStart captures a step_start event.
func (r *bufferStreamRenderer) OnStepStart(ctx context.Context, step int, title, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.events = append(r.events, NewStepStartEvent(step, title, description))
	r.result.TotalEvents++
}

// OnStepProgress captures a step_progress event.
func (r *bufferStreamRenderer) OnStepProgress(ctx context.Context, step int, chars int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.events = append(r.events, NewStepProgressEvent(step, chars))
	r.result.TotalEvents++
}

// OnStepResult captures a step_result event and decodes it into the report.
func (r *bufferStreamRenderer) OnStepResult(ctx context.Context, step int, result json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	if r.result.Report == nil {
		r.result.Report = &AnalysisReport{}
	}
	// Decode failures are intentionally swallowed; the raw event is
	// still captured for inspection.
	_ = r.result.Report.ApplyStageResult(step, result)

	r.events = append(r.events, NewStepResultEvent(step, result))
	r.result.TotalEvents++
}

// OnDone captures a done event.
func (r *bufferStreamRenderer) OnDone(ctx context.Context, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.result.SessionID = sessionID
	r.result.CompletedAt = time.Now().UnixMilli()
	r.events = append(r.events, NewDoneEvent(sessionID))
	r.result.TotalEvents++
}

// OnError captures an error event.
func (r *bufferStreamRenderer) OnError(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.result.Error = err.Error()
	r.result.CompletedAt = time.Now().UnixMilli()
	r.events = append(r.events, NewErrorEvent(err.Error()))
	r.result.TotalEvents++
}

// Finalize marks the buffer renderer as complete.
func (r *bufferStreamRenderer) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}
	r.finalized = true

	r.result.Answer = r.answerBuilder.String()
	if r.result.CompletedAt == 0 {
		r.result.CompletedAt = time.Now().UnixMilli()
	}
}

// Result returns the accumulated StreamResult.
//
// Returns a copy of the result to prevent race conditions.
func (r *bufferStreamRenderer) Result() *StreamResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := *r.result
	result.Answer = r.answerBuilder.String()
	return &result
}

// Events returns all captured events for testing inspection.
//
// This method is specific to bufferStreamRenderer and not part of the
// StreamRenderer interface. Cast the renderer to access it.
func (r *bufferStreamRenderer) Events() []StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Return a copy to avoid race conditions
	events := make([]StreamEvent, len(r.events))
	copy(events, r.events)
	return events
}

// =============================================================================
// Convenience Functions
// =============================================================================

// RenderStream reads a stream and dispatches every event to the renderer.
//
// This function combines StreamReader and StreamRenderer into a single
// call. The renderer's Finalize is invoked before returning, even when
// reading fails.
//
// Parameters:
//   - ctx: Context for cancellation. When cancelled, reading stops.
//   - reader: StreamReader to use for parsing the stream format.
//   - source: io.Reader containing the stream data. Caller is responsible
//     for closing this reader.
//   - renderer: Destination for rendered events.
//
// Returns:
//   - *StreamResult: The renderer's aggregated result.
//   - error: Non-nil if reading failed (parse error, context cancelled, etc.)
func RenderStream(ctx context.Context, reader StreamReader, source io.Reader, renderer StreamRenderer) (*StreamResult, error) {
	err := reader.Read(ctx, source, func(event StreamEvent) error {
		switch event.Type {
		case StreamEventStatus:
			renderer.OnStatus(ctx, event.Message)
		case StreamEventToken:
			renderer.OnToken(ctx, event.Content)
		case StreamEventStepStart:
			renderer.OnStepStart(ctx, event.Step, event.Title, event.Description)
		case StreamEventStepProgress:
			renderer.OnStepProgress(ctx, event.Step, event.Chars)
		case StreamEventStepResult:
			renderer.OnStepResult(ctx, event.Step, event.Result)
		case StreamEventDone:
			renderer.OnDone(ctx, event.SessionID)
		case StreamEventError:
			renderer.OnError(ctx, fmt.Errorf("%s", event.Error))
		}
		return nil
	})

	renderer.Finalize()
	return renderer.Result(), err
}

// RenderStreamToResult is a convenience function that reads a stream and
// returns the aggregated result without rendering output.
func RenderStreamToResult(ctx context.Context, reader StreamReader, source io.Reader) (*StreamResult, error) {
	return reader.ReadAll(ctx, source)
}

// =============================================================================
// Compile-time Interface Checks
// =============================================================================

var _ StreamRenderer = (*terminalStreamRenderer)(nil)
var _ StreamRenderer = (*bufferStreamRenderer)(nil)

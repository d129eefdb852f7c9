// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func newMachineChatUI() (ChatUI, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewChatUIWithWriter(buf, PersonalityMachine), buf
}

// =============================================================================
// Header Tests
// =============================================================================

func TestHeader_Machine(t *testing.T) {
	ui, buf := newMachineChatUI()

	ui.Header(HeaderConfig{
		SessionID: "sess-1",
		ServerURL: "http://localhost:12210",
	})

	output := buf.String()
	if !strings.Contains(output, "CHAT_START: mode=followup") {
		t.Errorf("missing chat start line: %q", output)
	}
	if !strings.Contains(output, "session=sess-1") {
		t.Errorf("missing session: %q", output)
	}
	if !strings.Contains(output, "server=http://localhost:12210") {
		t.Errorf("missing server: %q", output)
	}
}

func TestHeader_Minimal(t *testing.T) {
	buf := &bytes.Buffer{}
	ui := NewChatUIWithWriter(buf, PersonalityMinimal)

	ui.Header(HeaderConfig{Idea: "AI sneaker price tracker"})

	output := buf.String()
	if !strings.Contains(output, "Follow-up Chat") {
		t.Errorf("missing title: %q", output)
	}
	if !strings.Contains(output, "AI sneaker price tracker") {
		t.Errorf("missing idea: %q", output)
	}
}

func TestHeader_FullTruncatesLongIdea(t *testing.T) {
	buf := &bytes.Buffer{}
	ui := NewChatUIWithWriter(buf, PersonalityFull)

	longIdea := strings.Repeat("long idea ", 20)
	ui.Header(HeaderConfig{Idea: longIdea})

	if strings.Contains(buf.String(), longIdea) {
		t.Error("long ideas should be truncated in the header")
	}
	if !strings.Contains(buf.String(), "...") {
		t.Error("truncated ideas should end with ellipsis")
	}
}

// =============================================================================
// Response and Error Tests
// =============================================================================

func TestResponse_Machine(t *testing.T) {
	ui, buf := newMachineChatUI()

	ui.Response("The market looks crowded.")

	if !strings.Contains(buf.String(), "RESPONSE: The market looks crowded.") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestResponse_Interactive(t *testing.T) {
	buf := &bytes.Buffer{}
	ui := NewChatUIWithWriter(buf, PersonalityMinimal)

	ui.Response("Hello")

	if !strings.Contains(buf.String(), "Hello") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if strings.Contains(buf.String(), "RESPONSE:") {
		t.Error("interactive modes should not use machine prefixes")
	}
}

func TestError_Machine(t *testing.T) {
	ui, buf := newMachineChatUI()

	ui.Error(errors.New("server unreachable"))

	if !strings.Contains(buf.String(), "CHAT_ERROR: server unreachable") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestPrompt(t *testing.T) {
	ui, _ := newMachineChatUI()
	if ui.Prompt() != "> " {
		t.Errorf("machine prompt should be plain, got %q", ui.Prompt())
	}
}

// =============================================================================
// Session Lifecycle Tests
// =============================================================================

func TestSessionResume_Machine(t *testing.T) {
	ui, buf := newMachineChatUI()

	ui.SessionResume("sess-9", 4)

	if !strings.Contains(buf.String(), "SESSION_RESUME: session=sess-9 turns=4") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestSessionEnd_Machine(t *testing.T) {
	ui, buf := newMachineChatUI()

	ui.SessionEnd("sess-9")

	if !strings.Contains(buf.String(), "CHAT_END: session=sess-9") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestSessionEndRich_Machine(t *testing.T) {
	ui, buf := newMachineChatUI()

	ui.SessionEndRich("sess-9", &SessionStats{
		MessageCount: 3,
		TotalTokens:  512,
		Duration:     90 * time.Second,
	})

	output := buf.String()
	if !strings.Contains(output, "messages=3") {
		t.Errorf("missing message count: %q", output)
	}
	if !strings.Contains(output, "tokens=512") {
		t.Errorf("missing token count: %q", output)
	}
}

func TestSessionEndRich_NilStatsFallsBack(t *testing.T) {
	ui, buf := newMachineChatUI()

	ui.SessionEndRich("sess-9", nil)

	if !strings.Contains(buf.String(), "CHAT_END: session=sess-9") {
		t.Errorf("nil stats should fall back to plain end: %q", buf.String())
	}
}

func TestSessionEndRich_FullIncludesResumeCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	ui := NewChatUIWithWriter(buf, PersonalityFull)

	ui.SessionEndRich("sess-9", &SessionStats{
		MessageCount: 2,
		TotalTokens:  100,
		Duration:     time.Minute,
	})

	if !strings.Contains(buf.String(), "ideagauge chat --resume sess-9") {
		t.Errorf("missing resume command: %q", buf.String())
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{500 * time.Millisecond, "500ms"},
		{5 * time.Second, "5.0s"},
		{90 * time.Second, "1m 30s"},
		{2 * time.Minute, "2m"},
		{2 * time.Hour, "2h 0m"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.expected {
			t.Errorf("formatDuration(%v) = %q, expected %q", tt.d, got, tt.expected)
		}
	}
}

func TestTruncateIdea(t *testing.T) {
	short := "a short idea"
	if truncateIdea(short) != short {
		t.Error("short ideas pass through")
	}

	long := strings.Repeat("x", 100)
	truncated := truncateIdea(long)
	if len(truncated) != 48 {
		t.Errorf("expected 48 chars, got %d", len(truncated))
	}
	if !strings.HasSuffix(truncated, "...") {
		t.Error("truncated ideas end with ellipsis")
	}
}

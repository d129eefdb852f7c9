// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// runChatCommand starts an interactive follow-up chat session.
//
// # Description
//
// Opens an interactive loop against POST /v1/chat/direct/stream. New
// sessions get a generated ID; --resume reloads a saved transcript.
// SIGINT/SIGTERM trigger a graceful shutdown that still saves the
// transcript for later resume.
func runChatCommand(cmd *cobra.Command, args []string) {
	runner := NewChatRunner(ChatRunnerConfig{
		BaseURL:   getServerBaseURL(),
		SessionID: chatResumeID,
		Idea:      chatIdea,
	})
	defer func() {
		if err := runner.Close(); err != nil {
			log.Printf("Warning: failed to save session: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Chat session failed: %v", err)
	}
}

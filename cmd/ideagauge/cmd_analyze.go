// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IdeaGaugeAI/IdeaGauge/pkg/ux"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runAnalyzeCommand executes the analysis pipeline and displays results.
//
// # Description
//
// Reads the idea from arguments or stdin, streams the five stage results
// from the orchestrator, and optionally verifies the event hash chain or
// emits the final report as JSON.
//
// # Limitations
//
//   - Exits with code 1 on network errors, stream errors, or a failed
//     chain verification.
func runAnalyzeCommand(cmd *cobra.Command, args []string) {
	idea, err := resolveIdea(args)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	steps, err := parseSteps(analyzeSteps)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	// JSON output suppresses the interactive rendering so stdout stays
	// parseable. Progress still matters, so it goes to stderr.
	writer := io.Writer(os.Stdout)
	personality := ux.GetPersonality().Level
	if analyzeJSON {
		writer = os.Stderr
		personality = ux.PersonalityMachine
	}

	service := NewAnalysisService(AnalysisServiceConfig{
		BaseURL:     getServerBaseURL(),
		Steps:       steps,
		Writer:      writer,
		Personality: personality,
		Timeout:     getRequestTimeout(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	result, err := service.Analyze(ctx, idea)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	if result.HasError() {
		os.Exit(1)
	}

	if analyzeVerify {
		if !verifyResult(result) {
			os.Exit(1)
		}
	}

	if analyzeJSON {
		if err := printReportJSON(os.Stdout, result); err != nil {
			log.Fatalf("Error encoding report: %v", err)
		}
	}
}

// resolveIdea returns the idea text from args, falling back to stdin when
// input is piped. An interactive invocation without arguments is an error
// rather than a silent blocking read.
func resolveIdea(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}

	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return "", fmt.Errorf("no idea given; pass it as an argument or pipe it via stdin")
	}

	scanner := bufio.NewScanner(os.Stdin)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	idea := strings.TrimSpace(strings.Join(lines, " "))
	if idea == "" {
		return "", fmt.Errorf("no idea given; pass it as an argument or pipe it via stdin")
	}
	return idea, nil
}

// parseSteps parses a comma-separated stage selection like "1,3,5".
//
// Empty input selects every stage. Out-of-range numbers are rejected here
// so typos fail fast instead of being silently dropped server-side.
func parseSteps(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var steps []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid step %q: must be a number between 1 and 5", part)
		}
		if n < 1 || n > 5 {
			return nil, fmt.Errorf("invalid step %d: must be between 1 and 5", n)
		}
		steps = append(steps, n)
	}
	return steps, nil
}

// verifyResult recomputes the event hash chain client-side.
//
// Returns true when the chain is intact. The verdict is printed in the
// current personality so scripts can grep machine output.
func verifyResult(result *ux.StreamResult) bool {
	verifier := ux.NewFullChainVerifier()
	verification := verifier.Verify(result.Events)
	info := ux.NewIntegrityInfo(result, verification)

	if verification.Valid {
		ux.Success(info.FormatForDisplay())
	} else {
		ux.Error(info.FormatForDisplay())
	}
	return verification.Valid
}

// printReportJSON writes the final report as indented JSON.
func printReportJSON(w io.Writer, result *ux.StreamResult) error {
	out := struct {
		SessionID string             `json:"session_id,omitempty"`
		Report    *ux.AnalysisReport `json:"report"`
	}{
		SessionID: result.SessionID,
		Report:    result.Report,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

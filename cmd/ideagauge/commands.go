// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/IdeaGaugeAI/IdeaGauge/pkg/ux"
)

// --- Global Command Variables ---
var (
	serverURL        string // CLI override for the orchestrator address
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	analyzeSteps  string // Comma-separated stage selection (e.g., "1,2,5")
	analyzeVerify bool   // Verify the SSE hash chain after streaming
	analyzeJSON   bool   // Emit the final report as JSON

	chatResumeID string // Session ID to resume
	chatIdea     string // Idea context shown in the chat header

	healthJSON bool // Emit the health response as raw JSON

	rootCmd = &cobra.Command{
		Use:   "ideagauge",
		Short: "A cli to gauge startup and side-project ideas",
		Long: `IdeaGauge runs a five stage feasibility analysis over an idea:
				market scan, open source scan, feasibility, differentiation,
				and a final GO/PIVOT/KILL verdict.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := loadConfig(); err != nil {
				log.Fatalf("Error loading config: %v", err)
			}
			// Initialize UX personality from flag, config, or environment
			switch {
			case personalityLevel != "":
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			case config.Personality != "":
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(config.Personality))
			default:
				ux.InitPersonality()
			}
		},
	}

	// --- Analyze ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze [idea]",
		Short: "Run the full analysis pipeline on an idea",
		Long: `Submits an idea to the orchestrator and streams the stage
				results as they complete. The idea may be given as arguments
				or piped via stdin.`,
		Run: runAnalyzeCommand, // Defined in cmd_analyze.go
	}

	// --- Chat ---
	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive follow-up chat session",
		Run:   runChatCommand, // Defined in cmd_chat.go
	}

	// --- Health ---
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check orchestrator reachability and status",
		Run:   runHealthCommand, // Defined in cmd_health.go
	}
)

// init runs when the Go program starts
func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default), standard, minimal, or machine (scripting)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"Orchestrator base URL (default http://localhost:12210)")

	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeSteps, "steps", "",
		"Comma-separated stage numbers to run (1-5, default all)")
	analyzeCmd.Flags().BoolVar(&analyzeVerify, "verify", false,
		"Verify the event hash chain after the stream completes")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false,
		"Print the final report as JSON instead of rendering it")

	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatResumeID, "resume", "",
		"Resume a conversation using a specific session ID.")
	chatCmd.Flags().StringVar(&chatIdea, "idea", "",
		"Idea the conversation is about, shown in the chat header")

	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVar(&healthJSON, "json", false,
		"Print the raw health response as JSON")
}

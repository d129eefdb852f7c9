// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/IdeaGaugeAI/IdeaGauge/pkg/ux"
)

// healthCheckTimeout bounds the liveness probe. Health must answer fast;
// a slow server is treated as unhealthy.
const healthCheckTimeout = 10 * time.Second

// healthResponse mirrors the orchestrator's /health body.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// runHealthCommand checks orchestrator reachability.
//
// Exits with code 1 when the server is unreachable or reports anything
// other than "ok", so scripts can use it as a probe.
func runHealthCommand(cmd *cobra.Command, args []string) {
	baseURL := getServerBaseURL()

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	health, raw, err := fetchHealth(ctx, NewHTTPClient(healthCheckTimeout), baseURL)
	if err != nil {
		ux.Error(fmt.Sprintf("Orchestrator unreachable at %s: %v", baseURL, err))
		os.Exit(1)
	}

	if healthJSON {
		fmt.Println(string(raw))
		if health.Status != "ok" {
			os.Exit(1)
		}
		return
	}

	if health.Status != "ok" {
		ux.Error(fmt.Sprintf("%s reports status %q", baseURL, health.Status))
		os.Exit(1)
	}
	ux.Success(fmt.Sprintf("%s is healthy (%s)", baseURL, health.Service))
}

// fetchHealth performs the GET /health probe and returns both the parsed
// response and the raw body for --json passthrough.
func fetchHealth(ctx context.Context, client HTTPClient, baseURL string) (*healthResponse, []byte, error) {
	resp, err := client.Get(ctx, fmt.Sprintf("%s/health", baseURL))
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var health healthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, nil, fmt.Errorf("parse response: %w", err)
	}
	return &health, body, nil
}

// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package providers holds the thin HTTP clients for the pipeline's external
// collaborators: the Tavily search API, the GitHub repository search API,
// the npm registry, and per-domain robots.txt fetching.
//
// Each client exposes a narrow method set and accepts an injected
// HTTPClient so tests can run without network access. Missing credentials
// are reported at construction time; callers fall back to deterministic
// stage results when a provider is unavailable.
package providers

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// HTTPClient interface allows injecting mock HTTP clients for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// loadSecret reads a credential from the environment, then from the
// container secrets mount.
func loadSecret(envVar, secretName string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	secretPath := "/run/secrets/" + secretName
	if content, err := os.ReadFile(secretPath); err == nil {
		slog.Info("Read credential from Podman Secrets", "secret", secretName)
		return strings.TrimSpace(string(content))
	}
	return ""
}

// VerifyURL confirms an evidence URL still resolves, using a HEAD request
// with a short timeout. Any network failure or 5xx status counts as
// unverified; 4xx short of 500 still verifies the host exists.
func VerifyURL(ctx context.Context, client HTTPClient, rawURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

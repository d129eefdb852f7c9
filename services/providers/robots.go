// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package providers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/IdeaGaugeAI/IdeaGauge/services/evidence"
)

// RobotsChecker is the contract the data-availability checker depends on.
type RobotsChecker interface {
	CheckDomains(ctx context.Context, urls []string) (blocked bool, checkedDomain string)
}

// RobotsClient fetches robots.txt files and classifies them with the
// evidence package's wildcard-agent rules.
type RobotsClient struct {
	httpClient HTTPClient
}

func NewRobotsClient(httpClient HTTPClient) *RobotsClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &RobotsClient{httpClient: httpClient}
}

// CheckDomains fetches robots.txt for at most two distinct domains drawn
// from the evidence URLs and reports whether any of them disallows all
// crawling. Fetch failures are absence of a signal, never evidence of
// blocking.
func (r *RobotsClient) CheckDomains(ctx context.Context, urls []string) (bool, string) {
	seen := make(map[string]struct{}, 2)
	for _, u := range urls {
		domain := evidence.ExtractDomain(u)
		if domain == "" {
			continue
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}

		body, err := r.fetchRobots(ctx, domain)
		if err != nil {
			slog.Debug("robots.txt fetch failed, treating as not blocking", "domain", domain, "error", err)
		} else if evidence.IsRobotsDisallowAll(body) {
			return true, domain
		}

		if len(seen) >= 2 {
			break
		}
	}
	return false, ""
}

func (r *RobotsClient) fetchRobots(ctx context.Context, domain string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+domain+"/robots.txt", nil)
	if err != nil {
		return "", err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Any non-200 means the domain publishes no usable policy file.
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

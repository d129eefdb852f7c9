// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// HTTP CLIENT ABSTRACTION
// =============================================================================

// HTTPClient abstracts HTTP operations for testability.
//
// # Description
//
// Services depend on this interface instead of *http.Client directly so
// tests can inject canned responses without a network. The production
// implementation is defaultHTTPClient.
//
// # Limitations
//
//   - Callers own the response body and must close it.
type HTTPClient interface {
	// Post sends a POST request with the given content type and body.
	Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error)

	// Get sends a GET request.
	Get(ctx context.Context, url string) (*http.Response, error)
}

// defaultHTTPClient implements HTTPClient using net/http.
type defaultHTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates the production HTTP client with the given timeout.
// A zero timeout means no client-side deadline; streaming callers usually
// rely on the request context instead.
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &defaultHTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

func (c *defaultHTTPClient) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/event-stream")
	return c.client.Do(req)
}

func (c *defaultHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// Compile-time interface check.
var _ HTTPClient = (*defaultHTTPClient)(nil)

// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultServerHost is the standard orchestrator host.
	DefaultServerHost = "localhost"

	// DefaultServerPort is the standard orchestrator port.
	DefaultServerPort = 12210

	// DefaultRequestTimeout bounds a full analysis stream. Five stages with
	// provider calls can legitimately take minutes.
	DefaultRequestTimeout = 5 * time.Minute
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config holds CLI settings loaded from ~/.ideagauge/config.yaml.
//
// # Description
//
// All fields are optional. A missing config file is not an error; defaults
// and environment variables apply. Resolution order for the server URL is
// flag, then IDEAGAUGE_SERVER_URL, then this file, then the default.
type Config struct {
	Server struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"server"`

	// Personality sets the default output style (full/standard/minimal/machine).
	Personality string `yaml:"personality"`
}

var config Config

// =============================================================================
// CONFIG LOADING
// =============================================================================

// configDir returns the per-user settings directory, creating nothing.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".ideagauge"), nil
}

// historyDir returns the directory holding saved chat transcripts.
func historyDir() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// loadConfig reads the config file if it exists.
//
// A missing file leaves the zero-value Config in place so every setting
// falls through to env vars and defaults. A malformed file is an error
// because silently ignoring it would mask typos.
func loadConfig() error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	return loadConfigFrom(filepath.Join(dir, "config.yaml"))
}

// loadConfigFrom reads and parses a specific config path.
func loadConfigFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// RESOLUTION HELPERS
// =============================================================================

// getServerBaseURL resolves the orchestrator address.
//
// Priority: --server flag, IDEAGAUGE_SERVER_URL (used by tests and container
// overrides), config file, then the standard host and port.
func getServerBaseURL() string {
	if serverURL != "" {
		return serverURL
	}
	if url := os.Getenv("IDEAGAUGE_SERVER_URL"); url != "" {
		return url
	}
	if config.Server.URL != "" {
		return config.Server.URL
	}
	return fmt.Sprintf("http://%s:%d", DefaultServerHost, DefaultServerPort)
}

// getRequestTimeout resolves the HTTP timeout for streaming requests.
// Invalid durations in the config fall back to the default rather than
// aborting the command.
func getRequestTimeout() time.Duration {
	if config.Server.Timeout == "" {
		return DefaultRequestTimeout
	}
	d, err := time.ParseDuration(config.Server.Timeout)
	if err != nil || d <= 0 {
		return DefaultRequestTimeout
	}
	return d
}

// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for IdeaGauge components.
//
// The package wraps log/slog with the two destinations IdeaGauge services
// actually run with: stderr (text for terminals, JSON when requested) and
// an optional per-service log file. File logs are always JSON because they
// feed machine processing.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:   slog.LevelInfo,
//	    LogDir:  "~/.ideagauge/logs", // supports ~ expansion
//	    Service: "orchestrator",
//	    JSON:    true,
//	})
//	defer logger.Close()
//	slog.SetDefault(logger.Logger)
//
// Close syncs and closes the log file; services call it on shutdown.
//
// # Security Considerations
//
// Nothing here redacts sensitive data. Callers must keep tokens and PII
// out of log attributes:
//
//	// BAD: logs sensitive data
//	logger.Info("auth", "token", authToken)
//
//	// GOOD: log metadata only
//	logger.Info("auth", "token_present", authToken != "")
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// =============================================================================
// Configuration
// =============================================================================

// Config configures a Logger. The zero value writes Info and above to
// stderr as human-readable text.
type Config struct {
	// Level is the minimum level written to every destination.
	// Default: slog.LevelInfo (the slog.Level zero value).
	Level slog.Level

	// LogDir enables file logging to the given directory. The file is
	// named "{Service}_{YYYY-MM-DD}.log" and is always JSON. A leading ~
	// expands to the user's home directory. Empty disables file logging.
	LogDir string

	// Service identifies the component generating logs. It is attached to
	// every record as the "service" attribute and names the log file.
	// Recommended values: "cli", "orchestrator".
	Service string

	// JSON switches stderr output from text to JSON. File output is JSON
	// either way.
	JSON bool

	// Quiet disables stderr output, leaving only the file destination.
	// Useful for daemon processes where stderr is not monitored.
	Quiet bool
}

// =============================================================================
// Logger
// =============================================================================

// Logger is a slog.Logger bound to IdeaGauge's stderr and file
// destinations. The embedded methods (Info, Warn, With, ...) are the
// logging surface; Close releases the file handle.
//
// Safe for concurrent use.
type Logger struct {
	*slog.Logger

	file *os.File
}

// New builds a Logger from config. Destinations that cannot be opened are
// skipped rather than failing construction; a logger that can write
// nowhere falls back to stderr so records are never silently lost.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level}

	var handlers []slog.Handler
	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}

	logger := &Logger{}
	if config.LogDir != "" {
		if file := openLogFile(config.LogDir, config.Service); file != nil {
			logger.file = file
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(os.Stderr, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &fanoutHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", config.Service),
		})
	}

	logger.Logger = slog.New(handler)
	return logger
}

// Default returns a stderr-only text logger at Info level with the
// "ideagauge" service attribute.
func Default() *Logger {
	return New(Config{Service: "ideagauge"})
}

// Close syncs and closes the log file, if one is open. Call it on
// shutdown when the logger was built with a LogDir.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		return fmt.Errorf("sync log file: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// openLogFile creates the log directory and opens today's per-service log
// file for appending. Returns nil when either step fails; the caller then
// runs without a file destination.
func openLogFile(dir, service string) *os.File {
	logDir := expandPath(dir)
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil
	}
	if service == "" {
		service = "ideagauge"
	}
	filename := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(logDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil
	}
	return file
}

// =============================================================================
// Fan-out Handler (Internal)
// =============================================================================

// fanoutHandler sends each record to every underlying handler, letting
// stderr and the file carry different formats.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: handlers}
}

// =============================================================================
// Helpers
// =============================================================================

// expandPath expands a leading ~ to the user's home directory. Other
// paths pass through unchanged.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

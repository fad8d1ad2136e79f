// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger used across inkwell.
//
// In TUI mode the logger must never write to stdout: Bubble Tea owns the
// terminal, so logs go to a file under the inkwell home directory. The
// line-mode CLI may log to stderr in console format instead.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	// Level is one of "trace", "debug", "info", "warn", "error".
	// Unknown values fall back to "info".
	Level string

	// File is the log file path. Empty means stderr.
	File string

	// Console enables the human-readable console writer. Ignored when
	// writing to a file: files always get JSON lines.
	Console bool
}

// New creates a configured zerolog logger.
// File creation failures fall back to stderr rather than failing startup;
// the returned logger is always usable.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if opts.File != "" {
		if f, ferr := openLogFile(opts.File); ferr == nil {
			out = f
		}
	} else if opts.Console {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop returns a disabled logger for tests and optional dependencies.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the inkwell application.
package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText returns s in NFC form with control characters removed.
// Newlines and tabs survive; everything else in the control planes is
// dropped so fragment payloads and titles render predictably.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// CollapseSpace flattens a string onto one line: newlines and tabs become
// single spaces and runs of whitespace collapse. Used for titles and
// previews where multi-line content would break list layouts.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the inkwell application.
//
// This package contains common helper functions used throughout the
// application for string handling, text normalization, and file operations.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth: display-width aware truncation (CJK safe)
//
// Text Normalization:
//   - NormalizeText: NFC normalization plus control character stripping
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util

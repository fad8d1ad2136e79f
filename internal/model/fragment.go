// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

// =============================================================================
// FRAGMENT TYPES
// =============================================================================

// FragmentKind categorizes a knowledge fragment by its origin.
type FragmentKind string

const (
	FragmentScan  FragmentKind = "scan"
	FragmentText  FragmentKind = "text"
	FragmentImage FragmentKind = "image"
	FragmentLink  FragmentKind = "link"
	FragmentFile  FragmentKind = "file"
)

// FragmentKinds lists the known kinds in their fixed composition order.
// The order is part of the prompt contract: changing it changes what the
// provider receives for identical inputs.
var FragmentKinds = []FragmentKind{
	FragmentScan,
	FragmentText,
	FragmentImage,
	FragmentLink,
	FragmentFile,
}

// Valid reports whether the kind is one of the known values.
func (k FragmentKind) Valid() bool {
	switch k {
	case FragmentScan, FragmentText, FragmentImage, FragmentLink, FragmentFile:
		return true
	}
	return false
}

// Fragment is an external knowledge snippet optionally merged into the
// outgoing prompt. Fragments never appear in the persisted transcript: the
// user-visible message always stores the raw input.
type Fragment struct {
	Kind    FragmentKind `json:"kind"`
	Payload string       `json:"payload"`
}

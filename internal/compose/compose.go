// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package compose builds the outgoing prompt from user input and knowledge
// fragments.
//
// Composition is a pure function: the knowledge context is prepended to the
// user's input, never interleaved with it, and the persisted message always
// stores the raw input so that changing or clearing a knowledge association
// later never corrupts chat history display.
package compose

import (
	"strconv"
	"strings"

	"github.com/mgrindal/inkwell-tui/internal/model"
	"github.com/mgrindal/inkwell-tui/internal/util"
)

// =============================================================================
// KIND PREAMBLES
// =============================================================================

// preambles maps each fragment kind to the fixed sentence that introduces
// its section. Wording is part of the prompt contract; changing it changes
// model behavior.
var preambles = map[model.FragmentKind]string{
	model.FragmentScan:  "The following text was extracted from scanned documents and may contain recognition errors: ",
	model.FragmentText:  "The following note excerpts are provided as reference: ",
	model.FragmentImage: "The following image descriptions are provided as reference: ",
	model.FragmentLink:  "The following linked resources are provided as reference: ",
	model.FragmentFile:  "The following attached files are provided as reference: ",
}

// =============================================================================
// COMPOSITION
// =============================================================================

// Compose merges knowledge fragments with the user's raw input.
//
// Fragments are partitioned by kind and rendered in a fixed kind order
// (scan, text, image, link, file). Each non-empty section is the kind's
// preamble followed by an enumerated, semicolon-joined list ("1. A; 2. B").
// Sections are joined by blank lines and rawInput is always the suffix of
// the result. With no usable fragments, rawInput is returned unchanged.
//
// Fragments with an unknown kind or an empty payload are skipped, never an
// error. Payloads are normalized before rendering.
func Compose(rawInput string, fragments []model.Fragment) string {
	if len(fragments) == 0 {
		return rawInput
	}

	byKind := make(map[model.FragmentKind][]string, len(preambles))
	for _, f := range fragments {
		if !f.Kind.Valid() {
			continue
		}
		payload := util.NormalizeText(f.Payload)
		if strings.TrimSpace(payload) == "" {
			continue
		}
		byKind[f.Kind] = append(byKind[f.Kind], payload)
	}

	var sections []string
	for _, kind := range model.FragmentKinds {
		payloads := byKind[kind]
		if len(payloads) == 0 {
			continue
		}
		sections = append(sections, renderSection(kind, payloads))
	}

	if len(sections) == 0 {
		return rawInput
	}

	sections = append(sections, rawInput)
	return strings.Join(sections, "\n\n")
}

// renderSection renders one kind's fragments as its preamble plus an
// enumerated list: "1. first; 2. second".
func renderSection(kind model.FragmentKind, payloads []string) string {
	var b strings.Builder
	b.WriteString(preambles[kind])
	for i, p := range payloads {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(p)
	}
	return b.String()
}

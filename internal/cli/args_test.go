// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestArgParserSubcommandAndRest(t *testing.T) {
	p := NewArgParser([]string{"ask", "what", "is", "markdown"})
	if p.Subcommand() != "ask" {
		t.Fatalf("subcommand = %q, want ask", p.Subcommand())
	}
	if got := p.Rest(); got != "what is markdown" {
		t.Fatalf("rest = %q", got)
	}
}

func TestArgParserFlagFormats(t *testing.T) {
	p := NewArgParser([]string{"chat", "--model", "llama3.1", "--session=abc", "-q"})
	if got := p.Flag("model", "m"); got != "llama3.1" {
		t.Fatalf("model = %q", got)
	}
	if got := p.Flag("session"); got != "abc" {
		t.Fatalf("session = %q", got)
	}
	if !p.BoolFlag("quiet", "q") {
		t.Fatal("expected -q to set quiet")
	}
}

func TestArgParserBoolOnlyFlagDoesNotConsumeValue(t *testing.T) {
	p := NewArgParser([]string{"sessions", "export", "--json", "abc123"})
	if !p.BoolFlag("json") {
		t.Fatal("expected --json set")
	}
	pos := p.Positional()
	if len(pos) != 3 || pos[2] != "abc123" {
		t.Fatalf("positional = %v", pos)
	}
}

func TestArgParserFlagMissing(t *testing.T) {
	p := NewArgParser([]string{"chat"})
	if p.Flag("model") != "" {
		t.Fatal("expected empty flag")
	}
	if p.BoolFlag("plain") {
		t.Fatal("expected unset bool flag")
	}
}

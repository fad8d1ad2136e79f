// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mgrindal/inkwell-tui/internal/model"
)

func newTestDirProvider(t *testing.T) (*DirProvider, string) {
	t.Helper()
	dir := t.TempDir()
	return NewDirProvider(dir, zerolog.Nop()), dir
}

func TestDirProviderLoadsFragments(t *testing.T) {
	p, dir := newTestDirProvider(t)

	content := `[
		{"kind": "text", "payload": "meeting notes"},
		{"kind": "scan", "payload": "receipt text"}
	]`
	if err := os.WriteFile(filepath.Join(dir, "assoc1.json"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	fragments, err := p.FragmentsFor("assoc1")
	if err != nil {
		t.Fatalf("FragmentsFor: %v", err)
	}
	if len(fragments) != 2 {
		t.Fatalf("got %d fragments, want 2", len(fragments))
	}
	if fragments[0].Kind != model.FragmentText || fragments[0].Payload != "meeting notes" {
		t.Errorf("fragment 0 = %+v", fragments[0])
	}
	if fragments[1].Kind != model.FragmentScan {
		t.Errorf("fragment 1 kind = %q, want scan", fragments[1].Kind)
	}
}

func TestDirProviderUnknownAssociation(t *testing.T) {
	p, _ := newTestDirProvider(t)

	fragments, err := p.FragmentsFor("never-created")
	if err != nil {
		t.Fatalf("unknown association should not error: %v", err)
	}
	if len(fragments) != 0 {
		t.Errorf("got %d fragments, want 0", len(fragments))
	}
}

func TestDirProviderEmptyAssociationID(t *testing.T) {
	p, _ := newTestDirProvider(t)
	fragments, err := p.FragmentsFor("")
	if err != nil || fragments != nil {
		t.Errorf("empty id should return nil, nil; got %v, %v", fragments, err)
	}
}

func TestDirProviderSkipsBadEntries(t *testing.T) {
	p, dir := newTestDirProvider(t)

	content := `[
		{"kind": "hologram", "payload": "unknown kind"},
		{"kind": "text", "payload": "   "},
		{"kind": "link", "payload": "https://example.com"}
	]`
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	fragments, err := p.FragmentsFor("a")
	if err != nil {
		t.Fatalf("FragmentsFor: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("got %d fragments, want 1 (bad entries skipped)", len(fragments))
	}
	if fragments[0].Kind != model.FragmentLink {
		t.Errorf("kept fragment kind = %q, want link", fragments[0].Kind)
	}
}

func TestDirProviderMalformedFile(t *testing.T) {
	p, dir := newTestDirProvider(t)
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := p.FragmentsFor("bad"); err == nil {
		t.Error("malformed JSON should return an error")
	}
}

func TestDirProviderRejectsTraversal(t *testing.T) {
	p, _ := newTestDirProvider(t)
	for _, id := range []string{"../etc/passwd", "a/b", `a\b`} {
		if _, err := p.FragmentsFor(id); err == nil {
			t.Errorf("id %q should be rejected", id)
		}
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider()

	fragments, err := p.FragmentsFor("missing")
	if err != nil {
		t.Fatalf("FragmentsFor: %v", err)
	}
	if len(fragments) != 0 {
		t.Errorf("unknown association should be empty")
	}

	want := []model.Fragment{{Kind: model.FragmentText, Payload: "A"}}
	p.Set("assoc", want)

	fragments, err = p.FragmentsFor("assoc")
	if err != nil {
		t.Fatalf("FragmentsFor: %v", err)
	}
	if len(fragments) != 1 || fragments[0].Payload != "A" {
		t.Errorf("got %+v, want %+v", fragments, want)
	}
}

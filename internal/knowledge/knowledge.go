// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package knowledge supplies knowledge fragments for chat sessions.
//
// A session may be associated with external material (note excerpts,
// scanned text, links, files). The engine asks a Provider for the
// fragments of the active association before each dispatch and merges
// them into the outgoing prompt. Fragment sources are external; this
// package only reads what they produce.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mgrindal/inkwell-tui/internal/model"
)

// =============================================================================
// PROVIDER INTERFACE
// =============================================================================

// Provider supplies the fragments for a knowledge association.
type Provider interface {
	// FragmentsFor returns the fragments of the given association.
	// An unknown association returns an empty slice, not an error.
	FragmentsFor(associationID string) ([]model.Fragment, error)
}

// =============================================================================
// DIRECTORY PROVIDER
// =============================================================================

// DirProvider reads fragment sets from JSON files under a base directory.
// Each association is one file named <associationID>.json containing an
// array of {"kind": ..., "payload": ...} entries.
type DirProvider struct {
	dir string
	log zerolog.Logger
}

// NewDirProvider creates a provider rooted at dir.
func NewDirProvider(dir string, log zerolog.Logger) *DirProvider {
	return &DirProvider{dir: dir, log: log}
}

// fragmentEntry is the on-disk shape of a fragment.
type fragmentEntry struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// FragmentsFor loads the fragments for associationID from disk.
//
// RELIABILITY: malformed entries are skipped with a log line rather than
// failing the whole association; a chat must never be blocked by one bad
// fragment.
func (p *DirProvider) FragmentsFor(associationID string) ([]model.Fragment, error) {
	if associationID == "" {
		return nil, nil
	}
	if err := validAssociationID(associationID); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, associationID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read fragments for %s: %w", associationID, err)
	}

	var entries []fragmentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("malformed fragment file %s: %w", path, err)
	}

	fragments := make([]model.Fragment, 0, len(entries))
	for i, e := range entries {
		kind := model.FragmentKind(e.Kind)
		if !kind.Valid() {
			p.log.Warn().
				Str("association", associationID).
				Int("index", i).
				Str("kind", e.Kind).
				Msg("skipping fragment with unknown kind")
			continue
		}
		if strings.TrimSpace(e.Payload) == "" {
			continue
		}
		fragments = append(fragments, model.Fragment{Kind: kind, Payload: e.Payload})
	}
	return fragments, nil
}

// validAssociationID rejects ids that would escape the base directory.
func validAssociationID(id string) error {
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("invalid association id %q", id)
	}
	return nil
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

// StaticProvider serves fragments from memory. Used in tests and as the
// empty provider when no knowledge directory is configured.
type StaticProvider struct {
	mu   sync.RWMutex
	sets map[string][]model.Fragment
}

// NewStaticProvider creates an empty in-memory provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{sets: make(map[string][]model.Fragment)}
}

// Set replaces the fragments of an association.
func (p *StaticProvider) Set(associationID string, fragments []model.Fragment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sets[associationID] = fragments
}

// FragmentsFor returns the fragments of the given association.
func (p *StaticProvider) FragmentsFor(associationID string) ([]model.Fragment, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sets[associationID], nil
}

// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Unified argument parsing for inkwell CLI commands.
package cli

import (
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser provides unified argument parsing for CLI commands.
// It handles multiple flag formats consistently:
//   - Long flags: --flag value or --flag=value
//   - Short flags: -f value
//   - Boolean flags: --flag (no value needed)
//   - Positional arguments: arguments without flags
//   - Subcommands: first positional argument
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// boolOnlyFlags never consume a following value.
var boolOnlyFlags = map[string]bool{
	"quiet":    true,
	"q":        true,
	"json":     true,
	"markdown": true,
	"plain":    true,
	"help":     true,
	"h":        true,
	"version":  true,
}

// NewArgParser creates a new argument parser from raw arguments.
func NewArgParser(raw []string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		switch {
		case strings.HasPrefix(arg, "--") || strings.HasPrefix(arg, "-") && len(arg) > 1 && !strings.HasPrefix(arg, "--"):
			name := strings.TrimLeft(arg, "-")
			if eq := strings.Index(name, "="); eq >= 0 {
				p.flags[name[:eq]] = name[eq+1:]
				continue
			}
			if boolOnlyFlags[name] {
				p.boolFlags[name] = true
				continue
			}
			if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
				p.flags[name] = raw[i+1]
				i++
			} else {
				p.boolFlags[name] = true
			}
		default:
			p.positional = append(p.positional, arg)
		}
	}
	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	if len(p.positional) == 0 {
		return ""
	}
	return p.positional[0]
}

// Positional returns all positional arguments.
func (p *ArgParser) Positional() []string {
	return p.positional
}

// Rest returns the positional arguments after the subcommand, joined with
// spaces. Useful for free-text commands like ask.
func (p *ArgParser) Rest() string {
	if len(p.positional) <= 1 {
		return ""
	}
	return strings.Join(p.positional[1:], " ")
}

// Flag returns a string flag's value, checking each given name in order.
func (p *ArgParser) Flag(names ...string) string {
	for _, n := range names {
		if v, ok := p.flags[n]; ok {
			return v
		}
	}
	return ""
}

// BoolFlag returns true if any of the given flag names was set.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, n := range names {
		if p.boolFlags[n] {
			return true
		}
		if _, ok := p.flags[n]; ok {
			return true
		}
	}
	return false
}

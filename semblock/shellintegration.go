// Copyright © 2026 Semblock contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: semblock/shellintegration.go
// Summary: Interprets OSC 133 shell-integration sequences and the CSI > M SETMARK form.
// Usage: Forwards to the block tracker and sets per-line flags on the active row.
// Notes: Grounded on apps/texelterm/parser/parser.go's handleOSC133 and
//        original_source/src/vtbackend/ShellIntegration_test.cpp.

package semblock

import (
	"strconv"
	"strings"
)

// LineFlags is a per-row bitset mirroring the screen/grid model's flags.
// The grid itself is an external collaborator (see SPEC_FULL §1); this
// type is the minimal stand-in this subsystem writes through.
type LineFlags uint8

const (
	// LineFlagMarked denotes a prompt line (OSC 133;A / SETMARK).
	LineFlagMarked LineFlags = 1 << iota
	// LineFlagOutputStart denotes the first line of command output (OSC 133;C).
	LineFlagOutputStart
	// LineFlagCommandEnd denotes the line where a command finished (OSC 133;D).
	LineFlagCommandEnd
)

// Screen is the read/write surface this subsystem needs from the
// screen/grid model: the ability to OR flags onto the currently active
// row. The full grid (cell contents, scrolling, rendering) is out of
// scope here and owned elsewhere.
type Screen interface {
	// SetActiveLineFlags ORs flags onto the row the cursor currently sits on.
	SetActiveLineFlags(flags LineFlags)
}

// ShellIntegrationCallback is a capability object of function references
// the sink forwards every subcommand to, independent of whether the
// tracker is enabled (see original_source/ShellIntegration_test.cpp:
// MockShellIntegration fires on every A/B/C/D regardless of mode 2034).
// Unset fields are simply skipped — this is the struct-of-funcs
// re-architecture of the source's method-overriding interface, per
// Design Note 9.
type ShellIntegrationCallback struct {
	PromptStart        func(clickEvents bool)
	PromptEnd          func()
	CommandOutputStart func(commandLine *string)
	CommandFinished    func(exitCode int)
}

// ShellIntegrationSink parses OSC 133 payloads (and the CSI > M SETMARK
// equivalent), drives a BlockTracker when enabled, sets Screen line
// flags, and forwards every event to a ShellIntegrationCallback.
type ShellIntegrationSink struct {
	Tracker  *BlockTracker
	Screen   Screen
	Callback ShellIntegrationCallback
}

// NewShellIntegrationSink constructs a sink wired to tracker and screen.
// Either may be nil for a standalone sink (e.g. in tests that only care
// about callback forwarding); nil-safety is preserved throughout.
func NewShellIntegrationSink(tracker *BlockTracker, screen Screen) *ShellIntegrationSink {
	return &ShellIntegrationSink{Tracker: tracker, Screen: screen}
}

// HandleOSC133 processes the payload following "OSC 133;" (i.e. the
// substring after "133;", not including the leading "133;" itself).
// Subcommands other than A/B/C/D are not relevant to this core and are
// ignored. The sink is defensive against an empty payload.
func (s *ShellIntegrationSink) HandleOSC133(payload string) {
	if payload == "" {
		return
	}
	parts := strings.SplitN(payload, ";", 2)
	subcommand := parts[0]
	var arg string
	if len(parts) == 2 {
		arg = parts[1]
	}

	switch subcommand {
	case "A":
		clickEvents := arg == "click_events=1"
		s.setActiveLineFlags(LineFlagMarked)
		if s.Callback.PromptStart != nil {
			s.Callback.PromptStart(clickEvents)
		}
		if s.Tracker != nil {
			s.Tracker.PromptStart()
		}

	case "B":
		// Design Note 9 / Open Question: OSC 133;B has no observable effect
		// on the tracker or line flags in the source — only callback
		// forwarding. Preserved exactly; no semantics invented here.
		if s.Callback.PromptEnd != nil {
			s.Callback.PromptEnd()
		}

	case "C":
		var cmdline *string
		if value, ok := strings.CutPrefix(arg, "cmdline_url="); ok {
			decoded := percentDecode(value)
			cmdline = &decoded
		}
		if s.Tracker != nil && s.Tracker.IsEnabled() {
			s.setActiveLineFlags(LineFlagOutputStart)
		}
		if s.Callback.CommandOutputStart != nil {
			s.Callback.CommandOutputStart(cmdline)
		}
		if s.Tracker != nil {
			s.Tracker.CommandOutputStart(cmdline)
		}

	case "D":
		exitCode := 0
		if arg != "" {
			if code, err := strconv.Atoi(arg); err == nil {
				exitCode = code
			}
		}
		if s.Tracker != nil && s.Tracker.IsEnabled() {
			s.setActiveLineFlags(LineFlagCommandEnd)
		}
		if s.Callback.CommandFinished != nil {
			s.Callback.CommandFinished(exitCode)
		}
		if s.Tracker != nil {
			s.Tracker.CommandFinished(exitCode)
		}
	}
}

// HandleSetMark processes the CSI > M sequence, equivalent to
// OSC 133;A with no click events.
func (s *ShellIntegrationSink) HandleSetMark() {
	s.HandleOSC133("A")
}

func (s *ShellIntegrationSink) setActiveLineFlags(flags LineFlags) {
	if s.Screen != nil {
		s.Screen.SetActiveLineFlags(flags)
	}
}

// percentDecode applies standard %HH decoding. Malformed escapes pass
// through as literal text rather than failing, per SPEC_FULL §7.
func percentDecode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(hexByte(s[i+1], s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func hexByte(hi, lo byte) byte {
	return hexVal(hi)<<4 | hexVal(lo)
}

// Copyright © 2026 Semblock contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: semblock/tracker.go
// Summary: Mode-gated state machine tracking command blocks across OSC 133 events.
// Usage: Driven by the shell-integration sink and read by the query responder.
// Notes: Grounded on original_source/src/vtbackend/SemanticBlockTracker.{h,cpp}.

package semblock

// DefaultMaxBlocks is the default cap on completed command blocks retained
// by a BlockTracker when none is configured.
const DefaultMaxBlocks = 100

// CommandBlockInfo is one record of a shell command's lifecycle.
type CommandBlockInfo struct {
	// CommandLine is the literal command text after percent-decoding, or
	// nil if the shell never supplied one.
	CommandLine *string
	// ExitCode is -1 until the finish event is received.
	ExitCode int
	// Finished is true only after the finish event has been received.
	Finished bool
}

// BlockTracker maintains the current in-progress command block and a
// bounded ring of completed blocks, gated by an enabled/disabled mode
// mirroring DEC private mode 2034.
//
// A BlockTracker is not safe for concurrent use; callers serialize access
// the way the VT-processing thread serializes all mutations (see §5 of
// the subsystem spec).
type BlockTracker struct {
	maxBlocks int
	generator TokenGenerator

	enabled   bool
	token     *Token
	current   *CommandBlockInfo
	completed []CommandBlockInfo
}

// NewBlockTracker constructs a disabled tracker with an empty history.
// maxBlocks must be >= 1; values <= 0 fall back to DefaultMaxBlocks.
func NewBlockTracker(maxBlocks int, generator TokenGenerator) *BlockTracker {
	if maxBlocks <= 0 {
		maxBlocks = DefaultMaxBlocks
	}
	if generator == nil {
		generator = DefaultTokenGenerator
	}
	return &BlockTracker{maxBlocks: maxBlocks, generator: generator}
}

// SetEnabled transitions the tracker's mode.
//
// Enabling generates a fresh session token and resets all history, even
// if the tracker was already enabled. Disabling clears current, completed,
// and token atomically (from the caller's perspective: this method never
// yields partway through).
func (t *BlockTracker) SetEnabled(enabled bool) {
	if enabled {
		tok := t.generator.NextToken()
		t.token = &tok
		t.current = nil
		t.completed = nil
		t.enabled = true
		return
	}
	t.enabled = false
	t.token = nil
	t.current = nil
	t.completed = nil
}

// IsEnabled reports whether the tracker is currently enabled.
func (t *BlockTracker) IsEnabled() bool {
	return t.enabled
}

// CurrentToken returns the active session token, or nil if disabled.
func (t *BlockTracker) CurrentToken() *Token {
	return t.token
}

// ValidateToken reports whether the tracker is enabled and candidate
// matches the current session token.
func (t *BlockTracker) ValidateToken(candidate Token) bool {
	return t.enabled && t.token != nil && t.token.Equal(candidate)
}

// PromptStart handles OSC 133;A (or the CSI > M SETMARK equivalent).
//
// If the current block exists and is finished, it is pushed onto
// completed (evicting the oldest entry if the cap is exceeded). An
// unfinished current block is silently dropped — interrupted commands
// have unreliable metadata and would pollute the history. Either way a
// new, empty current block is started. No-op when disabled.
func (t *BlockTracker) PromptStart() {
	if !t.enabled {
		return
	}
	if t.current != nil && t.current.Finished {
		t.completed = append(t.completed, *t.current)
		if len(t.completed) > t.maxBlocks {
			t.completed = t.completed[len(t.completed)-t.maxBlocks:]
		}
	}
	t.current = &CommandBlockInfo{ExitCode: -1}
}

// CommandOutputStart handles OSC 133;C, recording the decoded command
// line on the current block (creating one if none exists). No-op when
// disabled.
func (t *BlockTracker) CommandOutputStart(commandLine *string) {
	if !t.enabled {
		return
	}
	t.ensureCurrent()
	t.current.CommandLine = commandLine
}

// CommandFinished handles OSC 133;D, recording the exit code and marking
// the current block finished (creating one if none exists). No-op when
// disabled.
func (t *BlockTracker) CommandFinished(exitCode int) {
	if !t.enabled {
		return
	}
	t.ensureCurrent()
	t.current.ExitCode = exitCode
	t.current.Finished = true
}

func (t *BlockTracker) ensureCurrent() {
	if t.current == nil {
		t.current = &CommandBlockInfo{ExitCode: -1}
	}
}

// CompletedBlocks returns a copy of the completed history, oldest first.
// The returned slice is safe to retain across subsequent tracker
// mutations — it does not alias internal storage.
func (t *BlockTracker) CompletedBlocks() []CommandBlockInfo {
	if len(t.completed) == 0 {
		return nil
	}
	out := make([]CommandBlockInfo, len(t.completed))
	copy(out, t.completed)
	return out
}

// CurrentBlock returns a copy of the in-progress block, or nil if none.
func (t *BlockTracker) CurrentBlock() *CommandBlockInfo {
	if t.current == nil {
		return nil
	}
	cur := *t.current
	return &cur
}

// Copyright © 2026 Semblock contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: semblock/terminal_test.go
// Summary: End-to-end scenarios from SPEC_FULL §8, driven as literal byte streams.

package semblock

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func newTestTerminal() (*Terminal, *BlockTracker, *fakeScreen) {
	tracker := NewBlockTracker(0, &sequentialGenerator{})
	screen := &fakeScreen{}
	term := NewTerminal(tracker, screen)
	return term, tracker, screen
}

func extractToken(t *testing.T, reply []byte) Token {
	t.Helper()
	const prefix = "\x1bP>2034;1b"
	s := string(reply)
	idx := strings.Index(s, prefix)
	if idx < 0 {
		t.Fatalf("no token reply found in %q", s)
	}
	rest := s[idx+len(prefix):]
	end := strings.Index(rest, "\x1b\\")
	if end < 0 {
		t.Fatalf("unterminated token reply: %q", s)
	}
	var a, b, c, d int
	if _, err := fmt.Sscanf(rest[:end], "%d;%d;%d;%d", &a, &b, &c, &d); err != nil {
		t.Fatalf("malformed token reply %q: %v", rest[:end], err)
	}
	return Token{uint16(a), uint16(b), uint16(c), uint16(d)}
}

func sbquery(ps, pn int, tok Token) string {
	return fmt.Sprintf("\x1b[>%d;%d;%d;%d;%d;%db", ps, pn, tok[0], tok[1], tok[2], tok[3])
}

// Scenario 1: Enable -> complete one -> query last.
func TestScenario_EnableCompleteQueryLast(t *testing.T) {
	term, _, _ := newTestTerminal()

	term.Write([]byte("\x1b[?2034h"))
	tok := extractToken(t, term.DrainReplies())

	term.Write([]byte("\x1b]133;A\x1b\\"))
	term.Write([]byte("$ "))
	term.Write([]byte("\x1b]133;B\x1b\\"))
	term.Write([]byte("\n"))
	term.Write([]byte("\x1b]133;C;cmdline_url=ls%20-la\x1b\\"))
	term.Write([]byte("file1\n"))
	term.Write([]byte("\x1b]133;D;0\x1b\\"))
	term.Write([]byte("\x1b]133;A\x1b\\"))

	term.Write([]byte(sbquery(SBQueryLastCommand, 1, tok)))
	reply := string(term.DrainReplies())

	if !strings.HasPrefix(reply, "\x1bP>1b") {
		t.Fatalf("expected status 1, got %q", reply)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(reply, "\x1bP>1b"), "\x1b\\")
	var resp blockResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("invalid JSON: %v: %s", err, body)
	}
	if len(resp.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %+v", resp)
	}
	b := resp.Blocks[0]
	if b.Command == nil || *b.Command != "ls -la" || b.ExitCode != 0 || !b.Finished {
		t.Fatalf("unexpected block: %+v", b)
	}
}

// Scenario 2: Query before enable.
func TestScenario_QueryBeforeEnable(t *testing.T) {
	term, _, _ := newTestTerminal()
	term.Write([]byte(sbquery(1, 1, Token{})))
	if got := string(term.DrainReplies()); got != "\x1bP>0b\x1b\\" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

// Scenario 3: Query after enable but without token.
func TestScenario_QueryWithoutToken(t *testing.T) {
	term, _, _ := newTestTerminal()
	term.Write([]byte("\x1b[?2034h"))
	term.DrainReplies()

	term.Write([]byte("\x1b[>1;1b"))
	if got := string(term.DrainReplies()); got != "\x1bP>2b\x1b\\" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

// Scenario 4: Query with wrong token.
func TestScenario_QueryWithWrongToken(t *testing.T) {
	term, _, _ := newTestTerminal()
	term.Write([]byte("\x1b[?2034h"))
	term.DrainReplies()

	term.Write([]byte("\x1b]133;A\x1b\\"))
	term.Write([]byte("\x1b]133;C;cmdline_url=x\x1b\\"))
	term.Write([]byte("\x1b]133;D;0\x1b\\"))
	term.Write([]byte("\x1b]133;A\x1b\\"))

	term.Write([]byte(sbquery(1, 1, Token{0xDEAD, 0xBEEF, 0xCAFE, 0xBABE})))
	if got := string(term.DrainReplies()); got != "\x1bP>3b\x1b\\" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

// Scenario 5: Re-enable rotates the token.
func TestScenario_ReEnableRotatesToken(t *testing.T) {
	term, _, _ := newTestTerminal()

	term.Write([]byte("\x1b[?2034h"))
	t1 := extractToken(t, term.DrainReplies())

	term.Write([]byte("\x1b[?2034l"))
	term.DrainReplies()

	term.Write([]byte("\x1b[?2034h"))
	t2 := extractToken(t, term.DrainReplies())

	if t1.Equal(t2) {
		t.Fatal("expected re-enable to rotate the token")
	}

	term.Write([]byte("\x1b]133;A\x1b\\"))
	term.Write([]byte("\x1b]133;C;cmdline_url=x\x1b\\"))
	term.Write([]byte("\x1b]133;D;0\x1b\\"))
	term.Write([]byte("\x1b]133;A\x1b\\"))

	term.Write([]byte(sbquery(1, 1, t1)))
	if got := string(term.DrainReplies()); got != "\x1bP>3b\x1b\\" {
		t.Fatalf("expected auth failure with stale token, got %q", got)
	}

	term.Write([]byte(sbquery(1, 1, t2)))
	if got := string(term.DrainReplies()); !strings.HasPrefix(got, "\x1bP>1b") {
		t.Fatalf("expected status 1 (success) with fresh token, got %q", got)
	}
}

// Scenario 6: Unfinished block discarded.
func TestScenario_UnfinishedBlockDiscarded(t *testing.T) {
	term, tracker, _ := newTestTerminal()
	term.Write([]byte("\x1b[?2034h"))
	term.DrainReplies()

	term.Write([]byte("\x1b]133;A\x1b\\"))
	term.Write([]byte("\x1b]133;C;cmdline_url=x\x1b\\"))
	term.Write([]byte("\x1b]133;A\x1b\\")) // no D in between

	if len(tracker.CompletedBlocks()) != 0 {
		t.Fatal("expected empty completed history")
	}
	cur := tracker.CurrentBlock()
	if cur == nil || cur.Finished {
		t.Fatalf("expected an unfinished current block, got %+v", cur)
	}
}

// Scenario 7: DECRQM before and after enable.
func TestScenario_DECRQM(t *testing.T) {
	term, _, _ := newTestTerminal()

	term.Write([]byte("\x1b[?2034$p"))
	if got := string(term.DrainReplies()); got != "\x1b[?2034;2$y" {
		t.Fatalf("expected reset report before enable, got %q", got)
	}

	term.Write([]byte("\x1b[?2034h"))
	term.DrainReplies()

	term.Write([]byte("\x1b[?2034$p"))
	if got := string(term.DrainReplies()); got != "\x1b[?2034;1$y" {
		t.Fatalf("expected set report after enable, got %q", got)
	}
}

func TestScenario_SetMarkSetsMarkedFlagAndPromptStarts(t *testing.T) {
	term, tracker, screen := newTestTerminal()
	term.Write([]byte("\x1b[?2034h"))
	term.DrainReplies()

	term.Write([]byte("\x1b[>M"))

	if screen.flags&LineFlagMarked == 0 {
		t.Fatal("expected Marked flag from SETMARK")
	}
	if tracker.CurrentBlock() == nil {
		t.Fatal("expected SETMARK to behave like prompt_start")
	}
}

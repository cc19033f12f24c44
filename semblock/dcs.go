// Copyright © 2026 Semblock contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: semblock/dcs.go
// Summary: DCS/CSI reply byte-assembly helpers shared by the query responder and mode handling.
// Usage: Centralizes the three reply shapes this subsystem emits.

package semblock

import "fmt"

const (
	dcsIntro = "\x1bP"
	st       = "\x1b\\"
)

// formatTokenReply builds the DCS reply sent on DECSM 2034:
// ESC P > 2034 ; 1 b T1;T2;T3;T4 ESC \
func formatTokenReply(tok Token) string {
	return fmt.Sprintf("%s>2034;1b%d;%d;%d;%d%s", dcsIntro, tok[0], tok[1], tok[2], tok[3], st)
}

// formatDECRQMReply builds the DECRQM mode-report reply for mode 2034:
// CSI ? 2034 ; 1 $ y (set) or CSI ? 2034 ; 2 $ y (reset).
func formatDECRQMReply(set bool) string {
	state := 2
	if set {
		state = 1
	}
	return fmt.Sprintf("\x1b[?2034;%d$y", state)
}

// formatQueryReply builds an SBQUERY reply: ESC P > <status> b <payload> ESC \
func formatQueryReply(status byte, payload string) string {
	return fmt.Sprintf("%s>%cb%s%s", dcsIntro, status, payload, st)
}

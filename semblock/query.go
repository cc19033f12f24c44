// Copyright © 2026 Semblock contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: semblock/query.go
// Summary: Handles the SBQUERY CSI sequence: authentication, record selection, JSON assembly.
// Usage: Given parsed CSI parameters, returns the complete DCS reply string to write back.

package semblock

import "encoding/json"

// SBQUERY query type values (Ps).
const (
	SBQueryLastCommand         = 1
	SBQueryLastNumberOfCommand = 2
	SBQueryInProgress          = 3
)

// SBQUERY status codes.
const (
	statusNoData       byte = '0'
	statusSuccess      byte = '1'
	statusAuthRequired byte = '2'
	statusAuthFailed   byte = '3'
)

// blockJSON is the wire representation of a CommandBlockInfo. Command is
// a pointer so an absent command line serializes as JSON null, never "".
type blockJSON struct {
	Command  *string `json:"command"`
	ExitCode int     `json:"exitCode"`
	Finished bool    `json:"finished"`
}

// blockResponse is the JSON body of a status-1 SBQUERY reply.
type blockResponse struct {
	Version int         `json:"version"`
	Blocks  []blockJSON `json:"blocks"`
}

// QueryResponder handles SBQUERY CSI sequences against a BlockTracker.
type QueryResponder struct {
	Tracker *BlockTracker
}

// NewQueryResponder constructs a responder wired to tracker.
func NewQueryResponder(tracker *BlockTracker) *QueryResponder {
	return &QueryResponder{Tracker: tracker}
}

// HandleSBQuery dispatches CSI > Ps ; Pn [; T1 ; T2 ; T3 ; T4] b and
// returns the complete DCS reply string (already ESC P > ... ESC \
// wrapped) ready to write back to the peer.
//
// params holds the numeric CSI parameters in order: Ps, Pn, and
// optionally T1..T4. Six or more entries means a token was supplied.
func (r *QueryResponder) HandleSBQuery(params []int) string {
	if r.Tracker == nil || !r.Tracker.IsEnabled() {
		return formatQueryReply(statusNoData, "")
	}

	if len(params) < 6 {
		return formatQueryReply(statusAuthRequired, "")
	}

	ps := 0
	if len(params) > 0 {
		ps = params[0]
	}
	pn := 0
	if len(params) > 1 {
		pn = params[1]
	}
	candidate := Token{
		uint16(params[2]),
		uint16(params[3]),
		uint16(params[4]),
		uint16(params[5]),
	}

	if !r.Tracker.ValidateToken(candidate) {
		return formatQueryReply(statusAuthFailed, "")
	}

	selected := r.selectBlocks(ps, pn)
	if len(selected) == 0 {
		return formatQueryReply(statusNoData, "")
	}

	body, err := json.Marshal(blockResponse{Version: 1, Blocks: toBlockJSON(selected)})
	if err != nil {
		// toBlockJSON/blockResponse contain only strings, ints, and bools;
		// json.Marshal cannot fail on this shape.
		return formatQueryReply(statusNoData, "")
	}
	return formatQueryReply(statusSuccess, string(body))
}

// selectBlocks implements the Ps/Pn selection rules of SPEC_FULL §4.D.
// Pn is ignored for Ps=3 (Design Note 9 Open Question, decided: follow
// the tested behavior and return the single in-progress block regardless
// of Pn).
func (r *QueryResponder) selectBlocks(ps, pn int) []CommandBlockInfo {
	switch ps {
	case SBQueryLastCommand:
		completed := r.Tracker.CompletedBlocks()
		if len(completed) == 0 {
			return nil
		}
		return completed[len(completed)-1:]

	case SBQueryLastNumberOfCommand:
		if pn <= 0 {
			return nil
		}
		completed := r.Tracker.CompletedBlocks()
		if pn >= len(completed) {
			return completed
		}
		return completed[len(completed)-pn:]

	case SBQueryInProgress:
		cur := r.Tracker.CurrentBlock()
		if cur == nil {
			return nil
		}
		return []CommandBlockInfo{*cur}

	default:
		return nil
	}
}

func toBlockJSON(blocks []CommandBlockInfo) []blockJSON {
	out := make([]blockJSON, len(blocks))
	for i, b := range blocks {
		out[i] = blockJSON{Command: b.CommandLine, ExitCode: b.ExitCode, Finished: b.Finished}
	}
	return out
}

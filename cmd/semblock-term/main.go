// Copyright © 2026 Semblock contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/semblock-term/main.go
// Summary: Demo harness wrapping a real shell in a PTY to exercise the semblock subsystem.
// Usage: semblock-term [-shell /bin/bash]
// Notes: PTY I/O and raw-mode terminal handling are ambient demo concerns, not part of the
//        semblock package itself (SPEC_FULL §1 lists both as external collaborators).

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/framegrace/semblock/semblock"
	"github.com/framegrace/semblock/semblock/config"
)

func init() {
	// Redirect log output away from stderr to avoid mangling the passthrough
	// terminal display, following the teacher's TEXELTERM_DEBUG convention.
	if os.Getenv("SEMBLOCK_DEBUG") != "" {
		logFile, err := os.OpenFile("/tmp/semblock-debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			log.SetOutput(logFile)
			log.SetFlags(log.Ltime | log.Lmicroseconds)
		} else {
			log.SetOutput(io.Discard)
		}
	} else {
		log.SetOutput(io.Discard)
	}
}

var shellFlag = flag.String("shell", defaultShell(), "shell to spawn under the PTY")

func defaultShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "/bin/sh"
}

// logScreen sets line flags by emitting them as log lines; the real
// grid model lives in the host terminal, which this demo does not
// reimplement (SPEC_FULL §1: the screen/grid model is an external
// collaborator).
type logScreen struct{}

func (logScreen) SetActiveLineFlags(flags semblock.LineFlags) {
	log.Printf("semblock: active line flags now %03b", flags)
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("semblock-term: loading config: %v", err)
	}
	if cfg.Debug {
		if logFile, err := os.OpenFile("/tmp/semblock-debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			log.SetOutput(logFile)
			log.SetFlags(log.Ltime | log.Lmicroseconds)
		}
	}

	cmd := exec.Command(*shellFlag)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "semblock-term: starting shell: %v\n", err)
		os.Exit(1)
	}
	defer ptmx.Close()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			defer term.Restore(int(os.Stdin.Fd()), oldState)
		}
	}

	tracker := semblock.NewBlockTracker(cfg.MaxBlocks, nil)
	vt := semblock.NewTerminal(tracker, logScreen{})

	go io.Copy(ptmx, os.Stdin)

	buf := make([]byte, 4096)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			os.Stdout.Write(chunk)
			vt.Write(chunk)
			if replies := vt.DrainReplies(); len(replies) > 0 {
				ptmx.Write(replies)
			}
		}
		if err != nil {
			break
		}
	}
}

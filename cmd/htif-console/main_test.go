// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"strings"
	"testing"

	"github.com/go-riscv/htif"
)

func TestSession(t *testing.T) {
	var (
		out strings.Builder
		win = htif.NewMemWindow(htif.RegionSize)
		sim = htif.NewHostSim(win, &out)
	)
	sim.Feed([]byte("ok"))
	sim.Start()

	ch := htif.NewChannel(win, htif.TohostOff, htif.FromhostOff)
	ses := &session{
		con:   htif.NewConsole(ch),
		ch:    ch,
		close: func() { sim.Stop() },
	}

	script := []string{
		"hello",
		"  ",
		"/read",
		"/status",
		"/quit",
	}
	term := new(strings.Builder)
	err := ses.run(term, func(prompt string) (string, error) {
		if prompt != "htif> " {
			t.Fatalf("invalid prompt: %q", prompt)
		}
		if len(script) == 0 {
			return "", io.EOF
		}
		line := script[0]
		script = script[1:]
		return line, nil
	})
	if err != nil {
		t.Fatalf("could not run session: %+v", err)
	}

	ses.close()

	if got, want := out.String(), "hello\n"; got != want {
		t.Fatalf("invalid console output: got=%q, want=%q", got, want)
	}

	want := "\"ok\"\nexchanges=9\n"
	if got := term.String(); got != want {
		t.Fatalf("invalid session output: got=%q, want=%q", got, want)
	}
}

func TestSessionEOF(t *testing.T) {
	var (
		out strings.Builder
		win = htif.NewMemWindow(htif.RegionSize)
		sim = htif.NewHostSim(win, &out)
	)
	sim.Start()
	defer sim.Stop()

	ch := htif.NewChannel(win, htif.TohostOff, htif.FromhostOff)
	ses := &session{con: htif.NewConsole(ch), ch: ch, close: func() {}}

	term := new(strings.Builder)
	err := ses.run(term, func(string) (string, error) { return "", io.EOF })
	if err != nil {
		t.Fatalf("could not run session: %+v", err)
	}
	if got, want := term.String(), "\n"; got != want {
		t.Fatalf("invalid session output: got=%q, want=%q", got, want)
	}
}

// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-riscv/htif"
)

func TestProcess(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "transcript.raw")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatalf("could not create input file: %+v", err)
	}
	defer f.Close()

	enc := htif.NewEncoder(f)
	for _, w := range []htif.Word{
		htif.NewWord(htif.ConsoleDevice, htif.CmdWriteChar, 'H'),
		htif.NewWord(htif.ConsoleDevice, htif.CmdWriteChar, 'i'),
		htif.NewWord(htif.ConsoleDevice, htif.CmdReadChar, 0),
	} {
		err := enc.Encode(w)
		if err != nil {
			t.Fatalf("could not encode word %v: %+v", w, err)
		}
	}
	err = f.Close()
	if err != nil {
		t.Fatalf("could not close input file: %+v", err)
	}

	got := new(strings.Builder)
	err = process(got, fname)
	if err != nil {
		t.Fatalf("could not process file: %+v", err)
	}

	want := `dev=0x01 cmd=0x01 payload=0x000000000048
dev=0x01 cmd=0x01 payload=0x000000000069
dev=0x01 cmd=0x00 payload=0x000000000000
`
	if got.String() != want {
		t.Fatalf("invalid dump output:\ngot:\n%swant:\n%s", got.String(), want)
	}
}

func TestProcessTruncated(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "short.raw")
	err := os.WriteFile(fname, []byte{0x01, 0x01, 0x00}, 0644)
	if err != nil {
		t.Fatalf("could not create input file: %+v", err)
	}

	got := new(strings.Builder)
	err = process(got, fname)
	if err == nil {
		t.Fatalf("expected a decode error")
	}
	if !strings.Contains(err.Error(), "could not decode word 0") {
		t.Fatalf("invalid error: %+v", err)
	}
}

func TestProcessNoFile(t *testing.T) {
	got := new(strings.Builder)
	err := process(got, filepath.Join(t.TempDir(), "missing.raw"))
	if err == nil {
		t.Fatalf("expected an open error")
	}
}

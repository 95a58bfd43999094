// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htif

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"testing"
)

func pokeReg(t *testing.T, rw rwer, off int64, v uint64) {
	t.Helper()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := rw.WriteAt(buf[:], off)
	if err != nil {
		t.Fatalf("could not poke register 0x%x: %+v", off, err)
	}
}

func peekReg(t *testing.T, rw rwer, off int64) uint64 {
	t.Helper()
	var buf [8]byte
	_, err := rw.ReadAt(buf[:], off)
	if err != nil {
		t.Fatalf("could not peek register 0x%x: %+v", off, err)
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func TestExchange(t *testing.T) {
	win := NewMemWindow(RegionSize)
	sim := NewHostSim(win, io.Discard)
	sim.Start()
	defer sim.Stop()

	ch := NewChannel(win, TohostOff, FromhostOff)

	resp := ch.Exchange(NewWord(ConsoleDevice, CmdWriteChar, 'A'))
	if err := ch.Err(); err != nil {
		t.Fatalf("could not exchange: %+v", err)
	}
	if got, want := resp.Device(), uint8(ConsoleDevice); got != want {
		t.Fatalf("invalid response device: got=0x%x, want=0x%x", got, want)
	}
	if got, want := resp.Command(), uint8(CmdWriteChar); got != want {
		t.Fatalf("invalid response command: got=0x%x, want=0x%x", got, want)
	}

	// the ack-clear must hold, and hold again on re-read.
	if got := peekReg(t, win, FromhostOff); got != 0 {
		t.Fatalf("fromhost not cleared: got=0x%016x", got)
	}
	if got := peekReg(t, win, FromhostOff); got != 0 {
		t.Fatalf("fromhost not cleared on re-read: got=0x%016x", got)
	}

	if got, want := ch.Exchanges(), uint64(1); got != want {
		t.Fatalf("invalid exchange count: got=%d, want=%d", got, want)
	}
}

func TestExchangeOrdering(t *testing.T) {
	win := NewMemWindow(RegionSize)
	sim := NewHostSim(win, io.Discard)
	sim.Feed([]byte{0x42, 0x43})
	sim.Start()
	defer sim.Stop()

	ch := NewChannel(win, TohostOff, FromhostOff)

	// each exchange completes fully before the next begins, so the
	// responses come back in request order.
	for i, want := range []uint64{0x42, 0x43} {
		resp := ch.Exchange(NewWord(ConsoleDevice, CmdReadChar, 0))
		if err := ch.Err(); err != nil {
			t.Fatalf("exchange %d: %+v", i, err)
		}
		if got, cmd := resp.Command(), uint8(CmdReadChar); got != cmd {
			t.Fatalf("exchange %d: invalid response command: got=0x%x, want=0x%x", i, got, cmd)
		}
		if got := resp.Payload(); got != want {
			t.Fatalf("exchange %d: invalid payload: got=0x%x, want=0x%x", i, got, want)
		}
	}

	reqs := sim.Requests()
	if got, want := len(reqs), 2; got != want {
		t.Fatalf("invalid number of requests: got=%d, want=%d", got, want)
	}
	for i, req := range reqs {
		if got, want := req, NewWord(ConsoleDevice, CmdReadChar, 0); got != want {
			t.Fatalf("request %d: got=%v, want=%v", i, got, want)
		}
	}
}

func TestExchangeUnknownDevice(t *testing.T) {
	win := NewMemWindow(RegionSize)
	sim := NewHostSim(win, nil)
	sim.Start()
	defer sim.Stop()

	ch := NewChannel(win, TohostOff, FromhostOff)

	resp := ch.Exchange(NewWord(0x02, 0x07, 0x05))
	if err := ch.Err(); err != nil {
		t.Fatalf("could not exchange: %+v", err)
	}
	if got, want := resp, NewWord(0x02, 0x07, 0); got != want {
		t.Fatalf("invalid response: got=%v, want=%v", got, want)
	}
}

func TestExchangePending(t *testing.T) {
	win := NewMemWindow(RegionSize)
	ch := NewChannel(win, TohostOff, FromhostOff)

	// a request the host never consumed.
	pokeReg(t, win, TohostOff, 0xdead)

	defer func() {
		e := recover()
		if e == nil {
			t.Fatalf("expected a panic")
		}
		err, ok := e.(error)
		if !ok {
			t.Fatalf("invalid panic value: %+v", e)
		}
		if !strings.Contains(err.Error(), "still pending") {
			t.Fatalf("invalid panic: %+v", err)
		}
	}()

	_ = ch.Exchange(NewWord(ConsoleDevice, CmdWriteChar, 'A'))
}

type failWindow struct{}

func (failWindow) ReadAt(p []byte, off int64) (int, error) {
	return 0, fmt.Errorf("boom")
}

func (failWindow) WriteAt(p []byte, off int64) (int, error) {
	return 0, fmt.Errorf("boom")
}

func TestExchangeWindowError(t *testing.T) {
	ch := NewChannel(failWindow{}, TohostOff, FromhostOff)

	resp := ch.Exchange(NewWord(ConsoleDevice, CmdWriteChar, 'A'))
	if got, want := resp, Word(0); got != want {
		t.Fatalf("invalid response: got=%v, want=%v", got, want)
	}

	err := ch.Err()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "could not read register") {
		t.Fatalf("invalid error: %+v", err)
	}
}

// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htif

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemWindow is an in-memory register window, usable in place of a
// /dev/mem mapping. ReadAt and WriteAt are guarded by a mutex so that
// a HostSim goroutine and a driver goroutine observe each other's
// stores.
type MemWindow struct {
	mu   sync.Mutex
	data []byte
}

// NewMemWindow returns a zeroed window of size bytes.
func NewMemWindow(size int) *MemWindow {
	return &MemWindow{data: make([]byte, size)}
}

// ReadAt implements the io.ReaderAt interface.
func (w *MemWindow) ReadAt(p []byte, off int64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if off < 0 || int64(len(w.data)) < off {
		return 0, fmt.Errorf("htif: invalid ReadAt offset %d", off)
	}
	n := copy(p, w.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (w *MemWindow) WriteAt(p []byte, off int64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if off < 0 || int64(len(w.data)) < off {
		return 0, fmt.Errorf("htif: invalid WriteAt offset %d", off)
	}
	n := copy(w.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var (
	_ io.ReaderAt = (*MemWindow)(nil)
	_ io.WriterAt = (*MemWindow)(nil)
)

// HostSim services the host side of the HTIF handshake over a register
// window: it consumes requests from tohost, clears tohost, and
// publishes responses in fromhost once the guest has acknowledged the
// previous one. Console writes land on out; console reads drain the
// input queue fed with Feed, or answer the no-input sentinel.
type HostSim struct {
	rw       rwer
	tohost   int64
	fromhost int64
	out      io.Writer

	mu   sync.Mutex
	in   []byte
	reqs []Word

	buf  [8]byte
	quit chan struct{}
	done chan struct{}
}

// NewHostSim returns a host simulator over rw, with the registers at
// their standard offsets. Console output is written to out, which may
// be nil to discard it.
func NewHostSim(rw rwer, out io.Writer) *HostSim {
	return &HostSim{
		rw:       rw,
		tohost:   TohostOff,
		fromhost: FromhostOff,
		out:      out,
	}
}

// Feed queues bytes as pending console input.
func (sim *HostSim) Feed(p []byte) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.in = append(sim.in, p...)
}

// Requests returns a copy of all request words consumed so far.
func (sim *HostSim) Requests() []Word {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	reqs := make([]Word, len(sim.reqs))
	copy(reqs, sim.reqs)
	return reqs
}

// Start launches the host service goroutine.
func (sim *HostSim) Start() {
	sim.quit = make(chan struct{})
	sim.done = make(chan struct{})
	go sim.run()
}

// Stop terminates the host service goroutine and waits for it to exit.
func (sim *HostSim) Stop() {
	close(sim.quit)
	<-sim.done
}

func (sim *HostSim) run() {
	defer close(sim.done)
	for {
		select {
		case <-sim.quit:
			return
		default:
		}

		req, err := sim.readReg(sim.tohost)
		if err != nil {
			return
		}
		if req == 0 {
			time.Sleep(10 * time.Microsecond)
			continue
		}

		sim.mu.Lock()
		sim.reqs = append(sim.reqs, Word(req))
		sim.mu.Unlock()

		resp := sim.serve(Word(req))

		// request consumed: hand tohost back to the guest.
		err = sim.writeReg(sim.tohost, 0)
		if err != nil {
			return
		}
		// the guest cleared fromhost before posting this request,
		// so the response slot is free.
		err = sim.writeReg(sim.fromhost, uint64(resp))
		if err != nil {
			return
		}
	}
}

func (sim *HostSim) serve(req Word) Word {
	if req.Device() != ConsoleDevice {
		// host-dependent behavior; echo the pair back with an
		// empty payload.
		return NewWord(req.Device(), req.Command(), 0)
	}

	switch req.Command() {
	case CmdWriteChar:
		if sim.out != nil {
			_, _ = sim.out.Write([]byte{byte(req.Payload())})
		}
		return NewWord(ConsoleDevice, CmdWriteChar, 0)

	case CmdReadChar:
		sim.mu.Lock()
		defer sim.mu.Unlock()
		if len(sim.in) == 0 {
			return NewWord(ConsoleDevice, CmdReadChar, NoChar)
		}
		c := sim.in[0]
		sim.in = sim.in[1:]
		return NewWord(ConsoleDevice, CmdReadChar, uint64(c))

	default:
		return NewWord(ConsoleDevice, req.Command(), 0)
	}
}

func (sim *HostSim) readReg(off int64) (uint64, error) {
	_, err := sim.rw.ReadAt(sim.buf[:8], off)
	if err != nil {
		return 0, fmt.Errorf("htif: host could not read register 0x%x: %w", off, err)
	}
	return binary.LittleEndian.Uint64(sim.buf[:8]), nil
}

func (sim *HostSim) writeReg(off int64, v uint64) error {
	binary.LittleEndian.PutUint64(sim.buf[:8], v)
	_, err := sim.rw.WriteAt(sim.buf[:8], off)
	if err != nil {
		return fmt.Errorf("htif: host could not write register 0x%x: %w", off, err)
	}
	return nil
}

// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htif

import (
	"io"
)

// Console gives byte-level access to the host console, device 1 of the
// HTIF protocol. It inherits the Channel's single-hart discipline.
type Console struct {
	ch *Channel
}

// NewConsole returns a console adapter over ch.
func NewConsole(ch *Channel) *Console {
	return &Console{ch: ch}
}

// WriteByte sends one byte to the host console. It blocks until the
// host acknowledges the exchange; the response carries no data.
func (con *Console) WriteByte(c byte) {
	con.ch.Exchange(NewWord(ConsoleDevice, CmdWriteChar, uint64(c)))
}

// ReadByte asks the host for one byte of console input. It reports
// false when no input is pending or the register window failed; it
// never blocks past the single exchange round-trip, so polling for
// input is the caller's policy.
func (con *Console) ReadByte() (byte, bool) {
	resp := con.ch.Exchange(NewWord(ConsoleDevice, CmdReadChar, 0))
	if con.ch.Err() != nil {
		return 0, false
	}
	if p := resp.Payload(); p != NoChar {
		return byte(p), true
	}
	return 0, false
}

// Write sends p to the host console, one exchange per byte.
func (con *Console) Write(p []byte) (int, error) {
	for i, c := range p {
		con.WriteByte(c)
		if err := con.ch.Err(); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// WriteString sends s to the host console.
func (con *Console) WriteString(s string) (int, error) {
	return con.Write([]byte(s))
}

// Err returns the first register access error of the underlying channel.
func (con *Console) Err() error { return con.ch.Err() }

var (
	_ io.Writer       = (*Console)(nil)
	_ io.StringWriter = (*Console)(nil)
)

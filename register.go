// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htif

import (
	"encoding/binary"
	"fmt"
	"io"
)

type rwer interface {
	io.ReaderAt
	io.WriterAt
}

type reg64 struct {
	r func() uint64
	w func(v uint64)
}

func newReg64(ch *Channel, rw rwer, offset int64) reg64 {
	return reg64{
		r: func() uint64 {
			return ch.readU64(rw, offset)
		},
		w: func(v uint64) {
			ch.writeU64(rw, offset, v)
		},
	}
}

func (ch *Channel) readU64(r io.ReaderAt, off int64) uint64 {
	if ch.err != nil {
		return 0
	}
	_, ch.err = r.ReadAt(ch.buf[:8], off)
	if ch.err != nil {
		ch.err = fmt.Errorf("htif: could not read register 0x%x: %w", off, ch.err)
		return 0
	}
	return binary.LittleEndian.Uint64(ch.buf[:8])
}

func (ch *Channel) writeU64(w io.WriterAt, off int64, v uint64) {
	if ch.err != nil {
		return
	}
	binary.LittleEndian.PutUint64(ch.buf[:8], v)
	_, ch.err = w.WriteAt(ch.buf[:8], off)
	if ch.err != nil {
		ch.err = fmt.Errorf("htif: could not write register 0x%x: %w", off, ch.err)
		return
	}
}

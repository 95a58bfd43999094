// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htif

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/xerrors"
)

// Word is one 64-bit HTIF command or response word, packed as
// device:8|command:8|payload:48. Reserved bits are always zero.
type Word uint64

// NewWord packs a (device, command, payload) triple into a Word.
// The payload is masked to its 48-bit field.
func NewWord(device, command uint8, payload uint64) Word {
	return Word(uint64(device)<<deviceShift |
		uint64(command)<<commandShift |
		payload&payloadMask)
}

// Device returns the device number of the word.
func (w Word) Device() uint8 { return uint8(w >> deviceShift) }

// Command returns the command number of the word.
func (w Word) Command() uint8 { return uint8(w >> commandShift) }

// Payload returns the 48-bit payload of the word.
func (w Word) Payload() uint64 { return uint64(w) & payloadMask }

func (w Word) String() string {
	return fmt.Sprintf("htif.Word{dev: 0x%02x, cmd: 0x%02x, payload: 0x%012x}",
		w.Device(), w.Command(), w.Payload(),
	)
}

// Encoder writes HTIF words to an output stream as big-endian
// 64-bit values.
type Encoder struct {
	w   io.Writer
	buf []byte
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 8),
	}
}

// Encode writes the word to the stream.
func (enc *Encoder) Encode(w Word) error {
	binary.BigEndian.PutUint64(enc.buf, uint64(w))
	_, err := enc.w.Write(enc.buf)
	if err != nil {
		return xerrors.Errorf("htif: could not write word: %w", err)
	}
	return nil
}

// Decoder reads HTIF words from an underlying data source.
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder creates a decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 8),
	}
}

// Decode reads the next word from the stream. It returns io.EOF when
// the stream ends on a word boundary.
func (dec *Decoder) Decode(w *Word) error {
	_, err := io.ReadFull(dec.r, dec.buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return xerrors.Errorf("htif: could not read word: %w", err)
	}
	*w = Word(binary.BigEndian.Uint64(dec.buf))
	return nil
}

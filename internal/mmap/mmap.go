// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap wraps a memory mapping into a register window with
// byte-range and 64-bit word access.
package mmap // import "github.com/go-riscv/htif/internal/mmap"

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle owns one mmap'd span of a memory device.
type Handle struct {
	data []byte
}

// HandleFrom wraps an existing mapping. The returned handle unmaps it
// on Close, or at finalization if Close is never called.
func HandleFrom(data []byte) *Handle {
	h := &Handle{data: data}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h
}

// Close unmaps the underlying mapping.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	data := h.data
	h.data = nil
	runtime.SetFinalizer(h, nil)

	return unix.Munmap(data)
}

// Len returns the length of the mapping in bytes.
func (h *Handle) Len() int {
	return len(h.data)
}

// U64At returns the little-endian 64-bit word at byte offset off.
func (h *Handle) U64At(off int64) (uint64, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off+8 {
		return 0, fmt.Errorf("mmap: invalid U64At offset %d", off)
	}
	return binary.LittleEndian.Uint64(h.data[off:]), nil
}

// SetU64At stores v as a little-endian 64-bit word at byte offset off.
func (h *Handle) SetU64At(off int64, v uint64) error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return errClosed
	}
	if off < 0 || int64(len(h.data)) < off+8 {
		return fmt.Errorf("mmap: invalid SetU64At offset %d", off)
	}
	binary.LittleEndian.PutUint64(h.data[off:], v)
	return nil
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid WriteAt offset %d", off)
	}
	n := copy(h.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)

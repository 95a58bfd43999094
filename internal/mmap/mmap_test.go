// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap // import "github.com/go-riscv/htif/internal/mmap"

import (
	"errors"
	"os"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		_, err = h.U64At(0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid u64-at error: %+v", err)
		}

		err = h.SetU64At(0, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid set-u64-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		_, err = h.U64At(0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid u64-at error: %+v", err)
		}

		err = h.SetU64At(0, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid set-u64-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestHandleFrom(t *testing.T) {
	h := HandleFrom(make([]byte, 16))

	if got, want := h.Len(), 16; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	err := h.SetU64At(8, 0x0101000000000041)
	if err != nil {
		t.Fatalf("could not set u64: %+v", err)
	}

	v, err := h.U64At(8)
	if err != nil {
		t.Fatalf("could not get u64: %+v", err)
	}
	if got, want := v, uint64(0x0101000000000041); got != want {
		t.Fatalf("invalid value: got=0x%x, want=0x%x", got, want)
	}

	_, err = h.U64At(9)
	if got, want := err.Error(), "mmap: invalid U64At offset 9"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	err = h.SetU64At(-1, 0)
	if got, want := err.Error(), "mmap: invalid SetU64At offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	_, err = h.WriteAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid WriteAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	_, err = h.ReadAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid ReadAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}
}

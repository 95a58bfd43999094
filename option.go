// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htif

import (
	"log"
	"os"
)

// DefaultBase is the conventional physical address of the tohost
// register in bare-metal payloads of the reference simulator. The
// embedding platform supplies the real one with WithBase.
const DefaultBase = 0x80001000

type config struct {
	base uint64
	msg  *log.Logger
}

func newConfig() config {
	return config{
		base: DefaultBase,
		msg:  log.New(os.Stdout, "htif: ", 0),
	}
}

// Option configures an HTIF device.
type Option func(cfg *config)

// WithBase sets the physical address of the tohost register.
// fromhost lives at the next 64-bit word. The address must be
// naturally aligned for 64-bit access.
func WithBase(addr uint64) Option {
	return func(cfg *config) {
		cfg.base = addr
	}
}

// WithLogger sets the device logger.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

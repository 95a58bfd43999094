// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htif

import (
	"fmt"
)

// Channel drives one tohost/fromhost register pair.
//
// The protocol allows a single outstanding request, so a Channel is not
// safe for concurrent use: one hart (or goroutine) must own the channel,
// or callers must serialize access externally.
type Channel struct {
	tohost   reg64
	fromhost reg64

	xchg uint64 // number of completed exchanges
	buf  [8]byte
	err  error
}

// NewChannel binds a channel to the tohost and fromhost registers at
// the given offsets of the register window rw. The window must give
// volatile access semantics: every ReadAt/WriteAt must reach the
// registers unelided and in order.
func NewChannel(rw rwer, tohost, fromhost int64) *Channel {
	ch := &Channel{}
	ch.tohost = newReg64(ch, rw, tohost)
	ch.fromhost = newReg64(ch, rw, fromhost)
	return ch
}

// Exchange performs one full request/response cycle: it posts req to
// tohost, spins until the host publishes a non-zero word in fromhost,
// clears fromhost to acknowledge it and returns the captured word.
//
// The spin is unbounded: the host is assumed to always eventually
// respond. Exchange panics if tohost still holds a pending
// request, as a second in-flight request would corrupt the handshake
// beyond recovery.
func (ch *Channel) Exchange(req Word) Word {
	if pending := ch.tohost.r(); pending != 0 && ch.err == nil {
		panic(fmt.Errorf(
			"htif: exchange while request still pending (tohost=0x%016x)",
			pending,
		))
	}

	ch.tohost.w(uint64(req))

	var resp uint64
	for {
		resp = ch.fromhost.r()
		if resp != 0 || ch.err != nil {
			break
		}
	}

	// ack, so the host may publish the next response
	ch.fromhost.w(0)

	ch.xchg++
	return Word(resp)
}

// Exchanges returns the number of completed exchanges on the channel.
func (ch *Channel) Exchanges() uint64 { return ch.xchg }

// Err returns the first error encountered while accessing the register
// window, if any. Once set, all further register accesses are no-ops.
func (ch *Channel) Err() error { return ch.err }

// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htif

// HTIF word layout

const (
	deviceShift  = 56 // bits 63-56 contain the device number
	commandShift = 48 // bits 55-48 contain the command number

	payloadMask = 1<<commandShift - 1 // bits 47-0 contain the payload
)

// Console device. The reference simulator traps accesses to the
// tohost/fromhost symbols and services device 1 as a blocking
// character device.
const (
	ConsoleDevice = 0x01 // blocking character device

	CmdReadChar  = 0x00 // read a character from the host console
	CmdWriteChar = 0x01 // write a character to the host console

	// NoChar is the payload the host answers to a read-char request
	// when no input is pending.
	NoChar = payloadMask
)

// Register file layout. The two 64-bit registers are contiguous,
// tohost first.
const (
	TohostOff   = 0x00 // guest-to-host requests
	FromhostOff = 0x08 // host-to-guest responses

	RegionSize = 2 * 8 // total register file size in bytes
)

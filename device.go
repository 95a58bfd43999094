// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htif

import (
	"fmt"
	"log"
	"os"

	"github.com/go-riscv/htif/internal/mmap"
	"golang.org/x/sys/unix"
)

// Device owns the one HTIF register file of a machine: it maps the
// tohost/fromhost pair from a memory device file and wires the channel
// and console over the mapping. Construct it once at bring-up and keep
// it for the lifetime of the process.
type Device struct {
	msg *log.Logger
	cfg config

	mem struct {
		fd  *os.File
		win *mmap.Handle
	}

	ch  *Channel
	con *Console
}

// NewDevice maps the HTIF registers from devmem (usually /dev/mem).
// The file is opened with O_SYNC so that stores are not buffered on
// the way to the registers.
func NewDevice(devmem string, opts ...Option) (*Device, error) {
	mem, err := os.OpenFile(devmem, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("htif: could not open %q: %w", devmem, err)
	}
	defer func() {
		if err != nil {
			_ = mem.Close()
		}
	}()

	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	dev := &Device{
		msg: cfg.msg,
		cfg: cfg,
	}
	dev.mem.fd = mem

	err = dev.mmapRegs()
	if err != nil {
		return nil, fmt.Errorf("htif: could not map HTIF registers: %w", err)
	}

	return dev, nil
}

func (dev *Device) mmapRegs() error {
	var (
		page  = int64(os.Getpagesize())
		base  = int64(dev.cfg.base)
		off   = base &^ (page - 1) // mmap needs a page-aligned offset
		delta = base - off
		span  = delta + RegionSize
	)
	if rem := span % page; rem != 0 {
		span += page - rem
	}

	data, err := unix.Mmap(
		int(dev.mem.fd.Fd()),
		off, int(span),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return fmt.Errorf("htif: could not mmap 0x%x+0x%x: %w", off, span, err)
	}
	if data == nil || len(data) != int(span) {
		return fmt.Errorf("htif: invalid mmap'd data: %d", len(data))
	}
	dev.mem.win = mmap.HandleFrom(data)

	dev.ch = NewChannel(dev.mem.win, delta+TohostOff, delta+FromhostOff)
	dev.con = NewConsole(dev.ch)

	dev.msg.Printf("mapped HTIF registers: tohost=0x%x fromhost=0x%x",
		dev.cfg.base+TohostOff, dev.cfg.base+FromhostOff,
	)
	return nil
}

// Base returns the physical address of the tohost register.
func (dev *Device) Base() uint64 { return dev.cfg.base }

// Channel returns the device channel.
func (dev *Device) Channel() *Channel { return dev.ch }

// Console returns the console adapter of the device.
func (dev *Device) Console() *Console { return dev.con }

// Close unmaps the registers and closes the memory device file.
// Closing an already-closed device is a no-op.
func (dev *Device) Close() error {
	if dev.mem.win != nil {
		err := dev.mem.win.Close()
		if err != nil {
			return fmt.Errorf("htif: could not unmap registers: %w", err)
		}
		dev.mem.win = nil
	}
	if dev.mem.fd != nil {
		err := dev.mem.fd.Close()
		if err != nil {
			return fmt.Errorf("htif: could not close memory device: %w", err)
		}
		dev.mem.fd = nil
	}
	return nil
}

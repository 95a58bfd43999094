// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command htif-srv starts a TDAQ server streaming the console output
// of an HTIF target.
//
// The node drains the target console with read-char exchanges and
// publishes the collected bytes on its "/console" end-point. Pass
// "sim" as the node argument to run against an in-memory host
// simulator instead of /dev/mem.
package main // import "github.com/go-riscv/htif/cmd/htif-srv"

import (
	"context"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-riscv/htif"
)

func main() {
	cmd := flags.New()

	dev := &node{
		mem:  "/dev/mem",
		base: htif.DefaultBase,
	}
	if len(cmd.Args) > 0 {
		dev.mem = cmd.Args[0]
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/console", dev.console)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type node struct {
	mem  string
	base uint64

	dev *htif.Device
	sim *htif.HostSim
	con *htif.Console
	ch  *htif.Channel

	n    int
	xchg uint64 // exchange count, published by the run loop
	data chan []byte
}

func (dev *node) exchanges() uint64 {
	return atomic.LoadUint64(&dev.xchg)
}

func (dev *node) open() error {
	if dev.mem == "sim" {
		win := htif.NewMemWindow(htif.RegionSize)
		dev.sim = htif.NewHostSim(win, io.Discard)
		dev.sim.Start()
		dev.ch = htif.NewChannel(win, htif.TohostOff, htif.FromhostOff)
		dev.con = htif.NewConsole(dev.ch)
		return nil
	}

	hw, err := htif.NewDevice(dev.mem, htif.WithBase(dev.base))
	if err != nil {
		return err
	}
	dev.dev = hw
	dev.ch = hw.Channel()
	dev.con = hw.Console()
	return nil
}

func (dev *node) release() error {
	if dev.sim != nil {
		dev.sim.Stop()
		dev.sim = nil
	}
	if dev.dev != nil {
		err := dev.dev.Close()
		dev.dev = nil
		if err != nil {
			return err
		}
	}
	dev.ch = nil
	dev.con = nil
	return nil
}

func (dev *node) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	return nil
}

func (dev *node) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	dev.data = make(chan []byte, 1024)
	dev.n = 0
	return dev.open()
}

func (dev *node) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := dev.release()
	if err != nil {
		return err
	}
	dev.data = make(chan []byte, 1024)
	dev.n = 0
	return dev.open()
}

func (dev *node) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

func (dev *node) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	n := dev.n
	ctx.Msg.Debugf("received /stop command... -> n=%d exchanges=%d", n, dev.exchanges())
	return nil
}

func (dev *node) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return dev.release()
}

func (dev *node) console(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-dev.data:
		dst.Body = data
	}
	return nil
}

func (dev *node) run(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
			if dev.con == nil {
				break
			}
			var raw []byte
			for {
				v, ok := dev.con.ReadByte()
				if !ok {
					break
				}
				raw = append(raw, v)
			}
			if err := dev.con.Err(); err != nil {
				return err
			}
			if len(raw) > 0 {
				select {
				case dev.data <- raw:
					dev.n += len(raw)
				default:
				}
			}
			atomic.StoreUint64(&dev.xchg, dev.ch.Exchanges())
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"testing"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-riscv/htif"
)

func TestRunPump(t *testing.T) {
	dev := &node{
		mem:  "sim",
		base: htif.DefaultBase,
		data: make(chan []byte, 1024),
	}
	err := dev.open()
	if err != nil {
		t.Fatalf("could not open node: %+v", err)
	}
	defer dev.release()

	dev.sim.Feed([]byte("hi"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error)
	go func() {
		done <- dev.run(tdaq.Context{Ctx: ctx})
	}()

	select {
	case data := <-dev.data:
		if got, want := string(data), "hi"; got != want {
			t.Fatalf("invalid console data: got=%q, want=%q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for console data")
	}

	// the run loop publishes the count it read from the channel.
	for i := 0; dev.exchanges() == 0 && i < 100; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if got := dev.exchanges(); got == 0 {
		t.Fatalf("exchange count not published")
	}

	cancel()
	err = <-done
	if err != nil {
		t.Fatalf("could not run pump: %+v", err)
	}
}

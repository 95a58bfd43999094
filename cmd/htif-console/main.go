// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// htif-console is an interactive console attached to an HTIF device.
//
// Lines typed at the prompt are sent to the target console, one HTIF
// exchange per byte. A few slash commands drive the session itself:
//
//  /read    drain pending input bytes from the target
//  /status  display the exchange counter
//  /quit    leave the console
//
// With -sim, htif-console runs against an in-memory host simulator
// instead of a memory-mapped device.
package main // import "github.com/go-riscv/htif/cmd/htif-console"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-riscv/htif"
	"github.com/go-riscv/htif/platdb"
	"github.com/peterh/liner"
)

func main() {
	log.SetPrefix("htif-console: ")
	log.SetFlags(0)

	var (
		sim  = flag.Bool("sim", false, "run against an in-memory host simulator")
		mem  = flag.String("dev", "/dev/mem", "path to the memory device")
		base = flag.Uint64("base", htif.DefaultBase, "physical base address of the HTIF registers")
		plat = flag.String("platform", "", "name of the platform to look up in the platform database")
		dbn  = flag.String("db", "htif", "name of the platform database")
	)
	flag.Parse()

	err := run(*sim, *mem, *base, *plat, *dbn)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(sim bool, mem string, base uint64, plat, dbn string) error {
	var (
		ses *session
		err error
	)
	switch {
	case sim:
		ses, err = newSimSession()
	default:
		ses, err = newDevSession(mem, base, plat, dbn)
	}
	if err != nil {
		return err
	}
	defer ses.close()

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	return ses.run(os.Stdout, func(prompt string) (string, error) {
		line, err := term.Prompt(prompt)
		if err == nil && line != "" {
			term.AppendHistory(line)
		}
		return line, err
	})
}

type session struct {
	con   *htif.Console
	ch    *htif.Channel
	close func()
}

func newSimSession() (*session, error) {
	win := htif.NewMemWindow(htif.RegionSize)
	sim := htif.NewHostSim(win, os.Stdout)
	sim.Start()

	ch := htif.NewChannel(win, htif.TohostOff, htif.FromhostOff)
	return &session{
		con:   htif.NewConsole(ch),
		ch:    ch,
		close: func() { sim.Stop() },
	}, nil
}

func newDevSession(mem string, base uint64, plat, dbn string) (*session, error) {
	if plat != "" {
		db, err := platdb.Open(dbn)
		if err != nil {
			return nil, fmt.Errorf("could not open platform db: %w", err)
		}
		defer db.Close()

		p, err := db.Platform(context.Background(), plat)
		if err != nil {
			return nil, fmt.Errorf("could not find platform %q: %w", plat, err)
		}
		log.Printf("platform %q: tohost=0x%x fromhost=0x%x", p.Name, p.Tohost, p.Fromhost)
		base = p.Tohost
	}

	dev, err := htif.NewDevice(mem, htif.WithBase(base))
	if err != nil {
		return nil, fmt.Errorf("could not open HTIF device: %w", err)
	}
	return &session{
		con:   dev.Console(),
		ch:    dev.Channel(),
		close: func() { dev.Close() },
	}, nil
}

func (ses *session) run(w io.Writer, prompt func(string) (string, error)) error {
	for {
		line, err := prompt("htif> ")
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				fmt.Fprintf(w, "\n")
				return nil
			}
			return fmt.Errorf("could not read prompt: %w", err)
		}

		switch line = strings.TrimSpace(line); line {
		case "":
			continue
		case "/quit":
			return nil
		case "/status":
			fmt.Fprintf(w, "exchanges=%d\n", ses.ch.Exchanges())
		case "/read":
			var buf []byte
			for {
				v, ok := ses.con.ReadByte()
				if !ok {
					break
				}
				buf = append(buf, v)
			}
			if err := ses.con.Err(); err != nil {
				return fmt.Errorf("could not read from target: %w", err)
			}
			fmt.Fprintf(w, "%q\n", buf)
		default:
			_, err := ses.con.WriteString(line + "\n")
			if err != nil {
				return fmt.Errorf("could not write to target: %w", err)
			}
		}
	}
}

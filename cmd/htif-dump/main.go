// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// htif-dump decodes and displays raw HTIF word streams.
//
// Usage: htif-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//  $> htif-dump ./transcript.raw
//  dev=0x01 cmd=0x01 payload=0x000000000048
//  dev=0x01 cmd=0x01 payload=0x000000000069
//  dev=0x01 cmd=0x00 payload=0xffffffffffff
//  [...]
package main // import "github.com/go-riscv/htif/cmd/htif-dump"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-riscv/htif"
)

func main() {
	log.SetPrefix("htif-dump: ")
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Printf(`htif-dump decodes and displays raw HTIF word streams.

Usage: htif-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> htif-dump ./transcript.raw
 dev=0x01 cmd=0x01 payload=0x000000000048
 dev=0x01 cmd=0x01 payload=0x000000000069
 dev=0x01 cmd=0x00 payload=0xffffffffffff
 [...]

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input HTIF file")
	}

	for _, fname := range flag.Args() {
		err := process(os.Stdout, fname)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	dec := htif.NewDecoder(bufio.NewReader(f))
	for i := 0; ; i++ {
		var word htif.Word
		err := dec.Decode(&word)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("could not decode word %d: %w", i, err)
		}
		fmt.Fprintf(wbuf, "dev=0x%02x cmd=0x%02x payload=0x%012x\n",
			word.Device(), word.Command(), word.Payload(),
		)
	}
}

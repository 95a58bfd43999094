// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htif

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
)

// device is the surface the console bridge needs from a Device.
// Tests substitute a simulator-backed implementation.
type device interface {
	Base() uint64
	Channel() *Channel
	Console() *Console

	Close() error
}

var _ device = (*Device)(nil)

// server bridges one HTIF console over TCP, one command per JSON
// request.
type server struct {
	ctl net.Listener

	msg    *log.Logger
	devmem string

	newDevice func(devmem string, opts ...Option) (device, error)

	opts []Option
}

// Serve listens on addr and bridges the HTIF console of the machine
// behind devmem. Each connection opens the device, holds it for the
// lifetime of the connection and releases it on hang-up, so access to
// the single channel stays serialized.
func Serve(addr, devmem string, opts ...Option) error {
	srv, err := newServer(addr, devmem, opts...)
	if err != nil {
		return fmt.Errorf("could not create htif server: %w", err)
	}
	return srv.serve()
}

func newServer(addr, devmem string, opts ...Option) (*server, error) {
	ctl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not create htif-srv server on %q: %w", addr, err)
	}

	srv := &server{
		ctl: ctl,

		msg:    log.New(os.Stdout, "htif-srv: ", 0),
		devmem: devmem,

		newDevice: func(devmem string, opts ...Option) (device, error) {
			return NewDevice(devmem, opts...)
		},

		opts: opts,
	}
	return srv, nil
}

func (srv *server) serve() error {
	defer srv.close()

	for {
		conn, err := srv.ctl.Accept()
		if err != nil {
			return fmt.Errorf("could not accept connection: %w", err)
		}

		err = srv.handle(conn)
		if err != nil {
			srv.msg.Printf("could not serve HTIF console: %+v", err)
			continue
		}
	}
}

func (srv *server) close() {
	_ = srv.ctl.Close()
}

type reply struct {
	Msg string `json:"msg"`
	Err string `json:"err,omitempty"`
}

func (srv *server) handle(conn net.Conn) error {
	defer conn.Close()
	srv.msg.Printf("serving %v...", conn.RemoteAddr())
	defer srv.msg.Printf("serving %v... [done]", conn.RemoteAddr())

	dev, err := srv.newDevice(srv.devmem, srv.opts...)
	if err != nil {
		return fmt.Errorf("could not open HTIF device: %w", err)
	}
	defer dev.Close()

	for {
		var req struct {
			Name string           `json:"name"`
			Args *json.RawMessage `json:"args"`
		}

		err = json.NewDecoder(conn).Decode(&req)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			srv.msg.Printf("could not decode command request: %+v", err)
			return err
		}

		switch req.Name {
		case "write":
			var str string
			err = srv.args(req.Args, &str)
			if err != nil {
				_ = json.NewEncoder(conn).Encode(reply{Err: err.Error()})
				continue
			}
			n, err := dev.Console().WriteString(str)
			if err != nil {
				_ = json.NewEncoder(conn).Encode(reply{Err: err.Error()})
				continue
			}
			_ = json.NewEncoder(conn).Encode(reply{
				Msg: fmt.Sprintf("wrote %d bytes", n),
			})

		case "read":
			var max int
			err = srv.args(req.Args, &max)
			if err != nil {
				_ = json.NewEncoder(conn).Encode(reply{Err: err.Error()})
				continue
			}
			var buf []byte
			for i := 0; i < max; i++ {
				c, ok := dev.Console().ReadByte()
				if !ok {
					break
				}
				buf = append(buf, c)
			}
			if err := dev.Console().Err(); err != nil {
				_ = json.NewEncoder(conn).Encode(reply{Err: err.Error()})
				continue
			}
			_ = json.NewEncoder(conn).Encode(reply{Msg: string(buf)})

		case "status":
			_ = json.NewEncoder(conn).Encode(reply{
				Msg: fmt.Sprintf(
					"base=0x%x exchanges=%d",
					dev.Base(), dev.Channel().Exchanges(),
				),
			})

		default:
			srv.msg.Printf("unknown command %q", req.Name)
			_ = json.NewEncoder(conn).Encode(reply{
				Err: fmt.Sprintf("unknown command %q", req.Name),
			})
		}
	}
}

func (srv *server) args(raw *json.RawMessage, dst interface{}) error {
	if raw == nil {
		return fmt.Errorf("missing command arguments")
	}
	err := json.Unmarshal(*raw, dst)
	if err != nil {
		return fmt.Errorf("could not decode command arguments: %w", err)
	}
	return nil
}

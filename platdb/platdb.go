// Copyright 2025 The go-riscv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package platdb holds types to describe the platform memory-map
// database for HTIF machines: where each platform puts its
// tohost/fromhost pair and which console codes its host expects.
package platdb // import "github.com/go-riscv/htif/platdb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// Platform describes the HTIF surface of one simulated machine.
type Platform struct {
	Name      string // platform name (e.g. "spike")
	Tohost    uint64 // physical address of the tohost register
	Fromhost  uint64 // physical address of the fromhost register
	Console   uint8  // console device id
	ReadChar  uint8  // console read-char command code
	WriteChar uint8  // console write-char command code
}

// DB exposes convenience methods to retrieve platform memory maps
// from the HTIF platform database.
type DB struct {
	db   *sql.DB
	name string // name of the platform database
}

// Open opens a connection to the platform database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("platdb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("platdb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("platdb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// Platform retrieves the most recent memory map recorded for the named
// platform.
func (db *DB) Platform(ctx context.Context, name string) (Platform, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var plat Platform
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name, tohost, fromhost, console, readchar, writechar FROM platforms WHERE name = ? ORDER BY datetime DESC LIMIT 1",
		name,
	)
	if err != nil {
		return plat, fmt.Errorf("platdb: could not query platform %q: %w", name, err)
	}
	defer rows.Close()

	var ok bool
	for rows.Next() {
		err = rows.Scan(
			&plat.Name, &plat.Tohost, &plat.Fromhost,
			&plat.Console, &plat.ReadChar, &plat.WriteChar,
		)
		if err != nil {
			return plat, fmt.Errorf("platdb: could not get platform %q values: %w", name, err)
		}
		ok = true
	}

	if err := rows.Err(); err != nil {
		return plat, fmt.Errorf("platdb: could not scan db for platform %q: %w", name, err)
	}

	if err := ctx.Err(); err != nil {
		return plat, fmt.Errorf("platdb: context error while retrieving platform %q: %w", name, err)
	}

	if !ok {
		return plat, fmt.Errorf("platdb: could not find platform %q", name)
	}

	return plat, nil
}

// LastPlatform retrieves the most recently recorded platform.
func (db *DB) LastPlatform(ctx context.Context) (Platform, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var plat Platform
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name, tohost, fromhost, console, readchar, writechar FROM platforms ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return plat, fmt.Errorf("platdb: could not query last platform: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(
			&plat.Name, &plat.Tohost, &plat.Fromhost,
			&plat.Console, &plat.ReadChar, &plat.WriteChar,
		)
		if err != nil {
			return plat, fmt.Errorf("platdb: could not get last platform values: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return plat, fmt.Errorf("platdb: could not scan db for last platform: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return plat, fmt.Errorf("platdb: context error while retrieving last platform: %w", err)
	}

	return plat, nil
}

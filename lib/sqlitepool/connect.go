// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"fmt"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ConnectFunc opens a new connection to the database at path. The
// Manager calls it on the connection's dedicated worker, so it may
// block. A ConnectFunc must be safe to call from many goroutines at
// once; if it captures shared state it synchronizes that state itself.
type ConnectFunc func(path string) (*sqlite.Conn, error)

// StandardPragmas are the Bureau defaults for service databases:
//
//   - journal_mode=WAL: concurrent readers and a single writer.
//   - synchronous=NORMAL: survives process crashes, not power loss.
//   - busy_timeout=5000: wait up to 5 seconds for a write lock.
//   - foreign_keys=OFF: services manage referential integrity.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - mmap_size=268435456: 256 MB memory-mapped reads.
//   - temp_store=MEMORY: temporary tables in memory.
var StandardPragmas = []string{
	"journal_mode=WAL",
	"synchronous=NORMAL",
	"busy_timeout=5000",
	"foreign_keys=OFF",
	"cache_size=-8192",
	"mmap_size=268435456",
	"temp_store=MEMORY",
}

// DefaultConnect opens path with the driver's default flags (read-write,
// create, WAL, URI filenames). Open errors are returned as the driver
// reports them.
func DefaultConnect(path string) (*sqlite.Conn, error) {
	return sqlite.OpenConn(path)
}

// ConnectReadOnly opens an existing database without write access.
func ConnectReadOnly(path string) (*sqlite.Conn, error) {
	return sqlite.OpenConn(path, sqlite.OpenReadOnly, sqlite.OpenURI)
}

// ConnectWithPragmas returns a ConnectFunc that opens with base and
// then applies each pragma, given as "name=value" or "name". A
// connection whose pragmas fail is closed before the error is
// returned.
func ConnectWithPragmas(base ConnectFunc, pragmas ...string) ConnectFunc {
	if base == nil {
		base = DefaultConnect
	}
	statements := make([]string, len(pragmas))
	for i, pragma := range pragmas {
		statements[i] = "PRAGMA " + strings.TrimSpace(pragma)
	}
	return func(path string) (*sqlite.Conn, error) {
		conn, err := base(path)
		if err != nil {
			return nil, err
		}
		for _, statement := range statements {
			if err := sqlitex.ExecuteTransient(conn, statement, nil); err != nil {
				conn.Close()
				return nil, fmt.Errorf("sqlitepool: %s: %w", statement, err)
			}
		}
		return conn, nil
	}
}

// connectWithSetup runs setup after base opens the connection. This is
// how Config.OnConnect reaches every new connection.
func connectWithSetup(base ConnectFunc, setup func(*sqlite.Conn) error) ConnectFunc {
	return func(path string) (*sqlite.Conn, error) {
		conn, err := base(path)
		if err != nil {
			return nil, err
		}
		if err := setup(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlitepool: OnConnect: %w", err)
		}
		return conn, nil
	}
}

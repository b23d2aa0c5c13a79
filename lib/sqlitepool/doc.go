// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool pools SQLite connections that are each confined
// to their own worker.
//
// A zombiezen.com/go/sqlite connection must not be used by two
// goroutines at once. Instead of asking every caller to respect that,
// each connection lives on a dedicated worker from package syncwrap
// (by default pinned to one OS thread) and callers hand it closures
// through [Conn.Interact] or [Query]. Callers block only on the
// closure's result, never on another caller's connection.
//
// # Manager
//
// [Manager] is the two-operation contract a pool engine needs:
//
//   - [Manager.Create] opens a connection with the current
//     [ConnectFunc], on the new connection's worker.
//   - [Manager.Recycle] decides whether a returned connection may be
//     handed out again.
//
// # Health check
//
// Recycle refuses a connection whose worker died (a closure panicked
// or exited the goroutine) without touching it. Otherwise it
// increments a counter shared by every recycle on the Manager and runs
// "SELECT ?" with the new value through the worker. The connection is
// healthy only if SQLite answers with exactly that value. Because the
// value never repeats, a stale result left over from an abandoned call
// cannot pass for a fresh one.
//
// # Connect functions
//
// [DefaultConnect] opens the file with the driver's defaults. Config
// can layer read-only mode, pragmas ([StandardPragmas] holds the
// Bureau service defaults) and an OnConnect hook on top; a Manager
// also accepts a replacement through [Manager.SetConnectFunc] until
// its first Create.
//
// # Pool
//
// [Pool] puts a Manager behind github.com/jackc/puddle/v2, which
// handles sizing and waiter queueing:
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:     "/var/bureau/telemetry/telemetry.db",
//	    PoolSize: 8,
//	    Pragmas:  []string{"standard"},
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	object, err := pool.Get(ctx)
//	if err != nil {
//	    return err
//	}
//	defer object.Release()
//
//	count, err := sqlitepool.Query(ctx, object.Conn(), func(conn *sqlite.Conn) (int64, error) {
//	    var n int64
//	    err := sqlitex.Execute(conn, "SELECT count(*) FROM spans", &sqlitex.ExecOptions{
//	        ResultFunc: func(stmt *sqlite.Stmt) error {
//	            n = stmt.ColumnInt64(0)
//	            return nil
//	        },
//	    })
//	    return n, err
//	})
//
// This package does not run queries, manage transactions or own a
// schema. It only creates, checks and retires connections.
package sqlitepool

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/bureau-sqlite/lib/clock"
	"github.com/bureau-foundation/bureau-sqlite/lib/syncwrap"
)

// healthCheckQuery asks SQLite to echo its bound parameter.
const healthCheckQuery = "SELECT ?"

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock sets the time source for connection metrics. Defaults to
// clock.Real().
func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// Manager creates and health-checks SQLite connections for a pool
// engine. It is safe for concurrent use.
//
// Create opens a connection on a new dedicated worker. Recycle
// verifies a returned connection before it is handed out again: the
// manager bumps a counter shared by all recycles and has the database
// echo the new value back through the worker. Any other answer means
// the connection cannot be trusted.
type Manager struct {
	config  Config
	logger  *slog.Logger
	clock   clock.Clock
	runtime syncwrap.Runtime

	recycleCount atomic.Int64

	// connectMu guards connect and started. Create takes a snapshot of
	// connect under it; SetConnectFunc is refused once started is set.
	connectMu sync.Mutex
	connect   ConnectFunc
	started   bool

	// echo runs the health check query on the worker.
	echo func(conn *sqlite.Conn, value int64) (int64, error)
}

// NewManager validates cfg and returns a Manager. The connect function
// is derived from cfg (ReadOnly, Pragmas, OnConnect) until replaced
// with SetConnectFunc.
func NewManager(cfg Config, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		config:  cfg,
		logger:  cfg.logger(),
		clock:   clock.Real(),
		runtime: cfg.Runtime,
		connect: cfg.connectFunc(),
		echo:    echoValue,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// SetConnectFunc replaces the function that opens new connections, for
// example to open read-only or register custom SQL functions:
//
//	manager.SetConnectFunc(func(path string) (*sqlite.Conn, error) {
//	    return sqlite.OpenConn(path, sqlite.OpenReadOnly)
//	})
//
// A nil connect restores DefaultConnect. Replacement is only allowed
// before the first Create; afterwards SetConnectFunc returns
// ErrConnectFuncFrozen and the current function stays in place.
func (m *Manager) SetConnectFunc(connect ConnectFunc) error {
	if connect == nil {
		connect = DefaultConnect
	}
	m.connectMu.Lock()
	defer m.connectMu.Unlock()
	if m.started {
		return ErrConnectFuncFrozen
	}
	m.connect = connect
	return nil
}

// Config returns the Manager's configuration.
func (m *Manager) Config() Config {
	return m.config
}

// RecycleCount returns the number of recycle attempts that reached the
// health check so far.
func (m *Manager) RecycleCount() int64 {
	return m.recycleCount.Load()
}

// Create opens a new connection on a dedicated worker. An error from
// the connect function is returned exactly as the connect function
// produced it, and no worker is left behind. Create never retries.
func (m *Manager) Create(ctx context.Context) (*Conn, error) {
	m.connectMu.Lock()
	connect := m.connect
	m.started = true
	m.connectMu.Unlock()

	path := m.config.Path
	wrapper, err := syncwrap.New(ctx, m.runtime,
		func() (*sqlite.Conn, error) { return connect(path) },
		syncwrap.WithLogger(m.logger),
		syncwrap.WithName(path),
	)
	if err != nil {
		m.logger.Debug("sqlite connection open failed", "path", path, "error", err)
		return nil, err
	}

	conn := &Conn{
		wrapper: wrapper,
		path:    path,
		metrics: Metrics{CreatedAt: m.clock.Now()},
	}
	m.logger.Debug("sqlite connection created",
		"path", path,
		"runtime", wrapper.Runtime().String(),
		"thread_id", wrapper.ThreadID(),
	)
	return conn, nil
}

// Recycle checks that conn is still fit to hand to a new caller. It
// returns a *RecycleError when it is not:
//
//   - the worker is poisoned (wraps ErrUnusable, no query is run),
//   - the health check query failed (wraps the query or bridge error),
//   - the query echoed a different value (wraps ErrRecycleCountMismatch).
//
// Every failure is terminal for conn: the pool engine must discard it.
func (m *Manager) Recycle(ctx context.Context, conn *Conn) error {
	if conn.Poisoned() {
		return &RecycleError{Err: ErrUnusable}
	}

	want := m.recycleCount.Add(1)
	echo := m.echo

	started := m.clock.Now()
	got, err := Query(ctx, conn, func(sqliteConn *sqlite.Conn) (int64, error) {
		return echo(sqliteConn, want)
	})
	latency := m.clock.Since(started)
	healthy := err == nil && got == want
	conn.recordRecycle(started.Add(latency), latency, healthy)

	m.logger.Debug("sqlite connection recycled",
		"path", conn.path,
		"recycle_count", want,
		"latency", latency,
		"healthy", healthy,
	)

	if err != nil {
		return &RecycleError{Err: fmt.Errorf("health check: %w", err)}
	}
	if got != want {
		return &RecycleError{Err: ErrRecycleCountMismatch}
	}
	return nil
}

// echoValue runs the health check query and returns the single value
// it produced.
func echoValue(conn *sqlite.Conn, value int64) (int64, error) {
	var (
		echoed int64
		rows   int
	)
	err := sqlitex.Execute(conn, healthCheckQuery, &sqlitex.ExecOptions{
		Args: []any{value},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rows++
			echoed = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	if rows != 1 {
		return 0, fmt.Errorf("health check returned %d rows, want 1", rows)
	}
	return echoed, nil
}

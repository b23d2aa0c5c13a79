// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"

	"github.com/bureau-foundation/bureau-sqlite/lib/syncwrap"
)

// Conn is a SQLite connection confined to its own worker. Callers
// never hold the *sqlite.Conn directly; they pass closures to
// Interact or Query, which run them on the worker one at a time.
type Conn struct {
	wrapper *syncwrap.Wrapper[*sqlite.Conn]
	path    string

	// handedOut is set by Pool.Get on first checkout. Only the holder
	// of the pool resource touches it.
	handedOut bool

	mu      sync.Mutex
	metrics Metrics
}

// Metrics describes a connection's history.
type Metrics struct {
	// CreatedAt is when Create finished opening the connection.
	CreatedAt time.Time

	// RecycledAt is when the last successful health check finished.
	// Zero if the connection has never been recycled.
	RecycledAt time.Time

	// RecycleCount is the number of successful health checks.
	RecycleCount int

	// LastRecycleLatency is how long the last health check took,
	// successful or not.
	LastRecycleLatency time.Duration
}

// Interact runs f on the connection's worker and waits for it.
// Errors from f are returned unchanged; failures of the worker are
// syncwrap bridge errors (see syncwrap.IsBridgeError).
func (c *Conn) Interact(ctx context.Context, f func(*sqlite.Conn) error) error {
	_, err := syncwrap.Interact(ctx, c.wrapper, func(conn *sqlite.Conn) (struct{}, error) {
		return struct{}{}, f(conn)
	})
	return err
}

// Query runs f on c's worker and returns its result.
func Query[R any](ctx context.Context, c *Conn, f func(*sqlite.Conn) (R, error)) (R, error) {
	return syncwrap.Interact(ctx, c.wrapper, f)
}

// Poisoned reports whether the connection's worker terminated
// abnormally. A poisoned connection is never healthy again.
func (c *Conn) Poisoned() bool {
	return c.wrapper.Poisoned()
}

// Path returns the database path the connection was opened with.
func (c *Conn) Path() string {
	return c.path
}

// ThreadID returns the OS thread id of the connection's worker.
func (c *Conn) ThreadID() int {
	return c.wrapper.ThreadID()
}

// Metrics returns a snapshot of the connection's history.
func (c *Conn) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Done returns a channel that is closed once the connection's worker
// has exited, after Close or after the worker died.
func (c *Conn) Done() <-chan struct{} {
	return c.wrapper.Done()
}

// Close closes the connection on its worker and stops the worker.
func (c *Conn) Close() error {
	return c.wrapper.Close()
}

func (c *Conn) recordRecycle(finished time.Time, latency time.Duration, healthy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.LastRecycleLatency = latency
	if healthy {
		c.metrics.RecycledAt = finished
		c.metrics.RecycleCount++
	}
}

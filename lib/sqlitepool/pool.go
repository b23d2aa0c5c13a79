// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
	"zombiezen.com/go/sqlite"
)

// Pool hands out Conns built by a Manager. Waiter queueing and sizing
// come from puddle; Pool adds the health check: a connection that was
// used before is recycled through the Manager before it is handed out
// again, and one that fails is destroyed and replaced.
//
// Pool is safe for concurrent use. Each Object belongs to one caller
// until it is released.
type Pool struct {
	manager  *Manager
	inner    *puddle.Pool[*Conn]
	timeouts Timeouts
	logger   *slog.Logger
	path     string

	discarded atomic.Int64
}

// Open creates a Manager from cfg and a pool around it. Connections
// are opened lazily on Get. The caller must call Close when the pool
// is no longer needed.
func Open(cfg Config, opts ...ManagerOption) (*Pool, error) {
	manager, err := NewManager(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return OpenWithManager(manager)
}

// OpenWithManager creates a pool around an existing Manager, for
// example one whose connect function was replaced with
// SetConnectFunc. The pool size and timeouts come from the Manager's
// Config.
func OpenWithManager(manager *Manager) (*Pool, error) {
	cfg := manager.Config()
	p := &Pool{
		manager:  manager,
		timeouts: cfg.Timeouts,
		logger:   manager.logger,
		path:     cfg.Path,
	}

	poolSize := cfg.poolSize()
	inner, err := puddle.NewPool(&puddle.Config[*Conn]{
		Constructor: p.construct,
		Destructor:  p.destruct,
		MaxSize:     int32(poolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: creating pool for %s: %w", cfg.Path, err)
	}
	p.inner = inner

	p.logger.Info("sqlite pool opened",
		"path", cfg.Path,
		"pool_size", poolSize,
		"runtime", cfg.Runtime.String(),
	)
	return p, nil
}

// Manager returns the Manager that creates and recycles the pool's
// connections.
func (p *Pool) Manager() *Manager {
	return p.manager
}

// Get borrows a connection. It blocks until one is free, a new one has
// been opened, or ctx (bounded by Timeouts.Wait) ends. A connection
// that was used before passes Manager.Recycle first; one that fails is
// destroyed and Get tries again. The caller must Release the Object
// when done:
//
//	object, err := pool.Get(ctx)
//	if err != nil {
//	    return err
//	}
//	defer object.Release()
func (p *Pool) Get(ctx context.Context) (*Object, error) {
	if p.timeouts.Wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeouts.Wait)
		defer cancel()
	}

	for {
		resource, err := p.inner.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("sqlitepool: get %s: %w", p.path, err)
		}

		conn := resource.Value()
		reused := conn.handedOut
		conn.handedOut = true
		if !reused {
			return &Object{resource: resource}, nil
		}

		if err := p.recycle(ctx, conn); err != nil {
			p.discarded.Add(1)
			p.logger.Warn("discarding sqlite connection",
				"path", p.path,
				"thread_id", conn.ThreadID(),
				"error", err,
			)
			resource.Destroy()
			continue
		}
		return &Object{resource: resource}, nil
	}
}

// Stat returns a snapshot of the pool's sizes and counters.
func (p *Pool) Stat() Status {
	stat := p.inner.Stat()
	return Status{
		MaxSize:              stat.MaxResources(),
		Size:                 stat.TotalResources(),
		Idle:                 stat.IdleResources(),
		Acquired:             stat.AcquiredResources(),
		Constructing:         stat.ConstructingResources(),
		AcquireCount:         stat.AcquireCount(),
		EmptyAcquireCount:    stat.EmptyAcquireCount(),
		CanceledAcquireCount: stat.CanceledAcquireCount(),
		RecycleCount:         p.manager.RecycleCount(),
		Discarded:            p.discarded.Load(),
	}
}

// Close closes every connection in the pool. It blocks until all
// borrowed Objects are released. After Close, Get returns an error.
func (p *Pool) Close() {
	p.inner.Close()
	p.logger.Info("sqlite pool closed", "path", p.path)
}

func (p *Pool) recycle(ctx context.Context, conn *Conn) error {
	if p.timeouts.Recycle > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeouts.Recycle)
		defer cancel()
	}
	return p.manager.Recycle(ctx, conn)
}

func (p *Pool) construct(ctx context.Context) (*Conn, error) {
	if p.timeouts.Create > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeouts.Create)
		defer cancel()
	}
	return p.manager.Create(ctx)
}

func (p *Pool) destruct(conn *Conn) {
	if err := conn.Close(); err != nil {
		p.logger.Error("sqlite connection close error",
			"path", p.path,
			"error", err,
		)
	}
}

// Status is a point-in-time view of a Pool.
type Status struct {
	// MaxSize is the configured pool size.
	MaxSize int32

	// Size is the number of open connections, idle or borrowed.
	Size int32

	// Idle is the number of connections waiting in the pool.
	Idle int32

	// Acquired is the number of connections currently borrowed.
	Acquired int32

	// Constructing is the number of connections being opened.
	Constructing int32

	AcquireCount         int64
	EmptyAcquireCount    int64
	CanceledAcquireCount int64

	// RecycleCount is the Manager's recycle counter.
	RecycleCount int64

	// Discarded counts connections destroyed after failing Recycle.
	Discarded int64
}

// Object is a connection borrowed from a Pool. It must be released
// exactly once with Release or Discard; later calls are no-ops.
type Object struct {
	resource *puddle.Resource[*Conn]
	once     sync.Once
}

// Conn returns the borrowed connection.
func (o *Object) Conn() *Conn {
	return o.resource.Value()
}

// Interact runs f on the connection's worker. See Conn.Interact.
func (o *Object) Interact(ctx context.Context, f func(*sqlite.Conn) error) error {
	return o.Conn().Interact(ctx, f)
}

// Release returns the connection to the pool. It is health-checked
// before its next use.
func (o *Object) Release() {
	o.once.Do(o.resource.Release)
}

// Discard closes the connection instead of returning it.
func (o *Object) Discard() {
	o.once.Do(o.resource.Destroy)
}

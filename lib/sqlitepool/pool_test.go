// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/bureau-sqlite/lib/sqlitepool"
	"github.com/bureau-foundation/bureau-sqlite/lib/syncwrap"
	"github.com/bureau-foundation/bureau-sqlite/lib/testutil"
)

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Fatal("expected error for empty Path")
	}
}

func TestFreshObjectSkipsRecycle(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{PoolSize: 1})

	object := getObject(t, pool)
	first := object.Conn()
	object.Release()
	if got := pool.Stat().RecycleCount; got != 0 {
		t.Fatalf("RecycleCount after first Get = %d, want 0", got)
	}

	object = getObject(t, pool)
	defer object.Release()
	if object.Conn() != first {
		t.Fatal("pool of size 1 handed out a different connection")
	}
	if got := pool.Stat().RecycleCount; got != 1 {
		t.Errorf("RecycleCount after reuse = %d, want 1", got)
	}
	if got := object.Conn().Metrics().RecycleCount; got != 1 {
		t.Errorf("connection RecycleCount = %d, want 1", got)
	}
}

func TestPoolReplacesPoisonedConnection(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{PoolSize: 1})

	object := getObject(t, pool)
	poisoned := object.Conn()
	err := object.Interact(context.Background(), func(*sqlite.Conn) error {
		panic("simulated driver crash")
	})
	if !syncwrap.IsBridgeError(err) {
		t.Fatalf("Interact error = %v, want bridge error", err)
	}
	object.Release()

	object = getObject(t, pool)
	defer object.Release()
	if object.Conn() == poisoned {
		t.Fatal("pool handed out a poisoned connection")
	}
	if object.Conn().Poisoned() {
		t.Fatal("replacement connection is poisoned")
	}

	status := pool.Stat()
	if status.Discarded != 1 {
		t.Errorf("Discarded = %d, want 1", status.Discarded)
	}
	if status.RecycleCount != 0 {
		t.Errorf("RecycleCount = %d, want 0 (poisoned recycle must not query)", status.RecycleCount)
	}
}

func TestConcurrentGetAndRelease(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{
		PoolSize: 4,
		Pragmas:  []string{"busy_timeout=5000"},
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, `
				CREATE TABLE IF NOT EXISTS numbers (value INTEGER NOT NULL);
			`, nil)
		},
	})

	setup := getObject(t, pool)
	err := setup.Interact(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, `
			INSERT INTO numbers (value) VALUES (1), (2), (3), (4), (5);
		`, nil)
	})
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	setup.Release()

	const (
		goroutineCount = 16
		iterations     = 20
	)
	var waitGroup sync.WaitGroup
	errs := make(chan error, goroutineCount)
	for range goroutineCount {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for range iterations {
				object, err := pool.Get(context.Background())
				if err != nil {
					errs <- err
					return
				}
				sum, err := sqlitepool.Query(context.Background(), object.Conn(), func(conn *sqlite.Conn) (int64, error) {
					return scalarInt(conn, "SELECT sum(value) FROM numbers")
				})
				object.Release()
				if err != nil {
					errs <- err
					return
				}
				if sum != 15 {
					errs <- fmt.Errorf("sum = %d, want 15", sum)
					return
				}
			}
		}()
	}
	waitGroup.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	status := pool.Stat()
	if status.Size > 4 {
		t.Errorf("Size = %d, exceeds pool size 4", status.Size)
	}
	if status.Discarded != 0 {
		t.Errorf("Discarded = %d, want 0", status.Discarded)
	}
	if status.Acquired != 0 {
		t.Errorf("Acquired = %d after all releases", status.Acquired)
	}
}

func TestGetRespectsWaitTimeout(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{
		PoolSize: 1,
		Timeouts: sqlitepool.Timeouts{Wait: 50 * time.Millisecond},
	})

	held := getObject(t, pool)
	defer held.Release()

	_, err := pool.Get(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Get on exhausted pool = %v, want context.DeadlineExceeded", err)
	}
}

func TestGetCancelled(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{PoolSize: 1})
	held := getObject(t, pool)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Get(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestDiscardRemovesConnection(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{PoolSize: 2})

	object := getObject(t, pool)
	conn := object.Conn()
	object.Discard()
	object.Release()

	testutil.RequireClosed(t, conn.Done(), 5*time.Second, "discarded connection closed")
	err := conn.Interact(context.Background(), func(*sqlite.Conn) error { return nil })
	if !errors.Is(err, syncwrap.ErrClosed) {
		t.Errorf("Interact on discarded connection = %v, want ErrClosed", err)
	}
}

func TestCreateFailureSurfacesFromGet(t *testing.T) {
	manager, err := sqlitepool.NewManager(sqlitepool.Config{
		Path:     testutil.DatabasePath(t, "failing"),
		PoolSize: 1,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	openFailed := errors.New("unable to open database file")
	if err := manager.SetConnectFunc(func(string) (*sqlite.Conn, error) {
		return nil, openFailed
	}); err != nil {
		t.Fatalf("SetConnectFunc: %v", err)
	}

	pool, err := sqlitepool.OpenWithManager(manager)
	if err != nil {
		t.Fatalf("OpenWithManager: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Get(context.Background()); !errors.Is(err, openFailed) {
		t.Fatalf("Get error = %v, want wrapping %v", err, openFailed)
	}
	if size := pool.Stat().Size; size != 0 {
		t.Errorf("Size = %d after failed create, want 0", size)
	}
}

func TestCloseClosesConnections(t *testing.T) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     testutil.DatabasePath(t, "close"),
		PoolSize: 2,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	object := getObject(t, pool)
	conn := object.Conn()
	object.Release()
	pool.Close()

	testutil.RequireClosed(t, conn.Done(), 5*time.Second, "pooled connection closed")
	err = conn.Interact(context.Background(), func(*sqlite.Conn) error { return nil })
	if !errors.Is(err, syncwrap.ErrClosed) {
		t.Errorf("Interact after pool Close = %v, want ErrClosed", err)
	}
	if _, err := pool.Get(context.Background()); err == nil {
		t.Error("Get succeeded on a closed pool")
	}
}

// openTestPool creates a pool backed by a temporary database file.
// The pool is closed automatically when the test completes.
func openTestPool(t *testing.T, cfg sqlitepool.Config) *sqlitepool.Pool {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = testutil.DatabasePath(t, "pool")
	}
	pool, err := sqlitepool.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func getObject(t *testing.T, pool *sqlitepool.Pool) *sqlitepool.Object {
	t.Helper()
	object, err := pool.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return object
}

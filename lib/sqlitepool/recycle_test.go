// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"zombiezen.com/go/sqlite"
)

func TestRecycleMismatchRejected(t *testing.T) {
	manager, conn := newInternalConn(t)

	var ran bool
	manager.echo = func(_ *sqlite.Conn, value int64) (int64, error) {
		ran = true
		return value + 1, nil
	}

	err := manager.Recycle(context.Background(), conn)
	if !ran {
		t.Fatal("health check query did not run")
	}
	if !errors.Is(err, ErrRecycleCountMismatch) {
		t.Fatalf("Recycle error = %v, want ErrRecycleCountMismatch", err)
	}
	if err.Error() != "sqlitepool: recycle: recycle count mismatch" {
		t.Errorf("Recycle error message = %q", err.Error())
	}
	if conn.Metrics().RecycleCount != 0 {
		t.Error("mismatched recycle counted as successful")
	}
}

func TestRecycleStaleValueRejected(t *testing.T) {
	manager, conn := newInternalConn(t)

	// A connection that keeps answering with the first value it saw,
	// as a cached result from an abandoned call would.
	var first int64
	manager.echo = func(sqliteConn *sqlite.Conn, value int64) (int64, error) {
		if first == 0 {
			first = value
		}
		return echoValue(sqliteConn, first)
	}

	if err := manager.Recycle(context.Background(), conn); err != nil {
		t.Fatalf("first Recycle: %v", err)
	}
	if err := manager.Recycle(context.Background(), conn); !errors.Is(err, ErrRecycleCountMismatch) {
		t.Fatalf("second Recycle = %v, want ErrRecycleCountMismatch", err)
	}
}

func TestRecycleQueryErrorWrapped(t *testing.T) {
	manager, conn := newInternalConn(t)

	queryFailed := errors.New("disk I/O error")
	manager.echo = func(*sqlite.Conn, int64) (int64, error) {
		return 0, queryFailed
	}

	err := manager.Recycle(context.Background(), conn)
	if !errors.Is(err, queryFailed) {
		t.Fatalf("Recycle error = %v, want wrapping %v", err, queryFailed)
	}
	if errors.Is(err, ErrRecycleCountMismatch) {
		t.Error("query failure reported as mismatch")
	}
	var recycleError *RecycleError
	if !errors.As(err, &recycleError) {
		t.Errorf("Recycle error %T is not a *RecycleError", err)
	}
}

func TestConcurrentRecyclesObserveDistinctValues(t *testing.T) {
	manager, first := newInternalConn(t)
	second, err := manager.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	var (
		mu       sync.Mutex
		observed = map[int64]int{}
	)
	manager.echo = func(sqliteConn *sqlite.Conn, value int64) (int64, error) {
		mu.Lock()
		observed[value]++
		mu.Unlock()
		return echoValue(sqliteConn, value)
	}

	const rounds = 100
	var waitGroup sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for _, conn := range []*Conn{first, second} {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for range rounds {
				if err := manager.Recycle(context.Background(), conn); err != nil {
					errs <- err
				}
			}
		}()
	}
	waitGroup.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Recycle: %v", err)
	}

	if len(observed) != 2*rounds {
		t.Fatalf("observed %d distinct values, want %d", len(observed), 2*rounds)
	}
	for value := int64(1); value <= 2*rounds; value++ {
		if observed[value] != 1 {
			t.Errorf("value %d observed %d times, want once", value, observed[value])
		}
	}
}

func newInternalConn(t *testing.T) (*Manager, *Conn) {
	t.Helper()
	manager, err := NewManager(Config{Path: filepath.Join(t.TempDir(), "recycle.db")})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	conn, err := manager.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return manager, conn
}

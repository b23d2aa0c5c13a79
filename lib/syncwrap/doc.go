// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package syncwrap confines a blocking, non-thread-safe value to one
// dedicated worker and lets any number of goroutines use it through a
// single-file queue of closures.
//
// A [Wrapper] is created with a constructor that runs on the worker
// itself, so a slow open (SQLite file locks, WAL recovery) never runs
// on the caller's goroutine. Every later access goes through
// [Interact], which hands a closure to the worker and waits for its
// result. Closures run strictly one at a time in submission order; the
// wrapped value never needs its own locking.
//
// # Runtimes
//
// [RuntimeThread] pins the worker goroutine to one OS thread for the
// whole life of the value. Use it for C-backed handles that keep
// thread-local state. [RuntimeGoroutine] uses a dedicated goroutine
// without pinning, which is enough for values that only require
// exclusive access.
//
// # Poisoning
//
// If a closure panics or calls runtime.Goexit, the worker terminates.
// The wrapper is then poisoned: [Wrapper.Poisoned] reports true for
// the rest of its life, the wrapped value is closed by the dying
// worker, and every further [Interact] fails with [ErrPoisoned]. In
// [RuntimeThread] mode the worker exits while still locked, so the Go
// runtime discards the OS thread instead of returning it to the
// scheduler.
//
// # Errors
//
// Interact separates two failure classes. An error returned by the
// closure comes back unchanged. Failures of the worker itself
// ([*PanicError], [ErrTerminated], [ErrPoisoned], [ErrClosed]) are
// bridge errors; [IsBridgeError] tells them apart.
//
// # Cancellation
//
// A caller whose context ends while waiting gets ctx.Err() back. The
// closure it already submitted still runs to completion on the worker;
// nothing interrupts in-flight blocking work.
package syncwrap

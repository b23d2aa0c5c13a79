// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the pool packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern used to wait on worker goroutines, so a wedged worker fails
// the test instead of hanging it. They are the only place in the test
// suite that waits on the wall clock.
//
// [DatabasePath] returns a fresh SQLite file path under t.TempDir,
// named with [UniqueID] so that concurrent subtests never share a
// database file.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil

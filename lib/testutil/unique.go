// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
)

var uniqueCounter atomic.Uint64

// UniqueID returns "prefix-N" where N increases monotonically across
// the test binary.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}

// DatabasePath returns a path for a new SQLite database file inside a
// per-test temporary directory. The file itself is not created.
func DatabasePath(t testing.TB, prefix string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), UniqueID(prefix)+".db")
}

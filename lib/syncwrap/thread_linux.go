// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package syncwrap

import "golang.org/x/sys/unix"

// CurrentThreadID returns the kernel thread id of the calling thread.
func CurrentThreadID() int {
	return unix.Gettid()
}

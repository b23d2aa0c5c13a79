// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package syncwrap

// CurrentThreadID returns 0: thread ids are only available on Linux.
func CurrentThreadID() int {
	return 0
}

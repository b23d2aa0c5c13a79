// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syncwrap

import "fmt"

// Runtime selects the execution substrate a Wrapper's worker runs on.
type Runtime string

const (
	// RuntimeThread pins the worker to a single OS thread with
	// runtime.LockOSThread. This is the default.
	RuntimeThread Runtime = "thread"

	// RuntimeGoroutine runs the worker on a dedicated goroutine that
	// the scheduler may move between threads between calls.
	RuntimeGoroutine Runtime = "goroutine"
)

// Valid reports whether r names a known runtime. The empty string is
// valid and means RuntimeThread.
func (r Runtime) Valid() bool {
	switch r {
	case "", RuntimeThread, RuntimeGoroutine:
		return true
	}
	return false
}

// orDefault maps the empty Runtime to RuntimeThread.
func (r Runtime) orDefault() Runtime {
	if r == "" {
		return RuntimeThread
	}
	return r
}

func (r Runtime) String() string {
	return string(r.orDefault())
}

// UnmarshalText implements encoding.TextUnmarshaler so that a Runtime
// can be read directly from YAML configuration.
func (r *Runtime) UnmarshalText(text []byte) error {
	candidate := Runtime(text)
	if !candidate.Valid() {
		return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidRuntime, text, RuntimeThread, RuntimeGoroutine)
	}
	*r = candidate.orDefault()
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syncwrap

import (
	"errors"
	"fmt"
)

var (
	// ErrPoisoned is returned by Interact on a wrapper whose worker has
	// already terminated abnormally. The wrapped value is gone and the
	// wrapper must be discarded.
	ErrPoisoned = errors.New("syncwrap: worker terminated abnormally, value is unusable")

	// ErrTerminated is returned to the caller whose closure ended the
	// worker without panicking (runtime.Goexit). The wrapper is
	// poisoned afterwards.
	ErrTerminated = errors.New("syncwrap: worker terminated during call")

	// ErrClosed is returned by Interact after Close.
	ErrClosed = errors.New("syncwrap: wrapper closed")

	// ErrInvalidRuntime is returned by New for a Runtime it does not
	// know how to start.
	ErrInvalidRuntime = errors.New("syncwrap: invalid runtime")
)

// PanicError is returned to the caller whose closure panicked on the
// worker. The wrapper is poisoned afterwards.
type PanicError struct {
	// Value is the argument passed to panic.
	Value any

	// Stack is the worker's stack at the point of recovery.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("syncwrap: worker panicked: %v", e.Value)
}

// IsBridgeError reports whether err describes a failure of the worker
// itself rather than an error returned by the submitted closure. A
// bridge error means the wrapped value can no longer be reached.
func IsBridgeError(err error) bool {
	if err == nil {
		return false
	}
	var panicError *PanicError
	return errors.As(err, &panicError) ||
		errors.Is(err, ErrPoisoned) ||
		errors.Is(err, ErrTerminated) ||
		errors.Is(err, ErrClosed)
}

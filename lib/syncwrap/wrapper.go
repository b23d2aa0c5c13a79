// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syncwrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Option configures a Wrapper.
type Option func(*options)

type options struct {
	logger *slog.Logger
	name   string
}

// WithLogger sets the logger for worker lifecycle messages. The
// default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName attaches a name to the wrapper's log messages, typically
// the database path.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Wrapper owns one value of type T on a dedicated worker. All access
// to the value goes through Interact. Wrapper is safe for concurrent
// use; the value itself is only ever touched by the worker.
type Wrapper[T io.Closer] struct {
	runtime Runtime
	logger  *slog.Logger

	// calls carries closures to the worker. Unbuffered: a send
	// completes only when the worker has taken the call.
	calls chan *call[T]

	// quit asks the worker to close the value and exit.
	quit      chan struct{}
	closeOnce sync.Once

	// done is closed when the worker has exited, normally or not.
	// closeError is written before done is closed.
	done       chan struct{}
	closeError error

	poisoned atomic.Bool
	threadID atomic.Int64
}

// call is one submitted closure. failed receives a bridge error if the
// worker dies while running it.
type call[T any] struct {
	run    func(T)
	failed chan error
}

// New starts a worker on the given runtime, runs open on it, and
// returns the wrapper once open has finished.
//
// An error from open is returned unchanged and the worker exits before
// New returns. If ctx ends first, New returns ctx.Err() without
// interrupting open; a value that open produces afterwards is closed
// on the worker.
func New[T io.Closer](ctx context.Context, rt Runtime, open func() (T, error), opts ...Option) (*Wrapper[T], error) {
	if !rt.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRuntime, string(rt))
	}

	settings := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&settings)
	}
	logger := settings.logger
	if settings.name != "" {
		logger = logger.With("name", settings.name)
	}

	w := &Wrapper[T]{
		runtime: rt.orDefault(),
		logger:  logger,
		calls:   make(chan *call[T]),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	ready := make(chan error, 1)
	go w.start(open, ready)

	select {
	case err := <-ready:
		if err != nil {
			return nil, err
		}
		return w, nil
	case <-ctx.Done():
		go func() {
			if err := <-ready; err == nil {
				_ = w.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Interact runs f on w's worker and waits for it to finish. Calls on
// one wrapper run one at a time in the order they were submitted.
//
// The error f returns is passed through unchanged. If f panics or
// terminates the worker, Interact returns a *PanicError or
// ErrTerminated and the wrapper is poisoned. If ctx ends while
// waiting, Interact returns ctx.Err(); an f that was already handed to
// the worker still runs to completion.
func Interact[T io.Closer, R any](ctx context.Context, w *Wrapper[T], f func(T) (R, error)) (R, error) {
	var zero R
	if w.poisoned.Load() {
		return zero, ErrPoisoned
	}

	type result struct {
		value R
		err   error
	}
	results := make(chan result, 1)
	submitted := &call[T]{
		run: func(value T) {
			v, err := f(value)
			results <- result{value: v, err: err}
		},
		failed: make(chan error, 1),
	}

	select {
	case w.calls <- submitted:
	case <-w.done:
		return zero, w.exitError()
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-results:
		return r.value, r.err
	case err := <-submitted.failed:
		return zero, err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Poisoned reports whether the worker terminated abnormally. It never
// blocks. Once true it stays true.
func (w *Wrapper[T]) Poisoned() bool {
	return w.poisoned.Load()
}

// Runtime returns the runtime the worker was started on.
func (w *Wrapper[T]) Runtime() Runtime {
	return w.runtime
}

// ThreadID returns the OS thread id the worker last reported. It is
// stable for the wrapper's lifetime under RuntimeThread. Zero on
// platforms without thread ids.
func (w *Wrapper[T]) ThreadID() int {
	return int(w.threadID.Load())
}

// Done returns a channel that is closed once the worker has exited.
func (w *Wrapper[T]) Done() <-chan struct{} {
	return w.done
}

// Close stops the worker and closes the wrapped value on it, waiting
// for any in-flight call to finish first. Close is idempotent and
// returns the value's Close error. On a poisoned wrapper the value was
// already closed when the worker died.
func (w *Wrapper[T]) Close() error {
	w.closeOnce.Do(func() {
		close(w.quit)
	})
	<-w.done
	return w.closeError
}

// exitError picks the error for calls that arrive after the worker
// has exited.
func (w *Wrapper[T]) exitError() error {
	if w.poisoned.Load() {
		return ErrPoisoned
	}
	return ErrClosed
}

// start is the worker goroutine's entry point.
func (w *Wrapper[T]) start(open func() (T, error), ready chan<- error) {
	if w.runtime == RuntimeThread {
		runtime.LockOSThread()
	}
	w.threadID.Store(int64(CurrentThreadID()))

	value, err := safeOpen(open)
	if err != nil {
		if w.runtime == RuntimeThread {
			runtime.UnlockOSThread()
		}
		close(w.done)
		ready <- err
		return
	}

	w.logger.Debug("sync worker started",
		"runtime", w.runtime.String(),
		"thread_id", w.ThreadID(),
	)
	ready <- nil
	w.serve(value)
}

// serve runs submitted calls until Close or until a call kills the
// worker. Abnormal exit leaves the thread locked so the runtime
// destroys it along with the goroutine.
func (w *Wrapper[T]) serve(value T) {
	var current *call[T]
	exitedNormally := false

	defer func() {
		if exitedNormally {
			return
		}
		recovered := recover()

		var cause error = ErrTerminated
		if recovered != nil {
			cause = &PanicError{Value: recovered, Stack: debug.Stack()}
		}
		w.poisoned.Store(true)
		if current != nil {
			current.failed <- cause
		}

		w.logger.Error("sync worker terminated abnormally",
			"thread_id", w.ThreadID(),
			"error", cause,
		)
		w.closeError = safeClose(value)
		close(w.done)
	}()

	for {
		select {
		case next := <-w.calls:
			current = next
			next.run(value)
			current = nil
		case <-w.quit:
			w.closeError = safeClose(value)
			exitedNormally = true
			if w.runtime == RuntimeThread {
				runtime.UnlockOSThread()
			}
			w.logger.Debug("sync worker stopped", "thread_id", w.ThreadID())
			close(w.done)
			return
		}
	}
}

// safeOpen runs open and converts a panic into a *PanicError.
func safeOpen[T any](open func() (T, error)) (value T, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &PanicError{Value: recovered, Stack: debug.Stack()}
		}
	}()
	return open()
}

// safeClose closes value, converting a panic into an error. A value
// whose worker died mid-call may be in any state.
func safeClose(value io.Closer) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("syncwrap: close panicked: %v", recovered)
		}
	}()
	return value.Close()
}

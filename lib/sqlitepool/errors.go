// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import "errors"

var (
	// ErrUnusable is wrapped by the RecycleError for a connection whose
	// worker terminated abnormally. The health check is not attempted.
	ErrUnusable = errors.New("connection worker terminated abnormally, connection is considered unusable")

	// ErrRecycleCountMismatch is wrapped by the RecycleError for a
	// connection that answered the health check with the wrong value.
	ErrRecycleCountMismatch = errors.New("recycle count mismatch")

	// ErrConnectFuncFrozen is returned by SetConnectFunc once the
	// Manager has started creating connections.
	ErrConnectFuncFrozen = errors.New("sqlitepool: connect function cannot be replaced after the first Create")
)

// RecycleError reports that a connection failed its health check and
// must be discarded. Recycle never retries; the pool replaces the
// connection.
type RecycleError struct {
	Err error
}

func (e *RecycleError) Error() string {
	return "sqlitepool: recycle: " + e.Err.Error()
}

func (e *RecycleError) Unwrap() error {
	return e.Err
}

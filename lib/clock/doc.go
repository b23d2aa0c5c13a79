// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The pool records when connections were created and recycled and how
// long each health check took. Those timestamps come from a [Clock]
// field instead of time.Now so tests can pin them: production code
// uses [Real], tests use [Fake] and move time with
// [FakeClock.Advance].
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	manager, err := sqlitepool.NewManager(cfg, sqlitepool.WithClock(c))
//	c.Advance(5 * time.Second)
package clock

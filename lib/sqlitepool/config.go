// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
	"zombiezen.com/go/sqlite"

	"github.com/bureau-foundation/bureau-sqlite/lib/syncwrap"
)

// standardPragmasKeyword in Config.Pragmas expands to StandardPragmas.
const standardPragmasKeyword = "standard"

// Config holds the parameters for a Manager and the Pool built on it.
// Path is required; all other fields have sensible defaults.
//
// The yaml-tagged fields can be loaded with LoadConfigFile or
// ParseConfig. Logger and OnConnect are code-only.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist. The file is created if it does not
	// exist, unless ReadOnly is set.
	Path string `yaml:"path"`

	// Runtime selects how each connection's dedicated worker runs:
	// "thread" (default) pins it to one OS thread, "goroutine" uses a
	// plain dedicated goroutine.
	Runtime syncwrap.Runtime `yaml:"runtime"`

	// PoolSize is the maximum number of connections the Pool holds. If
	// zero or negative, defaults to max(runtime.NumCPU(), 4). Manager
	// alone ignores it.
	PoolSize int `yaml:"pool_size"`

	// ReadOnly opens connections without write access.
	ReadOnly bool `yaml:"read_only"`

	// Pragmas are applied to every new connection, in order, as
	// "name=value". The entry "standard" expands to StandardPragmas.
	// Empty means a plain open.
	Pragmas []string `yaml:"pragmas"`

	// Timeouts bound the Pool's waits. Zero means no bound.
	Timeouts Timeouts `yaml:"timeouts"`

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger `yaml:"-"`

	// OnConnect is called once per connection, on its worker, after
	// pragmas are applied. If it returns an error the connection is
	// closed and Create fails.
	OnConnect func(conn *sqlite.Conn) error `yaml:"-"`
}

// Timeouts bound the phases of Pool.Get.
type Timeouts struct {
	// Wait bounds the whole Get, including waiting for a free slot.
	Wait time.Duration `yaml:"wait"`

	// Create bounds opening one new connection.
	Create time.Duration `yaml:"create"`

	// Recycle bounds the health check of one reused connection.
	Recycle time.Duration `yaml:"recycle"`
}

// LoadConfigFile reads a YAML configuration file and validates it.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("sqlitepool: reading config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("sqlitepool: config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML configuration and validates it.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c Config) Validate() error {
	var errs []error

	if c.Path == "" {
		errs = append(errs, fmt.Errorf("sqlitepool: path is required"))
	}
	if !c.Runtime.Valid() {
		errs = append(errs, fmt.Errorf("sqlitepool: runtime %q: %w", string(c.Runtime), syncwrap.ErrInvalidRuntime))
	}
	if c.Timeouts.Wait < 0 || c.Timeouts.Create < 0 || c.Timeouts.Recycle < 0 {
		errs = append(errs, fmt.Errorf("sqlitepool: timeouts must not be negative"))
	}
	for _, pragma := range c.Pragmas {
		if pragma == "" {
			errs = append(errs, fmt.Errorf("sqlitepool: empty pragma"))
		}
	}

	return errors.Join(errs...)
}

// poolSize returns the effective pool size.
func (c Config) poolSize() int {
	if c.PoolSize > 0 {
		return c.PoolSize
	}
	size := runtime.NumCPU()
	if size < 4 {
		size = 4
	}
	return size
}

// logger returns the configured logger or a discarding one.
func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// expandedPragmas resolves the "standard" keyword.
func (c Config) expandedPragmas() []string {
	var pragmas []string
	for _, pragma := range c.Pragmas {
		if pragma == standardPragmasKeyword {
			pragmas = append(pragmas, StandardPragmas...)
			continue
		}
		pragmas = append(pragmas, pragma)
	}
	return pragmas
}

// connectFunc builds the ConnectFunc the configuration describes: the
// base open, then pragmas, then OnConnect.
func (c Config) connectFunc() ConnectFunc {
	connect := ConnectFunc(DefaultConnect)
	if c.ReadOnly {
		connect = ConnectReadOnly
	}
	if pragmas := c.expandedPragmas(); len(pragmas) > 0 {
		connect = ConnectWithPragmas(connect, pragmas...)
	}
	if c.OnConnect != nil {
		connect = connectWithSetup(connect, c.OnConnect)
	}
	return connect
}

// Package config holds the process configuration, resolved from flags
// and BACKSET_* environment variables.
package config

import (
	"time"

	"github.com/backset/backset/kit/cli"
	"github.com/backset/backset/sqlite"
)

// DefaultPageSize is the page size applied to listing requests that do
// not specify one.
const DefaultPageSize int64 = 50

// Config carries every operational knob of the process. The pool
// settings tune resource usage only; they are not part of the
// consistency guarantees.
type Config struct {
	HTTPAddr string
	LogLevel string

	DBPath            string
	MinConnections    int
	MaxConnections    int
	AcquireTimeout    time.Duration
	IdleTimeout       time.Duration
	TestBeforeAcquire bool

	PageSize int64
}

// Opts binds every configuration field to its flag and env var.
func (c *Config) Opts() []cli.Opt {
	return []cli.Opt{
		cli.NewOpt(&c.HTTPAddr, "http-bind-address", ":8080", "address the HTTP server listens on"),
		cli.NewOpt(&c.LogLevel, "log-level", "info", "minimum log severity: debug, info, warn or error"),
		cli.NewOpt(&c.DBPath, "db-path", sqlite.DefaultFilename, "path of the sqlite database file"),
		cli.NewOpt(&c.MinConnections, "min-connections", 1, "idle connections kept ready in the pool"),
		cli.NewOpt(&c.MaxConnections, "max-connections", 10, "max open connections in the pool"),
		cli.NewOpt(&c.AcquireTimeout, "acquire-timeout", 750*time.Millisecond, "time allowed to acquire a connection"),
		cli.NewOpt(&c.IdleTimeout, "idle-timeout", 300*time.Second, "max time a connection can remain idle"),
		cli.NewOpt(&c.TestBeforeAcquire, "test-before-acquire", false, "verify the database connection at start-up"),
		cli.NewOpt(&c.PageSize, "page-size", DefaultPageSize, "default page size for listing requests"),
	}
}

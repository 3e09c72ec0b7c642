// Package sqlite provides the transactional store backing the tenant
// and element repositories.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	// DefaultFilename is the name of the sqlite database file created
	// when no explicit path is configured.
	DefaultFilename = "backset.sqlite"

	// InMemoryPath opens a process-private in-memory database, used by
	// tests.
	InMemoryPath = ":memory:"

	migrationsTableName = "migrations"
)

// SqlStore wraps the database handle and the write lock. sqlite allows
// multiple concurrent readers but only a single writer, so mutating
// operations must hold Mu for writing.
type SqlStore struct {
	Mu sync.RWMutex
	DB *sqlx.DB

	log            *zap.Logger
	path           string
	acquireTimeout time.Duration
	pingOnStart    bool
}

// Option configures operational knobs of the connection pool. None of
// them affect the consistency guarantees.
type Option func(*SqlStore)

// WithMaxConnections bounds the number of open connections.
func WithMaxConnections(n int) Option {
	return func(s *SqlStore) {
		s.DB.SetMaxOpenConns(n)
	}
}

// WithMinConnections keeps up to n idle connections ready.
func WithMinConnections(n int) Option {
	return func(s *SqlStore) {
		s.DB.SetMaxIdleConns(n)
	}
}

// WithIdleTimeout closes connections idle for longer than d.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *SqlStore) {
		s.DB.SetConnMaxIdleTime(d)
	}
}

// WithAcquireTimeout bounds how long BeginTx waits for a free
// connection before failing with a pool-exhaustion error.
func WithAcquireTimeout(d time.Duration) Option {
	return func(s *SqlStore) {
		s.acquireTimeout = d
	}
}

// WithPingOnStart verifies the connection when the store is opened.
func WithPingOnStart() Option {
	return func(s *SqlStore) {
		s.pingOnStart = true
	}
}

// NewSqlStore opens the database at path, creating it if needed.
func NewSqlStore(path string, log *zap.Logger, opts ...Option) (*SqlStore, error) {
	db, err := sqlx.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}
	log.Info("Resources opened", zap.String("path", path))

	s := &SqlStore{
		DB:   db,
		log:  log,
		path: path,
	}

	for _, o := range opts {
		o(s)
	}

	if s.pingOnStart {
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

// memSeq distinguishes in-memory databases from each other. Without a
// unique name every pooled connection of every store would attach to
// the same shared-cache database.
var memSeq atomic.Int64

// dsn enables foreign key enforcement on every connection and, for
// in-memory databases, a named shared cache so all pooled connections
// of one store see the same data.
func dsn(path string) string {
	if path == InMemoryPath {
		return fmt.Sprintf("file:memdb%d?mode=memory&cache=shared&_busy_timeout=5000&_foreign_keys=on", memSeq.Add(1))
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
}

// Close the connection to the sqlite database.
func (s *SqlStore) Close() error {
	return s.DB.Close()
}

// BeginTx starts the transaction scoping one logical operation. Every
// repository call runs inside exactly one such scope; the caller must
// finish it with Commit or Rollback on all exit paths. Acquisition
// blocks until a pooled connection frees up or the configured acquire
// timeout elapses.
func (s *SqlStore) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	if s.acquireTimeout > 0 {
		pingCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
		defer cancel()
		if err := s.DB.PingContext(pingCtx); err != nil {
			return nil, fmt.Errorf("acquiring database connection: %w", err)
		}
	}

	return s.DB.BeginTxx(ctx, nil)
}

// IsUniqueConstraintErr reports whether err is the storage engine
// rejecting a write that would violate a uniqueness constraint. The
// services translate these into the same conflict error the pre-checks
// produce, so callers cannot distinguish timing-dependent outcomes.
func IsUniqueConstraintErr(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code == sqlite3.ErrConstraint &&
		(serr.ExtendedCode == sqlite3.ErrConstraintUnique || serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

// IsForeignKeyErr reports whether err is the storage engine rejecting a
// write referencing a missing parent row.
func IsForeignKeyErr(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code == sqlite3.ErrConstraint && serr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// userVersion returns the value of the user_version pragma, which
// records the latest applied migration.
func (s *SqlStore) userVersion() (int, error) {
	var v int
	if err := s.DB.Get(&v, "PRAGMA user_version"); err != nil {
		return 0, err
	}
	return v, nil
}

// execTrans executes a script of one or more statements in a single
// transaction.
func (s *SqlStore) execTrans(ctx context.Context, stmt string) error {
	// use a lock to prevent two potential simultaneous write operations
	// to the database, which would throw an error
	s.Mu.Lock()
	defer s.Mu.Unlock()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Flush deletes all records from all tables except the migration
// bookkeeping table. Used by tests.
func (s *SqlStore) Flush(ctx context.Context) {
	tables, err := s.tableNames()
	if err != nil {
		s.log.Fatal("unable to flush sqlite", zap.Error(err))
	}

	for _, t := range tables {
		if t == migrationsTableName {
			continue
		}

		stmt := fmt.Sprintf("DELETE FROM %s", t)
		if err := s.execTrans(ctx, stmt); err != nil {
			s.log.Fatal("unable to flush sqlite", zap.Error(err))
		}
	}
	s.log.Debug("sqlite data flushed successfully")
}

func (s *SqlStore) tableNames() ([]string, error) {
	var names []string
	if err := s.DB.Select(&names, "SELECT name FROM sqlite_master WHERE type='table'"); err != nil {
		return nil, err
	}
	return names, nil
}

// queryToStrings is a test helper for running ad-hoc single-column
// queries.
func (s *SqlStore) queryToStrings(stmt string) ([]string, error) {
	var out []string
	if err := s.DB.Select(&out, stmt); err != nil {
		return nil, err
	}
	return out, nil
}

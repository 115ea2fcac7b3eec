package database

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/lostfound-api/pkg/config"
)

// DSN renders the lib/pq connection string for the configuration.
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// NewPostgres returns a configured PostgreSQL client without contacting the server.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	return db, nil
}

// ErrNotReady is returned by Ensure while another caller is still running
// the setup hook.
var ErrNotReady = errors.New("database setup in progress")

// SetupFunc prepares a reachable database before it serves traffic.
type SetupFunc func(ctx context.Context) error

// Handle is the process-wide storage handle. The pool is opened eagerly (no
// network traffic) and verified lazily: Ensure pings the server and runs the
// setup hook until both succeed once, and is a no-op afterwards.
type Handle struct {
	db    *sqlx.DB
	setup SetupFunc

	ready     atomic.Bool
	preparing atomic.Bool
}

// NewHandle wraps an opened pool.
func NewHandle(db *sqlx.DB) *Handle {
	return &Handle{db: db}
}

// OnReady registers work that must finish before Ensure reports success.
// Call it before the handle is shared.
func (h *Handle) OnReady(fn SetupFunc) {
	h.setup = fn
}

// Open builds a Handle for the given configuration.
func Open(cfg config.DatabaseConfig) (*Handle, error) {
	db, err := NewPostgres(cfg)
	if err != nil {
		return nil, err
	}
	return NewHandle(db), nil
}

// DB exposes the underlying pool for repository construction.
func (h *Handle) DB() *sqlx.DB {
	return h.db
}

// Ensure verifies connectivity and runs the setup hook once. Failed attempts
// are not memoised so a later call retries. Callers never wait on each other:
// each ping honours its own context, and a caller arriving while setup runs
// gets ErrNotReady.
func (h *Handle) Ensure(ctx context.Context) error {
	if h.ready.Load() {
		return nil
	}
	if err := h.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if !h.preparing.CompareAndSwap(false, true) {
		return ErrNotReady
	}
	defer h.preparing.Store(false)
	if h.ready.Load() {
		return nil
	}
	if h.setup != nil {
		if err := h.setup(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("prepare database: %w", err)
		}
	}
	h.ready.Store(true)
	return nil
}

// Close releases the pool.
func (h *Handle) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

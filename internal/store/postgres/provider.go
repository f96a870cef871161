// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lien-Gu/bookrank/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// DB is the subset of pgxpool.Pool the stores use. pgxmock satisfies it,
// which keeps the stores testable without a live database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// Provider bundles the Postgres stores behind one pool.
type Provider struct {
	db       DB
	books    *BookStore
	rankings *RankingStore
	tasks    *TaskStore
}

// New connects a pool and builds the stores.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithDB(pool), nil
}

// NewWithDB constructs a Provider from an existing handle (primarily for
// testing with pgxmock).
func NewWithDB(db DB) *Provider {
	return &Provider{
		db:       db,
		books:    &BookStore{db: db},
		rankings: &RankingStore{db: db},
		tasks:    &TaskStore{db: db},
	}
}

// EnsureSchema creates the tables if they do not exist.
func (p *Provider) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Books returns the book store.
func (p *Provider) Books() store.BookStore { return p.books }

// Rankings returns the ranking store.
func (p *Provider) Rankings() store.RankingStore { return p.rankings }

// Tasks returns the task store.
func (p *Provider) Tasks() store.TaskStore { return p.tasks }

// Ping verifies database connectivity.
func (p *Provider) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close releases the underlying pool resources.
func (p *Provider) Close() {
	if p == nil || p.db == nil {
		return
	}
	p.db.Close()
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

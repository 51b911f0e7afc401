package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the slot store pool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns        int32
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
}

var defaultPool = PoolOptions{
	MaxConnIdleTime: 5 * time.Minute,
	MaxConnLifetime: 30 * time.Minute,
}

// merge overrides o with the non-zero fields of other.
func (o PoolOptions) merge(other PoolOptions) PoolOptions {
	if other.MaxConns > 0 {
		o.MaxConns = other.MaxConns
	}
	if other.MaxConnIdleTime > 0 {
		o.MaxConnIdleTime = other.MaxConnIdleTime
	}
	if other.MaxConnLifetime > 0 {
		o.MaxConnLifetime = other.MaxConnLifetime
	}
	return o
}

// Connect opens a pgx pool for the slot store and pings it.
func Connect(ctx context.Context, dsn string, opts ...PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	o := defaultPool
	if len(opts) > 0 {
		o = o.merge(opts[0])
	}
	if o.MaxConns > 0 {
		cfg.MaxConns = o.MaxConns
	}
	if o.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = o.MaxConnIdleTime
	}
	if o.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = o.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

// Copyright 2026 Polisight Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/polisight/vectra/retry"
)

const (
	defaultMinConns       = 2
	defaultMaxConns       = 10
	defaultAcquireTimeout = 30 * time.Second

	retryMaxAttempts = 3
	retryBaseDelay   = 4 * time.Second
	retryMaxDelay    = 10 * time.Second
)

// ErrEmptyDatabaseURL indicates pool construction without a DSN.
var ErrEmptyDatabaseURL = errors.New("database URL cannot be empty")

// PoolConfig configures the connection pool.
type PoolConfig struct {
	// URL is the Postgres DSN.
	URL string

	// MinConns and MaxConns bound the pool size. Zero values take the
	// package defaults.
	MinConns int32
	MaxConns int32

	// AcquireTimeout bounds how long Acquire blocks on an exhausted
	// pool before giving up.
	AcquireTimeout time.Duration

	// SetupStatements run once on every new physical connection, after
	// the built-in session setup.
	SetupStatements []string
}

// PoolStats is a point-in-time snapshot of pool counters.
type PoolStats struct {
	ConnectionsCreated int64
	ActiveConns        int32
	IdleConns          int32
	Queries            int64
	Errors             int64
	LastError          string
}

// HealthReport is the result of a pool health check round-trip.
type HealthReport struct {
	Healthy bool
	Latency time.Duration
	Stats   PoolStats
}

// Pool owns a bounded set of database connections and wraps single
// statements in transient-only retry.
type Pool struct {
	inner          *pgxpool.Pool
	acquireTimeout time.Duration
	policy         retry.Policy
	logger         *slog.Logger

	created  atomic.Int64
	queries  atomic.Int64
	errCount atomic.Int64
	lastErr  atomic.Value // string
}

// NewPool creates and verifies a connection pool.
// Initialization failure is fatal and propagates to the caller.
func NewPool(ctx context.Context, config PoolConfig) (*Pool, error) {
	if config.URL == "" {
		return nil, ErrEmptyDatabaseURL
	}

	pgxConfig, err := pgxpool.ParseConfig(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	pgxConfig.MinConns = config.MinConns
	if pgxConfig.MinConns == 0 {
		pgxConfig.MinConns = defaultMinConns
	}
	pgxConfig.MaxConns = config.MaxConns
	if pgxConfig.MaxConns == 0 {
		pgxConfig.MaxConns = defaultMaxConns
	}
	pgxConfig.ConnConfig.RuntimeParams["application_name"] = "vectra"

	pool := &Pool{
		acquireTimeout: config.AcquireTimeout,
		policy: retry.Policy{
			MaxAttempts: retryMaxAttempts,
			BaseDelay:   retryBaseDelay,
			MaxDelay:    retryMaxDelay,
			Retryable:   IsTransient,
		},
		logger: slog.Default().With("component", "pool"),
	}
	if pool.acquireTimeout == 0 {
		pool.acquireTimeout = defaultAcquireTimeout
	}

	// Runs exactly once per physical connection.
	pgxConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pool.created.Add(1)
		if err := pgxvector.RegisterTypes(ctx, conn); err != nil {
			return fmt.Errorf("register vector types: %w", err)
		}
		setup := append([]string{"SET TIME ZONE 'UTC'"}, config.SetupStatements...)
		for _, stmt := range setup {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("session setup %q: %w", stmt, err)
			}
		}
		return nil
	}

	inner, err := pgxpool.NewWithConfig(ctx, pgxConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := inner.Ping(ctx); err != nil {
		inner.Close()
		return nil, fmt.Errorf("verify pool: %w", err)
	}

	pool.inner = inner
	pool.logger.Info("connection pool ready",
		"minConns", pgxConfig.MinConns, "maxConns", pgxConfig.MaxConns)
	return pool, nil
}

// Close drains and closes the pool.
func (p *Pool) Close() {
	p.inner.Close()
}

// Acquire returns a scoped connection handle. The caller must Release
// it on every exit path. Blocks until a connection frees or the pool's
// acquire deadline elapses.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.inner.Acquire(ctx)
	if err != nil {
		p.recordError(err)
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// Exec runs a single statement without retry.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tag, err := p.inner.Exec(ctx, sql, args...)
	p.record(err)
	return tag, err
}

// Query runs a single query without retry.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := p.inner.Query(ctx, sql, args...)
	p.record(err)
	return rows, err
}

// QueryRow runs a single-row query without retry.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	p.queries.Add(1)
	return p.inner.QueryRow(ctx, sql, args...)
}

// ExecWithRetry wraps a single statement in up to three attempts with
// exponential backoff, retrying only transient failure classes.
func (p *Pool) ExecWithRetry(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	var tag pgconn.CommandTag
	err := retry.Do(ctx, p.policy, func() error {
		var execErr error
		tag, execErr = p.inner.Exec(ctx, sql, args...)
		p.record(execErr)
		return execErr
	})
	return tag, err
}

// QueryWithRetry wraps a single query in transient-only retry. The
// returned rows must be closed by the caller.
func (p *Pool) QueryWithRetry(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	var rows pgx.Rows
	err := retry.Do(ctx, p.policy, func() error {
		var queryErr error
		rows, queryErr = p.inner.Query(ctx, sql, args...)
		p.record(queryErr)
		return queryErr
	})
	return rows, err
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	stats := PoolStats{
		ConnectionsCreated: p.created.Load(),
		Queries:            p.queries.Load(),
		Errors:             p.errCount.Load(),
	}
	if p.inner != nil {
		inner := p.inner.Stat()
		stats.ActiveConns = inner.AcquiredConns()
		stats.IdleConns = inner.IdleConns()
	}
	if last, ok := p.lastErr.Load().(string); ok {
		stats.LastError = last
	}
	return stats
}

// HealthCheck performs a trivial round-trip and reports latency plus
// the pool counters.
func (p *Pool) HealthCheck(ctx context.Context) HealthReport {
	start := time.Now()
	var one int
	err := p.QueryRow(ctx, "SELECT 1").Scan(&one)
	if err != nil {
		p.recordError(err)
	}
	return HealthReport{
		Healthy: err == nil,
		Latency: time.Since(start),
		Stats:   p.Stats(),
	}
}

func (p *Pool) record(err error) {
	p.queries.Add(1)
	if err != nil {
		p.recordError(err)
	}
}

func (p *Pool) recordError(err error) {
	p.errCount.Add(1)
	p.lastErr.Store(err.Error())
}

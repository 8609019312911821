// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// pool wraps sqlitex.Pool with the pragmas and schema every catalog
// connection needs. The catalog is small and contention is rare, so
// the pool stays deliberately tiny.
type pool struct {
	inner *sqlitex.Pool
}

const poolSize = 2

func openPool(path string) (*pool, error) {
	inner, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %s: %w", path, err)
	}
	return &pool{inner: inner}, nil
}

func (p *pool) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: take connection: %w", err)
	}
	return conn, nil
}

func (p *pool) put(conn *sqlite.Conn) { p.inner.Put(conn) }

func (p *pool) close() error { return p.inner.Close() }

func prepareConn(conn *sqlite.Conn) error {
	// WAL + NORMAL: crash-safe, with at most the tail of recent
	// transactions lost on power failure.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("catalog: %s: %w", pragma, err)
		}
	}
	return sqlitex.ExecuteScript(conn, schema, nil)
}

const schema = `
CREATE TABLE IF NOT EXISTS environments (
    name           TEXT PRIMARY KEY,
    name_lower     TEXT NOT NULL UNIQUE,
    root_dir       TEXT NOT NULL,
    distribution   TEXT NOT NULL,
    variant        TEXT NOT NULL,
    hostname       TEXT NOT NULL,
    shell          TEXT NOT NULL,
    status         TEXT NOT NULL CHECK (status IN ('pending', 'active', 'corrupt')),
    created_at     INTEGER NOT NULL,
    last_launch_at INTEGER
);
`
